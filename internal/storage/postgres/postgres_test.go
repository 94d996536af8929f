package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/nks-storefront/internal/auth/local"
	"github.com/xenking/nks-storefront/internal/domain/cart"
	"github.com/xenking/nks-storefront/internal/domain/order"
	"github.com/xenking/nks-storefront/internal/domain/product"
	"github.com/xenking/nks-storefront/internal/domain/profile"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestProductRepository_List(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(listProducts).WillReturnRows(
		pgxmock.NewRows([]string{"id", "doc"}).
			AddRow("P1", []byte(`{"title":"Filtro","price":"1000","netPrice":900,"discount":10,"stock":"-2",
				"compatibleVehicles":[{"brand":"Mazda","model":"3","year":2019,"engineSize":"2.0"}]}`)).
			AddRow("P2", []byte(`{"title":"Bujía","price":50.5}`)),
	)

	products, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	p1 := products[0]
	assert.Equal(t, "P1", p1.ID)
	assert.Equal(t, "Filtro", p1.Title)
	assert.True(t, decimal.NewFromInt(1000).Equal(p1.Price))
	assert.True(t, decimal.NewFromInt(900).Equal(p1.NetPrice))
	assert.Equal(t, 0, p1.Stock)
	require.Len(t, p1.CompatibleVehicles, 1)
	assert.Equal(t, product.Vehicle{Brand: "Mazda", Model: "3", Year: "2019", EngineSize: "2.0"}, p1.CompatibleVehicles[0])

	assert.True(t, decimal.RequireFromString("50.5").Equal(products[1].Price))
	assert.True(t, products[1].Discount.IsZero())
}

func TestProductRepository_List_BadDocument(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(listProducts).WillReturnRows(
		pgxmock.NewRows([]string{"id", "doc"}).AddRow("P1", []byte(`[]`)),
	)

	_, err := repo.List(context.Background())
	require.ErrorContains(t, err, `product "P1"`)
}

func TestProductRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		repo := NewProductRepository(mock)
		mock.ExpectQuery(getProduct).WithArgs("P1").WillReturnRows(
			pgxmock.NewRows([]string{"id", "doc"}).AddRow("P1", []byte(`{"title":"Filtro"}`)),
		)

		p, err := repo.GetByID(context.Background(), "P1")
		require.NoError(t, err)
		assert.Equal(t, "Filtro", p.Title)
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		repo := NewProductRepository(mock)
		mock.ExpectQuery(getProduct).WithArgs("nope").WillReturnRows(
			pgxmock.NewRows([]string{"id", "doc"}),
		)

		_, err := repo.GetByID(context.Background(), "nope")
		require.ErrorIs(t, err, product.ErrNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMock(t)
		repo := NewProductRepository(mock)
		mock.ExpectQuery(getProduct).WithArgs("P1").WillReturnError(errors.New("conn reset"))

		_, err := repo.GetByID(context.Background(), "P1")
		require.ErrorContains(t, err, "conn reset")
		require.NotErrorIs(t, err, product.ErrNotFound)
	})
}

func TestProductRepository_Upsert(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectExec(upsertProduct).
		WithArgs("P1", []byte(`{"price":"10","title":"Filtro"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Upsert(context.Background(), "P1", map[string]any{"title": "Filtro", "price": "10"}))
}

func TestCartRepository_Load(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []cart.Line
	}{
		{
			name: "items",
			doc:  `{"items":[{"id":"P1","quantity":2},{"id":"P2","quantity":1.0}],"note":"kept"}`,
			want: []cart.Line{{ProductID: "P1", Quantity: 2}, {ProductID: "P2", Quantity: 1}},
		},
		{
			name: "no items field",
			doc:  `{"other":true}`,
			want: []cart.Line{},
		},
		{
			name: "junk fields ignored",
			doc:  `{"items":[{"id":7,"quantity":"x","extra":{}}]}`,
			want: []cart.Line{{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewCartRepository(mock)
			mock.ExpectQuery(loadCart).WithArgs("u1").WillReturnRows(
				pgxmock.NewRows([]string{"doc"}).AddRow([]byte(tt.doc)),
			)

			lines, err := repo.Load(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, lines)
		})
	}
}

func TestCartRepository_Load_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)
	mock.ExpectQuery(loadCart).WithArgs("u1").WillReturnError(pgx.ErrNoRows)

	_, err := repo.Load(context.Background(), "u1")
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCartRepository_Save(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectExec(saveCart).
		WithArgs("u1", []byte(`{"items":[{"id":"P1","quantity":3}]}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(saveCart).
		WithArgs("u1", []byte(`{"items":[]}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, "u1", []cart.Line{{ProductID: "P1", Quantity: 3}}))
	require.NoError(t, repo.Save(ctx, "u1", nil))
}

func TestProfileRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("get", func(t *testing.T) {
		mock := newMock(t)
		repo := NewProfileRepository(mock)
		mock.ExpectQuery(getProfile).WithArgs("u1").WillReturnRows(
			pgxmock.NewRows([]string{"email", "name", "phone", "address"}).
				AddRow("a@b.co", "Ana", "300", "Calle 1"),
		)

		p, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, &profile.Profile{Email: "a@b.co", Name: "Ana", Phone: "300", Address: "Calle 1"}, p)
	})

	t.Run("get missing", func(t *testing.T) {
		mock := newMock(t)
		repo := NewProfileRepository(mock)
		mock.ExpectQuery(getProfile).WithArgs("u1").WillReturnError(pgx.ErrNoRows)

		_, err := repo.Get(ctx, "u1")
		require.ErrorIs(t, err, profile.ErrNotFound)
	})

	t.Run("create", func(t *testing.T) {
		mock := newMock(t)
		repo := NewProfileRepository(mock)
		mock.ExpectExec(createProfile).WithArgs("u1", "a@b.co", "Ana").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, "u1", profile.Profile{Email: "a@b.co", Name: "Ana"}))
	})

	t.Run("update missing", func(t *testing.T) {
		mock := newMock(t)
		repo := NewProfileRepository(mock)
		mock.ExpectExec(updateProfile).WithArgs("u1", "Ana", "300", "Calle 1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, "u1", profile.Update{Name: "Ana", Phone: "300", Address: "Calle 1"})
		require.ErrorIs(t, err, profile.ErrNotFound)
	})
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("create", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)

		o := &order.Order{
			ID:              "o1",
			UserID:          "u1",
			TransactionID:   "1717171717171",
			TransactionDate: "2024-06-01 10:00:00",
			Products:        []order.Item{{Title: "Filtro", Quantity: 2, Price: decimal.NewFromInt(900)}},
			TotalAmount:     decimal.NewFromInt(1800),
			PaymentStatus:   "Aceptada",
			TransactionURL:  "https://shop/payment-response?ref_payco=abc",
			CreatedAt:       created,
		}
		mock.ExpectExec(createOrder).
			WithArgs("o1", "u1", "1717171717171", "2024-06-01 10:00:00",
				[]byte(`[{"title":"Filtro","quantity":2,"price":900}]`),
				o.TotalAmount, "Aceptada", o.TransactionURL, created).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, o))
	})

	t.Run("list by user", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)

		mock.ExpectQuery(listOrdersByUser).WithArgs("u1").WillReturnRows(
			pgxmock.NewRows([]string{
				"id", "user_id", "transaction_id", "transaction_date", "products",
				"total_amount", "payment_status", "transaction_url", "created_at",
			}).AddRow("o2", "u1", "t2", "", []byte(`[{"title":"Bujía","quantity":1,"price":50.5}]`),
				decimal.RequireFromString("50.5"), "Aceptada", "", created.Add(time.Hour)).
				AddRow("o1", "u1", "t1", "", []byte(`[]`),
					decimal.Zero, "Aceptada", "", created),
		)

		orders, err := repo.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "o2", orders[0].ID)
		require.Len(t, orders[0].Products, 1)
		assert.Equal(t, "Bujía", orders[0].Products[0].Title)
		assert.True(t, decimal.RequireFromString("50.5").Equal(orders[0].Products[0].Price))
		assert.Empty(t, orders[1].Products)
	})
}

func TestCredentialRepository(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	c := &local.Credential{UID: "u1", Email: "a@b.co", PasswordHash: "hash", CreatedAt: created}

	t.Run("create duplicate", func(t *testing.T) {
		mock := newMock(t)
		repo := NewCredentialRepository(mock)
		mock.ExpectExec(createCredential).WithArgs("u1", "a@b.co", "hash", created).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation})

		require.ErrorIs(t, repo.CreateCredential(ctx, c), local.ErrEmailTaken)
	})

	t.Run("by email", func(t *testing.T) {
		mock := newMock(t)
		repo := NewCredentialRepository(mock)
		mock.ExpectQuery(credentialByEmail).WithArgs("a@b.co").WillReturnRows(
			pgxmock.NewRows([]string{"uid", "email", "password_hash", "created_at"}).
				AddRow("u1", "a@b.co", "hash", created),
		)

		got, err := repo.CredentialByEmail(ctx, "a@b.co")
		require.NoError(t, err)
		assert.Equal(t, c, got)
	})

	t.Run("by uid missing", func(t *testing.T) {
		mock := newMock(t)
		repo := NewCredentialRepository(mock)
		mock.ExpectQuery(credentialByUID).WithArgs("u9").WillReturnError(pgx.ErrNoRows)

		_, err := repo.CredentialByUID(ctx, "u9")
		require.ErrorIs(t, err, local.ErrNotFound)
	})

	t.Run("set hash", func(t *testing.T) {
		mock := newMock(t)
		repo := NewCredentialRepository(mock)
		mock.ExpectExec(setPasswordHash).WithArgs("u1", "new").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.SetPasswordHash(ctx, "u1", "new"))
	})
}
