package firestore

import (
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/xenking/nks-storefront/internal/domain/cart"
	"github.com/xenking/nks-storefront/internal/domain/order"
)

func TestToFirestore(t *testing.T) {
	got := toFirestore(map[string]any{
		"price":  decimal.RequireFromString("1000.50"),
		"list":   []any{decimal.NewFromInt(2), "x"},
		"nested": map[string]any{"netPrice": decimal.NewFromInt(900)},
	})

	assert.Equal(t, map[string]any{
		"price":  "1000.5",
		"list":   []any{"2", "x"},
		"nested": map[string]any{"netPrice": "900"},
	}, got)
}

func TestCartData(t *testing.T) {
	lines := []cart.Line{{ProductID: "P1", Quantity: 2}, {ProductID: "P2", Quantity: 1}}

	data := linesToData(lines)
	assert.Equal(t, map[string]any{"items": []any{
		map[string]any{"id": "P1", "quantity": int64(2)},
		map[string]any{"id": "P2", "quantity": int64(1)},
	}}, data)

	assert.Equal(t, lines, linesFromData(data))
	assert.Equal(t, []cart.Line{}, linesFromData(map[string]any{"items": []any{}}))
	assert.Equal(t, []cart.Line{}, linesFromData(map[string]any{}))
	assert.Equal(t, []cart.Line{{ProductID: "P3", Quantity: 1}},
		linesFromData(map[string]any{"items": []any{"junk", map[string]any{"id": "P3", "quantity": 1.0}}}))
}

func TestOrderData(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	o := &order.Order{
		ID:            "o1",
		UserID:        "u1",
		TransactionID: "t1",
		Products:      []order.Item{{Title: "Filtro", Quantity: 2, Price: decimal.NewFromInt(900)}},
		TotalAmount:   decimal.NewFromInt(1800),
		PaymentStatus: "Aceptada",
		CreatedAt:     at,
	}

	data := orderToData(o)
	assert.Equal(t, 1800.0, data["totalAmount"])

	got := orderFromData("o1", data)
	assert.Equal(t, o.UserID, got.UserID)
	assert.True(t, o.TotalAmount.Equal(got.TotalAmount))
	assert.Equal(t, at, got.CreatedAt)
	assert.Len(t, got.Products, 1)
	assert.True(t, decimal.NewFromInt(900).Equal(got.Products[0].Price))
}

func TestStatusCodes(t *testing.T) {
	assert.True(t, isNotFound(status.Error(codes.NotFound, "missing")))
	assert.False(t, isNotFound(errors.New("boom")))
	assert.True(t, isAlreadyExists(status.Error(codes.AlreadyExists, "dup")))
}
