package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/nks-storefront/internal/domain/cart"
	"github.com/xenking/nks-storefront/internal/domain/order"
	"github.com/xenking/nks-storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockVerifier struct {
	payment *Payment
	err     error
	refs    []string
}

func (m *mockVerifier) Verify(_ context.Context, ref string) (*Payment, error) {
	m.refs = append(m.refs, ref)
	if m.err != nil {
		return nil, m.err
	}
	p := *m.payment
	p.Reference = ref
	return &p, nil
}

type mockResolver struct {
	products map[string]product.Product
}

func (m *mockResolver) Resolve(_ context.Context, lines []cart.Line) cart.Summary {
	s := cart.Summary{Total: decimal.Zero}
	for _, l := range lines {
		p, ok := m.products[l.ProductID]
		if !ok {
			continue
		}
		it := cart.Item{Product: p, Quantity: l.Quantity}
		s.Items = append(s.Items, it)
		s.TotalItems += l.Quantity
		s.Total = s.Total.Add(it.Subtotal())
	}
	return s
}

type mockOrders struct {
	recorded []*order.Order
	err      error
}

func (m *mockOrders) Record(_ context.Context, o *order.Order) error {
	if m.err != nil {
		return m.err
	}
	o.ID = "order-" + o.TransactionID
	m.recorded = append(m.recorded, o)
	return nil
}

type mockPublisher struct {
	published []string
	err       error
}

func (m *mockPublisher) OrderConfirmed(_ context.Context, o *order.Order) error {
	m.published = append(m.published, o.ID)
	return m.err
}

type memStore struct {
	mu   sync.Mutex
	docs map[string][]cart.Line
}

func (m *memStore) Load(_ context.Context, userID string) ([]cart.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.docs[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return lines, nil
}

func (m *memStore) Save(_ context.Context, userID string, lines []cart.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[userID] = lines
	return nil
}

// --- Helpers ---

func testProducts() map[string]product.Product {
	return map[string]product.Product{
		"P1": {ID: "P1", Title: "Filtro de aceite", NetPrice: decimal.NewFromInt(900)},
		"P2": {ID: "P2", Title: "Bujía", NetPrice: decimal.NewFromInt(80)},
	}
}

func acceptedPayment() *Payment {
	return &Payment{
		State:           StateAccepted,
		InvoiceID:       "1717171717171",
		Amount:          decimal.NewFromInt(1880),
		Currency:        "COP",
		TransactionDate: "2024-06-01 10:00:00",
	}
}

func newCart(t *testing.T, owner string) (*cart.Manager, *memStore, *cart.Syncer) {
	t.Helper()
	store := &memStore{docs: map[string][]cart.Line{}}
	syncer, err := cart.NewSyncer(store, cart.SyncerConfig{Timeout: time.Second})
	require.NoError(t, err)
	m := cart.NewManager(owner, syncer)
	return m, store, syncer
}

// --- Begin ---

func TestBegin_EmptyCart(t *testing.T) {
	i := NewInitiator(Config{PublicURL: "https://nks.example"})

	_, err := i.Begin(cart.Summary{})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestBegin_Session(t *testing.T) {
	i := NewInitiator(Config{PublicURL: "https://nks.example/", PublicKey: "pk_test", Test: true})
	i.now = func() time.Time { return time.UnixMilli(1717171717171) }

	summary := (&mockResolver{products: testProducts()}).Resolve(context.Background(), []cart.Line{
		{ProductID: "P1", Quantity: 2},
		{ProductID: "P2", Quantity: 1},
	})

	s, err := i.Begin(summary)
	require.NoError(t, err)

	assert.Equal(t, "pk_test", s.Key)
	assert.True(t, s.Test)
	assert.Equal(t, "Carrito de Compras", s.Name)
	assert.Equal(t, "Compra de 3 productos: Filtro de aceite (x2), Bujía (x1)", s.Description)
	assert.Equal(t, "1717171717171", s.Invoice)
	assert.Equal(t, "COP", s.Currency)
	assert.True(t, decimal.NewFromInt(1880).Equal(s.Amount))
	assert.Equal(t, "0", s.TaxBase)
	assert.Equal(t, "0", s.Tax)
	assert.Equal(t, "CO", s.Country)
	assert.False(t, s.External)
	assert.Equal(t, "https://nks.example/payment-response", s.Response)
	assert.Equal(t, "https://nks.example/payment-response", s.Confirmation)
	assert.Equal(t, "https://nks.example/payment-response?cancelled=true", s.Rejected)
	assert.Equal(t, "https://nks.example/payment-response?cancelled=true", s.CancelURL)
	assert.NotNil(t, s.MethodsDisable)
}

// --- Confirm ---

func TestConfirm_MissingReference(t *testing.T) {
	v := &mockVerifier{payment: acceptedPayment()}
	c := NewConfirmer(v, &mockResolver{}, &mockOrders{}, ConfirmerConfig{})

	_, err := c.Confirm(context.Background(), Confirmation{Reference: "  "})
	require.ErrorIs(t, err, ErrTransaction)
	assert.Empty(t, v.refs)
}

func TestConfirm_VerifyFailure(t *testing.T) {
	v := &mockVerifier{err: errors.New("gateway down")}
	orders := &mockOrders{}
	c := NewConfirmer(v, &mockResolver{}, orders, ConfirmerConfig{})

	_, err := c.Confirm(context.Background(), Confirmation{Reference: "ref1", UserID: "u1"})
	require.ErrorIs(t, err, ErrTransaction)
	assert.Empty(t, orders.recorded)
}

func TestConfirm_AcceptedClearsCartAndRecordsOrder(t *testing.T) {
	m, store, syncer := newCart(t, "u1")
	m.Add("P1", 2)
	m.Add("P2", 1)
	syncer.Wait()

	orders := &mockOrders{}
	pub := &mockPublisher{}
	c := NewConfirmer(&mockVerifier{payment: acceptedPayment()}, &mockResolver{products: testProducts()}, orders,
		ConfirmerConfig{Publisher: pub})

	p, err := c.Confirm(context.Background(), Confirmation{
		Reference:      "ref1",
		TransactionURL: "https://nks.example/payment-response?ref_payco=ref1",
		UserID:         "u1",
		Cart:           m,
	})
	require.NoError(t, err)
	syncer.Wait()

	assert.True(t, p.Accepted())
	assert.Empty(t, m.Lines())
	remote, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, remote)

	require.Len(t, orders.recorded, 1)
	o := orders.recorded[0]
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, "1717171717171", o.TransactionID)
	assert.Equal(t, "2024-06-01 10:00:00", o.TransactionDate)
	assert.Equal(t, StateAccepted, o.PaymentStatus)
	assert.Equal(t, "https://nks.example/payment-response?ref_payco=ref1", o.TransactionURL)
	assert.True(t, decimal.NewFromInt(1880).Equal(o.TotalAmount))
	require.Len(t, o.Products, 2)
	assert.Equal(t, order.Item{Title: "Filtro de aceite", Quantity: 2, Price: decimal.NewFromInt(900)}, o.Products[0])

	assert.Equal(t, []string{"order-1717171717171"}, pub.published)
}

func TestConfirm_RejectedLeavesCart(t *testing.T) {
	m, _, syncer := newCart(t, "u1")
	m.Add("P1", 1)
	syncer.Wait()

	payment := acceptedPayment()
	payment.State = "Rechazada"
	orders := &mockOrders{}
	c := NewConfirmer(&mockVerifier{payment: payment}, &mockResolver{products: testProducts()}, orders, ConfirmerConfig{})

	p, err := c.Confirm(context.Background(), Confirmation{Reference: "ref1", UserID: "u1", Cart: m})
	require.NoError(t, err)

	assert.False(t, p.Accepted())
	assert.Len(t, m.Lines(), 1)
	assert.Empty(t, orders.recorded)
}

func TestConfirm_AnonymousRecordsNothing(t *testing.T) {
	orders := &mockOrders{}
	c := NewConfirmer(&mockVerifier{payment: acceptedPayment()}, &mockResolver{}, orders, ConfirmerConfig{})

	p, err := c.Confirm(context.Background(), Confirmation{Reference: "ref1"})
	require.NoError(t, err)
	assert.True(t, p.Accepted())
	assert.Empty(t, orders.recorded)
}

func TestConfirm_SideEffectFailuresAreSwallowed(t *testing.T) {
	m, _, syncer := newCart(t, "u1")
	m.Add("P1", 1)
	syncer.Wait()

	pub := &mockPublisher{}
	c := NewConfirmer(&mockVerifier{payment: acceptedPayment()}, &mockResolver{products: testProducts()},
		&mockOrders{err: errors.New("write failed")}, ConfirmerConfig{Publisher: pub})

	p, err := c.Confirm(context.Background(), Confirmation{Reference: "ref1", UserID: "u1", Cart: m})
	require.NoError(t, err)
	syncer.Wait()

	assert.Equal(t, StateAccepted, p.State)
	assert.Empty(t, m.Lines())
	assert.Empty(t, pub.published, "nothing to publish without an order")
}

func TestConfirm_RepeatedDeliveryDuplicatesOrder(t *testing.T) {
	m, _, syncer := newCart(t, "u1")
	m.Add("P1", 1)
	syncer.Wait()

	orders := &mockOrders{}
	c := NewConfirmer(&mockVerifier{payment: acceptedPayment()}, &mockResolver{products: testProducts()}, orders, ConfirmerConfig{})

	for range 2 {
		_, err := c.Confirm(context.Background(), Confirmation{Reference: "ref1", UserID: "u1", Cart: m})
		require.NoError(t, err)
	}
	syncer.Wait()

	require.Len(t, orders.recorded, 2)
	assert.Len(t, orders.recorded[0].Products, 1)
	assert.Empty(t, orders.recorded[1].Products)
}
