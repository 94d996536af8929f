package cart

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_EmptyOwner(t *testing.T) {
	r := NewRegistry(newTestSyncer(t, newMockStore()), nil, time.Minute)

	assert.Nil(t, r.Get(context.Background(), Owner{}))
}

func TestRegistry_ReturnsSameManager(t *testing.T) {
	r := NewRegistry(newTestSyncer(t, newMockStore()), nil, time.Minute)
	ctx := context.Background()

	a := r.Get(ctx, Owner{UserID: "u1"})
	b := r.Get(ctx, Owner{UserID: "u1"})
	c := r.Get(ctx, Owner{Session: "s1"})

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "u1", a.Owner())
	assert.Empty(t, c.Owner())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_LoadsRemoteCartOnFirstUse(t *testing.T) {
	store := newMockStore()
	store.docs["u1"] = []Line{{ProductID: "P1", Quantity: 2}}
	r := NewRegistry(newTestSyncer(t, store), nil, time.Minute)

	m := r.Get(context.Background(), Owner{UserID: "u1"})

	assert.Equal(t, []Line{{ProductID: "P1", Quantity: 2}}, m.Lines())
}

func TestRegistry_AnonymousCartSeedsSignIn(t *testing.T) {
	store := newMockStore()
	syncer := newTestSyncer(t, store)
	r := NewRegistry(syncer, nil, time.Minute)
	ctx := context.Background()

	anon := r.Get(ctx, Owner{Session: "s1"})
	anon.Add("P1", 3)

	m := r.Get(ctx, Owner{UserID: "u1", Session: "s1"})
	assert.Equal(t, []Line{{ProductID: "P1", Quantity: 3}}, m.Lines())
	assert.Equal(t, 1, r.Len(), "anonymous cart is dropped after promotion")

	m.Add("P2", 1)
	syncer.Wait()
	doc, ok := store.doc("u1")
	require.True(t, ok)
	assert.Len(t, doc, 2)
}

func TestRegistry_RemoteDocumentWinsOverSeed(t *testing.T) {
	store := newMockStore()
	store.docs["u1"] = []Line{{ProductID: "P9", Quantity: 1}}
	r := NewRegistry(newTestSyncer(t, store), nil, time.Minute)
	ctx := context.Background()

	r.Get(ctx, Owner{Session: "s1"}).Add("P1", 3)

	m := r.Get(ctx, Owner{UserID: "u1", Session: "s1"})
	assert.Equal(t, []Line{{ProductID: "P9", Quantity: 1}}, m.Lines())
}

func TestRegistry_FailedLoadDoesNotWipeStoredCart(t *testing.T) {
	store := newMockStore()
	store.docs["u1"] = []Line{{ProductID: "P9", Quantity: 4}}
	store.loadErr = errors.New("unavailable")
	syncer := newTestSyncer(t, store)
	r := NewRegistry(syncer, nil, time.Minute)
	ctx := context.Background()

	first := r.Get(ctx, Owner{UserID: "u1"})
	require.Empty(t, first.Lines())

	store.mu.Lock()
	store.loadErr = nil
	store.mu.Unlock()

	m := r.Get(ctx, Owner{UserID: "u1"})
	require.Same(t, first, m)
	assert.Equal(t, []Line{{ProductID: "P9", Quantity: 4}}, m.Lines())

	m.Add("P1", 1)
	syncer.Wait()
	doc, ok := store.doc("u1")
	require.True(t, ok)
	assert.Equal(t, 4, quantityOf(doc, "P9"))
	assert.Equal(t, 1, quantityOf(doc, "P1"))
}

func TestRegistry_CancelledRequestStillLoads(t *testing.T) {
	store := newMockStore()
	store.docs["u1"] = []Line{{ProductID: "P9", Quantity: 4}}
	r := NewRegistry(newTestSyncer(t, store), nil, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := r.Get(ctx, Owner{UserID: "u1"})

	assert.Equal(t, []Line{{ProductID: "P9", Quantity: 4}}, m.Lines())
}

// gatedStore holds every Save until release is closed.
type gatedStore struct {
	*mockStore
	release chan struct{}
}

func (g *gatedStore) Save(ctx context.Context, userID string, lines []Line) error {
	<-g.release
	return g.mockStore.Save(ctx, userID, lines)
}

func TestRegistry_EvictWaitsForInFlightSync(t *testing.T) {
	store := &gatedStore{mockStore: newMockStore(), release: make(chan struct{})}
	syncer := newTestSyncer(t, store)
	r := NewRegistry(syncer, nil, time.Minute)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return start }

	r.Get(context.Background(), Owner{UserID: "u1"}).Add("P1", 1)

	assert.Zero(t, r.evict(start.Add(time.Hour)))
	assert.Equal(t, 1, r.Len())

	close(store.release)
	syncer.Wait()

	assert.Equal(t, 1, r.evict(start.Add(time.Hour)))
	assert.Zero(t, r.Len())
}

func TestRegistry_Forget(t *testing.T) {
	r := NewRegistry(newTestSyncer(t, newMockStore()), nil, time.Minute)
	ctx := context.Background()
	first := r.Get(ctx, Owner{UserID: "u1"})

	r.Forget(Owner{UserID: "u1"})

	assert.Zero(t, r.Len())
	assert.NotSame(t, first, r.Get(ctx, Owner{UserID: "u1"}))
}

func TestRegistry_EvictsIdleCarts(t *testing.T) {
	r := NewRegistry(newTestSyncer(t, newMockStore()), nil, time.Minute)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return start }
	ctx := context.Background()

	r.Get(ctx, Owner{UserID: "old"})
	r.now = func() time.Time { return start.Add(50 * time.Second) }
	r.Get(ctx, Owner{UserID: "fresh"})

	n := r.evict(start.Add(90 * time.Second))

	assert.Equal(t, 1, n)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_JanitorStopsWithContext(t *testing.T) {
	r := NewRegistry(newTestSyncer(t, newMockStore()), nil, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	r.StartJanitor(ctx)

	r.Get(ctx, Owner{UserID: "u1"})
	require.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}
