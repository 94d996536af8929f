package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockStore struct {
	mu      sync.Mutex
	docs    map[string][]Line
	saves   int
	loadErr error
	saveErr error
}

func newMockStore() *mockStore {
	return &mockStore{docs: make(map[string][]Line)}
}

func (m *mockStore) Load(ctx context.Context, userID string) ([]Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	lines, ok := m.docs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Line(nil), lines...), nil
}

func (m *mockStore) Save(_ context.Context, userID string, lines []Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[userID] = append([]Line(nil), lines...)
	return nil
}

func (m *mockStore) doc(userID string) ([]Line, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.docs[userID]
	return lines, ok
}

func (m *mockStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// --- Helpers ---

func newTestSyncer(t *testing.T, store Store) *Syncer {
	t.Helper()
	s, err := NewSyncer(store, SyncerConfig{Timeout: time.Second})
	require.NoError(t, err)
	return s
}

func quantityOf(lines []Line, id string) int {
	for _, l := range lines {
		if l.ProductID == id {
			return l.Quantity
		}
	}
	return 0
}

// --- Tests ---

func TestManager_AddIncrementsExistingLine(t *testing.T) {
	store := newMockStore()
	syncer := newTestSyncer(t, store)
	m := NewManager("u1", syncer)

	m.Add("P1", 1)
	m.Add("P1", 2)
	syncer.Wait()

	assert.Equal(t, []Line{{ProductID: "P1", Quantity: 3}}, m.Lines())
	assert.Equal(t, 2, store.saveCount())
}

func TestManager_AddDefaultsQuantity(t *testing.T) {
	m := NewManager("", nil)

	m.Add("P1", 0)
	m.Add("P2", -5)

	assert.Equal(t, []Line{{ProductID: "P1", Quantity: 1}, {ProductID: "P2", Quantity: 1}}, m.Lines())
}

func TestManager_UpdateQuantityClampsToOne(t *testing.T) {
	m := NewManager("", nil)
	m.Add("P1", 4)

	m.UpdateQuantity("P1", 0)

	assert.Equal(t, 1, quantityOf(m.Lines(), "P1"))

	m.UpdateQuantity("P1", 99)
	assert.Equal(t, 99, quantityOf(m.Lines(), "P1"), "no upper clamp")
}

func TestManager_UpdateUnknownStillSyncs(t *testing.T) {
	store := newMockStore()
	syncer := newTestSyncer(t, store)
	m := NewManager("u1", syncer)
	m.Add("P1", 1)
	syncer.Wait()

	m.UpdateQuantity("missing", 5)
	syncer.Wait()

	assert.Equal(t, []Line{{ProductID: "P1", Quantity: 1}}, m.Lines())
	assert.Equal(t, 2, store.saveCount())
}

func TestManager_Sequences(t *testing.T) {
	type op struct {
		kind string
		id   string
		qty  int
	}

	tests := []struct {
		name string
		ops  []op
		want []Line
	}{
		{
			name: "last update wins",
			ops:  []op{{"add", "a", 1}, {"update", "a", 7}, {"update", "a", 3}},
			want: []Line{{ProductID: "a", Quantity: 3}},
		},
		{
			name: "remove then add starts over",
			ops:  []op{{"add", "a", 5}, {"remove", "a", 0}, {"add", "a", 2}},
			want: []Line{{ProductID: "a", Quantity: 2}},
		},
		{
			name: "insertion order kept",
			ops:  []op{{"add", "b", 1}, {"add", "a", 1}, {"add", "b", 1}},
			want: []Line{{ProductID: "b", Quantity: 2}, {ProductID: "a", Quantity: 1}},
		},
		{
			name: "remove unknown is no-op",
			ops:  []op{{"add", "a", 1}, {"remove", "z", 0}},
			want: []Line{{ProductID: "a", Quantity: 1}},
		},
		{
			name: "update then add accumulates",
			ops:  []op{{"add", "a", 1}, {"update", "a", -3}, {"add", "a", 4}},
			want: []Line{{ProductID: "a", Quantity: 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("", nil)
			for _, o := range tt.ops {
				switch o.kind {
				case "add":
					m.Add(o.id, o.qty)
				case "remove":
					m.Remove(o.id)
				case "update":
					m.UpdateQuantity(o.id, o.qty)
				}
			}
			assert.Equal(t, tt.want, m.Lines())
		})
	}
}

func TestManager_SyncsMinimalProjection(t *testing.T) {
	store := newMockStore()
	syncer := newTestSyncer(t, store)
	m := NewManager("u1", syncer)

	m.Add("P1", 2)
	syncer.Wait()
	m.Add("P2", 1)
	syncer.Wait()
	m.Remove("P1")
	syncer.Wait()

	doc, ok := store.doc("u1")
	require.True(t, ok)
	assert.Equal(t, []Line{{ProductID: "P2", Quantity: 1}}, doc)
}

func TestManager_AnonymousDoesNotSync(t *testing.T) {
	store := newMockStore()
	syncer := newTestSyncer(t, store)
	m := NewManager("", syncer)

	m.Add("P1", 1)
	m.Clear()
	syncer.Wait()

	assert.Zero(t, store.saveCount())
	assert.Empty(t, m.Lines())
}

func TestManager_SyncFailureKeepsLocalState(t *testing.T) {
	store := newMockStore()
	store.saveErr = errors.New("permission denied")
	syncer := newTestSyncer(t, store)
	m := NewManager("u1", syncer)

	m.Add("P1", 2)
	syncer.Wait()

	assert.Equal(t, []Line{{ProductID: "P1", Quantity: 2}}, m.Lines())
	_, ok := store.doc("u1")
	assert.False(t, ok)
}

func TestManager_Clear(t *testing.T) {
	store := newMockStore()
	syncer := newTestSyncer(t, store)
	m := NewManager("u1", syncer)
	m.Add("P1", 2)
	syncer.Wait()

	m.Clear()
	syncer.Wait()

	assert.Empty(t, m.Lines())
	doc, ok := store.doc("u1")
	require.True(t, ok)
	assert.Empty(t, doc)
}

func TestManager_Load(t *testing.T) {
	t.Run("replaces local state when document exists", func(t *testing.T) {
		store := newMockStore()
		store.docs["u1"] = []Line{{ProductID: "P9", Quantity: 4}, {ProductID: "", Quantity: 1}, {ProductID: "P8", Quantity: 0}}
		m := NewManager("u1", newTestSyncer(t, store))
		m.seed([]Line{{ProductID: "P1", Quantity: 1}})

		m.Load(context.Background())

		assert.Equal(t, []Line{{ProductID: "P9", Quantity: 4}, {ProductID: "P8", Quantity: 1}}, m.Lines())
	})

	t.Run("missing document keeps local state", func(t *testing.T) {
		m := NewManager("u1", newTestSyncer(t, newMockStore()))
		m.seed([]Line{{ProductID: "P1", Quantity: 1}})

		m.Load(context.Background())

		assert.Equal(t, []Line{{ProductID: "P1", Quantity: 1}}, m.Lines())
	})

	t.Run("read failure keeps local state", func(t *testing.T) {
		store := newMockStore()
		store.loadErr = errors.New("unavailable")
		m := NewManager("u1", newTestSyncer(t, store))

		m.Load(context.Background())

		assert.Empty(t, m.Lines())
	})

	t.Run("read failure is retried", func(t *testing.T) {
		store := newMockStore()
		store.docs["u1"] = []Line{{ProductID: "P9", Quantity: 4}}
		store.loadErr = errors.New("unavailable")
		m := NewManager("u1", newTestSyncer(t, store))

		m.Load(context.Background())
		require.Empty(t, m.Lines())

		store.mu.Lock()
		store.loadErr = nil
		store.mu.Unlock()
		m.Load(context.Background())

		assert.Equal(t, []Line{{ProductID: "P9", Quantity: 4}}, m.Lines())
	})

	t.Run("read ignores caller cancellation", func(t *testing.T) {
		store := newMockStore()
		store.docs["u1"] = []Line{{ProductID: "P9", Quantity: 4}}
		m := NewManager("u1", newTestSyncer(t, store))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		m.Load(ctx)

		assert.Equal(t, []Line{{ProductID: "P9", Quantity: 4}}, m.Lines())
	})

	t.Run("loads once", func(t *testing.T) {
		store := newMockStore()
		store.docs["u1"] = []Line{{ProductID: "P1", Quantity: 1}}
		syncer := newTestSyncer(t, store)
		m := NewManager("u1", syncer)

		m.Load(context.Background())
		m.Add("P2", 1)
		syncer.Wait()
		store.docs["u1"] = nil
		m.Load(context.Background())

		assert.Len(t, m.Lines(), 2)
	})
}

func TestManager_ConcurrentMutations(t *testing.T) {
	store := newMockStore()
	syncer := newTestSyncer(t, store)
	m := NewManager("u1", syncer)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Add("P1", 1)
		}()
	}
	wg.Wait()
	syncer.Wait()

	assert.Equal(t, 50, quantityOf(m.Lines(), "P1"))
	assert.Equal(t, 50, store.saveCount())
}
