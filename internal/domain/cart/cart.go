// Package cart holds per-owner shopping cart state and mirrors it to a
// remote document store.
//
// Mutations apply to memory first and return immediately. Each mutation
// then pushes a full snapshot of the lines to the store in the background.
// Pushes are neither awaited nor serialized, so the last one to land wins,
// and a failed push never rolls local state back.
package cart

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Store.Load when the owner has no cart document.
var ErrNotFound = errors.New("cart not found")

// Line is one product in the cart. Quantity is always at least 1.
type Line struct {
	ProductID string `json:"id"`
	Quantity  int    `json:"quantity"`
}

// Store persists the cart document {items: [{id, quantity}]} keyed by user id.
//
// Save overwrites the items field and keeps any other document fields.
type Store interface {
	Load(ctx context.Context, userID string) ([]Line, error)
	Save(ctx context.Context, userID string, lines []Line) error
}

// Manager is the cart of a single owner.
//
// An empty owner is an anonymous cart: it lives only in memory.
type Manager struct {
	owner  string
	syncer *Syncer

	mu    sync.Mutex
	lines []Line

	loadMu sync.Mutex
	loaded bool

	// pushes still writing this cart to the store.
	pending atomic.Int64
}

// NewManager returns an empty cart for owner. Pass an empty owner for an
// anonymous cart.
func NewManager(owner string, syncer *Syncer) *Manager {
	return &Manager{owner: owner, syncer: syncer}
}

// Owner returns the user id the cart is synced under.
func (m *Manager) Owner() string {
	return m.owner
}

// Add increments the line for productID by qty, appending a new line when
// none exists. Non-positive qty counts as 1.
func (m *Manager) Add(productID string, qty int) {
	if qty < 1 {
		qty = 1
	}
	m.mutate(func(lines []Line) []Line {
		for i := range lines {
			if lines[i].ProductID == productID {
				lines[i].Quantity += qty
				return lines
			}
		}
		return append(lines, Line{ProductID: productID, Quantity: qty})
	})
}

// Remove drops the line for productID.
func (m *Manager) Remove(productID string) {
	m.mutate(func(lines []Line) []Line {
		return slices.DeleteFunc(lines, func(l Line) bool {
			return l.ProductID == productID
		})
	})
}

// UpdateQuantity sets the quantity of productID, with a floor of 1.
// Unknown ids leave the lines unchanged but still trigger a sync.
func (m *Manager) UpdateQuantity(productID string, qty int) {
	qty = max(qty, 1)
	m.mutate(func(lines []Line) []Line {
		for i := range lines {
			if lines[i].ProductID == productID {
				lines[i].Quantity = qty
			}
		}
		return lines
	})
}

// Clear empties the cart and syncs the empty list.
func (m *Manager) Clear() {
	m.mutate(func([]Line) []Line { return nil })
}

// Lines returns a copy of the current lines in insertion order.
func (m *Manager) Lines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.lines)
}

// Len returns the number of distinct lines.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines)
}

// Load replaces local lines with the remote document. Once a read succeeds,
// or finds no document, later calls do nothing.
//
// A missing document keeps local state. Read failures are logged, keep
// local state and leave the cart unloaded so the next call reads again.
// The read outlives ctx cancellation and is bounded by the sync timeout.
func (m *Manager) Load(ctx context.Context) {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	if m.loaded {
		return
	}
	if m.owner == "" || m.syncer == nil {
		m.loaded = true
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.syncer.timeout)
	defer cancel()

	lines, err := m.syncer.store.Load(ctx, m.owner)
	switch {
	case errors.Is(err, ErrNotFound):
		m.loaded = true
		return
	case err != nil:
		m.syncer.lg.Warn("Load cart failed",
			zap.String("user_id", m.owner),
			zap.Error(err),
		)
		return
	}

	m.mu.Lock()
	m.lines = normalize(lines)
	m.mu.Unlock()
	m.loaded = true
}

// syncing reports whether a push of this cart is still in flight.
func (m *Manager) syncing() bool {
	return m.pending.Load() > 0
}

// seed sets the initial lines before Load. Used when an anonymous cart is
// promoted to a signed-in one.
func (m *Manager) seed(lines []Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = slices.Clone(lines)
}

// mutate applies fn under the lock and pushes the resulting snapshot.
func (m *Manager) mutate(fn func([]Line) []Line) {
	m.mu.Lock()
	m.lines = fn(m.lines)
	snapshot := slices.Clone(m.lines)
	m.mu.Unlock()

	if m.owner != "" && m.syncer != nil {
		m.pending.Add(1)
		m.syncer.push(m.owner, snapshot, func() { m.pending.Add(-1) })
	}
}

// normalize drops lines without an id and lifts quantities to at least 1.
func normalize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			continue
		}
		l.Quantity = max(l.Quantity, 1)
		out = append(out, l)
	}
	return out
}
