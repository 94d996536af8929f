package cart

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultIdleTTL = 30 * time.Minute

// Owner identifies whose cart a request works on. UserID wins when set.
// Session is the opaque anonymous cart id carried by the client.
type Owner struct {
	UserID  string
	Session string
}

func (o Owner) userKey() string    { return "user:" + o.UserID }
func (o Owner) sessionKey() string { return "anon:" + o.Session }

type registryEntry struct {
	m        *Manager
	lastSeen atomic.Int64
}

func (e *registryEntry) touch(now time.Time) {
	e.lastSeen.Store(now.UnixNano())
}

// Registry hands out one Manager per owner and evicts idle ones.
type Registry struct {
	syncer  *Syncer
	lg      *zap.Logger
	idleTTL time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	carts map[string]*registryEntry
}

// NewRegistry creates a Registry whose managers sync through syncer.
// A non-positive idleTTL uses the default of 30 minutes.
func NewRegistry(syncer *Syncer, lg *zap.Logger, idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Registry{
		syncer:  syncer,
		lg:      lg,
		idleTTL: idleTTL,
		now:     time.Now,
		carts:   make(map[string]*registryEntry),
	}
}

// Get returns the cart for owner, creating and loading it on first use.
//
// When a signed-in owner is seen for the first time and the request also
// carries an anonymous session, the anonymous lines seed the new cart and
// the anonymous cart is dropped. The remote document, if any, then replaces
// the seeded lines. Returns nil when owner is empty.
func (r *Registry) Get(ctx context.Context, owner Owner) *Manager {
	var key string
	switch {
	case owner.UserID != "":
		key = owner.userKey()
	case owner.Session != "":
		key = owner.sessionKey()
	default:
		return nil
	}
	now := r.now()

	// touch under the lock so evict never drops an entry it is handing out.
	r.mu.RLock()
	e, ok := r.carts[key]
	if ok {
		e.touch(now)
	}
	r.mu.RUnlock()
	if ok {
		e.m.Load(ctx)
		return e.m
	}

	r.mu.Lock()
	if e, ok = r.carts[key]; !ok {
		e = &registryEntry{m: NewManager(owner.UserID, r.syncer)}
		if owner.UserID != "" && owner.Session != "" {
			if anon, found := r.carts[owner.sessionKey()]; found {
				e.m.seed(anon.m.Lines())
				delete(r.carts, owner.sessionKey())
			}
		}
		r.carts[key] = e
	}
	e.touch(now)
	r.mu.Unlock()

	e.m.Load(ctx)
	return e.m
}

// Forget drops the in-memory cart of owner. The remote document is kept.
func (r *Registry) Forget(owner Owner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner.UserID != "" {
		delete(r.carts, owner.userKey())
	}
	if owner.Session != "" {
		delete(r.carts, owner.sessionKey())
	}
}

// Len returns the number of carts held in memory.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts)
}

// evict removes carts idle for longer than the TTL. Carts with a push still
// in flight stay until it lands, so a re-created cart never reads a stale
// document.
func (r *Registry) evict(now time.Time) int {
	cutoff := now.Add(-r.idleTTL).UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for key, e := range r.carts {
		if e.lastSeen.Load() < cutoff && !e.m.syncing() {
			delete(r.carts, key)
			n++
		}
	}
	return n
}

// StartJanitor evicts idle carts every half TTL until ctx is cancelled.
func (r *Registry) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.idleTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := r.evict(now); n > 0 {
					r.lg.Debug("Evicted idle carts", zap.Int("count", n))
				}
			}
		}
	}()
}

// Wait blocks until all in-flight remote syncs have finished.
func (r *Registry) Wait() {
	if r.syncer != nil {
		r.syncer.Wait()
	}
}
