package session

import (
	"context"
	"sync"
	"time"

	"github.com/pnvb/volunteer-portal/internal/portal/domain"
)

// subscriberBuffer holds enough pending emissions for a guard that only ever
// consumes the first one; a saturated subscriber drops updates rather than
// blocking the writer.
const subscriberBuffer = 8

// Cell is the state of one principal's session: at most one identity plus its
// canonical role, or anonymous. Exactly one logical writer (the Manager)
// calls Set/Clear/resolve; everyone else only reads or subscribes. A cell
// starts pending and becomes resolved once its persisted snapshot has been
// restored (or found absent), so readers never race a restore to a false
// anonymous answer.
type Cell struct {
	// writeMu serializes the Manager's persist-then-publish sequences (Set)
	// with clears, so a logout can never land inside a login's window between
	// the snapshot write and the in-memory publish. Held only by the Manager,
	// never while holding mu.
	writeMu sync.Mutex

	mu       sync.Mutex
	resolved bool
	ready    chan struct{}
	current  *domain.Session

	nextSub int
	subs    map[int]chan *domain.Session

	loginBusy bool
}

// NewCell returns a pending cell. The owner must eventually call resolve,
// Set or Clear to move it out of the pending state.
func NewCell() *Cell {
	return &Cell{
		ready: make(chan struct{}),
		subs:  make(map[int]chan *domain.Session),
	}
}

// Set installs a new session snapshot for the identity and broadcasts it.
// The stored role is always derived through the normalizer here, so a role
// can never be published without its identity or drift from it.
func (c *Cell) Set(id domain.Identity, expiresAt time.Time) domain.Session {
	sess := domain.NewSession(id, expiresAt)

	c.mu.Lock()
	c.current = &sess
	c.markResolvedLocked()
	c.broadcastLocked()
	c.mu.Unlock()

	return sess
}

// Clear resets the cell to anonymous and broadcasts the change. Safe to call
// on an already-anonymous cell.
func (c *Cell) Clear() {
	c.mu.Lock()
	c.current = nil
	c.markResolvedLocked()
	c.broadcastLocked()
	c.mu.Unlock()
}

// resolve completes the initial restore with the given session (nil for
// anonymous). Calling resolve on an already-resolved cell is a no-op; a
// concurrent Set/Clear always wins over a late restore result.
func (c *Cell) resolve(sess *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		return
	}
	c.current = sess
	c.markResolvedLocked()
	c.broadcastLocked()
}

// Current returns the session snapshot, or nil when anonymous or still
// pending. The returned value is a copy; mutating it does not touch the cell.
func (c *Cell) Current() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.resolved || c.current == nil {
		return nil
	}
	snapshot := *c.current
	return &snapshot
}

// Resolved reports whether the initial restore has completed.
func (c *Cell) Resolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}

// Ready is closed once the cell leaves the pending state.
func (c *Cell) Ready() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Subscribe registers a broadcast subscriber. Once the cell is resolved the
// current value is replayed immediately, then every subsequent change is
// emitted. The returned cancel func must be called to release the
// subscription.
func (c *Cell) Subscribe() (<-chan *domain.Session, func()) {
	ch := make(chan *domain.Session, subscriberBuffer)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	if c.resolved {
		c.sendLocked(ch)
	}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// First returns exactly one emission of the session stream: the current
// value once the cell is resolved. The subscription is released before
// returning, so a navigation decision never keeps observing later changes.
func (c *Cell) First(ctx context.Context) (*domain.Session, error) {
	ch, cancel := c.Subscribe()
	defer cancel()

	select {
	case sess := <-ch:
		return sess, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryBeginLogin claims the cell's single login slot. It returns false when
// another login attempt on the same cell is still in flight; overlapping
// attempts are rejected rather than racing to a last-write-wins outcome.
func (c *Cell) TryBeginLogin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loginBusy {
		return false
	}
	c.loginBusy = true
	return true
}

// EndLogin releases the login slot claimed by TryBeginLogin.
func (c *Cell) EndLogin() {
	c.mu.Lock()
	c.loginBusy = false
	c.mu.Unlock()
}

// Idle reports whether the cell is resolved, anonymous, has no subscribers
// and no login in flight. Idle cells are safe to evict.
func (c *Cell) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved && c.current == nil && len(c.subs) == 0 && !c.loginBusy
}

func (c *Cell) markResolvedLocked() {
	if !c.resolved {
		c.resolved = true
		close(c.ready)
	}
}

func (c *Cell) broadcastLocked() {
	for _, ch := range c.subs {
		c.sendLocked(ch)
	}
}

func (c *Cell) sendLocked(ch chan *domain.Session) {
	var value *domain.Session
	if c.current != nil {
		snapshot := *c.current
		value = &snapshot
	}
	select {
	case ch <- value:
	default:
	}
}
