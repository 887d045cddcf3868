// ABOUTME: Operator presence tracking with TTL-based liveness
// ABOUTME: A single shared record; availability derives from heartbeat age, not declared intent

package presence

import (
	"sync"
	"time"
)

// DefaultTTL is how long after the last heartbeat an operator still counts
// as available. A crashed or disconnected operator client reverts the system
// to automated handling within one TTL window without an explicit sign-off.
const DefaultTTL = 30 * time.Second

// Record is a snapshot of the shared presence state.
type Record struct {
	Online     bool
	LastSeen   time.Time
	OperatorID string
}

// Tracker holds the single process-wide presence record. Updates are
// last-writer-wins; there is no per-operator state.
type Tracker struct {
	mu  sync.RWMutex
	rec *Record
	ttl time.Duration
	now func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithTTL overrides the availability window.
func WithTTL(ttl time.Duration) Option {
	return func(t *Tracker) { t.ttl = ttl }
}

// WithClock substitutes the time source. Tests use this to age the record
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a presence tracker with no record; Available reports
// false until the first Set or Heartbeat.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Set records the operator's declared intent and refreshes the heartbeat.
func (t *Tracker) Set(operatorID string, online bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rec = &Record{
		Online:     online,
		LastSeen:   t.now(),
		OperatorID: operatorID,
	}
}

// Heartbeat refreshes the liveness timestamp without changing declared intent.
func (t *Tracker) Heartbeat(operatorID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	online := true
	if t.rec != nil {
		online = t.rec.Online
	}
	t.rec = &Record{
		Online:     online,
		LastSeen:   t.now(),
		OperatorID: operatorID,
	}
}

// Available reports whether an operator heartbeat landed within the TTL.
// The declared Online flag is deliberately ignored: liveness is time-based,
// so a stale "online" record still reads as unavailable.
func (t *Tracker) Available() (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.rec == nil {
		return false, nil
	}
	return t.now().Sub(t.rec.LastSeen) < t.ttl, nil
}

// Snapshot returns a copy of the current record, or nil if no operator has
// ever checked in.
func (t *Tracker) Snapshot() *Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.rec == nil {
		return nil
	}
	rec := *t.rec
	return &rec
}
