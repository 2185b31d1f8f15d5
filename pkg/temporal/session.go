package temporal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionConfig controls session boundary detection.
type SessionConfig struct {
	// IdleTimeout is the gap of inactivity that closes the current session.
	IdleTimeout time.Duration

	// MaxTrackedMemories bounds the active set; oldest entries are evicted
	// first once the bound is reached.
	MaxTrackedMemories int
}

// DefaultSessionConfig returns the standard session parameters:
// a 30-minute idle window and a 1000-memory active set.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		IdleTimeout:        30 * time.Minute,
		MaxTrackedMemories: 1000,
	}
}

// Session is one idle-bounded burst of activity.
type Session struct {
	ID        string
	StartedAt time.Time
	LastTouch time.Time
	Members   []string
}

// SessionTracker detects session boundaries from access timestamps and
// maintains the set of memories touched in the active session. The retrieval
// pipeline consumes that set (mapped to corpus indices by the host) as the
// session-boost input.
//
// The tracker is safe for concurrent use.
type SessionTracker struct {
	cfg *SessionConfig

	mu      sync.Mutex
	current *Session
	members map[string]time.Time
	order   []string
}

// NewSessionTracker creates a tracker. A nil config uses
// DefaultSessionConfig.
func NewSessionTracker(cfg *SessionConfig) *SessionTracker {
	if cfg == nil {
		cfg = DefaultSessionConfig()
	}
	return &SessionTracker{
		cfg:     cfg,
		members: make(map[string]time.Time),
	}
}

// Touch records an access to a memory at the given time. If the gap since the
// last touch exceeds the idle timeout, the current session closes and a fresh
// one opens. Returns the active session ID.
func (t *SessionTracker) Touch(memoryID string, at time.Time) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil || at.Sub(t.current.LastTouch) > t.cfg.IdleTimeout {
		t.current = &Session{
			ID:        uuid.NewString(),
			StartedAt: at,
		}
		t.members = make(map[string]time.Time)
		t.order = t.order[:0]
	}
	t.current.LastTouch = at

	if _, seen := t.members[memoryID]; !seen {
		t.order = append(t.order, memoryID)
		if t.cfg.MaxTrackedMemories > 0 && len(t.order) > t.cfg.MaxTrackedMemories {
			evict := t.order[0]
			t.order = t.order[1:]
			delete(t.members, evict)
		}
	}
	t.members[memoryID] = at
	t.current.Members = t.order

	return t.current.ID
}

// ActiveSet returns the IDs touched in the active session, or nil when the
// session has gone idle as of now.
func (t *SessionTracker) ActiveSet(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil || now.Sub(t.current.LastTouch) > t.cfg.IdleTimeout {
		return nil
	}
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Current returns a copy of the active session, or nil when idle.
func (t *SessionTracker) Current(now time.Time) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil || now.Sub(t.current.LastTouch) > t.cfg.IdleTimeout {
		return nil
	}
	s := *t.current
	s.Members = make([]string, len(t.order))
	copy(s.Members, t.order)
	return &s
}
