package ownership

import (
	"sync"
	"time"

	"github.com/nerrad567/bridgesim/internal/event"
)

// DefaultTimeout is the idle period after which a local session is reclaimed.
const DefaultTimeout = 10 * time.Second

// Logger defines the logging interface used by the Arbiter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds Arbiter settings.
type Config struct {
	// Timeout is the idle watchdog duration. Zero means DefaultTimeout.
	Timeout time.Duration

	// LocalOwners are the identities a local streaming client claims with.
	// Only their sessions are watched; a session claimed by anyone else is
	// held until it is released explicitly.
	LocalOwners []string

	// OnExpire is called after the watchdog reclaims a session.
	OnExpire func(s Session)
}

// Arbiter serialises activation and deactivation and owns the watchdog.
type Arbiter struct {
	mu     sync.Mutex
	ledger Ledger
	pub    Publisher
	cfg    Config
	local  map[string]struct{}

	// watched is the session the watchdog is armed for.
	watched    Session
	timer      *time.Timer
	generation uint64
	closed     bool

	logger Logger
}

// NewArbiter creates an Arbiter over ledger. pub may be nil.
func NewArbiter(ledger Ledger, pub Publisher, cfg Config) *Arbiter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	local := make(map[string]struct{}, len(cfg.LocalOwners))
	for _, o := range cfg.LocalOwners {
		local[o] = struct{}{}
	}
	return &Arbiter{
		ledger: ledger,
		pub:    pub,
		cfg:    cfg,
		local:  local,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the arbiter.
func (a *Arbiter) SetLogger(logger Logger) {
	a.logger = logger
}

// Activate claims session id for owner and publishes the resulting changes.
//
// Re-claiming a session already held by owner succeeds without changes and
// refreshes the watchdog.
func (a *Arbiter) Activate(id, owner string) ([]event.Change, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	changes, err := a.ledger.Transition(id, Claim(owner))
	if err != nil {
		a.logger.Info("stream activation rejected", "session", id, "owner", owner, "error", err)
		return nil, err
	}
	a.publish(changes)

	if _, ok := a.local[owner]; ok {
		a.armLocked(Session{ID: id, Active: true, Owner: owner})
	}
	if len(changes) > 0 {
		a.logger.Info("stream activated", "session", id, "owner", owner)
	}
	return changes, nil
}

// Deactivate releases session id whoever holds it.
func (a *Arbiter) Deactivate(id string) ([]event.Change, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	changes, err := a.ledger.Transition(id, Release())
	if err != nil {
		return nil, err
	}
	a.publish(changes)

	if a.watched.ID == id {
		a.disarmLocked()
	}
	if len(changes) > 0 {
		a.logger.Info("stream deactivated", "session", id)
	}
	return changes, nil
}

// Keepalive re-arms the watchdog of the watched session, if any.
// It is called for every accepted stream frame.
func (a *Arbiter) Keepalive() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.watched.Active && !a.closed {
		a.armLocked(a.watched)
	}
}

// Watched returns the session the watchdog is armed for.
func (a *Arbiter) Watched() (Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.watched, a.watched.Active
}

// Close stops the watchdog. Sessions are left as they are.
func (a *Arbiter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disarmLocked()
	a.closed = true
}

func (a *Arbiter) publish(changes []event.Change) {
	if a.pub != nil && len(changes) > 0 {
		a.pub.Publish(changes...)
	}
}

// armLocked replaces any pending deadline with a fresh one for s.
func (a *Arbiter) armLocked(s Session) {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.generation++
	gen := a.generation
	a.watched = s
	a.timer = time.AfterFunc(a.cfg.Timeout, func() { a.expire(gen) })
}

func (a *Arbiter) disarmLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.generation++
	a.watched = Session{}
}

// expire runs on the timer goroutine. A deadline that was replaced or
// cancelled after it fired is ignored via the generation check.
func (a *Arbiter) expire(gen uint64) {
	a.mu.Lock()
	if gen != a.generation || a.closed {
		a.mu.Unlock()
		return
	}
	s := a.watched
	a.timer = nil
	a.watched = Session{}

	changes, err := a.ledger.Transition(s.ID, releaseIfOwned(s.Owner))
	if err != nil {
		a.mu.Unlock()
		a.logger.Warn("stream watchdog could not release session", "session", s.ID, "error", err)
		return
	}
	a.publish(changes)
	a.mu.Unlock()

	a.logger.Info("stream session timed out", "session", s.ID, "owner", s.Owner, "timeout", a.cfg.Timeout)
	if a.cfg.OnExpire != nil && len(changes) > 0 {
		a.cfg.OnExpire(s)
	}
}
