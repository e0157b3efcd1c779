package ownership

import (
	"github.com/nerrad567/bridgesim/internal/event"
)

// Session is the streaming state of one entertainment configuration or
// legacy group.
type Session struct {
	ID     string
	Active bool
	Owner  string
}

// Decide computes the next state of a session. holder is the session that
// is currently active anywhere in the ledger, or the zero Session. Returning
// current unchanged is a no-op transition; returning an error leaves the
// state untouched.
type Decide func(current, holder Session) (Session, error)

// Ledger holds session state and applies transitions atomically.
type Ledger interface {
	// Transition runs decide for the session with the given id and applies
	// the result. It returns the change deltas describing the transition,
	// which are empty for a no-op.
	Transition(id string, decide Decide) ([]event.Change, error)

	// ActiveSession returns the active session, if any.
	ActiveSession() (Session, bool)
}

// Publisher broadcasts change deltas.
type Publisher interface {
	Publish(changes ...event.Change) (event.Message, bool)
}

// Claim returns the decision for owner claiming a session.
//
// A claim succeeds when the session is inactive and no other session is
// active, or when owner already holds it (no-op).
func Claim(owner string) Decide {
	return func(current, holder Session) (Session, error) {
		if current.Active {
			if current.Owner == owner {
				return current, nil
			}
			return current, ErrOwnershipConflict
		}
		if holder.Active && holder.ID != current.ID {
			return current, ErrOwnershipConflict
		}
		return Session{ID: current.ID, Active: true, Owner: owner}, nil
	}
}

// Release returns the decision that deactivates a session regardless of
// its owner.
func Release() Decide {
	return func(current, _ Session) (Session, error) {
		return Session{ID: current.ID}, nil
	}
}

// releaseIfOwned deactivates the session only while owner still holds it.
func releaseIfOwned(owner string) Decide {
	return func(current, _ Session) (Session, error) {
		if !current.Active || current.Owner != owner {
			return current, nil
		}
		return Session{ID: current.ID}, nil
	}
}
