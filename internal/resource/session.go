package resource

import (
	"github.com/nerrad567/bridgesim/internal/event"
	"github.com/nerrad567/bridgesim/internal/ownership"
)

var _ ownership.Ledger = (*Store)(nil)

// Transition applies an ownership decision to an entertainment
// configuration. It implements ownership.Ledger.
//
// On activation the changes are the new active streamer and the status;
// on deactivation only the status. Either is followed by one light mode
// update per light switched. Nothing is persisted.
func (s *Store) Transition(id string, decide ownership.Decide) ([]event.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ec, err := s.config(id)
	if err != nil {
		return nil, err
	}
	current := sessionOf(ec)
	holder, _ := s.activeSession()

	next, err := decide(current, holder)
	if err != nil {
		return nil, err
	}
	if next == current {
		return nil, nil
	}

	var changes []event.Change
	mode := ModeNormal
	if next.Active {
		mode = ModeStreaming
		ec.Status = StatusActive
		ec.ActiveStreamer = &Ref{RID: next.Owner, RType: TypeAuth}
		changes = append(changes, event.Update(streamerDelta{
			ActiveStreamer: *ec.ActiveStreamer,
			ID:             ec.ID,
			IDV1:           ec.IDV1,
			Type:           TypeEntertainmentConfiguration,
		}))
	} else {
		ec.Status = StatusInactive
		ec.ActiveStreamer = nil
	}
	changes = append(changes, event.Update(statusDelta{
		ID:     ec.ID,
		IDV1:   ec.IDV1,
		Status: ec.Status,
		Type:   TypeEntertainmentConfiguration,
	}))

	// The light at the same position as the light service is switched, and
	// only when its id matches. Lights listed in a different order than the
	// configuration's light services are left untouched.
	if s.lights != nil {
		for i, ls := range ec.LightServices {
			if i >= len(s.lights.Data) {
				break
			}
			light := &s.lights.Data[i]
			if light.ID != ls.RID {
				continue
			}
			light.Mode = mode
			changes = append(changes, event.Update(modeDelta{
				ID:   light.ID,
				IDV1: light.IDV1,
				Mode: light.Mode,
				Type: TypeLight,
			}))
		}
	}

	return changes, nil
}

// ActiveSession returns the active configuration's session, if any.
// It implements ownership.Ledger.
func (s *Store) ActiveSession() (ownership.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSession()
}

// ActiveChannelCount returns the number of channels of the active
// configuration, which is the number of records in each stream frame.
func (s *Store) ActiveChannelCount() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.activeSession()
	if !ok {
		return 0, false
	}
	ec, err := s.config(session.ID)
	if err != nil {
		return 0, false
	}
	return len(ec.Channels), true
}

// Caller holds s.mu.
func (s *Store) activeSession() (ownership.Session, bool) {
	if s.configs == nil {
		return ownership.Session{}, false
	}
	for i := range s.configs.Data {
		if s.configs.Data[i].Status == StatusActive {
			return sessionOf(&s.configs.Data[i]), true
		}
	}
	return ownership.Session{}, false
}

func sessionOf(ec *EntertainmentConfiguration) ownership.Session {
	sess := ownership.Session{ID: ec.ID, Active: ec.Status == StatusActive}
	if sess.Active && ec.ActiveStreamer != nil {
		sess.Owner = ec.ActiveStreamer.RID
	}
	return sess
}
