package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"sync"

	"github.com/nerrad567/bridgesim/internal/event"
	"github.com/nerrad567/bridgesim/internal/ownership"
	"github.com/nerrad567/bridgesim/internal/snapshot"
)

var _ ownership.Ledger = (*Store)(nil)

// Logger defines the logging interface used by the Store.
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

// Store holds legacy groups and lights.
type Store struct {
	mu        sync.Mutex
	snapshots snapshot.Store
	groups    map[string]*Group
	lights    map[string]*Light
	logger    Logger
}

// NewStore creates an empty store persisting through snapshots.
// Call Load before use.
func NewStore(snapshots snapshot.Store) *Store {
	return &Store{snapshots: snapshots, logger: noopLogger{}}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Load reads groups and lights. A kind that cannot be loaded from its
// current snapshot or its default stays unavailable; the returned error
// joins those failures.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	var err error
	if s.groups, err = loadMap[Group](ctx, s, snapshot.KindGroups); err != nil {
		s.logger.Error("legacy kind unavailable", "kind", snapshot.KindGroups, "error", err)
		errs = append(errs, err)
	}
	if s.lights, err = loadMap[Light](ctx, s, snapshot.KindLights); err != nil {
		s.logger.Error("legacy kind unavailable", "kind", snapshot.KindLights, "error", err)
		errs = append(errs, err)
	}

	for _, g := range s.groups {
		g.Stream.Active = false
		g.Stream.Owner = nil
	}
	for _, l := range s.lights {
		l.State.Mode = ModeHomeAutomation
	}
	return errors.Join(errs...)
}

func loadMap[T any](ctx context.Context, s *Store, kind string) (map[string]*T, error) {
	data, err := s.snapshots.Load(ctx, kind)
	if err == nil {
		var m map[string]*T
		if err = json.Unmarshal(data, &m); err == nil && m != nil {
			return m, nil
		}
		s.logger.Warn("current snapshot unreadable, using default", "kind", kind, "error", err)
	}

	data, defErr := s.snapshots.LoadDefault(ctx, kind)
	if defErr != nil {
		return nil, fmt.Errorf("loading %s: %w", kind, errors.Join(err, defErr))
	}
	var m map[string]*T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing default %s: %w", kind, err)
	}
	if m == nil {
		m = make(map[string]*T)
	}
	return m, nil
}

// save persists groups with streaming cleared and lights in home
// automation mode. Cancellation of ctx is ignored so an applied change is
// never lost. Caller holds s.mu.
func (s *Store) save(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	groups := make(map[string]Group, len(s.groups))
	for id, g := range s.groups {
		c := *g
		c.Stream.Active = false
		c.Stream.Owner = nil
		groups[id] = c
	}
	lights := make(map[string]Light, len(s.lights))
	for id, l := range s.lights {
		c := *l
		c.State.Mode = ModeHomeAutomation
		lights[id] = c
	}

	for kind, v := range map[string]any{snapshot.KindGroups: groups, snapshot.KindLights: lights} {
		data, err := json.MarshalIndent(v, "", "    ")
		if err == nil {
			err = s.snapshots.Save(ctx, kind, data)
		}
		if err != nil {
			s.logger.Error("failed to persist legacy state", "kind", kind, "error", err)
		}
	}
}

func (s *Store) available() error {
	switch {
	case s.groups == nil:
		return fmt.Errorf("%w: %s", ErrUnavailable, snapshot.KindGroups)
	case s.lights == nil:
		return fmt.Errorf("%w: %s", ErrUnavailable, snapshot.KindLights)
	}
	return nil
}

// ─── Reads ──────────────────────────────────────────────────────────

// Groups returns the JSON object of all groups keyed by id.
func (s *Store) Groups() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groups == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, snapshot.KindGroups)
	}
	return json.Marshal(s.groups)
}

// Group returns the JSON of the group with id.
func (s *Store) Group(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.group(id)
	if err != nil {
		return nil, err
	}
	return json.Marshal(g)
}

// Lights returns the JSON object of all lights keyed by id.
func (s *Store) Lights() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lights == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, snapshot.KindLights)
	}
	return json.Marshal(s.lights)
}

// GroupSnapshot returns a copy of the group with id.
func (s *Store) GroupSnapshot(id string) (Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.group(id)
	if err != nil {
		return Group{}, err
	}
	return copyGroup(g), nil
}

// LightSnapshot returns a copy of the light with id.
func (s *Store) LightSnapshot(id string) (Light, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lights == nil {
		return Light{}, fmt.Errorf("%w: %s", ErrUnavailable, snapshot.KindLights)
	}
	l, ok := s.lights[id]
	if !ok {
		return Light{}, fmt.Errorf("%w: %s", ErrLightNotFound, id)
	}
	return *l, nil
}

func (s *Store) group(id string) (*Group, error) {
	if s.groups == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, snapshot.KindGroups)
	}
	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return g, nil
}

func copyGroup(g *Group) Group {
	c := *g
	c.Lights = slices.Clone(g.Lights)
	c.Sensors = slices.Clone(g.Sensors)
	c.Locations = make(map[string]Location, len(g.Locations))
	for k, v := range g.Locations {
		c.Locations[k] = v
	}
	if g.Stream.Owner != nil {
		owner := *g.Stream.Owner
		c.Stream.Owner = &owner
	}
	return c
}

// ─── Topology ───────────────────────────────────────────────────────

// AddLight creates a light with the lowest free numeric id and places it
// in the group at (x, y). The changes are the added light followed by the
// updated group. The result is persisted before returning.
func (s *Store) AddLight(ctx context.Context, groupID string, x, y float64) (string, []event.Change, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return "", nil, fmt.Errorf("%w: (%v, %v)", ErrInvalidPosition, x, y)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.available(); err != nil {
		return "", nil, err
	}
	g, err := s.group(groupID)
	if err != nil {
		return "", nil, err
	}

	n, ok := s.freeLightID()
	if !ok {
		return "", nil, ErrNoFreeLight
	}
	id := strconv.Itoa(n)
	light := &Light{
		State: LightState{
			On:        true,
			Bri:       254,
			XY:        [2]float64{0.5, 0.5},
			ColorMode: "xy",
			Reachable: true,
			Mode:      ModeHomeAutomation,
		},
		Type:             "Extended color light",
		Name:             "Hue Bulb " + id,
		ModelID:          "LCT015",
		ManufacturerName: "Signify Netherlands B.V.",
		UniqueID:         fmt.Sprintf("00:17:88:01:00:00:%02x:%02x-0b", n>>8, n&0xFF),
		SwVersion:        "1.50.2_r30933",
		Capabilities:     Capabilities{Streaming: StreamingCapability{Renderer: true, Proxy: true}},
	}
	if g.Stream.Active {
		light.State.Mode = ModeStreaming
	}
	s.lights[id] = light

	g.Lights = append(g.Lights, id)
	if g.Locations == nil {
		g.Locations = make(map[string]Location)
	}
	g.Locations[id] = Location{x, y}

	changes := []event.Change{
		event.Add(lightEntry{ID: id, Resource: entryLight, Light: *light}),
		event.Update(groupEntry{ID: groupID, Resource: entryGroup, Group: copyGroup(g)}),
	}

	s.save(ctx)
	s.logger.Info("legacy light added", "group", groupID, "light", id)
	return id, changes, nil
}

// DeleteLight removes a light from the group. The light record itself is
// deleted when no other group lists it.
func (s *Store) DeleteLight(ctx context.Context, groupID, lightID string) ([]event.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.available(); err != nil {
		return nil, err
	}
	g, err := s.group(groupID)
	if err != nil {
		return nil, err
	}
	idx := slices.Index(g.Lights, lightID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s in group %s", ErrLightNotFound, lightID, groupID)
	}

	g.Lights = slices.Delete(g.Lights, idx, idx+1)
	delete(g.Locations, lightID)

	var changes []event.Change
	if !s.referenced(lightID) {
		delete(s.lights, lightID)
		changes = append(changes, event.Delete(deleteEntry{ID: lightID, Resource: entryLight}))
	}
	changes = append(changes, event.Update(groupEntry{ID: groupID, Resource: entryGroup, Group: copyGroup(g)}))

	s.save(ctx)
	s.logger.Info("legacy light removed", "group", groupID, "light", lightID)
	return changes, nil
}

func (s *Store) referenced(lightID string) bool {
	for _, g := range s.groups {
		if slices.Contains(g.Lights, lightID) {
			return true
		}
	}
	return false
}

func (s *Store) freeLightID() (int, bool) {
	for n := 1; n <= MaxLightID; n++ {
		if _, taken := s.lights[strconv.Itoa(n)]; !taken {
			return n, true
		}
	}
	return 0, false
}

// ─── Sessions ───────────────────────────────────────────────────────

// Transition applies an ownership decision to a group. It implements
// ownership.Ledger. The changes are the group's new stream state followed
// by one mode update per light of the group. Nothing is persisted.
func (s *Store) Transition(id string, decide ownership.Decide) ([]event.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.group(id)
	if err != nil {
		return nil, err
	}
	current := sessionOf(id, g)
	holder, _ := s.activeSession()

	next, err := decide(current, holder)
	if err != nil {
		return nil, err
	}
	if next == current {
		return nil, nil
	}

	mode := ModeHomeAutomation
	g.Stream.Active = next.Active
	g.Stream.Owner = nil
	if next.Active {
		owner := next.Owner
		g.Stream.Owner = &owner
		mode = ModeStreaming
	}

	stream := g.Stream
	if stream.Owner != nil {
		owner := *stream.Owner
		stream.Owner = &owner
	}
	changes := []event.Change{event.Update(streamEntry{ID: id, Resource: entryGroup, Stream: stream})}
	for _, lightID := range g.Lights {
		l, ok := s.lights[lightID]
		if !ok || l.State.Mode == mode {
			continue
		}
		l.State.Mode = mode
		changes = append(changes, event.Update(modeEntry{ID: lightID, Resource: entryLight, State: modeState{Mode: mode}}))
	}
	return changes, nil
}

// ActiveSession implements ownership.Ledger.
func (s *Store) ActiveSession() (ownership.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSession()
}

// ActiveChannelCount returns the number of lights located in the active
// group, which is the number of records in each stream frame.
func (s *Store) ActiveChannelCount() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.activeSession()
	if !ok {
		return 0, false
	}
	return len(s.groups[session.ID].Locations), true
}

func (s *Store) activeSession() (ownership.Session, bool) {
	ids := make([]string, 0, len(s.groups))
	for id := range s.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if g := s.groups[id]; g.Stream.Active {
			return sessionOf(id, g), true
		}
	}
	return ownership.Session{}, false
}

func sessionOf(id string, g *Group) ownership.Session {
	sess := ownership.Session{ID: id, Active: g.Stream.Active}
	if sess.Active && g.Stream.Owner != nil {
		sess.Owner = *g.Stream.Owner
	}
	return sess
}
