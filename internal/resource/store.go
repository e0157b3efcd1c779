package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/bridgesim/internal/snapshot"
)

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

// Store is the resource graph. All methods are safe for concurrent use;
// every mutation runs under one lock.
type Store struct {
	mu        sync.Mutex
	snapshots snapshot.Store

	// A nil collection failed to load and is unavailable.
	devices       *Collection[Device]
	lights        *Collection[Light]
	zigbee        *Collection[ZigbeeConnectivity]
	entertainment *Collection[Entertainment]
	configs       *Collection[EntertainmentConfiguration]

	// Read-only documents served as loaded.
	documents map[string]json.RawMessage

	newID  func() string
	logger Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the random resource id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates an empty store persisting through snapshots.
// Call Load before use.
func NewStore(snapshots snapshot.Store, opts ...Option) *Store {
	s := &Store{
		snapshots: snapshots,
		documents: make(map[string]json.RawMessage),
		newID:     uuid.NewString,
		logger:    noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Load reads every collection from the snapshot store.
//
// A kind whose current snapshot cannot be read or parsed is loaded from its
// default template instead. A kind whose default fails too stays
// unavailable. The returned error joins those failures; the store is usable
// either way.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	record := func(kind string, err error) {
		if err != nil {
			s.logger.Error("resource kind unavailable", "kind", kind, "error", err)
			errs = append(errs, err)
		}
	}

	var err error
	s.devices, err = loadKind[Collection[Device]](ctx, s, snapshot.KindDevice)
	record(snapshot.KindDevice, err)
	s.lights, err = loadKind[Collection[Light]](ctx, s, snapshot.KindLight)
	record(snapshot.KindLight, err)
	s.zigbee, err = loadKind[Collection[ZigbeeConnectivity]](ctx, s, snapshot.KindZigbeeConnectivity)
	record(snapshot.KindZigbeeConnectivity, err)
	s.entertainment, err = loadKind[Collection[Entertainment]](ctx, s, snapshot.KindEntertainment)
	record(snapshot.KindEntertainment, err)
	s.configs, err = loadKind[Collection[EntertainmentConfiguration]](ctx, s, snapshot.KindEntertainmentConfiguration)
	record(snapshot.KindEntertainmentConfiguration, err)

	for _, kind := range []string{snapshot.KindBridge, snapshot.KindZone, snapshot.KindScene} {
		doc, err := loadKind[json.RawMessage](ctx, s, kind)
		record(kind, err)
		if err == nil {
			s.documents[kind] = *doc
		}
	}

	// A restart always begins with every configuration inactive.
	if s.configs != nil {
		for i := range s.configs.Data {
			s.configs.Data[i].Status = StatusInactive
			s.configs.Data[i].ActiveStreamer = nil
		}
	}
	if s.lights != nil {
		for i := range s.lights.Data {
			s.lights.Data[i].Mode = ModeNormal
		}
	}

	return errors.Join(errs...)
}

// loadKind decodes the current snapshot of kind, falling back to the
// default template.
func loadKind[T any](ctx context.Context, s *Store, kind string) (*T, error) {
	data, err := s.snapshots.Load(ctx, kind)
	if err == nil {
		var v T
		if err = json.Unmarshal(data, &v); err == nil {
			return &v, nil
		}
		s.logger.Warn("current snapshot unreadable, using default", "kind", kind, "error", err)
	}

	data, defErr := s.snapshots.LoadDefault(ctx, kind)
	if defErr != nil {
		return nil, fmt.Errorf("loading %s: %w", kind, errors.Join(err, defErr))
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing default %s: %w", kind, err)
	}
	return &v, nil
}

// save persists the mutable collections. Entertainment configurations are
// written inactive whatever their live state. Failures are logged; the
// in-memory graph stays authoritative.
//
// The write ignores cancellation of ctx: a mutation already applied in
// memory is always saved, even when the caller's request has gone away.
func (s *Store) save(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	write := func(kind string, v any) {
		data, err := json.MarshalIndent(v, "", "    ")
		if err == nil {
			err = s.snapshots.Save(ctx, kind, data)
		}
		if err != nil {
			s.logger.Error("failed to persist resources", "kind", kind, "error", err)
		}
	}

	if s.devices != nil {
		write(snapshot.KindDevice, s.devices)
	}
	if s.lights != nil {
		write(snapshot.KindLight, persistedLights(s.lights))
	}
	if s.entertainment != nil {
		write(snapshot.KindEntertainment, s.entertainment)
	}
	if s.zigbee != nil {
		write(snapshot.KindZigbeeConnectivity, s.zigbee)
	}
	if s.configs != nil {
		write(snapshot.KindEntertainmentConfiguration, persistedConfigs(s.configs))
	}
}

func persistedConfigs(c *Collection[EntertainmentConfiguration]) Collection[EntertainmentConfiguration] {
	out := Collection[EntertainmentConfiguration]{Errors: c.Errors, Data: make([]EntertainmentConfiguration, len(c.Data))}
	for i, ec := range c.Data {
		ec.Status = StatusInactive
		ec.ActiveStreamer = nil
		out.Data[i] = ec
	}
	return out
}

func persistedLights(c *Collection[Light]) Collection[Light] {
	out := Collection[Light]{Errors: c.Errors, Data: make([]Light, len(c.Data))}
	for i, l := range c.Data {
		l.Mode = ModeNormal
		out.Data[i] = l
	}
	return out
}

// ─── Reads ──────────────────────────────────────────────────────────

// List returns the JSON listing of kind.
func (s *Store) List(kind string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		v         any
		available bool
	)
	switch kind {
	case TypeDevice:
		v, available = s.devices, s.devices != nil
	case TypeLight:
		v, available = s.lights, s.lights != nil
	case TypeZigbeeConnectivity:
		v, available = s.zigbee, s.zigbee != nil
	case TypeEntertainment:
		v, available = s.entertainment, s.entertainment != nil
	case TypeEntertainmentConfiguration:
		v, available = s.configs, s.configs != nil
	case TypeBridge, TypeZone, TypeScene:
		var doc json.RawMessage
		doc, available = s.documents[kind]
		v = doc
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if !available {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, kind)
	}
	return json.Marshal(v)
}

// Get returns a listing of kind holding only the resource with id.
func (s *Store) Get(kind, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case TypeDevice:
		return getOne(kind, s.devices, id, func(d Device) string { return d.ID })
	case TypeLight:
		return getOne(kind, s.lights, id, func(l Light) string { return l.ID })
	case TypeZigbeeConnectivity:
		return getOne(kind, s.zigbee, id, func(z ZigbeeConnectivity) string { return z.ID })
	case TypeEntertainment:
		return getOne(kind, s.entertainment, id, func(e Entertainment) string { return e.ID })
	case TypeEntertainmentConfiguration:
		return getOne(kind, s.configs, id, func(ec EntertainmentConfiguration) string { return ec.ID })
	case TypeBridge, TypeZone, TypeScene:
		doc, ok := s.documents[kind]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, kind)
		}
		var c Collection[json.RawMessage]
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, fmt.Errorf("parsing %s document: %w", kind, err)
		}
		return getOne(kind, &c, id, rawID)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

func getOne[T any](kind string, c *Collection[T], id string, idOf func(T) string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, kind)
	}
	for _, item := range c.Data {
		if idOf(item) == id {
			return json.Marshal(Collection[T]{Errors: []any{}, Data: []T{item}})
		}
	}
	return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

func rawID(doc json.RawMessage) string {
	var v struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(doc, &v) != nil {
		return ""
	}
	return v.ID
}

// EntertainmentConfiguration returns a copy of the configuration with id.
func (s *Store) EntertainmentConfiguration(id string) (EntertainmentConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ec, err := s.config(id)
	if err != nil {
		return EntertainmentConfiguration{}, err
	}
	return clone(*ec), nil
}

// EntertainmentConfigurations returns copies of every configuration.
func (s *Store) EntertainmentConfigurations() ([]EntertainmentConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.configs == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, TypeEntertainmentConfiguration)
	}
	return clone(s.configs.Data), nil
}

// Light returns a copy of the light with id.
func (s *Store) Light(id string) (Light, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lights == nil {
		return Light{}, fmt.Errorf("%w: %s", ErrUnavailable, TypeLight)
	}
	for _, l := range s.lights.Data {
		if l.ID == id {
			return clone(l), nil
		}
	}
	return Light{}, fmt.Errorf("%w: light %s", ErrNotFound, id)
}

// Device returns a copy of the device with id.
func (s *Store) Device(id string) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.devices == nil {
		return Device{}, fmt.Errorf("%w: %s", ErrUnavailable, TypeDevice)
	}
	for _, d := range s.devices.Data {
		if d.ID == id {
			return clone(d), nil
		}
	}
	return Device{}, fmt.Errorf("%w: device %s", ErrNotFound, id)
}

// config returns the live configuration with id. Caller holds s.mu.
func (s *Store) config(id string) (*EntertainmentConfiguration, error) {
	if s.configs == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, TypeEntertainmentConfiguration)
	}
	for i := range s.configs.Data {
		if s.configs.Data[i].ID == id {
			return &s.configs.Data[i], nil
		}
	}
	return nil, fmt.Errorf("%w: entertainment_configuration %s", ErrNotFound, id)
}

// clone deep-copies v through its JSON form. Resource types round-trip
// losslessly.
func clone[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("resource: cloning %T: %v", v, err))
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("resource: cloning %T: %v", v, err))
	}
	return out
}
