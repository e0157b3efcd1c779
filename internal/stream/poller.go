package stream

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Defaults for PollerConfig.
const (
	DefaultInterval  = 50 * time.Millisecond
	DefaultIdleAfter = time.Second
)

// Status states.
const (
	StateIdle      = "idle"
	StateStreaming = "streaming"
	StateError     = "error"
)

// spinner is cycled through the status token of consecutive decoded frames.
var spinner = []string{"/", "-", `\`, "|", "/", "-", `\`, "|"}

// Status is the ingestion state after a tick. Token is the human readable
// form, e.g. "streaming /" or "error (data size mismatch)".
type Status struct {
	State string `json:"state"`
	Token string `json:"token"`
}

var idleStatus = Status{State: StateIdle, Token: StateIdle}

// Logger defines the logging interface used by this package.
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

// Layout reports how many records a frame for the active session carries.
type Layout interface {
	ActiveChannelCount() (int, bool)
}

// Sink consumes decoded colors and status updates. Sinks are called from
// the polling goroutine and should return quickly.
type Sink interface {
	Colors(colors []Color)
	Status(s Status)
}

// PollerConfig holds Poller settings.
type PollerConfig struct {
	// Interval is the decode tick. Zero means DefaultInterval.
	Interval time.Duration

	// IdleAfter is how long without frames before the status returns to
	// idle. Zero means DefaultIdleAfter.
	IdleAfter time.Duration

	// OnFrame is called after every successfully decoded frame.
	OnFrame func()

	// Now replaces time.Now.
	Now func() time.Time
}

// Poller decodes the latest offered frame at a fixed rate.
type Poller struct {
	layout Layout
	cfg    PollerConfig

	mu        sync.Mutex
	latest    Frame
	dirty     bool
	lastFrame time.Time
	status    Status
	spin      int
	colors    map[int]Color
	sinks     []Sink

	logger Logger
}

// NewPoller creates a poller reading the record count from layout.
func NewPoller(layout Layout, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = DefaultIdleAfter
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Poller{
		layout: layout,
		cfg:    cfg,
		status: idleStatus,
		colors: make(map[int]Color),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the poller.
func (p *Poller) SetLogger(logger Logger) {
	p.logger = logger
}

// AddSink registers a sink for all future ticks.
func (p *Poller) AddSink(s Sink) {
	p.mu.Lock()
	p.sinks = append(p.sinks, s)
	p.mu.Unlock()
}

// Offer replaces the pending frame. Frames in a color mode other than RGB
// are ignored.
func (p *Poller) Offer(f Frame) error {
	if f.ColorMode != ColorModeRGB {
		p.logger.Warn("ignoring stream frame with unsupported color mode", "colormode", f.ColorMode)
		return ErrUnsupportedColorMode
	}

	p.mu.Lock()
	p.latest = f
	p.dirty = true
	p.lastFrame = p.cfg.Now()
	p.mu.Unlock()
	return nil
}

// Tick decodes the pending frame, if any, and notifies the sinks.
func (p *Poller) Tick() {
	p.mu.Lock()

	if !p.dirty {
		changed := p.status.State != StateIdle && p.cfg.Now().Sub(p.lastFrame) >= p.cfg.IdleAfter
		if changed {
			p.status = idleStatus
		}
		sinks := p.sinks
		p.mu.Unlock()
		if changed {
			notifyStatus(sinks, idleStatus)
		}
		return
	}

	frame := p.latest
	p.dirty = false
	res, err := p.decode(frame)

	var status Status
	switch {
	case errors.Is(err, ErrNoSession):
		status = idleStatus
	case errors.Is(err, ErrSizeMismatch):
		status = Status{State: StateError, Token: "error (data size mismatch)"}
	case errors.Is(err, ErrUnsupportedVersion):
		status = Status{State: StateError, Token: "error (unsupported version)"}
	case err != nil:
		status = Status{State: StateError, Token: "error"}
	default:
		status = Status{State: StateStreaming, Token: StateStreaming + " " + spinner[p.spin]}
		p.spin = (p.spin + 1) % len(spinner)
		p.colors = make(map[int]Color, len(res.Colors))
		for _, c := range res.Colors {
			p.colors[c.LightID] = c
		}
	}
	p.status = status
	sinks := p.sinks
	p.mu.Unlock()

	if err != nil {
		p.logger.Debug("stream frame dropped", "version", frame.Version, "bytes", len(frame.Data), "error", err)
	} else if res.Skipped > 0 {
		p.logger.Warn("unsupported address type in stream frame", "records_skipped", res.Skipped)
	}

	if err == nil {
		for _, s := range sinks {
			s.Colors(res.Colors)
		}
		if p.cfg.OnFrame != nil {
			p.cfg.OnFrame()
		}
	}
	notifyStatus(sinks, status)
}

// Caller holds p.mu.
func (p *Poller) decode(f Frame) (Result, error) {
	count, ok := p.layout.ActiveChannelCount()
	if !ok {
		return Result{}, ErrNoSession
	}
	return Decode(f.Data, f.Version, count)
}

func notifyStatus(sinks []Sink, s Status) {
	for _, sink := range sinks {
		sink.Status(s)
	}
}

// Run ticks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Status returns the status after the last tick.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// LightColor returns the color of lightID in the last decoded frame.
func (p *Poller) LightColor(lightID int) (Color, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.colors[lightID]
	return c, ok
}
