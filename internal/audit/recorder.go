package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/bridgesim/internal/event"
)

// SourceEvents marks entries recorded from the event publisher.
const SourceEvents = "events"

// recordTimeout bounds the inserts of one message.
const recordTimeout = 2 * time.Second

// DefaultQueueSize is the number of messages waiting to be recorded.
const DefaultQueueSize = 256

// Logger defines the logging interface used by the Recorder.
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

// Recorder writes one audit log per changed resource of every published
// message. It is an event.Mirror: Mirror only queues the message and a
// background goroutine does the inserts. When the queue is full messages
// are dropped.
type Recorder struct {
	repo Repository

	mu      sync.Mutex
	queue   chan event.Message
	closed  bool
	dropped int

	wg     sync.WaitGroup
	logger Logger
}

var _ event.Mirror = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*recorderOptions)

type recorderOptions struct {
	queueSize int
}

// WithQueueSize sets how many messages may wait to be recorded.
func WithQueueSize(n int) RecorderOption {
	return func(o *recorderOptions) { o.queueSize = n }
}

// NewRecorder creates a recorder writing to repo and starts its goroutine.
// Call Close to stop it.
func NewRecorder(repo Repository, opts ...RecorderOption) *Recorder {
	o := recorderOptions{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.queueSize <= 0 {
		o.queueSize = DefaultQueueSize
	}

	r := &Recorder{
		repo:   repo,
		queue:  make(chan event.Message, o.queueSize),
		logger: noopLogger{},
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Mirror queues msg for recording. It never waits on the database.
func (r *Recorder) Mirror(msg event.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- msg:
	default:
		r.dropped++
		if r.dropped == 1 || r.dropped%100 == 0 {
			r.logger.Warn("audit queue full, dropping", "message_id", msg.ID, "dropped", r.dropped)
		}
	}
}

// Dropped returns how many messages were discarded on a full queue.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close records what is queued and stops the goroutine. Messages mirrored
// afterwards are ignored.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for msg := range r.queue {
		r.record(msg)
	}
}

// record inserts the entries of msg. Failures are logged and the remaining
// entries are still written.
func (r *Recorder) record(msg event.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	for _, env := range msg.Envelopes {
		created, err := time.Parse(event.CreationTimeLayout, env.CreationTime)
		if err != nil {
			created = time.Now().UTC()
		}
		for _, item := range env.Data {
			log := entryFor(item)
			log.Action = string(env.Type)
			log.Source = SourceEvents
			log.CreatedAt = created
			log.Details["message_id"] = msg.ID
			log.Details["event_id"] = env.ID

			if err := r.repo.Create(ctx, &log); err != nil {
				r.logger.Error("failed to record audit log",
					"message_id", msg.ID,
					"entity_type", log.EntityType,
					"entity_id", log.EntityID,
					"error", err,
				)
			}
		}
	}
}

// changedResource holds the fields of a change delta that identify what
// changed and who holds it. Legacy entries name their kind in resource and
// carry the record's own type field alongside; resource-graph deltas only
// have type.
type changedResource struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Resource       string `json:"resource"`
	Status         string `json:"status"`
	Mode           string `json:"mode"`
	ActiveStreamer *struct {
		RID string `json:"rid"`
	} `json:"active_streamer"`
	Stream *struct {
		Active bool    `json:"active"`
		Owner  *string `json:"owner"`
	} `json:"stream"`
	State *struct {
		Mode string `json:"mode"`
	} `json:"state"`
}

// entryFor extracts the audit fields of one change delta.
func entryFor(item any) AuditLog {
	log := AuditLog{EntityType: "unknown", Details: map[string]any{}}

	data, err := json.Marshal(item)
	if err != nil {
		return log
	}
	var c changedResource
	if json.Unmarshal(data, &c) != nil {
		return log
	}

	log.EntityID = c.ID
	switch {
	case c.Resource != "":
		log.EntityType = c.Resource
	case c.Type != "":
		log.EntityType = c.Type
	}

	if c.ActiveStreamer != nil {
		log.Owner = c.ActiveStreamer.RID
	}
	if c.Status != "" {
		log.Details["status"] = c.Status
	}
	if c.Mode != "" {
		log.Details["mode"] = c.Mode
	}
	if c.Stream != nil {
		log.Details["active"] = c.Stream.Active
		if c.Stream.Owner != nil {
			log.Owner = *c.Stream.Owner
		}
	}
	if c.State != nil && c.State.Mode != "" {
		log.Details["mode"] = c.State.Mode
	}
	return log
}
