package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// subscriberBuffer is the number of framed messages a subscriber may lag
// behind before it is dropped.
const subscriberBuffer = 64

// Logger defines the logging interface used by the Publisher.
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

// Mirror receives every published message after it is framed for
// subscribers. Mirrors run on the publishing goroutine and must not block.
type Mirror interface {
	Mirror(msg Message)
}

// MirrorFunc adapts a function to the Mirror interface.
type MirrorFunc func(msg Message)

// Mirror calls f(msg).
func (f MirrorFunc) Mirror(msg Message) { f(msg) }

// Subscription is one open event-stream consumer.
type Subscription struct {
	ch   chan []byte
	once sync.Once
}

// C delivers framed messages. It is closed when the subscription ends.
func (s *Subscription) C() <-chan []byte { return s.ch }

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Publisher numbers messages and fans them out to subscribers.
//
// All methods are safe for concurrent use.
type Publisher struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers map[*Subscription]struct{}
	mirrors     []Mirror

	now    func() time.Time
	newID  func() string
	logger Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock replaces time.Now for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// WithIDGenerator replaces the random envelope id source.
func WithIDGenerator(newID func() string) Option {
	return func(p *Publisher) { p.newID = newID }
}

// NewPublisher creates a publisher with no subscribers.
func NewPublisher(opts ...Option) *Publisher {
	p := &Publisher{
		subscribers: make(map[*Subscription]struct{}),
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      noopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetLogger sets the logger for the publisher.
func (p *Publisher) SetLogger(logger Logger) {
	p.logger = logger
}

// AddMirror registers a mirror for all future messages.
func (p *Publisher) AddMirror(m Mirror) {
	p.mu.Lock()
	p.mirrors = append(p.mirrors, m)
	p.mu.Unlock()
}

// Subscribe opens a subscription. Its channel already holds the greeting.
func (p *Publisher) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan []byte, subscriberBuffer)}
	sub.ch <- []byte(Greeting)

	p.mu.Lock()
	p.subscribers[sub] = struct{}{}
	count := len(p.subscribers)
	p.mu.Unlock()

	p.logger.Debug("event subscriber added", "subscribers", count)
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
// Calling it more than once is harmless.
func (p *Publisher) Unsubscribe(sub *Subscription) {
	p.mu.Lock()
	_, existed := p.subscribers[sub]
	delete(p.subscribers, sub)
	count := len(p.subscribers)
	p.mu.Unlock()

	sub.close()
	if existed {
		p.logger.Debug("event subscriber removed", "subscribers", count)
	}
}

// SubscriberCount returns the number of open subscriptions.
func (p *Publisher) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers)
}

// Publish stamps the changes, frames them as one message and pushes it to
// every subscriber. It returns the message, or false when there was
// nothing to publish.
func (p *Publisher) Publish(changes ...Change) (Message, bool) {
	if len(changes) == 0 {
		return Message{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	msg := Message{
		ID:        p.nextID,
		Envelopes: make([]Envelope, 0, len(changes)),
	}
	p.nextID++
	for _, c := range changes {
		msg.Envelopes = append(msg.Envelopes, Stamp(c, now, p.newID()))
	}

	frame, err := msg.Frame()
	if err != nil {
		p.logger.Error("dropping unencodable event message", "id", msg.ID, "error", err)
		return msg, false
	}

	for sub := range p.subscribers {
		select {
		case sub.ch <- frame:
		default:
			delete(p.subscribers, sub)
			sub.close()
			p.logger.Warn("event subscriber too slow, dropped", "message_id", msg.ID)
		}
	}

	for _, m := range p.mirrors {
		m.Mirror(msg)
	}

	return msg, true
}
