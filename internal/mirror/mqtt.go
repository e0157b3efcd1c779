package mirror

import (
	"encoding/json"
	"sync"

	"github.com/nerrad567/bridgesim/internal/event"
	"github.com/nerrad567/bridgesim/internal/infrastructure/mqtt"
	"github.com/nerrad567/bridgesim/internal/stream"
)

// DefaultQueueSize bounds the messages waiting for the broker.
const DefaultQueueSize = 256

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

// Broker publishes one MQTT message. *mqtt.Client satisfies it.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

type outbound struct {
	topic    string
	payload  []byte
	retained bool
}

// MQTTConfig holds MQTT mirror settings.
type MQTTConfig struct {
	QoS byte

	// QueueSize is the outbound buffer. Zero means DefaultQueueSize.
	QueueSize int

	// Colors enables one message per light per decoded frame.
	Colors bool
}

// MQTT mirrors events and stream output to a broker from a background
// goroutine. When the queue is full new messages are dropped.
type MQTT struct {
	broker Broker
	cfg    MQTTConfig
	topics mqtt.Topics

	mu        sync.Mutex
	queue     chan outbound
	closed    bool
	lastState string
	dropped   int

	wg     sync.WaitGroup
	logger Logger
}

// NewMQTT creates the mirror and starts its publishing goroutine.
func NewMQTT(broker Broker, cfg MQTTConfig) *MQTT {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	m := &MQTT{
		broker: broker,
		cfg:    cfg,
		queue:  make(chan outbound, cfg.QueueSize),
		logger: noopLogger{},
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// SetLogger sets the logger for the mirror.
func (m *MQTT) SetLogger(logger Logger) {
	m.logger = logger
}

// Mirror publishes each envelope of msg to the topic of its type.
func (m *MQTT) Mirror(msg event.Message) {
	for _, env := range msg.Envelopes {
		payload, err := json.Marshal(env)
		if err != nil {
			m.logger.Warn("encoding event for mqtt", "error", err)
			continue
		}
		m.enqueue(outbound{topic: m.topics.Event(string(env.Type)), payload: payload})
	}
}

type colorPayload struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Colors publishes decoded colours when enabled.
func (m *MQTT) Colors(colors []stream.Color) {
	if !m.cfg.Colors {
		return
	}
	for _, c := range colors {
		payload, _ := json.Marshal(colorPayload{R: c.R, G: c.G, B: c.B})
		m.enqueue(outbound{topic: m.topics.LightColor(c.LightID), payload: payload})
	}
}

// Status publishes the decoder state as a retained message whenever the
// state changes. Spinner steps are not published.
func (m *MQTT) Status(s stream.Status) {
	m.mu.Lock()
	if s.State == m.lastState {
		m.mu.Unlock()
		return
	}
	m.lastState = s.State
	m.mu.Unlock()

	payload, _ := json.Marshal(s)
	m.enqueue(outbound{topic: m.topics.StreamStatus(), payload: payload, retained: true})
}

// Dropped returns how many messages were discarded on a full queue.
func (m *MQTT) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Close publishes what is queued and stops the goroutine.
func (m *MQTT) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *MQTT) enqueue(o outbound) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- o:
	default:
		m.dropped++
		if m.dropped == 1 || m.dropped%100 == 0 {
			m.logger.Warn("mqtt mirror queue full, dropping", "topic", o.topic, "dropped", m.dropped)
		}
	}
}

func (m *MQTT) run() {
	defer m.wg.Done()
	for o := range m.queue {
		if err := m.broker.Publish(o.topic, o.payload, m.cfg.QoS, o.retained); err != nil {
			m.logger.Debug("mqtt mirror publish failed", "topic", o.topic, "error", err)
		}
	}
}
