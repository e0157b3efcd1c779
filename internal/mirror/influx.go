package mirror

import (
	"sync"
	"time"

	"github.com/nerrad567/bridgesim/internal/stream"
)

// SeriesWriter records stream output. *influxdb.Client satisfies it; its
// writes are batched and do not block.
type SeriesWriter interface {
	WriteLightColorAt(lightID int, r, g, b uint8, ts time.Time)
	WriteStreamStatus(state string)
}

// Influx is a stream.Sink writing decoded colours to a time-series store.
type Influx struct {
	w   SeriesWriter
	now func() time.Time

	mu        sync.Mutex
	lastState string
}

// NewInflux creates the sink.
func NewInflux(w SeriesWriter) *Influx {
	return &Influx{w: w, now: time.Now}
}

// Colors writes every colour of one frame with a shared timestamp.
func (i *Influx) Colors(colors []stream.Color) {
	ts := i.now()
	for _, c := range colors {
		i.w.WriteLightColorAt(c.LightID, c.R, c.G, c.B, ts)
	}
}

// Status records state transitions.
func (i *Influx) Status(s stream.Status) {
	i.mu.Lock()
	changed := s.State != i.lastState
	i.lastState = s.State
	i.mu.Unlock()

	if changed {
		i.w.WriteStreamStatus(s.State)
	}
}
