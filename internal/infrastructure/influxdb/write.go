package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementLightColor   = "light_color"
	MeasurementStreamStatus = "stream_status"
)

// WriteLightColor records one decoded colour for a stream light id.
func (c *Client) WriteLightColor(lightID int, r, g, b uint8) {
	c.WriteLightColorAt(lightID, r, g, b, time.Now())
}

// WriteLightColorAt is WriteLightColor with an explicit timestamp, so every
// light of one decoded frame shares the same time.
func (c *Client) WriteLightColorAt(lightID int, r, g, b uint8, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		MeasurementLightColor,
		map[string]string{
			"light_id": strconv.Itoa(lightID),
		},
		map[string]any{
			"r": int64(r),
			"g": int64(g),
			"b": int64(b),
		},
		ts,
	)
	c.writeAPI.WritePoint(point)
}

// WriteStreamStatus records a decoder status token (idle, streaming,
// error). The spinner frame is dropped so the series stays low-cardinality.
func (c *Client) WriteStreamStatus(state string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		MeasurementStreamStatus,
		nil,
		map[string]any{"state": state},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}
