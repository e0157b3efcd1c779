// Package mirror forwards simulator activity to external systems.
//
// MQTT mirrors resource change envelopes and decoder output onto the
// bridgesim/ topic tree. Influx records decoded colours as time series.
// Both satisfy event.Mirror and stream.Sink and never block the caller.
package mirror
