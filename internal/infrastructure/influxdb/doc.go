// Package influxdb records decoded entertainment-stream colours in InfluxDB.
//
// Each decoded light colour becomes one light_color point tagged with the
// stream light id. Stream status changes are written as stream_status
// points so a dashboard can line up colour traces with session activity.
// Writes are non-blocking and batched by the official client; failures
// surface asynchronously through SetOnError.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteLightColor(3, 255, 0, 128)
package influxdb
