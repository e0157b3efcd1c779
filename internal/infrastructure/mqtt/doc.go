// Package mqtt mirrors simulator activity onto an MQTT broker.
//
// The simulator is publish-only: every change envelope broadcast on the
// event stream is republished under bridgesim/event/{type}, stream status
// tokens go to bridgesim/stream/status and decoded colours to
// bridgesim/stream/light/{id}. A Last Will on bridgesim/system/status lets
// observers tell a crash from a clean shutdown.
//
// The broker is optional. When mqtt.enabled is false nothing in this
// package is constructed.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish(mqtt.Topics{}.StreamStatus(), []byte("idle"), 0, true)
package mqtt
