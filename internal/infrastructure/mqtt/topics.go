package mqtt

import "fmt"

// TopicPrefix is the root of every topic the simulator publishes.
const TopicPrefix = "bridgesim"

// Topics builds simulator topic names.
//
//	Topics{}.Event("update")      // bridgesim/event/update
//	Topics{}.LightColor(3)        // bridgesim/stream/light/3
type Topics struct{}

// Event returns the topic for change envelopes of one type (add, update, delete).
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, eventType)
}

// StreamStatus returns the retained topic carrying the decoder status token.
func (Topics) StreamStatus() string {
	return TopicPrefix + "/stream/status"
}

// LightColor returns the topic for one light's decoded colour.
func (Topics) LightColor(lightID int) string {
	return fmt.Sprintf("%s/stream/light/%d", TopicPrefix, lightID)
}

// SystemStatus returns the retained online/offline topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllEvents matches every change envelope topic.
func (Topics) AllEvents() string {
	return TopicPrefix + "/event/+"
}
