package legacy

// Light stream modes.
const (
	ModeHomeAutomation = "homeautomation"
	ModeStreaming      = "streaming"
)

// MaxLightID is the highest id addressable by a stream record.
const MaxLightID = 0xFFFF

// Group is an entertainment group.
type Group struct {
	Name      string              `json:"name"`
	Lights    []string            `json:"lights"`
	Sensors   []string            `json:"sensors"`
	Type      string              `json:"type"`
	State     GroupState          `json:"state"`
	Recycle   bool                `json:"recycle"`
	Class     string              `json:"class"`
	Stream    Stream              `json:"stream"`
	Locations map[string]Location `json:"locations"`
	Action    Action              `json:"action"`
}

// Location is a light's [x, y] position in the entertainment area.
type Location [2]float64

// GroupState summarises the power state of a group's lights.
type GroupState struct {
	AllOn bool `json:"all_on"`
	AnyOn bool `json:"any_on"`
}

// Stream is a group's streaming state. Owner is null while inactive.
type Stream struct {
	ProxyMode string  `json:"proxymode"`
	ProxyNode string  `json:"proxynode"`
	Active    bool    `json:"active"`
	Owner     *string `json:"owner"`
}

// Action is the last state applied to the whole group.
type Action struct {
	On        bool       `json:"on"`
	Bri       int        `json:"bri"`
	XY        [2]float64 `json:"xy"`
	ColorMode string     `json:"colormode"`
}

// Light is a light record.
type Light struct {
	State            LightState   `json:"state"`
	Type             string       `json:"type"`
	Name             string       `json:"name"`
	ModelID          string       `json:"modelid"`
	ManufacturerName string       `json:"manufacturername"`
	UniqueID         string       `json:"uniqueid"`
	SwVersion        string       `json:"swversion"`
	Capabilities     Capabilities `json:"capabilities"`
}

// LightState is the state of a light.
type LightState struct {
	On        bool       `json:"on"`
	Bri       int        `json:"bri"`
	XY        [2]float64 `json:"xy"`
	ColorMode string     `json:"colormode"`
	Reachable bool       `json:"reachable"`
	Mode      string     `json:"mode"`
}

// Capabilities lists what a light supports.
type Capabilities struct {
	Streaming StreamingCapability `json:"streaming"`
}

// StreamingCapability tells whether a light can render or relay a stream.
type StreamingCapability struct {
	Renderer bool `json:"renderer"`
	Proxy    bool `json:"proxy"`
}

// Change payloads. Resource tells groups and lights apart, since both
// carry their own "type" field.

type groupEntry struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Group
}

type streamEntry struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Stream   Stream `json:"stream"`
}

type lightEntry struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Light
}

type modeEntry struct {
	ID       string    `json:"id"`
	Resource string    `json:"resource"`
	State    modeState `json:"state"`
}

type modeState struct {
	Mode string `json:"mode"`
}

type deleteEntry struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
}

const (
	entryGroup = "group"
	entryLight = "light"
)
