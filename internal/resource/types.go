package resource

// Resource type names as they appear in "type" and "rtype" fields.
const (
	TypeDevice                     = "device"
	TypeLight                      = "light"
	TypeZigbeeConnectivity         = "zigbee_connectivity"
	TypeEntertainment              = "entertainment"
	TypeEntertainmentConfiguration = "entertainment_configuration"
	TypeBridge                     = "bridge"
	TypeZone                       = "zone"
	TypeScene                      = "scene"

	// TypeAuth is the rtype of an active streamer reference.
	TypeAuth = "auth_v1"
)

// Light modes.
const (
	ModeNormal    = "normal"
	ModeStreaming = "streaming"
)

// Entertainment configuration statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// MaxChannelID is the highest channel id an entertainment configuration may use.
const MaxChannelID = 254

// Collection is the envelope every resource listing is served in.
type Collection[T any] struct {
	Errors []any `json:"errors"`
	Data   []T   `json:"data"`
}

// Ref points at another resource.
type Ref struct {
	RID   string `json:"rid"`
	RType string `json:"rtype"`
}

// Metadata is the user-facing description of a resource.
type Metadata struct {
	Archetype string `json:"archetype,omitempty"`
	Name      string `json:"name"`
}

// XY is a CIE chromaticity coordinate.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position is a location in the entertainment area, each axis in [-1, 1].
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Device groups the services of one physical product.
type Device struct {
	ID          string      `json:"id"`
	IDV1        string      `json:"id_v1"`
	Metadata    Metadata    `json:"metadata"`
	ProductData ProductData `json:"product_data"`
	Services    []Ref       `json:"services"`
	Type        string      `json:"type"`
}

// ProductData describes the hardware behind a device.
type ProductData struct {
	Certified        bool   `json:"certified"`
	ManufacturerName string `json:"manufacturer_name"`
	ModelID          string `json:"model_id"`
	ProductArchetype string `json:"product_archetype"`
	ProductName      string `json:"product_name"`
	SoftwareVersion  string `json:"software_version"`
}

// Light is a light service.
type Light struct {
	ID               string           `json:"id"`
	IDV1             string           `json:"id_v1"`
	Dynamics         map[string]any   `json:"dynamics"`
	Metadata         Metadata         `json:"metadata"`
	Mode             string           `json:"mode"`
	On               OnState          `json:"on"`
	Dimming          Dimming          `json:"dimming"`
	ColorTemperature ColorTemperature `json:"color_temperature"`
	Color            Color            `json:"color"`
	Type             string           `json:"type"`
}

// OnState is the power state of a light.
type OnState struct {
	On bool `json:"on"`
}

// Dimming is the brightness of a light in percent.
type Dimming struct {
	Brightness float64 `json:"brightness"`
}

// ColorTemperature is a light's white point. Mirek is null while the light
// is in color mode.
type ColorTemperature struct {
	Mirek *int `json:"mirek"`
}

// Color is a light's color capability and current chromaticity.
type Color struct {
	Gamut     Gamut  `json:"gamut"`
	GamutType string `json:"gamut_type"`
	XY        XY     `json:"xy"`
}

// Gamut is the triangle of reproducible colors.
type Gamut struct {
	Blue  XY `json:"blue"`
	Green XY `json:"green"`
	Red   XY `json:"red"`
}

// ZigbeeConnectivity is the radio status of a light.
type ZigbeeConnectivity struct {
	ID         string `json:"id"`
	IDV1       string `json:"id_v1"`
	MACAddress string `json:"mac_address"`
	Status     string `json:"status"`
	Type       string `json:"type"`
}

// Entertainment is the streaming capability of a light. Channel members
// reference it.
type Entertainment struct {
	ID       string   `json:"id"`
	IDV1     string   `json:"id_v1"`
	Proxy    bool     `json:"proxy"`
	Renderer bool     `json:"renderer"`
	Segments Segments `json:"segments"`
	Type     string   `json:"type"`
}

// Segments describes the addressable segments of a light.
type Segments struct {
	Configurable bool      `json:"configurable"`
	MaxSegments  int       `json:"max_segments"`
	Segments     []Segment `json:"segments"`
}

// Segment is one addressable run of a light.
type Segment struct {
	Length int `json:"length"`
	Start  int `json:"start"`
}

// EntertainmentConfiguration is a streaming area: an ordered set of
// channels, each mapping a wire channel id to light segments and a position.
type EntertainmentConfiguration struct {
	ID                string       `json:"id"`
	IDV1              string       `json:"id_v1"`
	Type              string       `json:"type"`
	Metadata          Metadata     `json:"metadata"`
	Name              string       `json:"name"`
	ConfigurationType string       `json:"configuration_type"`
	Status            string       `json:"status"`
	ActiveStreamer    *Ref         `json:"active_streamer,omitempty"`
	StreamProxy       *StreamProxy `json:"stream_proxy,omitempty"`
	Channels          []Channel    `json:"channels"`
	Locations         Locations    `json:"locations"`
	LightServices     []Ref        `json:"light_services"`
}

// StreamProxy names the light that relays the stream.
type StreamProxy struct {
	Mode string `json:"mode"`
	Node Ref    `json:"node"`
}

// Channel is one addressable slot of an entertainment configuration.
type Channel struct {
	ChannelID int      `json:"channel_id"`
	Position  Position `json:"position"`
	Members   []Member `json:"members"`
}

// Member is a light segment rendered by a channel.
type Member struct {
	Service Ref `json:"service"`
	Index   int `json:"index"`
}

// Locations holds the positions of the entertainment services.
type Locations struct {
	ServiceLocations []ServiceLocation `json:"service_locations"`
}

// ServiceLocation places one entertainment service in the area.
type ServiceLocation struct {
	Service  Ref      `json:"service"`
	Position Position `json:"position"`
}

// Deltas carried by activation and deletion events. They hold only the
// fields that changed.

type streamerDelta struct {
	ActiveStreamer Ref    `json:"active_streamer"`
	ID             string `json:"id"`
	IDV1           string `json:"id_v1"`
	Type           string `json:"type"`
}

type statusDelta struct {
	ID     string `json:"id"`
	IDV1   string `json:"id_v1"`
	Status string `json:"status"`
	Type   string `json:"type"`
}

type modeDelta struct {
	ID   string `json:"id"`
	IDV1 string `json:"id_v1"`
	Mode string `json:"mode"`
	Type string `json:"type"`
}

type deleteDelta struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}
