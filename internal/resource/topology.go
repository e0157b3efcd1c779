package resource

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/nerrad567/bridgesim/internal/event"
)

// Placeholder identity of lights added through AddLight.
const (
	addedLightIDV1      = "/lights/99"
	addedLightName      = "Hue Bulb 99"
	addedLightArchetype = "hue_bulb"
	addedLightMAC       = "00:00:00:00:00:00:00:00"
)

// Added identifies the resources created by AddLight.
type Added struct {
	LightID         string `json:"light_id"`
	ZigbeeID        string `json:"zigbee_connectivity_id"`
	EntertainmentID string `json:"entertainment_id"`
	DeviceID        string `json:"device_id"`
	ChannelID       int    `json:"channel_id"`
}

// AddLight creates a light with its zigbee connectivity, entertainment
// service and device, and places it on a new channel of the configuration
// at (x, y). The lowest free channel id is used.
//
// The changes are the added light, zigbee connectivity and device followed
// by the updated configuration. The topology is persisted before returning.
func (s *Store) AddLight(ctx context.Context, ecID string, x, y float64) (Added, []event.Change, error) {
	if !finite(x) || !finite(y) {
		return Added{}, nil, fmt.Errorf("%w: (%v, %v)", ErrInvalidPosition, x, y)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTopology(); err != nil {
		return Added{}, nil, err
	}
	ec, err := s.config(ecID)
	if err != nil {
		return Added{}, nil, err
	}
	channelID, ok := freeChannel(ec.Channels)
	if !ok {
		return Added{}, nil, fmt.Errorf("%w: entertainment_configuration %s", ErrNoFreeChannel, ecID)
	}

	metadata := Metadata{Archetype: addedLightArchetype, Name: addedLightName}
	light := Light{
		ID:       s.newID(),
		IDV1:     addedLightIDV1,
		Dynamics: map[string]any{},
		Metadata: metadata,
		Mode:     ModeNormal,
		On:       OnState{On: true},
		Dimming:  Dimming{Brightness: 100},
		Color: Color{
			Gamut: Gamut{
				Blue:  XY{X: 0.1532, Y: 0.0475},
				Green: XY{X: 0.17, Y: 0.7},
				Red:   XY{X: 0.6915, Y: 0.3083},
			},
			GamutType: "C",
			XY:        XY{X: 0.5, Y: 0.5},
		},
		Type: TypeLight,
	}
	entertainment := Entertainment{
		ID:       s.newID(),
		IDV1:     light.IDV1,
		Proxy:    true,
		Renderer: true,
		Segments: Segments{
			MaxSegments: 1,
			Segments:    []Segment{{Length: 1, Start: 0}},
		},
		Type: TypeEntertainment,
	}
	zigbee := ZigbeeConnectivity{
		ID:         s.newID(),
		IDV1:       light.IDV1,
		MACAddress: addedLightMAC,
		Status:     "connected",
		Type:       TypeZigbeeConnectivity,
	}
	device := Device{
		ID:       s.newID(),
		IDV1:     light.IDV1,
		Metadata: metadata,
		ProductData: ProductData{
			Certified:        true,
			ManufacturerName: "Signify Netherlands B.V.",
			ModelID:          "LLC020",
			ProductArchetype: metadata.Archetype,
			ProductName:      "Hue bulb",
			SoftwareVersion:  "130.1.30000",
		},
		Services: []Ref{
			{RID: light.ID, RType: TypeLight},
			{RID: zigbee.ID, RType: TypeZigbeeConnectivity},
			{RID: entertainment.ID, RType: TypeEntertainment},
		},
		Type: TypeDevice,
	}

	s.lights.Data = append(s.lights.Data, light)
	s.entertainment.Data = append(s.entertainment.Data, entertainment)
	s.zigbee.Data = append(s.zigbee.Data, zigbee)
	s.devices.Data = append(s.devices.Data, device)

	service := Ref{RID: entertainment.ID, RType: TypeEntertainment}
	position := Position{X: x, Y: y}
	ec.Channels = append(ec.Channels, Channel{
		ChannelID: channelID,
		Position:  position,
		Members:   []Member{{Service: service, Index: 0}},
	})
	ec.LightServices = append(ec.LightServices, Ref{RID: light.ID, RType: TypeLight})
	ec.Locations.ServiceLocations = append(ec.Locations.ServiceLocations, ServiceLocation{
		Service:  service,
		Position: position,
	})

	changes := []event.Change{
		event.Add(clone(light)),
		event.Add(zigbee),
		event.Add(clone(device)),
		event.Update(clone(*ec)),
	}

	s.save(ctx)
	s.logger.Info("light added", "entertainment_configuration", ecID, "light", light.ID, "channel", channelID)

	return Added{
		LightID:         light.ID,
		ZigbeeID:        zigbee.ID,
		EntertainmentID: entertainment.ID,
		DeviceID:        device.ID,
		ChannelID:       channelID,
	}, changes, nil
}

// DeleteChannel removes a channel from the configuration and cascades to
// the lights it rendered.
//
// Members sharing an entertainment service with the removed channel are
// pruned from the configuration's other channels, and channels left empty
// are dropped. The light, zigbee connectivity, entertainment service and
// device of each affected light are deleted unless a channel of another
// configuration still references the entertainment service.
//
// The changes are deletes for lights, entertainment services and zigbee
// connectivities, in that order, followed by the updated configuration.
func (s *Store) DeleteChannel(ctx context.Context, ecID string, channelID int) ([]event.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTopology(); err != nil {
		return nil, err
	}
	ec, err := s.config(ecID)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(ec.Channels, func(c Channel) bool { return c.ChannelID == channelID })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d in entertainment_configuration %s", ErrChannelNotFound, channelID, ecID)
	}

	var removed []string
	for _, m := range ec.Channels[idx].Members {
		if !slices.Contains(removed, m.Service.RID) {
			removed = append(removed, m.Service.RID)
		}
	}
	isRemoved := func(rid string) bool { return slices.Contains(removed, rid) }

	channels := make([]Channel, 0, len(ec.Channels)-1)
	for i, ch := range ec.Channels {
		if i == idx {
			continue
		}
		before := len(ch.Members)
		ch.Members = slices.DeleteFunc(slices.Clone(ch.Members), func(m Member) bool { return isRemoved(m.Service.RID) })
		if before > 0 && len(ch.Members) == 0 {
			continue
		}
		channels = append(channels, ch)
	}
	ec.Channels = channels
	ec.Locations.ServiceLocations = slices.DeleteFunc(ec.Locations.ServiceLocations, func(l ServiceLocation) bool {
		return isRemoved(l.Service.RID)
	})

	// Services still rendered anywhere survive with their companions.
	kept := make(map[string]bool)
	for _, other := range s.configs.Data {
		for _, ch := range other.Channels {
			for _, m := range ch.Members {
				if isRemoved(m.Service.RID) {
					kept[m.Service.RID] = true
				}
			}
		}
	}

	var lightIDs, zigbeeIDs, deviceIDs []string
	keepIDs := make(map[string]bool)
	for _, d := range s.devices.Data {
		rid, ok := removedService(d, isRemoved)
		if !ok {
			continue
		}
		keep := kept[rid]
		for _, svc := range d.Services {
			switch svc.RType {
			case TypeLight:
				lightIDs = append(lightIDs, svc.RID)
			case TypeZigbeeConnectivity:
				zigbeeIDs = append(zigbeeIDs, svc.RID)
			default:
				continue
			}
			if keep {
				keepIDs[svc.RID] = true
			}
		}
		deviceIDs = append(deviceIDs, d.ID)
		if keep {
			keepIDs[d.ID] = true
		}
	}
	for rid := range kept {
		keepIDs[rid] = true
	}

	ec.LightServices = slices.DeleteFunc(ec.LightServices, func(r Ref) bool {
		return slices.Contains(lightIDs, r.RID)
	})

	doomed := func(candidates []string) func(id string) bool {
		return func(id string) bool { return slices.Contains(candidates, id) && !keepIDs[id] }
	}
	s.lights.Data = slices.DeleteFunc(s.lights.Data, func(l Light) bool { return doomed(lightIDs)(l.ID) })
	s.zigbee.Data = slices.DeleteFunc(s.zigbee.Data, func(z ZigbeeConnectivity) bool { return doomed(zigbeeIDs)(z.ID) })
	s.entertainment.Data = slices.DeleteFunc(s.entertainment.Data, func(e Entertainment) bool { return doomed(removed)(e.ID) })
	s.devices.Data = slices.DeleteFunc(s.devices.Data, func(d Device) bool { return doomed(deviceIDs)(d.ID) })

	var changes []event.Change
	appendDeletes := func(rtype string, ids []string) {
		for _, id := range ids {
			if !keepIDs[id] {
				changes = append(changes, event.Delete(deleteDelta{Type: rtype, ID: id}))
			}
		}
	}
	appendDeletes(TypeLight, lightIDs)
	appendDeletes(TypeEntertainment, removed)
	appendDeletes(TypeZigbeeConnectivity, zigbeeIDs)
	changes = append(changes, event.Update(clone(*ec)))

	s.save(ctx)
	s.logger.Info("channel deleted",
		"entertainment_configuration", ecID,
		"channel", channelID,
		"lights_removed", len(lightIDs)-countKept(lightIDs, keepIDs),
	)

	return changes, nil
}

// requireTopology reports whether every collection a topology mutation
// touches is available. Caller holds s.mu.
func (s *Store) requireTopology() error {
	switch {
	case s.configs == nil:
		return fmt.Errorf("%w: %s", ErrUnavailable, TypeEntertainmentConfiguration)
	case s.lights == nil:
		return fmt.Errorf("%w: %s", ErrUnavailable, TypeLight)
	case s.devices == nil:
		return fmt.Errorf("%w: %s", ErrUnavailable, TypeDevice)
	case s.zigbee == nil:
		return fmt.Errorf("%w: %s", ErrUnavailable, TypeZigbeeConnectivity)
	case s.entertainment == nil:
		return fmt.Errorf("%w: %s", ErrUnavailable, TypeEntertainment)
	}
	return nil
}

// removedService returns the device's entertainment service if it is
// being removed.
func removedService(d Device, isRemoved func(string) bool) (string, bool) {
	for _, svc := range d.Services {
		if svc.RType == TypeEntertainment && isRemoved(svc.RID) {
			return svc.RID, true
		}
	}
	return "", false
}

// freeChannel returns the lowest unused channel id.
func freeChannel(channels []Channel) (int, bool) {
	var used [MaxChannelID + 1]bool
	for _, ch := range channels {
		if ch.ChannelID >= 0 && ch.ChannelID <= MaxChannelID {
			used[ch.ChannelID] = true
		}
	}
	for id, taken := range used {
		if !taken {
			return id, true
		}
	}
	return 0, false
}

func countKept(ids []string, keep map[string]bool) int {
	n := 0
	for _, id := range ids {
		if keep[id] {
			n++
		}
	}
	return n
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
