// Package resource holds the resource-graph model of the simulated bridge.
//
// The Store owns the device, light, zigbee_connectivity, entertainment and
// entertainment_configuration collections and keeps their cross references
// consistent. Bridge, zone and scene documents are served verbatim.
//
// Topology mutations (AddLight, DeleteChannel) are persisted through a
// snapshot.Store as soon as they are applied. Streaming state changes made
// through Transition are never persisted: a saved entertainment
// configuration is always inactive with no active streamer.
//
// Every mutating method returns the event.Change deltas describing what
// changed, in the order clients expect them on the event stream.
package resource
