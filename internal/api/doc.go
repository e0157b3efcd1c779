// Package api implements the HTTP surface of the bridge simulator.
//
// This package provides:
//   - The claim and bridge config endpoints shared by both generations
//   - A Backend per protocol generation (resource graph or legacy groups)
//   - The server-sent event stream for resource-graph clients
//   - Develop endpoints used by the simulator GUI and test tooling
//   - A WebSocket hub relaying decoded colours, decoder status and change
//     envelopes to display clients
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server never mutates state itself. Topology changes go to the store
// of the selected generation, activation goes through the ownership
// Arbiter, and every resulting change is handed to the event Publisher,
// which frames it for SSE subscribers and its mirrors (the hub, MQTT).
//
// Frames arrive over UDP in the stream package; POST /develop/stream
// offers the same path over HTTP.
package api
