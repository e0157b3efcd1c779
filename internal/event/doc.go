// Package event builds CLIP v2 change envelopes and fans them out to
// event-stream subscribers.
//
// A store mutation returns an ordered list of Changes. Publish stamps each
// one into an Envelope (creation time, random id, type tag, payload array),
// assigns the batch the next message id and hands the framed bytes to every
// open Subscription in a single push:
//
//	id: 7:0
//	data: [{"creationtime":"2026-03-01T09:00:00Z","id":"...","type":"update","data":[...]}]
//
// A new Subscription receives the ": hi" comment before anything else so
// the client can tell the stream is open. Delivery never blocks the
// publisher: a subscriber whose buffer is full is dropped and its channel
// closed.
package event
