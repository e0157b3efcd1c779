// Package stream ingests entertainment stream frames.
//
// Frames arrive out of band, over UDP or the develop HTTP endpoint, and are
// offered to a Poller. The Poller keeps only the latest frame and decodes
// it on a fixed tick, so frames that arrive faster than the tick are
// dropped rather than queued. Each decoded frame yields one Color per
// record, handed to the configured sinks along with a status token.
//
// Wire formats:
//
//	version 1 record (9 bytes):  [address type][light id:2][R:2][G:2][B:2]
//	version 2 frame:             [configuration id:36] then 7-byte records
//	version 2 record (7 bytes):  [channel id][R:2][G:2][B:2]
//
// All multi-byte fields are big-endian. Channels are 16-bit and scaled to
// 8 bits with rounding.
package stream
