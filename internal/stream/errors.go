package stream

import "errors"

var (
	// ErrSizeMismatch is returned when a frame's length does not match the
	// active layout.
	ErrSizeMismatch = errors.New("stream: data size mismatch")

	// ErrUnsupportedVersion is returned for a frame version other than 1 or 2.
	ErrUnsupportedVersion = errors.New("stream: unsupported version")

	// ErrUnsupportedColorMode is returned for frames not in RGB.
	ErrUnsupportedColorMode = errors.New("stream: unsupported color mode")

	// ErrInvalidPacket is returned for datagrams without a stream header.
	ErrInvalidPacket = errors.New("stream: invalid packet")

	// ErrNoSession is returned when a frame arrives while nothing is streaming.
	ErrNoSession = errors.New("stream: no active session")
)
