package resource

import "errors"

var (
	// ErrNotFound is returned when a resource id does not exist.
	ErrNotFound = errors.New("resource: not found")

	// ErrUnknownKind is returned for a collection the store does not serve.
	ErrUnknownKind = errors.New("resource: unknown kind")

	// ErrUnavailable is returned when a collection failed to load at startup.
	ErrUnavailable = errors.New("resource: collection unavailable")

	// ErrChannelNotFound is returned when deleting a channel id that is not
	// part of the entertainment configuration.
	ErrChannelNotFound = errors.New("resource: channel not found")

	// ErrNoFreeChannel is returned when all channel ids are in use.
	ErrNoFreeChannel = errors.New("resource: no free channel")

	// ErrInvalidPosition is returned for a location that is not two finite numbers.
	ErrInvalidPosition = errors.New("resource: invalid position")
)
