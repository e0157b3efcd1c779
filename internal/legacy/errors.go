package legacy

import "errors"

var (
	// ErrNotFound is returned for an unknown group.
	ErrNotFound = errors.New("legacy: group not found")

	// ErrLightNotFound is returned for a light that is not part of the group.
	ErrLightNotFound = errors.New("legacy: light not found")

	// ErrUnavailable is returned when groups or lights failed to load.
	ErrUnavailable = errors.New("legacy: collection unavailable")

	// ErrNoFreeLight is returned when every light id is in use.
	ErrNoFreeLight = errors.New("legacy: no free light id")

	// ErrInvalidPosition is returned for a location that is not two finite numbers.
	ErrInvalidPosition = errors.New("legacy: invalid position")
)
