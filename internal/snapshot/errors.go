package snapshot

import "errors"

var (
	// ErrNoSnapshot means neither a current snapshot nor a default exists.
	ErrNoSnapshot = errors.New("snapshot: no snapshot or default for kind")

	// ErrInvalidKind is returned for kind names that cannot be used as a key.
	ErrInvalidKind = errors.New("snapshot: invalid kind")
)
