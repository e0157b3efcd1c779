package ownership

import "errors"

// ErrOwnershipConflict is returned when a session is held by another owner,
// or when another session is already active.
var ErrOwnershipConflict = errors.New("ownership: cannot override stream ownership")
