package calls

import "errors"

var (
	// ErrNotFound is returned when a call or report does not exist.
	ErrNotFound = errors.New("call not found")
	// ErrNotClaimable is returned when a call cannot be claimed for
	// processing in its current status.
	ErrNotClaimable = errors.New("call is not claimable")
)
