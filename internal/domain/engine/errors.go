package engine

import "errors"

// Sentinel errors for engine operations.
var (
	ErrUnknownMode   = errors.New("unknown estimate mode")
	ErrUnknownKind   = errors.New("unknown metric kind")
	ErrInvalidRange  = errors.New("range end is before range start")
	ErrRangeTooLarge = errors.New("range exceeds maximum number of days")
)
