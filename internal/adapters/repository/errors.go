package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidUser    = errors.New("invalid user id")
	ErrInvalidSample  = errors.New("invalid sample")
	ErrInvalidProfile = errors.New("invalid profile")
)
