package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("prewarm queue is full")
	ErrInvalidRange = errors.New("invalid range")
)
