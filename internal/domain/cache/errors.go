package cache

import "errors"

// ErrUnavailable wraps failures of a remote cache backend.
var ErrUnavailable = errors.New("cache unavailable")
