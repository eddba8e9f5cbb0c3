package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrUnsupportedDriver = errors.New("unsupported store driver")
	ErrMissingDSN        = errors.New("store dsn is required")
)
