package config

import "errors"

// ErrInvalidConfig is the sentinel a failed Validate() check wraps.
var ErrInvalidConfig = errors.New("invalid config")
