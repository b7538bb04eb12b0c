package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks a value Validate rejected; ErrLoadConfig marks a file, env or
// decoding failure in Load.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func loadFailed(layer string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLoadConfig, layer, err)
}
