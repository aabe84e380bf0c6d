package types

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a content-authoring defect, such as casting
// below a spell's minimum level or a physics effect missing its parameters.
// Callers should fail fast on it.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Op, e.Reason)
}

// Configf builds a ConfigurationError with a formatted reason.
func Configf(op, format string, args ...any) error {
	return &ConfigurationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
