package indicator

import (
	"errors"
	"fmt"
)

// ConfigError reports a parameter that violates a deployment precondition.
// It is raised before any deployment is attempted.
type ConfigError struct {
	Field  string
	Reason string
}

func newConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// NewConfigError creates a ConfigError for field.
func NewConfigError(field, reason string) *ConfigError {
	return newConfigError(field, reason)
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
