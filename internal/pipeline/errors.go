package pipeline

import (
	"errors"
	"fmt"
)

// ConfigError marks a fatal error raised while assembling the pipeline: an
// unknown task/source/sink id, a duplicate id, or a failed LoadPreferences
// call. The pipeline never starts when one of these occurs.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config error: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err as a ConfigError.
func NewConfigError(err error) error { return &ConfigError{Err: err} }

// ConfigErrorf builds a ConfigError from a format string.
func ConfigErrorf(format string, args ...any) error {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// IsConfigError reports whether err (or a wrapped cause) is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// InitError marks a fatal error raised while initializing a registered
// component. The pipeline shuts down before accepting any input.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init error: %s: %v", e.Component, e.Err)
}
func (e *InitError) Unwrap() error { return e.Err }

// NewInitError wraps err as an InitError naming the component that failed.
func NewInitError(component string, err error) error {
	return &InitError{Component: component, Err: err}
}

// IsInitError reports whether err (or a wrapped cause) is an InitError.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}
