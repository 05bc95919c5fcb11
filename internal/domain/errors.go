package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when operating on an unknown reminder, message
// or template id.
var ErrNotFound = errors.New("not found")

// ConfigError signals missing gateway credentials. Callers fail fast and
// never attempt the network call.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("gateway configuration incomplete: %s is not set", e.Field)
}

// ValidationError signals a malformed recipient or missing required
// template fields, detected before any side effect.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// GatewayError carries the raw provider error body for operator
// diagnosis of non-2xx or network failures.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gateway request failed: %s", e.Body)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Body)
}
