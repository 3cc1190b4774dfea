package types

import (
	"errors"
	"fmt"
)

// The fixed error taxonomy. Adapters and the forecast engine wrap every
// lower-level failure into one of these before it crosses a package boundary,
// so the server only ever has to translate a known set of kinds. Match with
// errors.Is.
var (
	// ErrConfiguration means a required dependency or credential is missing.
	// Fatal at construction, never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrConnection means authentication or the handshake with the vendor
	// failed.
	ErrConnection = errors.New("connection error")

	// ErrDataUnavailable means the vendor responded but the payload was
	// empty, malformed, or missing its expected shape.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrValidation means the inbound request itself was malformed.
	ErrValidation = errors.New("invalid request")
)

// ConfigurationErrorf returns an error matching ErrConfiguration.
func ConfigurationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// ConnectionErrorf returns an error matching ErrConnection.
func ConnectionErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConnection, fmt.Sprintf(format, args...))
}

// DataUnavailableErrorf returns an error matching ErrDataUnavailable.
func DataUnavailableErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDataUnavailable, fmt.Sprintf(format, args...))
}

// ValidationErrorf returns an error matching ErrValidation.
func ValidationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
