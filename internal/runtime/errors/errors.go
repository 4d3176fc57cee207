package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrInvalidTargetType      = sterrors.New("hivewire: invalid target type")
	ErrUnknownCollective      = sterrors.New("hivewire: unknown collective")
	ErrMissingReplyAddress    = sterrors.New("hivewire: reply message carries no reply-to address")
	ErrMissingDiscoveredHosts = sterrors.New("hivewire: direct request carries no discovered hosts")
	ErrCredential             = sterrors.New("hivewire: could not load TLS credentials")
	ErrMalformedEnvelope      = sterrors.New("hivewire: malformed wire envelope")
	ErrMissingOption          = sterrors.New("hivewire: plugin option is not set")
	ErrConfigRequired         = sterrors.New("hivewire: configuration is required")
	ErrTransportRequired      = sterrors.New("hivewire: transport is required")
)

// ConfigValidationError wraps the individual findings reported by
// Config.Validate so callers can detect configuration problems as a class.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("hivewire: invalid configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError wraps err in a ConfigValidationError. A nil err
// returns nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
