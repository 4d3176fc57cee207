package errors

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	// Verify sentinel errors have expected messages
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrInvalidTargetType", ErrInvalidTargetType, "hivewire: invalid target type"},
		{"ErrUnknownCollective", ErrUnknownCollective, "hivewire: unknown collective"},
		{"ErrMissingReplyAddress", ErrMissingReplyAddress, "hivewire: reply message carries no reply-to address"},
		{"ErrMissingDiscoveredHosts", ErrMissingDiscoveredHosts, "hivewire: direct request carries no discovered hosts"},
		{"ErrCredential", ErrCredential, "hivewire: could not load TLS credentials"},
		{"ErrMalformedEnvelope", ErrMalformedEnvelope, "hivewire: malformed wire envelope"},
		{"ErrMissingOption", ErrMissingOption, "hivewire: plugin option is not set"},
		{"ErrConfigRequired", ErrConfigRequired, "hivewire: configuration is required"},
		{"ErrTransportRequired", ErrTransportRequired, "hivewire: transport is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestConfigValidationError(t *testing.T) {
	inner := errors.New("identity is required")
	err := ConfigValidationError{Err: inner}

	want := "hivewire: invalid configuration: identity is required"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if unwrapped := err.Unwrap(); unwrapped != inner {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, inner)
	}
}

func TestNewConfigValidationError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if err := NewConfigValidationError(nil); err != nil {
			t.Errorf("NewConfigValidationError(nil) = %v, want nil", err)
		}
	})

	t.Run("errors.Is works with wrapped error", func(t *testing.T) {
		inner := errors.New("no collectives configured")
		err := NewConfigValidationError(inner)

		if !errors.Is(err, inner) {
			t.Error("errors.Is should match wrapped error")
		}
	})
}
