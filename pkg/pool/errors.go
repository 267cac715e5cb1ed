package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolExhausted is returned when no descriptor matches a checkout, even
	// after an on-demand refill, or the checkout deadline passed.
	ErrPoolExhausted = errors.New("proxy pool exhausted")

	// ErrDoubleCheckout signals an attempt to hand out a descriptor that is
	// already in use by another holder. Seeing it means a locking bug.
	ErrDoubleCheckout = errors.New("descriptor already checked out")

	ErrUnknownDescriptor = errors.New("unknown descriptor")

	ErrStopped = errors.New("proxy pool stopped")
)

// ProviderUnavailableError wraps a failed fetch from a provider.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}
