package proxy

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks invalid provider configuration found at startup.
var ErrConfiguration = errors.New("invalid provider configuration")

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// ParseError describes a static-list entry that was skipped.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}
