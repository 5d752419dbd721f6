package network

import (
	"errors"
	"fmt"
)

type (
	// invalidTopologyError reports a violated structural invariant.
	// It matches ErrInvalidTopology through errors.Is().
	invalidTopologyError struct {
		reason string
		cause  error
	}
)

var (
	// ErrInvalidTopology means the world state is corrupted: dangling
	// references, duplicate addresses, malformed masks and so on.
	// Loading a world must abort when it sees this error.
	ErrInvalidTopology = errors.New("invalid topology")

	ErrNetworkNotFound = errors.New("network not found")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrISPNotFound     = errors.New("isp not found")
	ErrLinkNotFound    = errors.New("link not found")
	ErrDuplicateID     = errors.New("duplicate id")
)

func invalidTopology(format string, args ...interface{}) error {
	return &invalidTopologyError{reason: fmt.Sprintf(format, args...)}
}

func invalidTopologyWithCause(cause error, format string, args ...interface{}) error {
	return &invalidTopologyError{reason: fmt.Sprintf(format, args...), cause: cause}
}

func (e *invalidTopologyError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", ErrInvalidTopology, e.reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidTopology, e.reason)
}

func (e *invalidTopologyError) Is(target error) bool {
	return target == ErrInvalidTopology
}

func (e *invalidTopologyError) Unwrap() error {
	return e.cause
}

// IsInvalidTopology tells whether err reports corrupted world state.
func IsInvalidTopology(err error) bool {
	return errors.Is(err, ErrInvalidTopology)
}
