package application

import (
	"errors"
)

var (
	// ErrNoSuchHost means the address maps to no node.
	ErrNoSuchHost = errors.New("no such host")
	// ErrHostUnreachable means the node exists but no path leads to it.
	ErrHostUnreachable = errors.New("host unreachable")
)
