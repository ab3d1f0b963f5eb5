package engine

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned by operations that need a mounted viewport.
var ErrNoSession = errors.New("no active session")

// MissingContainerError means the host has no container with the id.
type MissingContainerError struct {
	ID string
}

func (e *MissingContainerError) Error() string {
	return fmt.Sprintf("container %q not found", e.ID)
}
