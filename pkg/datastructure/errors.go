package datastructure

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGraph = errors.New("invalid graph")
	ErrNodeNotFound = errors.New("node not found")
	ErrInvalidPath  = errors.New("invalid route path")
	ErrNoPathExists = errors.New("no path exists")
)

// NodeNotFoundError carries the id that is absent from the graph.
type NodeNotFoundError struct {
	ID string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node %q not found", e.ID)
}

func (e *NodeNotFoundError) Is(target error) bool {
	return target == ErrNodeNotFound
}
