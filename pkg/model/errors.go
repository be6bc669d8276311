package model

import (
	"errors"
	"fmt"
)

var ErrAlreadySolved = errors.New("model: formulation was already handed to a solver")

type DataInvariantError struct {
	Reason string
}

func (err *DataInvariantError) Error() string {
	return "invalid problem data: " + err.Reason
}

// ModelBuildError is returned by Build and Strengthen, it wraps the cause.
type ModelBuildError struct {
	Variant Variant
	Err     error
}

func (err *ModelBuildError) Error() string {
	return fmt.Sprintf("cannot build %v: %v", err.Variant, err.Err)
}

func (err *ModelBuildError) Unwrap() error {
	return err.Err
}

type WarmStartError struct {
	Tour   []int
	Reason string
}

func (err *WarmStartError) Error() string {
	return fmt.Sprintf("invalid warm-start tour %v: %v", err.Tour, err.Reason)
}

// ExtractionError means the arcs selected by the solver do not form a single
// Hamiltonian cycle through the depot.
type ExtractionError struct {
	Arcs   []Arc
	Reason string
}

func (err *ExtractionError) Error() string {
	return fmt.Sprintf("cannot extract tour from %v selected arcs: %v", len(err.Arcs), err.Reason)
}
