package dynamo

import "errors"

// Configuration errors. Every one of them is fatal: a run either starts with
// a valid setup or fails before the first micro-step.
var (
	// ErrInvalidState indicates an initial state with the wrong dimension.
	ErrInvalidState = errors.New("dynamo: invalid state (wrong dimension)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrMissingInput indicates a request without the reference or
	// controller its mode requires.
	ErrMissingInput = errors.New("dynamo: missing reference or controller")

	// ErrUnknownRequest indicates a simulation request of an unsupported kind.
	ErrUnknownRequest = errors.New("dynamo: unknown simulation request")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)
