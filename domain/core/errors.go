package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrVariableNotFound = fmt.Errorf("%w: variable", ErrNotFound)
	ErrReportNotFound   = fmt.Errorf("%w: report", ErrNotFound)

	// Analysis errors
	ErrInsufficientData    = errors.New("insufficient data for analysis")
	ErrNotNumeric          = errors.New("variable is not numeric")
	ErrDegenerateVariance  = errors.New("degenerate variance: zero denominator")
	ErrInvalidSignificance = errors.New("significance level must be in (0, 1)")
)

// Error constructors with context

func NewVariableNotFoundError(name string) error {
	return fmt.Errorf("%w %q", ErrVariableNotFound, name)
}

func NewNotNumericError(name string) error {
	return fmt.Errorf("%w: %q", ErrNotNumeric, name)
}

func NewInsufficientDataError(procedure string, have, need int) error {
	return fmt.Errorf("%w: %s needs at least %d observations, got %d", ErrInsufficientData, procedure, need, have)
}

func NewDegenerateVarianceError(quantity string) error {
	return fmt.Errorf("%w (%s)", ErrDegenerateVariance, quantity)
}

func NewReportNotFoundError(id string) error {
	return fmt.Errorf("%w with id %s", ErrReportNotFound, id)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInputError reports whether err was caused by the shape of the input data rather
// than by an I/O or programming failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrNotNumeric) ||
		errors.Is(err, ErrDegenerateVariance) ||
		errors.Is(err, ErrVariableNotFound)
}
