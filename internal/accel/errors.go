package accel

import (
	"errors"
	"fmt"
)

// Domain errors for lattice and tracking operations.
var (
	// ErrMissingAttribute indicates an element lacks an attribute its pass
	// method requires.
	ErrMissingAttribute = errors.New("accel: element is missing a required attribute")

	// ErrInvalidAttribute indicates an attribute with an unusable value,
	// such as an M66 matrix that is not 6x6.
	ErrInvalidAttribute = errors.New("accel: element attribute has an invalid value")

	// ErrUnknownPassMethod indicates no integrator is registered for a pass method.
	ErrUnknownPassMethod = errors.New("accel: unknown pass method")

	// ErrInvalidRefpts indicates reference points that are not ascending or
	// fall outside [0, len(lattice)].
	ErrInvalidRefpts = errors.New("accel: refpts must be ascending and within [0, len(lattice)]")

	// ErrParticleShape indicates a particle batch without exactly 6 rows.
	ErrParticleShape = errors.New("accel: particles must have exactly 6 rows")

	// ErrInvalidTurns indicates a negative number of turns.
	ErrInvalidTurns = errors.New("accel: turns must be non-negative")

	// ErrEmptyLattice indicates an operation that needs at least one element.
	ErrEmptyLattice = errors.New("accel: lattice has no elements")
)

// MissingAttributeError reports which element and attribute failed lookup.
type MissingAttributeError struct {
	Index     int
	Element   string
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("element %d (%s): attribute %s: %v", e.Index, e.Element, e.Attribute, ErrMissingAttribute)
}

func (e *MissingAttributeError) Unwrap() error {
	return ErrMissingAttribute
}
