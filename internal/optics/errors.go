package optics

import (
	"errors"
	"fmt"
)

// Domain errors for optics analysis.
var (
	// ErrUnstable indicates a plane whose one-turn matrix has no periodic
	// Twiss solution.
	ErrUnstable = errors.New("optics: lattice is linearly unstable")

	// ErrNotConverged indicates the closed orbit search ran out of
	// iterations. Only returned in strict mode.
	ErrNotConverged = errors.New("optics: closed orbit search did not converge")

	// ErrSingular indicates the Newton system of the orbit search could not
	// be factorized.
	ErrSingular = errors.New("optics: orbit Jacobian could not be factorized")

	// ErrParticleLost indicates a probe particle came back with
	// non-finite coordinates.
	ErrParticleLost = errors.New("optics: probe particle lost during tracking")

	// ErrInvalidStep indicates a non-positive or non-finite numerical setting.
	ErrInvalidStep = errors.New("optics: invalid numerical step or limit")

	// ErrInvalidMomentum indicates a momentum deviation that is not finite
	// or not above -1.
	ErrInvalidMomentum = errors.New("optics: invalid momentum deviation")
)

// Plane names for error messages and reports.
var planeNames = [2]string{"horizontal", "vertical"}

// InstabilityError reports the plane and half-trace of an unstable
// one-turn block.
type InstabilityError struct {
	Plane int
	Trace float64
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("%s plane (half trace %.6g): %v", planeNames[e.Plane], e.Trace, ErrUnstable)
}

func (e *InstabilityError) Unwrap() error {
	return ErrUnstable
}
