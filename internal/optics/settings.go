package optics

import (
	"fmt"
	"math"
)

// Default numerical parameters.
const (
	DefaultOrbitStep     = 1e-6
	DefaultTolerance     = 1e-12
	DefaultMaxIterations = 20
	DefaultXYStep        = 6.055454452393343e-6
	DefaultDDP           = 1e-8
)

// Settings holds the numerical parameters of the analysis.
type Settings struct {
	// OrbitStep is the forward-difference offset of the orbit Jacobian.
	OrbitStep float64 `yaml:"orbit_step" json:"orbit_step"`
	// Tolerance bounds the Newton correction norm at convergence.
	Tolerance     float64 `yaml:"tolerance" json:"tolerance"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"`
	// XYStep is the full width of the central difference for matrices.
	XYStep float64 `yaml:"xy_step" json:"xy_step"`
	// DDP is the momentum shift used for chromaticity and dispersion.
	DDP float64 `yaml:"ddp" json:"ddp"`
	// StrictConvergence turns an exhausted orbit search into ErrNotConverged.
	StrictConvergence bool `yaml:"strict_convergence" json:"strict_convergence"`
}

func DefaultSettings() Settings {
	return Settings{
		OrbitStep:     DefaultOrbitStep,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		XYStep:        DefaultXYStep,
		DDP:           DefaultDDP,
	}
}

func (s Settings) Validate() error {
	if !positive(s.OrbitStep) {
		return fmt.Errorf("orbit_step=%g: %w", s.OrbitStep, ErrInvalidStep)
	}
	if !positive(s.XYStep) {
		return fmt.Errorf("xy_step=%g: %w", s.XYStep, ErrInvalidStep)
	}
	if !positive(s.DDP) {
		return fmt.Errorf("ddp=%g: %w", s.DDP, ErrInvalidStep)
	}
	if s.Tolerance < 0 || math.IsNaN(s.Tolerance) {
		return fmt.Errorf("tolerance=%g: %w", s.Tolerance, ErrInvalidStep)
	}
	if s.MaxIterations < 1 {
		return fmt.Errorf("max_iterations=%d: %w", s.MaxIterations, ErrInvalidStep)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func validateMomentum(delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) || delta <= -1 {
		return fmt.Errorf("delta=%g: %w", delta, ErrInvalidMomentum)
	}
	return nil
}
