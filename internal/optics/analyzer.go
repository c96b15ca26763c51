package optics

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/ringoptics/internal/accel"
)

// Analyzer runs orbit, matrix and Twiss computations against one tracker.
type Analyzer struct {
	tracker  accel.Tracker
	settings Settings
	logger   *slog.Logger
}

type Option func(*Analyzer)

func WithSettings(s Settings) Option {
	return func(a *Analyzer) { a.settings = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

func NewAnalyzer(tr accel.Tracker, opts ...Option) *Analyzer {
	a := &Analyzer{
		tracker:  tr,
		settings: DefaultSettings(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(slog.String("component", "optics"))
	return a
}

func (a *Analyzer) Settings() Settings { return a.settings }

func (a *Analyzer) validate(lat *accel.Lattice, delta float64, refpts []int) error {
	if err := a.settings.Validate(); err != nil {
		return err
	}
	if err := validateMomentum(delta); err != nil {
		return err
	}
	if lat == nil || lat.Len() == 0 {
		return accel.ErrEmptyLattice
	}
	return lat.ValidateRefpts(refpts)
}

// track runs one turn and checks that every recorded coordinate is finite.
func (a *Analyzer) track(lat *accel.Lattice, probes []accel.PhaseVector, refpts []int, reuse bool) (accel.Tracks, error) {
	out, err := a.tracker.Track(lat, probes, accel.TrackOptions{Turns: 1, Refpts: refpts, Reuse: reuse})
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("tracker returned %d turns, want 1", len(out))
	}
	for r, row := range out[0] {
		if len(row) != len(probes) {
			return nil, fmt.Errorf("tracker returned %d particles at refpt %d, want %d", len(row), r, len(probes))
		}
		for p, v := range row {
			if !v.IsValid() {
				return nil, fmt.Errorf("probe %d at refpt index %d: %w", p, r, ErrParticleLost)
			}
		}
	}
	return out, nil
}

// withEnd returns a copy of refpts ending at the lattice end and whether
// the end had to be appended.
func withEnd(refpts []int, n int) ([]int, bool) {
	pts := make([]int, len(refpts), len(refpts)+1)
	copy(pts, refpts)
	if len(pts) > 0 && pts[len(pts)-1] == n {
		return pts, false
	}
	return append(pts, n), true
}
