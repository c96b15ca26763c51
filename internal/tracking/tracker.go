package tracking

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/ringoptics/internal/accel"
)

// Tracker is the element-by-element accel.Tracker implementation.
type Tracker struct {
	registry *Registry
	logger   *slog.Logger
	setup    *setup
}

// setup holds the integrators built for one lattice identity and revision.
type setup struct {
	latticeID   uint64
	revision    uint64
	integrators []Integrator
}

type Option func(*Tracker)

func WithRegistry(r *Registry) Option {
	return func(t *Tracker) { t.registry = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		registry: NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(slog.String("component", "tracker"))
	return t
}

// Track advances particles for opts.Turns turns and records their
// coordinates at every refpt of every turn. The input slice is not modified.
func (t *Tracker) Track(lat *accel.Lattice, particles []accel.PhaseVector, opts accel.TrackOptions) (accel.Tracks, error) {
	if opts.Turns < 0 {
		return nil, fmt.Errorf("turns=%d: %w", opts.Turns, accel.ErrInvalidTurns)
	}
	refpts := opts.Refpts
	if len(refpts) == 0 {
		refpts = []int{lat.Len()}
	}
	if err := lat.ValidateRefpts(refpts); err != nil {
		return nil, err
	}

	integrators, err := t.prepare(lat, opts.Reuse)
	if err != nil {
		return nil, err
	}

	r := make([]accel.PhaseVector, len(particles))
	copy(r, particles)

	out := make(accel.Tracks, opts.Turns)
	for turn := 0; turn < opts.Turns; turn++ {
		rows := make([][]accel.PhaseVector, 0, len(refpts))
		next := 0
		for i, integ := range integrators {
			for next < len(refpts) && refpts[next] == i {
				rows = append(rows, snapshot(r))
				next++
			}
			integ.Pass(r)
		}
		for next < len(refpts) {
			rows = append(rows, snapshot(r))
			next++
		}
		out[turn] = rows
	}
	return out, nil
}

func (t *Tracker) prepare(lat *accel.Lattice, reuse bool) ([]Integrator, error) {
	if reuse && t.setup != nil && t.setup.latticeID == lat.ID() && t.setup.revision == lat.Revision() {
		return t.setup.integrators, nil
	}

	integrators := make([]Integrator, lat.Len())
	for i := range lat.Elements {
		el := &lat.Elements[i]
		if el.PassMethod == "" {
			return nil, &accel.MissingAttributeError{Index: i, Element: el.FamName, Attribute: accel.AttrPassMethod}
		}
		method, err := t.registry.Lookup(el.PassMethod)
		if err != nil {
			return nil, fmt.Errorf("element %d (%s): %w", i, el.FamName, err)
		}
		integ, err := method(el)
		if err != nil {
			var mae *accel.MissingAttributeError
			if errors.As(err, &mae) {
				mae.Index = i
			}
			return nil, err
		}
		integrators[i] = integ
	}

	t.setup = &setup{
		latticeID:   lat.ID(),
		revision:    lat.Revision(),
		integrators: integrators,
	}
	t.logger.Debug("lattice setup built",
		slog.String("lattice", lat.Name),
		slog.Int("elements", lat.Len()),
		slog.Uint64("revision", lat.Revision()))
	return integrators, nil
}

func snapshot(r []accel.PhaseVector) []accel.PhaseVector {
	c := make([]accel.PhaseVector, len(r))
	copy(c, r)
	return c
}
