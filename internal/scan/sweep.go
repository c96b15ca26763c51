package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/ringoptics/internal/accel"
	"github.com/san-kum/ringoptics/internal/optics"
)

// MomentumSweep evaluates the optics at Steps evenly spaced momentum
// deviations from From to To inclusive.
type MomentumSweep struct {
	From         float64
	To           float64
	Steps        int
	Chromaticity bool
}

// Point is the optics summary at one momentum deviation. Err is set when
// the lattice has no stable solution there.
type Point struct {
	Delta        float64      `json:"delta"`
	Tune         [2]float64   `json:"tune"`
	Chromaticity *[2]float64  `json:"chromaticity,omitempty"`
	Orbit        accel.Orbit4 `json:"orbit"`
	Converged    bool         `json:"converged"`
	Err          error        `json:"-"`
	Error        string       `json:"error,omitempty"`
}

func (s MomentumSweep) Deltas() []float64 {
	if s.Steps == 1 {
		return []float64{s.From}
	}
	out := make([]float64, s.Steps)
	step := (s.To - s.From) / float64(s.Steps-1)
	for i := range out {
		out[i] = s.From + float64(i)*step
	}
	return out
}

// Sweep runs the sweep on lat, which must not be mutated until it returns.
// Points come back in sweep order.
func (r *Runner) Sweep(ctx context.Context, lat *accel.Lattice, settings optics.Settings, sweep MomentumSweep) ([]Point, error) {
	if sweep.Steps < 1 {
		return nil, fmt.Errorf("sweep steps=%d: %w", sweep.Steps, optics.ErrInvalidStep)
	}
	deltas := sweep.Deltas()
	points := make([]Point, len(deltas))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, delta := range deltas {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a := r.newAnalyzer(settings)
			res, err := a.ComputeOptics(lat, delta, nil, sweep.Chromaticity)
			p := Point{Delta: delta}
			switch {
			case err == nil:
				p.Tune = res.Tune
				p.Chromaticity = res.Chromaticity
				p.Orbit = res.Records[0].ClosedOrbit
				p.Converged = res.Converged
			case recoverable(err):
				p.Err = err
				p.Error = err.Error()
				r.logger.Debug("sweep point failed", slog.Float64("delta", delta), slog.String("error", err.Error()))
			default:
				return fmt.Errorf("delta=%g: %w", delta, err)
			}
			points[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("sweep finished",
		slog.String("lattice", lat.Name),
		slog.Int("points", len(points)),
		slog.Int("workers", r.workers))
	return points, nil
}

// recoverable reports errors that describe the lattice at one momentum
// rather than a broken setup.
func recoverable(err error) bool {
	return errors.Is(err, optics.ErrUnstable) ||
		errors.Is(err, optics.ErrNotConverged) ||
		errors.Is(err, optics.ErrSingular) ||
		errors.Is(err, optics.ErrParticleLost) ||
		errors.Is(err, optics.ErrInvalidMomentum)
}
