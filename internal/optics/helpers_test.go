package optics

import (
	"io"
	"log/slog"
	"math"

	"github.com/san-kum/ringoptics/internal/accel"
)

// linearElement is an affine transverse map whose matrix and offset may
// depend on the momentum deviation.
type linearElement struct {
	matrix func(delta float64) accel.Matrix44
	offset func(delta float64) accel.Orbit4
}

// linearTracker tracks through one linearElement per lattice element and
// records every call it receives.
type linearTracker struct {
	elems   []linearElement
	reuses  []bool
	batches []int
}

func (lt *linearTracker) Track(lat *accel.Lattice, particles []accel.PhaseVector, opts accel.TrackOptions) (accel.Tracks, error) {
	lt.reuses = append(lt.reuses, opts.Reuse)
	lt.batches = append(lt.batches, len(particles))

	refpts := opts.Refpts
	if len(refpts) == 0 {
		refpts = []int{lat.Len()}
	}
	if err := lat.ValidateRefpts(refpts); err != nil {
		return nil, err
	}

	r := make([]accel.PhaseVector, len(particles))
	copy(r, particles)
	out := make(accel.Tracks, opts.Turns)
	for turn := range out {
		next := 0
		for i := 0; i <= len(lt.elems); i++ {
			for next < len(refpts) && refpts[next] == i {
				row := make([]accel.PhaseVector, len(r))
				copy(row, r)
				out[turn] = append(out[turn], row)
				next++
			}
			if i == len(lt.elems) {
				break
			}
			for p := range r {
				delta := r[p][accel.DP]
				v := lt.elems[i].matrix(delta).Apply(r[p].Transverse())
				if lt.elems[i].offset != nil {
					off := lt.elems[i].offset(delta)
					for k := range v {
						v[k] += off[k]
					}
				}
				r[p] = accel.PhaseVector{v[0], v[1], v[2], v[3], delta, r[p][accel.CT]}
			}
		}
	}
	return out, nil
}

func (lt *linearTracker) lattice() *accel.Lattice {
	elems := make([]accel.Element, len(lt.elems))
	for i := range elems {
		elems[i] = accel.Element{FamName: "L", PassMethod: "IdentityPass"}
	}
	return accel.NewLattice("linear", elems)
}

func fixed(m accel.Matrix44) func(float64) accel.Matrix44 {
	return func(float64) accel.Matrix44 { return m }
}

func blockDiag(x, y [2][2]float64) accel.Matrix44 {
	return accel.Matrix44{
		{x[0][0], x[0][1], 0, 0},
		{x[1][0], x[1][1], 0, 0},
		{0, 0, y[0][0], y[0][1]},
		{0, 0, y[1][0], y[1][1]},
	}
}

func driftMap(l float64) linearElement {
	b := [2][2]float64{{1, l}, {0, 1}}
	return linearElement{matrix: fixed(blockDiag(b, b))}
}

func thinLensMap(f float64) linearElement {
	b := [2][2]float64{{1, 0}, {-1 / f, 1}}
	return linearElement{matrix: fixed(blockDiag(b, b))}
}

// rotation is a beta-scaled rotation by mu with zero alpha.
func rotation(mu, beta float64) [2][2]float64 {
	c, s := math.Cos(mu), math.Sin(mu)
	return [2][2]float64{{c, beta * s}, {-s / beta, c}}
}

// chromaticMap is a one-element ring with tunes q0 + xi*delta and the
// closed orbit d*delta.
func chromaticMap(q0, xi [2]float64, beta [2]float64, d accel.Orbit4) linearElement {
	matrix := func(delta float64) accel.Matrix44 {
		return blockDiag(
			rotation(2*math.Pi*(q0[0]+xi[0]*delta), beta[0]),
			rotation(2*math.Pi*(q0[1]+xi[1]*delta), beta[1]),
		)
	}
	return linearElement{
		matrix: matrix,
		offset: func(delta float64) accel.Orbit4 {
			// x -> M (x - d delta) + d delta
			fix := d.Scale(delta)
			mf := matrix(delta).Apply(fix)
			return fix.Sub(mf)
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAnalyzer(tr accel.Tracker, opts ...Option) *Analyzer {
	return NewAnalyzer(tr, append([]Option{WithLogger(quietLogger())}, opts...)...)
}
