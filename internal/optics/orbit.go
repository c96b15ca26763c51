package optics

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ringoptics/internal/accel"
)

// OrbitResult is the outcome of a closed orbit search.
type OrbitResult struct {
	Orbit accel.Orbit4
	// AtRefpts holds the orbit at each requested refpt; empty when none
	// were requested.
	AtRefpts   []accel.Orbit4
	Converged  bool
	Iterations int
	// LastChange is the norm of the final Newton correction.
	LastChange float64
}

// FindClosedOrbit finds the transverse fixed point of the one-turn map at
// constant momentum deviation delta, and optionally the orbit at refpts.
//
// An exhausted iteration budget still yields the last iterate with
// Converged unset, unless the analyzer runs in strict mode.
func (a *Analyzer) FindClosedOrbit(lat *accel.Lattice, delta float64, refpts []int) (*OrbitResult, error) {
	if err := a.validate(lat, delta, refpts); err != nil {
		return nil, err
	}
	res, err := a.solveOrbit(lat, delta)
	if err != nil {
		return nil, err
	}
	if len(refpts) == 0 {
		res.AtRefpts = []accel.Orbit4{}
		return res, nil
	}
	res.AtRefpts, err = a.orbitAt(lat, res.Orbit, delta, refpts)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Analyzer) solveOrbit(lat *accel.Lattice, delta float64) (*OrbitResult, error) {
	s := a.settings
	res := &OrbitResult{LastChange: math.Inf(1)}

	var r accel.Orbit4
	reuse := false
	probes := make([]accel.PhaseVector, 5)

	for res.Iterations < s.MaxIterations {
		for i := 0; i < 4; i++ {
			p := r
			p[i] += s.OrbitStep
			probes[i] = accel.NewPhaseVector(p, delta)
		}
		probes[4] = accel.NewPhaseVector(r, delta)

		out, err := a.track(lat, probes, nil, reuse)
		if err != nil {
			return nil, fmt.Errorf("closed orbit iteration %d: %w", res.Iterations+1, err)
		}
		reuse = true
		end := out[0][len(out[0])-1]
		ref := end[4].Transverse()

		// (J - I) and f(r) - r
		var lhs [4][4]float64
		for col := 0; col < 4; col++ {
			probe := end[col].Transverse()
			for row := 0; row < 4; row++ {
				lhs[row][col] = (probe[row] - ref[row]) / s.OrbitStep
			}
			lhs[col][col]--
		}
		rhs := ref.Sub(r)

		step, err := leastSquares(lhs, rhs)
		if err != nil {
			return nil, fmt.Errorf("closed orbit iteration %d: %w", res.Iterations+1, err)
		}
		r = r.Sub(step)
		res.Iterations++
		res.LastChange = step.Norm()

		a.logger.Debug("closed orbit step",
			slog.Int("iteration", res.Iterations),
			slog.Float64("change", res.LastChange))

		if res.LastChange <= s.Tolerance {
			res.Converged = true
			break
		}
	}
	res.Orbit = r

	if !res.Converged {
		a.logger.Warn("closed orbit search did not converge",
			slog.String("lattice", lat.Name),
			slog.Float64("delta", delta),
			slog.Int("iterations", res.Iterations),
			slog.Float64("change", res.LastChange))
		if s.StrictConvergence {
			return nil, fmt.Errorf("after %d iterations, last change %g: %w", res.Iterations, res.LastChange, ErrNotConverged)
		}
	}
	return res, nil
}

// orbitAt tracks the converged orbit once and reports it at refpts.
func (a *Analyzer) orbitAt(lat *accel.Lattice, orbit accel.Orbit4, delta float64, refpts []int) ([]accel.Orbit4, error) {
	out, err := a.track(lat, []accel.PhaseVector{accel.NewPhaseVector(orbit, delta)}, refpts, true)
	if err != nil {
		return nil, fmt.Errorf("closed orbit at refpts: %w", err)
	}
	at := make([]accel.Orbit4, len(refpts))
	for i := range at {
		at[i] = out.At(0, i, 0).Transverse()
	}
	return at, nil
}

// leastSquares returns the minimum-norm least-squares solution of A x = b.
// Singular values below eps*max(m, n) relative to the largest are dropped.
func leastSquares(a [4][4]float64, b accel.Orbit4) (accel.Orbit4, error) {
	var x accel.Orbit4

	data := make([]float64, 0, 16)
	for i := range a {
		data = append(data, a[i][:]...)
	}

	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return x, fmt.Errorf("non-finite Jacobian entry: %w", ErrSingular)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(mat.NewDense(4, 4, data), mat.SVDFull); !ok {
		return x, fmt.Errorf("SVD factorization failed: %w", ErrSingular)
	}
	rank := svd.Rank(4 * epsilon)
	if rank == 0 {
		return x, nil
	}

	var sol mat.VecDense
	svd.SolveVecTo(&sol, mat.NewVecDense(4, b[:]), rank)
	for i := range x {
		x[i] = sol.AtVec(i)
	}
	return x, nil
}

// epsilon is the float64 machine epsilon.
const epsilon = 2.220446049250313e-16
