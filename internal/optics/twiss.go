package optics

import (
	"math"

	"github.com/san-kum/ringoptics/internal/accel"
)

// Record is the optics at one refpt.
type Record struct {
	Index       int          `json:"index"`
	SPos        float64      `json:"s_pos"`
	ClosedOrbit accel.Orbit4 `json:"closed_orbit"`
	// Dispersion is d(orbit)/d(delta) for x, px, y, py. NaN unless
	// chromaticity was requested.
	Dispersion [4]float64     `json:"dispersion"`
	Alpha      [2]float64     `json:"alpha"`
	Beta       [2]float64     `json:"beta"`
	Mu         [2]float64     `json:"mu"`
	M44        accel.Matrix44 `json:"m44"`
}

// DispersionXY returns the horizontal and vertical position dispersion.
func (r Record) DispersionXY() [2]float64 {
	return [2]float64{r.Dispersion[0], r.Dispersion[2]}
}

// OpticsResult is the outcome of ComputeOptics.
type OpticsResult struct {
	Delta   float64    `json:"delta"`
	Records []Record   `json:"records"`
	Tune    [2]float64 `json:"tune"`
	// Chromaticity is nil unless requested.
	Chromaticity *[2]float64 `json:"chromaticity,omitempty"`
	Converged    bool        `json:"converged"`
}

// FractionalTune returns the tunes reduced to [0, 1).
func (r *OpticsResult) FractionalTune() [2]float64 {
	var q [2]float64
	for i, v := range r.Tune {
		q[i] = v - math.Floor(v)
	}
	return q
}

// ComputeOptics derives Twiss parameters at refpts from the periodic
// solution of the one-turn matrix. Nil refpts yields a single record at
// the lattice end. The tune is the phase advance accumulated over every
// element and is the same whichever refpts are requested. With withChromaticity the analysis is repeated at
// delta+DDP to estimate chromaticity and dispersion.
func (a *Analyzer) ComputeOptics(lat *accel.Lattice, delta float64, refpts []int, withChromaticity bool) (*OpticsResult, error) {
	if err := a.validate(lat, delta, refpts); err != nil {
		return nil, err
	}
	if len(refpts) == 0 {
		refpts = []int{lat.Len()}
	}

	res, err := a.optics(lat, delta, refpts)
	if err != nil {
		return nil, err
	}
	if !withChromaticity {
		return res, nil
	}

	ddp := a.settings.DDP
	if err := validateMomentum(delta + ddp); err != nil {
		return nil, err
	}
	shifted, err := a.optics(lat, delta+ddp, refpts)
	if err != nil {
		return nil, err
	}

	chrom := [2]float64{
		(shifted.Tune[0] - res.Tune[0]) / ddp,
		(shifted.Tune[1] - res.Tune[1]) / ddp,
	}
	res.Chromaticity = &chrom
	for i := range res.Records {
		d := shifted.Records[i].ClosedOrbit.Sub(res.Records[i].ClosedOrbit).Scale(1 / ddp)
		res.Records[i].Dispersion = [4]float64(d)
	}
	res.Converged = res.Converged && shifted.Converged
	return res, nil
}

// optics evaluates the periodic solution at every element boundary so the
// unwrapped phase, and with it the tune, does not depend on which refpts
// the caller asked for. Records are emitted for refpts only.
func (a *Analyzer) optics(lat *accel.Lattice, delta float64, refpts []int) (*OpticsResult, error) {
	pts := lat.AllRefpts()

	orbit, err := a.solveOrbit(lat, delta)
	if err != nil {
		return nil, err
	}
	orbits, err := a.orbitAt(lat, orbit.Orbit, delta, pts)
	if err != nil {
		return nil, err
	}
	tm, err := a.transferMatrix(lat, delta, pts, orbit.Orbit, true)
	if err != nil {
		return nil, err
	}

	var alpha, beta, mu [2][]float64
	for plane := 0; plane < 2; plane++ {
		alpha[plane], beta[plane], mu[plane], err = twissPlane(plane, tm.M44, tm.AtRefpts)
		if err != nil {
			return nil, err
		}
	}

	spos, err := lat.SPos(refpts)
	if err != nil {
		return nil, err
	}

	n := lat.Len()
	res := &OpticsResult{
		Delta:     delta,
		Tune:      [2]float64{mu[0][n] / (2 * math.Pi), mu[1][n] / (2 * math.Pi)},
		Converged: orbit.Converged,
		Records:   make([]Record, len(refpts)),
	}
	nan := math.NaN()
	for i, idx := range refpts {
		res.Records[i] = Record{
			Index:       idx,
			SPos:        spos[i],
			ClosedOrbit: orbits[idx],
			Dispersion:  [4]float64{nan, nan, nan, nan},
			Alpha:       [2]float64{alpha[0][idx], alpha[1][idx]},
			Beta:        [2]float64{beta[0][idx], beta[1][idx]},
			Mu:          [2]float64{mu[0][idx], mu[1][idx]},
			M44:         tm.AtRefpts[idx],
		}
	}
	return res, nil
}

// twissPlane solves the periodic Twiss functions of one plane from the
// one-turn matrix and transports them through the segment matrices.
func twissPlane(plane int, oneTurn accel.Matrix44, stack []accel.Matrix44) (alpha, beta, mu []float64, err error) {
	m := oneTurn.Block(plane)
	halfTrace := (m[0][0] + m[1][1]) / 2
	diff := (m[0][0] - m[1][1]) / 2
	radicand := -m[0][1]*m[1][0] - diff*diff
	if !(radicand > 0) || m[0][1] == 0 || math.IsInf(radicand, 0) {
		return nil, nil, nil, &InstabilityError{Plane: plane, Trace: halfTrace}
	}

	sinMu := math.Copysign(math.Sqrt(radicand), m[0][1])
	alpha0 := diff / sinMu
	beta0 := m[0][1] / sinMu

	alpha = make([]float64, len(stack))
	beta = make([]float64, len(stack))
	raw := make([]float64, len(stack))
	for i := range stack {
		s := stack[i].Block(plane)
		c := s[0][0]*beta0 - s[0][1]*alpha0
		beta[i] = (c*c + s[0][1]*s[0][1]) / beta0
		alpha[i] = -(c*(s[1][0]*beta0-s[1][1]*alpha0) + s[0][1]*s[1][1]) / beta0
		raw[i] = math.Atan(s[0][1] / c)
	}
	return alpha, beta, UnwrapPhase(raw), nil
}
