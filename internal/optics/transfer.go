package optics

import (
	"fmt"

	"github.com/san-kum/ringoptics/internal/accel"
)

// TransferResult holds the one-turn matrix and the matrices from the
// lattice start to each requested refpt.
type TransferResult struct {
	M44      accel.Matrix44
	AtRefpts []accel.Matrix44
}

// FindTransferMatrix differentiates the map around the closed orbit. When
// orbit is nil the closed orbit is solved first at delta.
func (a *Analyzer) FindTransferMatrix(lat *accel.Lattice, delta float64, refpts []int, orbit *accel.Orbit4) (*TransferResult, error) {
	if err := a.validate(lat, delta, refpts); err != nil {
		return nil, err
	}

	reuse := false
	var o accel.Orbit4
	if orbit == nil {
		res, err := a.solveOrbit(lat, delta)
		if err != nil {
			return nil, err
		}
		o = res.Orbit
		reuse = true
	} else {
		o = *orbit
	}
	return a.transferMatrix(lat, delta, refpts, o, reuse)
}

func (a *Analyzer) transferMatrix(lat *accel.Lattice, delta float64, refpts []int, orbit accel.Orbit4, reuse bool) (*TransferResult, error) {
	pts, appended := withEnd(refpts, lat.Len())
	step := a.settings.XYStep

	probes := make([]accel.PhaseVector, 8)
	for i := 0; i < 4; i++ {
		plus, minus := orbit, orbit
		plus[i] += step / 2
		minus[i] -= step / 2
		probes[i] = accel.NewPhaseVector(plus, delta)
		probes[i+4] = accel.NewPhaseVector(minus, delta)
	}

	out, err := a.track(lat, probes, pts, reuse)
	if err != nil {
		return nil, fmt.Errorf("transfer matrix: %w", err)
	}

	stack := make([]accel.Matrix44, len(pts))
	for k := range pts {
		row := out[0][k]
		for col := 0; col < 4; col++ {
			plus, minus := row[col].Transverse(), row[col+4].Transverse()
			for r := 0; r < 4; r++ {
				stack[k][r][col] = (plus[r] - minus[r]) / step
			}
		}
	}

	res := &TransferResult{M44: stack[len(stack)-1], AtRefpts: stack}
	if appended {
		res.AtRefpts = stack[:len(stack)-1]
	}
	return res, nil
}
