package metrics

import (
	"github.com/san-kum/ringoptics/internal/accel"
)

// FixedPointResidual tracks orbit for one turn at delta and returns
// the norm of the transverse displacement it picks up.
func FixedPointResidual(tr accel.Tracker, lat *accel.Lattice, orbit accel.Orbit4, delta float64) (float64, error) {
	out, err := tr.Track(lat, []accel.PhaseVector{accel.NewPhaseVector(orbit, delta)}, accel.TrackOptions{Turns: 1})
	if err != nil {
		return 0, err
	}
	return out.At(0, 0, 0).Transverse().Sub(orbit).Norm(), nil
}
