package tracking

import (
	"fmt"

	"github.com/san-kum/ringoptics/internal/accel"
)

// m66Epsilon is the coordinate offset used by FindM66.
const m66Epsilon = 1e-10

type matrix66 struct {
	m [6][6]float64
}

func newMatrix66(el *accel.Element) (Integrator, error) {
	if el.M66 == nil {
		return nil, &accel.MissingAttributeError{Element: el.FamName, Attribute: accel.AttrM66}
	}
	if len(el.M66) != 6 {
		return nil, fmt.Errorf("element %s: M66 has %d rows: %w", el.FamName, len(el.M66), accel.ErrInvalidAttribute)
	}
	mp := &matrix66{}
	for i, row := range el.M66 {
		if len(row) != 6 {
			return nil, fmt.Errorf("element %s: M66 row %d has %d columns: %w", el.FamName, i, len(row), accel.ErrInvalidAttribute)
		}
		copy(mp.m[i][:], row)
	}
	return mp, nil
}

func (mp *matrix66) Pass(particles []accel.PhaseVector) {
	for i := range particles {
		var out accel.PhaseVector
		for r := 0; r < 6; r++ {
			for c := 0; c < 6; c++ {
				out[r] += mp.m[r][c] * particles[i][c]
			}
		}
		particles[i] = out
	}
}

// FindM66 estimates the 6x6 one-turn matrix around the origin by tracking
// six particles displaced by a small offset along each coordinate.
func FindM66(tr accel.Tracker, lat *accel.Lattice) ([6][6]float64, error) {
	var m [6][6]float64
	particles := make([]accel.PhaseVector, 6)
	for i := range particles {
		particles[i][i] = m66Epsilon
	}
	out, err := tr.Track(lat, particles, accel.TrackOptions{Turns: 1})
	if err != nil {
		return m, err
	}
	for col := 0; col < 6; col++ {
		v := out.At(0, 0, col)
		for row := 0; row < 6; row++ {
			m[row][col] = v[row] / m66Epsilon
		}
	}
	return m, nil
}
