package tracking

import (
	"math"

	"github.com/san-kum/ringoptics/internal/accel"
)

type aperture struct {
	xMin, xMax, yMin, yMax float64
}

func newAperture(el *accel.Element) (Integrator, error) {
	a := &aperture{}
	var err error
	if a.xMin, err = requireParam(el, accel.AttrXMin); err != nil {
		return nil, err
	}
	if a.xMax, err = requireParam(el, accel.AttrXMax); err != nil {
		return nil, err
	}
	if a.yMin, err = requireParam(el, accel.AttrYMin); err != nil {
		return nil, err
	}
	if a.yMax, err = requireParam(el, accel.AttrYMax); err != nil {
		return nil, err
	}
	return a, nil
}

// Pass marks particles outside the rectangle as lost by setting every
// coordinate to NaN.
func (a *aperture) Pass(particles []accel.PhaseVector) {
	for i := range particles {
		r := &particles[i]
		x, y := r[accel.X], r[accel.Y]
		if x < a.xMin || x > a.xMax || y < a.yMin || y > a.yMax {
			for j := range r {
				r[j] = math.NaN()
			}
		}
	}
}
