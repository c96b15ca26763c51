package tracking

import (
	"math"

	"github.com/san-kum/ringoptics/internal/accel"
)

type quadLinear struct {
	length float64
	k      float64
}

func newQuadLinear(el *accel.Element) (Integrator, error) {
	q := &quadLinear{}
	var err error
	if q.length, err = requireParam(el, accel.AttrLength); err != nil {
		return nil, err
	}
	if q.k, err = requireParam(el, accel.AttrK); err != nil {
		return nil, err
	}
	return q, nil
}

// Pass applies the linear quadrupole map with strength K/(1+δ).
func (q *quadLinear) Pass(particles []accel.PhaseVector) {
	for i := range particles {
		r := &particles[i]
		p := 1 + r[accel.DP]
		g := q.k / p

		x, xp := transport(r[accel.X], r[accel.PX]/p, g, q.length)
		y, yp := transport(r[accel.Y], r[accel.PY]/p, -g, q.length)

		r[accel.X], r[accel.PX] = x, xp*p
		r[accel.Y], r[accel.PY] = y, yp*p
	}
}

// transport solves d2u/ds2 = -k u over length l for position u and slope up.
func transport(u, up, k, l float64) (float64, float64) {
	switch {
	case k > 0:
		w := math.Sqrt(k)
		c, s := math.Cos(w*l), math.Sin(w*l)
		return c*u + s/w*up, -w*s*u + c*up
	case k < 0:
		w := math.Sqrt(-k)
		c, s := math.Cosh(w*l), math.Sinh(w*l)
		return c*u + s/w*up, w*s*u + c*up
	default:
		return u + l*up, up
	}
}
