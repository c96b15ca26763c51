package tracking

import (
	"math"

	"github.com/san-kum/ringoptics/internal/accel"
)

type bendLinear struct {
	length   float64
	h        float64
	k        float64
	entryPsi float64
	exitPsi  float64
}

func newBendLinear(el *accel.Element) (Integrator, error) {
	l, err := requireParam(el, accel.AttrLength)
	if err != nil {
		return nil, err
	}
	angle, err := requireParam(el, accel.AttrBendingAngle)
	if err != nil {
		return nil, err
	}
	b := &bendLinear{length: l, k: el.ParamOr(accel.AttrK, 0)}
	if l != 0 {
		b.h = angle / l
	}
	b.entryPsi = b.h * math.Tan(el.ParamOr(accel.AttrEntranceAngle, 0))
	b.exitPsi = b.h * math.Tan(el.ParamOr(accel.AttrExitAngle, 0))
	return b, nil
}

func (b *bendLinear) Pass(particles []accel.PhaseVector) {
	for i := range particles {
		r := &particles[i]
		edge(r, b.entryPsi)
		b.body(r)
		edge(r, b.exitPsi)
	}
}

// body applies the first-order sector bend map including the dispersive
// terms driven by the momentum deviation.
func (b *bendLinear) body(r *accel.PhaseVector) {
	p := 1 + r[accel.DP]
	delta := r[accel.DP]
	kx := b.h*b.h + b.k/p
	l := b.length

	var c, s, d float64
	switch {
	case kx > 0:
		w := math.Sqrt(kx)
		c, s = math.Cos(w*l), math.Sin(w*l)/w
		d = b.h * (1 - c) / kx
	case kx < 0:
		w := math.Sqrt(-kx)
		c, s = math.Cosh(w*l), math.Sinh(w*l)/w
		d = b.h * (1 - c) / kx
	default:
		c, s = 1, l
		d = b.h * l * l / 2
	}

	x0, xp0 := r[accel.X], r[accel.PX]/p
	x := c*x0 + s*xp0 + d*delta
	xp := -kx*s*x0 + c*xp0 + b.h*s*delta

	y, yp := transport(r[accel.Y], r[accel.PY]/p, -b.k/p, l)

	r[accel.X], r[accel.PX] = x, xp*p
	r[accel.Y], r[accel.PY] = y, yp*p
}

// edge applies the thin-lens focusing of a pole face rotation.
func edge(r *accel.PhaseVector, psi float64) {
	if psi == 0 {
		return
	}
	r[accel.PX] += r[accel.X] * psi
	r[accel.PY] -= r[accel.Y] * psi
}
