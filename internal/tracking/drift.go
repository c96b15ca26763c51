package tracking

import "github.com/san-kum/ringoptics/internal/accel"

type identity struct{}

func newIdentity(el *accel.Element) (Integrator, error) {
	return identity{}, nil
}

func (identity) Pass(particles []accel.PhaseVector) {}

type driftPass struct {
	length float64
}

func newDrift(el *accel.Element) (Integrator, error) {
	l, err := requireParam(el, accel.AttrLength)
	if err != nil {
		return nil, err
	}
	return &driftPass{length: l}, nil
}

func (d *driftPass) Pass(particles []accel.PhaseVector) {
	for i := range particles {
		drift(&particles[i], d.length)
	}
}

// drift advances r over a field-free length l, scaling angles by the
// particle momentum.
func drift(r *accel.PhaseVector, l float64) {
	pNorm := 1 / (1 + r[accel.DP])
	normL := l * pNorm
	r[accel.X] += normL * r[accel.PX]
	r[accel.Y] += normL * r[accel.PY]
	r[accel.CT] += normL * pNorm * (r[accel.PX]*r[accel.PX] + r[accel.PY]*r[accel.PY]) / 2
}

type corrector struct {
	length       float64
	kickX, kickY float64
}

func newCorrector(el *accel.Element) (Integrator, error) {
	c := &corrector{}
	var err error
	if c.length, err = requireParam(el, accel.AttrLength); err != nil {
		return nil, err
	}
	if c.kickX, err = requireParam(el, accel.AttrKickX); err != nil {
		return nil, err
	}
	if c.kickY, err = requireParam(el, accel.AttrKickY); err != nil {
		return nil, err
	}
	return c, nil
}

// Pass spreads the kick uniformly along the element length.
func (c *corrector) Pass(particles []accel.PhaseVector) {
	for i := range particles {
		r := &particles[i]
		pNorm := 1 / (1 + r[accel.DP])
		normL := c.length * pNorm
		px, py := r[accel.PX], r[accel.PY]
		r[accel.CT] += normL * pNorm * (c.kickX*c.kickX/3 + c.kickY*c.kickY/3 +
			px*px + py*py + px*c.kickX + py*c.kickY) / 2
		r[accel.X] += normL * (px + c.kickX/2)
		r[accel.PX] += c.kickX
		r[accel.Y] += normL * (py + c.kickY/2)
		r[accel.PY] += c.kickY
	}
}
