package tracking

import (
	"github.com/san-kum/ringoptics/internal/accel"
)

// Yoshida coefficients of the 4th order drift-kick composition.
const (
	drift1 = 0.6756035959798286638
	drift2 = -0.1756035959798286639
	kick1  = 1.351207191959657328
	kick2  = -1.702414383919314656
)

const defaultIntSteps = 10

type thinMultipole struct {
	polyA, polyB []float64
}

func newThinMultipole(el *accel.Element) (Integrator, error) {
	if el.PolynomB == nil {
		return nil, &accel.MissingAttributeError{Element: el.FamName, Attribute: accel.AttrPolynomB}
	}
	a, b := padPolynoms(el.PolynomA, el.PolynomB)
	return &thinMultipole{polyA: a, polyB: b}, nil
}

func (m *thinMultipole) Pass(particles []accel.PhaseVector) {
	for i := range particles {
		multipoleKick(&particles[i], m.polyA, m.polyB, 1)
	}
}

type symplectic4 struct {
	length       float64
	steps        int
	polyA, polyB []float64
}

func newSymplectic4(el *accel.Element) (Integrator, error) {
	l, err := requireParam(el, accel.AttrLength)
	if err != nil {
		return nil, err
	}
	if el.PolynomB == nil {
		return nil, &accel.MissingAttributeError{Element: el.FamName, Attribute: accel.AttrPolynomB}
	}
	steps := int(el.ParamOr(accel.AttrNumIntSteps, defaultIntSteps))
	if steps < 1 {
		steps = 1
	}
	a, b := padPolynoms(el.PolynomA, el.PolynomB)
	return &symplectic4{length: l, steps: steps, polyA: a, polyB: b}, nil
}

// Pass integrates the multipole body with steps of
// drift-kick-drift-kick-drift-kick-drift.
func (m *symplectic4) Pass(particles []accel.PhaseVector) {
	sl := m.length / float64(m.steps)
	l1, l2 := sl*drift1, sl*drift2
	k1, k2 := sl*kick1, sl*kick2

	for i := range particles {
		r := &particles[i]
		for s := 0; s < m.steps; s++ {
			drift(r, l1)
			multipoleKick(r, m.polyA, m.polyB, k1)
			drift(r, l2)
			multipoleKick(r, m.polyA, m.polyB, k2)
			drift(r, l2)
			multipoleKick(r, m.polyA, m.polyB, k1)
			drift(r, l1)
		}
	}
}

// multipoleKick applies the integrated field sum (B + iA)(x + iy)^n scaled
// by l, evaluated with Horner's scheme from the highest order down.
func multipoleKick(r *accel.PhaseVector, polyA, polyB []float64, l float64) {
	n := len(polyB) - 1
	if n < 0 {
		return
	}
	x, y := r[accel.X], r[accel.Y]
	re, im := polyB[n], polyA[n]
	for i := n - 1; i >= 0; i-- {
		re, im = re*x-im*y+polyB[i], im*x+re*y+polyA[i]
	}
	r[accel.PX] -= l * re
	r[accel.PY] += l * im
}

func padPolynoms(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	pa := make([]float64, n)
	pb := make([]float64, n)
	copy(pa, a)
	copy(pb, b)
	return pa, pb
}
