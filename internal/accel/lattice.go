package accel

import (
	"fmt"
	"sync/atomic"
)

// Element attribute names understood by the bundled pass methods.
const (
	AttrLength        = "Length"
	AttrK             = "K"
	AttrBendingAngle  = "BendingAngle"
	AttrEntranceAngle = "EntranceAngle"
	AttrExitAngle     = "ExitAngle"
	AttrKickX         = "KickX"
	AttrKickY         = "KickY"
	AttrXMin          = "XMin"
	AttrXMax          = "XMax"
	AttrYMin          = "YMin"
	AttrYMax          = "YMax"
	AttrNumIntSteps   = "NumIntSteps"
	AttrPassMethod    = "PassMethod"
	AttrPolynomA      = "PolynomA"
	AttrPolynomB      = "PolynomB"
	AttrM66           = "M66"
)

// Element is one lattice element. Which attributes must be present depends
// on its PassMethod; nothing is defaulted on behalf of the tracker.
type Element struct {
	FamName    string             `yaml:"name" json:"name"`
	PassMethod string             `yaml:"pass_method" json:"pass_method"`
	Params     map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
	PolynomA   []float64          `yaml:"polynom_a,omitempty" json:"polynom_a,omitempty"`
	PolynomB   []float64          `yaml:"polynom_b,omitempty" json:"polynom_b,omitempty"`
	M66        [][]float64        `yaml:"m66,omitempty" json:"m66,omitempty"`
}

// Param returns a numeric attribute and whether it is set.
func (e *Element) Param(name string) (float64, bool) {
	v, ok := e.Params[name]
	return v, ok
}

// ParamOr returns a numeric attribute or def when it is absent.
func (e *Element) ParamOr(name string, def float64) float64 {
	if v, ok := e.Params[name]; ok {
		return v
	}
	return def
}

func (e *Element) SetParam(name string, value float64) {
	if e.Params == nil {
		e.Params = make(map[string]float64)
	}
	e.Params[name] = value
}

// Length is the element length; elements without one occupy no space.
func (e *Element) Length() float64 {
	return e.ParamOr(AttrLength, 0)
}

func (e *Element) Clone() Element {
	c := *e
	if e.Params != nil {
		c.Params = make(map[string]float64, len(e.Params))
		for k, v := range e.Params {
			c.Params[k] = v
		}
	}
	c.PolynomA = cloneFloats(e.PolynomA)
	c.PolynomB = cloneFloats(e.PolynomB)
	if e.M66 != nil {
		c.M66 = make([][]float64, len(e.M66))
		for i, row := range e.M66 {
			c.M66[i] = cloneFloats(row)
		}
	}
	return c
}

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	c := make([]float64, len(v))
	copy(c, v)
	return c
}

var latticeIDs atomic.Uint64

// Lattice is an ordered ring of elements with an identity and revision
// that trackers use as their setup cache key.
type Lattice struct {
	Name     string
	Elements []Element

	id       uint64
	revision uint64
}

// NewLattice wraps elems in a lattice with a fresh identity.
func NewLattice(name string, elems []Element) *Lattice {
	return &Lattice{
		Name:     name,
		Elements: elems,
		id:       latticeIDs.Add(1),
	}
}

func (l *Lattice) Len() int { return len(l.Elements) }

// ID is unique per NewLattice call within the process.
func (l *Lattice) ID() uint64 { return l.id }

func (l *Lattice) Revision() uint64 { return l.revision }

// Touch records that elements were mutated.
func (l *Lattice) Touch() { l.revision++ }

// Clone returns a deep copy with a new identity.
func (l *Lattice) Clone() *Lattice {
	elems := make([]Element, len(l.Elements))
	for i := range l.Elements {
		elems[i] = l.Elements[i].Clone()
	}
	return NewLattice(l.Name, elems)
}

// Circumference is the summed length of all elements.
func (l *Lattice) Circumference() float64 {
	total := 0.0
	for i := range l.Elements {
		total += l.Elements[i].Length()
	}
	return total
}

// ValidateRefpts checks that refpts are ascending and within [0, Len()].
func (l *Lattice) ValidateRefpts(refpts []int) error {
	n := l.Len()
	for i, r := range refpts {
		if r < 0 || r > n {
			return fmt.Errorf("refpt %d out of range [0, %d]: %w", r, n, ErrInvalidRefpts)
		}
		if i > 0 && r < refpts[i-1] {
			return fmt.Errorf("refpt %d follows %d: %w", r, refpts[i-1], ErrInvalidRefpts)
		}
	}
	return nil
}

// AllRefpts returns every reference point 0..Len().
func (l *Lattice) AllRefpts() []int {
	refpts := make([]int, l.Len()+1)
	for i := range refpts {
		refpts[i] = i
	}
	return refpts
}

// SPos returns the longitudinal position at the entrance of each refpt.
func (l *Lattice) SPos(refpts []int) ([]float64, error) {
	if err := l.ValidateRefpts(refpts); err != nil {
		return nil, err
	}
	cumulative := make([]float64, l.Len()+1)
	for i := range l.Elements {
		cumulative[i+1] = cumulative[i] + l.Elements[i].Length()
	}
	out := make([]float64, len(refpts))
	for i, r := range refpts {
		out[i] = cumulative[r]
	}
	return out, nil
}
