package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ringoptics/internal/accel"
	"github.com/san-kum/ringoptics/internal/optics"
)

var symplecticForm = mat.NewDense(4, 4, []float64{
	0, 1, 0, 0,
	-1, 0, 0, 0,
	0, 0, 0, 1,
	0, 0, -1, 0,
})

func dense(m accel.Matrix44) *mat.Dense {
	return mat.NewDense(4, 4, m.Flat())
}

// SymplecticError returns the Frobenius norm of MᵀJM - J.
func SymplecticError(m accel.Matrix44) float64 {
	d := dense(m)
	var tmp, res mat.Dense
	tmp.Mul(d.T(), symplecticForm)
	res.Mul(&tmp, d)
	res.Sub(&res, symplecticForm)
	return mat.Norm(&res, 2)
}

// DeterminantError returns |det M - 1|.
func DeterminantError(m accel.Matrix44) float64 {
	return math.Abs(mat.Det(dense(m)) - 1)
}

// Symplecticity tracks the worst SymplecticError over observed records.
type Symplecticity struct {
	name  string
	worst float64
}

func NewSymplecticity() *Symplecticity {
	return &Symplecticity{name: "symplectic_error"}
}

func (s *Symplecticity) Name() string { return s.name }

func (s *Symplecticity) Observe(r optics.Record) {
	s.worst = math.Max(s.worst, SymplecticError(r.M44))
}

func (s *Symplecticity) Value() float64 { return s.worst }

func (s *Symplecticity) Reset() { s.worst = 0 }

// Determinant tracks the worst DeterminantError over observed records.
type Determinant struct {
	name  string
	worst float64
}

func NewDeterminant() *Determinant {
	return &Determinant{name: "determinant_error"}
}

func (d *Determinant) Name() string { return d.name }

func (d *Determinant) Observe(r optics.Record) {
	d.worst = math.Max(d.worst, DeterminantError(r.M44))
}

func (d *Determinant) Value() float64 { return d.worst }

func (d *Determinant) Reset() { d.worst = 0 }
