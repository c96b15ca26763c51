package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/ringoptics/internal/accel"
	"github.com/san-kum/ringoptics/internal/optics"
)

// HalfTrace returns (M00 + M11)/2 of each transverse block. A plane is
// linearly stable when its value lies strictly inside (-1, 1).
func HalfTrace(m accel.Matrix44) [2]float64 {
	var h [2]float64
	for p := 0; p < 2; p++ {
		b := m.Block(p)
		h[p] = (b[0][0] + b[1][1]) / 2
	}
	return h
}

func Stable(m accel.Matrix44) [2]bool {
	h := HalfTrace(m)
	return [2]bool{math.Abs(h[0]) < 1, math.Abs(h[1]) < 1}
}

// MaxBeta tracks the largest beta of one plane.
type MaxBeta struct {
	name  string
	plane int
	max   float64
}

func NewMaxBeta(plane int) *MaxBeta {
	return &MaxBeta{name: fmt.Sprintf("max_beta_%s", [2]string{"x", "y"}[plane]), plane: plane}
}

func (b *MaxBeta) Name() string { return b.name }

func (b *MaxBeta) Observe(r optics.Record) {
	b.max = math.Max(b.max, r.Beta[b.plane])
}

func (b *MaxBeta) Value() float64 { return b.max }

func (b *MaxBeta) Reset() { b.max = 0 }
