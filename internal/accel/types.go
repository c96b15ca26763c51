package accel

import (
	"fmt"
	"math"
)

// Coordinate indices into a PhaseVector.
const (
	X = iota
	PX
	Y
	PY
	DP
	CT
)

// PhaseVector holds the 6-D coordinates of one particle.
type PhaseVector [6]float64

// NewPhaseVector places a transverse orbit at momentum deviation delta.
func NewPhaseVector(orbit Orbit4, delta float64) PhaseVector {
	return PhaseVector{orbit[0], orbit[1], orbit[2], orbit[3], delta, 0}
}

// Transverse returns the (x, px, y, py) part of v.
func (v PhaseVector) Transverse() Orbit4 {
	return Orbit4{v[X], v[PX], v[Y], v[PY]}
}

func (v PhaseVector) IsValid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// ParticlesFromRows converts a row-major [6][n] coordinate table into a
// particle batch.
func ParticlesFromRows(rows [][]float64) ([]PhaseVector, error) {
	if len(rows) != 6 {
		return nil, fmt.Errorf("got %d rows: %w", len(rows), ErrParticleShape)
	}
	n := len(rows[0])
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), n, ErrParticleShape)
		}
	}
	particles := make([]PhaseVector, n)
	for i := 0; i < 6; i++ {
		for j := 0; j < n; j++ {
			particles[j][i] = rows[i][j]
		}
	}
	return particles, nil
}

// Orbit4 is the transverse part (x, px, y, py) of a closed orbit.
type Orbit4 [4]float64

func (o Orbit4) Norm() float64 {
	sum := 0.0
	for _, v := range o {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (o Orbit4) Sub(other Orbit4) Orbit4 {
	var r Orbit4
	for i := range o {
		r[i] = o[i] - other[i]
	}
	return r
}

func (o Orbit4) Scale(factor float64) Orbit4 {
	var r Orbit4
	for i := range o {
		r[i] = o[i] * factor
	}
	return r
}

// Matrix44 is a 4x4 transfer matrix acting on (x, px, y, py).
type Matrix44 [4][4]float64

// Identity44 returns the 4x4 identity matrix.
func Identity44() Matrix44 {
	var m Matrix44
	for i := 0; i < 4; i++ {
		m[i][i] = 1
	}
	return m
}

// Block returns the 2x2 diagonal block of the given transverse plane
// (0 = horizontal, 1 = vertical).
func (m Matrix44) Block(plane int) [2][2]float64 {
	o := 2 * plane
	return [2][2]float64{
		{m[o][o], m[o][o+1]},
		{m[o+1][o], m[o+1][o+1]},
	}
}

func (m Matrix44) Mul(other Matrix44) Matrix44 {
	var r Matrix44
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				r[i][j] += m[i][k] * other[k][j]
			}
		}
	}
	return r
}

// Apply multiplies m by the column vector v.
func (m Matrix44) Apply(v Orbit4) Orbit4 {
	var r Orbit4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i] += m[i][j] * v[j]
		}
	}
	return r
}

// Flat returns m in row-major order.
func (m Matrix44) Flat() []float64 {
	out := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		out = append(out, m[i][:]...)
	}
	return out
}
