// Package optim searches element settings that minimise an optics objective.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/ringoptics/internal/accel"
	"github.com/san-kum/ringoptics/internal/optics"
)

var ErrNoCandidate = errors.New("optim: no candidate could be evaluated")

// Knob is a numeric attribute of an element family and the values to try.
type Knob struct {
	Family string
	Param  string
	Values []float64
}

func (k Knob) Name() string { return k.Family + "." + k.Param }

// ParseKnob reads "FAMILY.PARAM=from:to:steps".
func ParseKnob(s string) (Knob, error) {
	name, grid, ok := strings.Cut(s, "=")
	if !ok {
		return Knob{}, fmt.Errorf("knob %q: want FAMILY.PARAM=from:to:steps", s)
	}
	family, param, ok := strings.Cut(name, ".")
	if !ok || family == "" || param == "" {
		return Knob{}, fmt.Errorf("knob %q: want FAMILY.PARAM=from:to:steps", s)
	}
	parts := strings.Split(grid, ":")
	if len(parts) != 3 {
		return Knob{}, fmt.Errorf("knob %q: want from:to:steps", s)
	}
	from, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Knob{}, fmt.Errorf("knob %q: %w", s, err)
	}
	to, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Knob{}, fmt.Errorf("knob %q: %w", s, err)
	}
	steps, err := strconv.Atoi(parts[2])
	if err != nil || steps < 1 {
		return Knob{}, fmt.Errorf("knob %q: steps must be a positive integer", s)
	}
	return Knob{Family: family, Param: param, Values: linspace(from, to, steps)}, nil
}

func linspace(from, to float64, n int) []float64 {
	if n == 1 {
		return []float64{from}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = from + (to-from)*float64(i)/float64(n-1)
	}
	return out
}

// Objective scores a lattice; lower is better.
type Objective func(lat *accel.Lattice) (float64, error)

// TuneObjective is the distance between the fractional tunes of a lattice
// at delta and target.
func TuneObjective(a *optics.Analyzer, delta float64, target [2]float64) Objective {
	return func(lat *accel.Lattice) (float64, error) {
		res, err := a.ComputeOptics(lat, delta, nil, false)
		if err != nil {
			return 0, err
		}
		q := res.FractionalTune()
		return math.Hypot(q[0]-target[0], q[1]-target[1]), nil
	}
}

type Result struct {
	Values    map[string]float64 `json:"values"`
	Score     float64            `json:"score"`
	Evaluated int                `json:"evaluated"`
	Failed    int                `json:"failed"`
}

type GridSearch struct {
	knobs []Knob
}

func NewGridSearch(knobs ...Knob) *GridSearch {
	return &GridSearch{knobs: knobs}
}

// Search evaluates every combination of knob values on a copy of lat.
// Candidates whose objective fails, such as unstable settings, are skipped.
func (g *GridSearch) Search(ctx context.Context, lat *accel.Lattice, obj Objective) (*Result, error) {
	for _, k := range g.knobs {
		if !hasFamily(lat, k.Family) {
			return nil, fmt.Errorf("no element in family %q", k.Family)
		}
	}

	res := &Result{Score: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), lat, obj, res); err != nil {
		return nil, err
	}
	if res.Values == nil {
		return res, ErrNoCandidate
	}
	return res, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	lat *accel.Lattice,
	obj Objective,
	best *Result,
) error {
	if depth == len(g.knobs) {
		if err := ctx.Err(); err != nil {
			return err
		}
		candidate := lat.Clone()
		for _, k := range g.knobs {
			apply(candidate, k, current[k.Name()])
		}

		best.Evaluated++
		val, err := obj(candidate)
		if err != nil || math.IsNaN(val) {
			best.Failed++
			return nil
		}
		if val < best.Score {
			best.Score = val
			best.Values = make(map[string]float64, len(current))
			for k, v := range current {
				best.Values[k] = v
			}
		}
		return nil
	}

	knob := g.knobs[depth]
	for _, val := range knob.Values {
		current[knob.Name()] = val
		if err := g.searchRecursive(ctx, depth+1, current, lat, obj, best); err != nil {
			return err
		}
	}
	delete(current, knob.Name())
	return nil
}

func hasFamily(lat *accel.Lattice, family string) bool {
	for i := range lat.Elements {
		if lat.Elements[i].FamName == family {
			return true
		}
	}
	return false
}

func apply(lat *accel.Lattice, k Knob, v float64) {
	for i := range lat.Elements {
		if lat.Elements[i].FamName == k.Family {
			lat.Elements[i].SetParam(k.Param, v)
		}
	}
}
