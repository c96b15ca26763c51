// Package metrics computes diagnostics on optics results.
package metrics

import (
	"github.com/san-kum/ringoptics/internal/optics"
)

// Metric accumulates a scalar over the records of an optics result.
type Metric interface {
	Name() string
	Observe(r optics.Record)
	Value() float64
	Reset()
}

// Default returns the metrics reported by the check command.
func Default() []Metric {
	return []Metric{
		NewSymplecticity(),
		NewDeterminant(),
		NewMaxBeta(0),
		NewMaxBeta(1),
	}
}

// Evaluate runs every metric over res and returns the values by name.
func Evaluate(res *optics.OpticsResult, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for _, r := range res.Records {
			m.Observe(r)
		}
		out[m.Name()] = m.Value()
	}
	return out
}
