package optics

import "math"

// UnwrapPhase removes the π jumps of arctangent phases. Each step is
// compared with the previous raw value, starting from an implicit zero,
// and every negative difference adds π to that point and all later ones.
// Unlike the arctangent-only convention, which never adjusts the first
// point, a negative first phase is already shifted by π here.
func UnwrapPhase(raw []float64) []float64 {
	out := make([]float64, len(raw))
	prev, offset := 0.0, 0.0
	for i, v := range raw {
		if v-prev < 0 {
			offset += math.Pi
		}
		out[i] = v + offset
		prev = v
	}
	return out
}
