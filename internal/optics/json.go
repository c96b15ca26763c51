package optics

import (
	"encoding/json"
	"math"
)

// MarshalJSON writes unset dispersion components as null.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	out := struct {
		plain
		Dispersion [4]*float64 `json:"dispersion"`
	}{plain: plain(r)}
	for i := range r.Dispersion {
		if !math.IsNaN(r.Dispersion[i]) {
			v := r.Dispersion[i]
			out.Dispersion[i] = &v
		}
	}
	return json.Marshal(out)
}
