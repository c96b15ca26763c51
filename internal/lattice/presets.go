package lattice

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/ringoptics/internal/accel"
)

type preset struct {
	description string
	build       func() []accel.Element
}

var presets = map[string]preset{
	"drift": {
		description: "single 5 m drift, marginally stable",
		build: func() []accel.Element {
			return []accel.Element{drift("D1", 5)}
		},
	},
	"fodo": {
		description: "one FODO cell with thick linear quadrupoles",
		build: func() []accel.Element {
			return []accel.Element{
				quad("QF", 0.2, 1.2), drift("D1", 1),
				quad("QD", 0.2, -1.2), drift("D2", 1),
			}
		},
	},
	"thin-fodo": {
		description: "FODO cell with thin lenses of focal length 2 m",
		build: func() []accel.Element {
			return []accel.Element{
				thinQuad("QF", 0.5), drift("D1", 1),
				thinQuad("QD", -0.5), drift("D2", 1),
			}
		},
	},
	"ring": {
		description: "16-bend ring with chromatic sextupoles, a corrector and an aperture",
		build:       ring,
	},
}

// Preset builds a fresh copy of a built-in lattice.
func Preset(name string) (*accel.Lattice, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownPreset)
	}
	return accel.NewLattice(name, p.build()), nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func PresetDescription(name string) string {
	return presets[name].description
}

func ring() []accel.Element {
	const cells = 8
	angle := 2 * math.Pi / (2 * cells)

	elems := []accel.Element{
		{FamName: "BPM", PassMethod: "IdentityPass"},
		aperture("AP", 0.05, 0.03),
	}
	for i := 0; i < cells; i++ {
		elems = append(elems,
			quad("QF", 0.3, 1.0), drift("D1", 0.4), sextupole("SF", 0.2),
			bend("B", 1.5, angle), drift("D1", 0.4),
			quad("QD", 0.3, -1.0), drift("D1", 0.4), sextupole("SD", -0.2),
			bend("B", 1.5, angle), drift("D1", 0.4),
		)
	}
	return append(elems, corrector("HV", 0, 0))
}

func drift(name string, l float64) accel.Element {
	return accel.Element{FamName: name, PassMethod: "DriftPass",
		Params: map[string]float64{accel.AttrLength: l}}
}

func quad(name string, l, k float64) accel.Element {
	return accel.Element{FamName: name, PassMethod: "QuadLinearPass",
		Params: map[string]float64{accel.AttrLength: l, accel.AttrK: k}}
}

func thinQuad(name string, kl float64) accel.Element {
	return accel.Element{FamName: name, PassMethod: "ThinMPolePass",
		PolynomA: []float64{0, 0}, PolynomB: []float64{0, kl}}
}

func sextupole(name string, kl float64) accel.Element {
	return accel.Element{FamName: name, PassMethod: "ThinMPolePass",
		PolynomA: []float64{0, 0, 0}, PolynomB: []float64{0, 0, kl}}
}

func bend(name string, l, angle float64) accel.Element {
	return accel.Element{FamName: name, PassMethod: "BendLinearPass",
		Params: map[string]float64{accel.AttrLength: l, accel.AttrBendingAngle: angle}}
}

func corrector(name string, kx, ky float64) accel.Element {
	return accel.Element{FamName: name, PassMethod: "CorrectorPass",
		Params: map[string]float64{accel.AttrLength: 0, accel.AttrKickX: kx, accel.AttrKickY: ky}}
}

func aperture(name string, hx, hy float64) accel.Element {
	return accel.Element{FamName: name, PassMethod: "AperturePass",
		Params: map[string]float64{
			accel.AttrXMin: -hx, accel.AttrXMax: hx,
			accel.AttrYMin: -hy, accel.AttrYMax: hy,
		}}
}
