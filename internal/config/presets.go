package config

import (
	"sort"

	"github.com/san-kum/ringoptics/internal/optics"
)

// Presets holds named analysis settings profiles.
var Presets = map[string]optics.Settings{
	"default": optics.DefaultSettings(),
	"strict": {
		OrbitStep:         optics.DefaultOrbitStep,
		Tolerance:         optics.DefaultTolerance,
		MaxIterations:     optics.DefaultMaxIterations,
		XYStep:            optics.DefaultXYStep,
		DDP:               optics.DefaultDDP,
		StrictConvergence: true,
	},
	"coarse": {
		OrbitStep:     1e-5,
		Tolerance:     1e-10,
		MaxIterations: 10,
		XYStep:        1e-5,
		DDP:           1e-6,
	},
}

func GetPreset(name string) (optics.Settings, bool) {
	s, ok := Presets[name]
	return s, ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
