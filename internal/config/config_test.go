package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/ringoptics/internal/accel"
	"github.com/san-kum/ringoptics/internal/optics"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Lattice != "fodo" {
		t.Errorf("expected lattice fodo, got %s", cfg.Lattice)
	}
	if cfg.Settings != optics.DefaultSettings() {
		t.Errorf("expected default settings, got %+v", cfg.Settings)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ringoptics.yaml")
	data := "delta: 0.001\nchromaticity: true\nsettings:\n  ddp: 1.0e-7\n  strict_convergence: true\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Delta != 0.001 || !cfg.Chromaticity {
		t.Errorf("unexpected top level values: %+v", cfg)
	}
	if cfg.Settings.DDP != 1e-7 || !cfg.Settings.StrictConvergence {
		t.Errorf("unexpected settings: %+v", cfg.Settings)
	}
	if cfg.Settings.XYStep != optics.DefaultXYStep {
		t.Errorf("unset values should keep defaults, got xy_step %g", cfg.Settings.XYStep)
	}
	if cfg.Scan.Steps != DefaultScanSteps {
		t.Errorf("expected default scan steps, got %d", cfg.Scan.Steps)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("settings:\n  xy_step: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, optics.ErrInvalidStep) {
		t.Errorf("expected ErrInvalidStep, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := DefaultConfig()
	cfg.Lattice = "ring"
	cfg.Refpts = "0,5,end"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestParseRefpts(t *testing.T) {
	tests := []struct {
		sel  string
		want []int
		err  error
	}{
		{"", []int{4}, nil},
		{"end", []int{4}, nil},
		{"all", []int{0, 1, 2, 3, 4}, nil},
		{"3, 1,1", []int{1, 1, 3}, nil},
		{"0,end", []int{0, 4}, nil},
		{"5", nil, accel.ErrInvalidRefpts},
		{"-1", nil, accel.ErrInvalidRefpts},
		{"x", nil, ErrBadRefpts},
		{",", nil, ErrBadRefpts},
	}

	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			got, err := ParseRefpts(tt.sel, 4)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	s, ok := GetPreset("strict")
	if !ok {
		t.Fatal("expected strict preset")
	}
	if !s.StrictConvergence {
		t.Error("strict preset should enable strict convergence")
	}
	for _, name := range ListPresets() {
		p, _ := GetPreset(name)
		if err := p.Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}

	if _, ok := GetPreset("nonexistent"); ok {
		t.Error("expected no preset for nonexistent name")
	}
}
