package lattice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ringoptics/internal/accel"
)

var ErrUnknownPreset = errors.New("lattice: unknown preset")

// File is the on-disk form of a lattice.
type File struct {
	Name     string          `yaml:"name"`
	Elements []accel.Element `yaml:"elements"`
}

func Parse(data []byte) (*accel.Lattice, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lattice: %w", err)
	}
	if len(f.Elements) == 0 {
		return nil, accel.ErrEmptyLattice
	}
	return accel.NewLattice(f.Name, f.Elements), nil
}

func Marshal(lat *accel.Lattice) ([]byte, error) {
	return yaml.Marshal(File{Name: lat.Name, Elements: lat.Elements})
}

func Load(path string) (*accel.Lattice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if lat.Name == "" {
		lat.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return lat, nil
}

func Save(path string, lat *accel.Lattice) error {
	data, err := Marshal(lat)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve returns the preset called arg, or loads arg as a file path.
func Resolve(arg string) (*accel.Lattice, error) {
	if lat, err := Preset(arg); err == nil {
		return lat, nil
	}
	if _, err := os.Stat(arg); err != nil {
		return nil, fmt.Errorf("%q is neither a preset nor a readable file: %w", arg, ErrUnknownPreset)
	}
	return Load(arg)
}
