package tracking

import (
	"fmt"
	"sort"

	"github.com/san-kum/ringoptics/internal/accel"
)

// Integrator propagates a batch of particles through one element in place.
type Integrator interface {
	Pass(particles []accel.PhaseVector)
}

// Method validates an element and builds its integrator.
type Method func(el *accel.Element) (Integrator, error)

// Registry maps pass-method names to integrator constructors.
type Registry struct {
	methods map[string]Method
}

// NewRegistry returns a registry holding every bundled pass method.
func NewRegistry() *Registry {
	r := &Registry{methods: make(map[string]Method)}

	r.methods["IdentityPass"] = newIdentity
	r.methods["DriftPass"] = newDrift
	r.methods["QuadLinearPass"] = newQuadLinear
	r.methods["BendLinearPass"] = newBendLinear
	r.methods["ThinMPolePass"] = newThinMultipole
	r.methods["StrMPoleSymplectic4Pass"] = newSymplectic4
	r.methods["CorrectorPass"] = newCorrector
	r.methods["AperturePass"] = newAperture
	r.methods["Matrix66Pass"] = newMatrix66

	return r
}

// Register adds or replaces a pass method.
func (r *Registry) Register(name string, m Method) {
	r.methods[name] = m
}

func (r *Registry) Lookup(name string) (Method, error) {
	m, ok := r.methods[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, accel.ErrUnknownPassMethod)
	}
	return m, nil
}

// Methods lists registered pass-method names in sorted order.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func requireParam(el *accel.Element, name string) (float64, error) {
	v, ok := el.Param(name)
	if !ok {
		return 0, &accel.MissingAttributeError{Element: el.FamName, Attribute: name}
	}
	return v, nil
}
