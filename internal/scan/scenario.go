package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ringoptics/internal/accel"
	"github.com/san-kum/ringoptics/internal/config"
	"github.com/san-kum/ringoptics/internal/lattice"
	"github.com/san-kum/ringoptics/internal/optics"
)

// Scenario is a scripted sequence of optics computations.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step computes the optics of one lattice, optionally after overriding
// element attributes.
type Step struct {
	Lattice      string     `yaml:"lattice"`
	Settings     string     `yaml:"settings"`
	Delta        float64    `yaml:"delta"`
	Refpts       string     `yaml:"refpts"`
	Chromaticity bool       `yaml:"chromaticity"`
	Set          []Override `yaml:"set"`
	SaveAs       string     `yaml:"save_as"`
}

// Override sets a numeric attribute on every element of a family.
type Override struct {
	Family string  `yaml:"family"`
	Param  string  `yaml:"param"`
	Value  float64 `yaml:"value"`
}

type StepResult struct {
	Step    Step
	Lattice *accel.Lattice
	Result  *optics.OpticsResult
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	return &sc, nil
}

// RunScenario executes the steps in order and stops at the first failure,
// returning the results gathered so far.
func (r *Runner) RunScenario(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Steps))

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r.logger.Info("running step",
			slog.String("scenario", sc.Name),
			slog.Int("step", i+1),
			slog.Int("of", len(sc.Steps)),
			slog.String("lattice", step.Lattice))

		res, err := r.runStep(step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) runStep(step Step) (StepResult, error) {
	lat, err := lattice.Resolve(step.Lattice)
	if err != nil {
		return StepResult{}, err
	}
	if err := applyOverrides(lat, step.Set); err != nil {
		return StepResult{}, err
	}

	settings := optics.DefaultSettings()
	if step.Settings != "" {
		s, ok := config.GetPreset(step.Settings)
		if !ok {
			return StepResult{}, fmt.Errorf("unknown settings preset %q", step.Settings)
		}
		settings = s
	}

	refpts, err := config.ParseRefpts(step.Refpts, lat.Len())
	if err != nil {
		return StepResult{}, err
	}

	res, err := r.newAnalyzer(settings).ComputeOptics(lat, step.Delta, refpts, step.Chromaticity)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Step: step, Lattice: lat, Result: res}, nil
}

func applyOverrides(lat *accel.Lattice, set []Override) error {
	for _, o := range set {
		n := 0
		for i := range lat.Elements {
			if lat.Elements[i].FamName == o.Family {
				lat.Elements[i].SetParam(o.Param, o.Value)
				n++
			}
		}
		if n == 0 {
			return fmt.Errorf("no element in family %q", o.Family)
		}
	}
	if len(set) > 0 {
		lat.Touch()
	}
	return nil
}
