package scan

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ringoptics/internal/accel"
	"github.com/san-kum/ringoptics/internal/lattice"
	"github.com/san-kum/ringoptics/internal/optics"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func countingFactory(n *atomic.Int64) AnalyzerFactory {
	base := TrackingFactory(quiet())
	return func(s optics.Settings) *optics.Analyzer {
		n.Add(1)
		return base(s)
	}
}

func TestMomentumSweep_Deltas(t *testing.T) {
	d := MomentumSweep{From: -0.01, To: 0.01, Steps: 5}.Deltas()
	assert.InDeltaSlice(t, []float64{-0.01, -0.005, 0, 0.005, 0.01}, d, 1e-15)

	assert.Equal(t, []float64{0.002}, MomentumSweep{From: 0.002, To: 1, Steps: 1}.Deltas())
}

func TestSweep_FODO(t *testing.T) {
	var built atomic.Int64
	r := NewRunner(countingFactory(&built), WithLogger(quiet()), WithWorkers(3))
	lat, err := lattice.Preset("fodo")
	require.NoError(t, err)

	points, err := r.Sweep(context.Background(), lat, optics.DefaultSettings(), MomentumSweep{From: -0.01, To: 0.01, Steps: 5})
	require.NoError(t, err)
	require.Len(t, points, 5)
	assert.EqualValues(t, 5, built.Load(), "one analyzer per task")

	for i, p := range points {
		require.NoError(t, p.Err)
		assert.True(t, p.Converged)
		if i > 0 {
			assert.Greater(t, p.Delta, points[i-1].Delta)
			assert.Less(t, p.Tune[0], points[i-1].Tune[0], "negative chromaticity lowers the tune")
		}
	}
	assert.InDelta(t, 0.0433485663, points[2].Tune[0], 1e-8)
}

func TestSweep_RingTuneAboveHalf(t *testing.T) {
	r := NewRunner(TrackingFactory(quiet()), WithLogger(quiet()))
	lat, err := lattice.Preset("ring")
	require.NoError(t, err)

	points, err := r.Sweep(context.Background(), lat, optics.DefaultSettings(), MomentumSweep{From: 0, To: 0, Steps: 1})
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.NoError(t, points[0].Err)
	assert.InDelta(t, 1.6660828143, points[0].Tune[0], 1e-6)
	assert.InDelta(t, 0.9779917560, points[0].Tune[1], 1e-6)
}

func TestSweep_UnstablePointsAreRecorded(t *testing.T) {
	r := NewRunner(TrackingFactory(quiet()), WithLogger(quiet()))
	lat, err := lattice.Preset("drift")
	require.NoError(t, err)

	points, err := r.Sweep(context.Background(), lat, optics.DefaultSettings(), MomentumSweep{From: 0, To: 0.01, Steps: 3})
	require.NoError(t, err)
	for _, p := range points {
		assert.ErrorIs(t, p.Err, optics.ErrUnstable)
		assert.NotEmpty(t, p.Error)
	}
}

func TestSweep_Errors(t *testing.T) {
	r := NewRunner(TrackingFactory(quiet()), WithLogger(quiet()))
	lat, err := lattice.Preset("fodo")
	require.NoError(t, err)

	_, err = r.Sweep(context.Background(), lat, optics.DefaultSettings(), MomentumSweep{Steps: 0})
	assert.ErrorIs(t, err, optics.ErrInvalidStep)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Sweep(ctx, lat, optics.DefaultSettings(), MomentumSweep{Steps: 3})
	assert.ErrorIs(t, err, context.Canceled)

	broken := accel.NewLattice("broken", []accel.Element{{FamName: "Q", PassMethod: "QuadLinearPass"}})
	_, err = r.Sweep(context.Background(), broken, optics.DefaultSettings(), MomentumSweep{Steps: 2, To: 0.01})
	assert.ErrorIs(t, err, accel.ErrMissingAttribute)
}

const scenarioYAML = `
name: tuning
description: weaker focusing then the corrected ring
steps:
  - lattice: fodo
    refpts: all
    set:
      - {family: QF, param: K, value: 1.0}
      - {family: QD, param: K, value: -1.0}
  - lattice: ring
    settings: strict
    chromaticity: true
    save_as: ring-chrom
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 2)
	assert.Equal(t, "ring-chrom", sc.Steps[1].SaveAs)

	r := NewRunner(TrackingFactory(quiet()), WithLogger(quiet()))
	results, err := r.RunScenario(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, results, 2)

	fodo := results[0]
	assert.Len(t, fodo.Result.Records, fodo.Lattice.Len()+1)
	assert.InDelta(t, 1.0, fodo.Lattice.Elements[0].ParamOr(accel.AttrK, 0), 0)
	assert.Less(t, fodo.Result.Tune[0], 0.0433485663, "weaker quadrupoles lower the tune")

	ring := results[1]
	require.NotNil(t, ring.Result.Chromaticity)
	assert.Len(t, ring.Result.Records, 1)
}

func TestRunScenario_Failures(t *testing.T) {
	r := NewRunner(TrackingFactory(quiet()), WithLogger(quiet()))

	sc := &Scenario{Name: "bad", Steps: []Step{
		{Lattice: "fodo"},
		{Lattice: "fodo", Set: []Override{{Family: "QX", Param: "K", Value: 1}}},
	}}
	results, err := r.RunScenario(context.Background(), sc)
	assert.Error(t, err)
	assert.Len(t, results, 1, "results before the failing step are kept")

	_, err = r.RunScenario(context.Background(), &Scenario{Steps: []Step{{Lattice: "fodo", Settings: "nope"}}})
	assert.Error(t, err)

	_, err = r.RunScenario(context.Background(), &Scenario{Steps: []Step{{Lattice: "drift"}}})
	assert.ErrorIs(t, err, optics.ErrUnstable)

	_, err = LoadScenario(writeScenario(t, "name: empty\n"))
	assert.Error(t, err)
}
