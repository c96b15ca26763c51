package optics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ringoptics/internal/accel"
)

func relNear(t *testing.T, want, got, rel float64, msg string) {
	t.Helper()
	assert.InDelta(t, 0, (got-want)/want, rel, "%s: expected %.10g, got %.10g", msg, want, got)
}

func TestComputeOptics_ThinLensAndDrift(t *testing.T) {
	f, l := 2.0, 1.0
	tr := &linearTracker{elems: []linearElement{thinLensMap(f), driftMap(l)}}
	a := newTestAnalyzer(tr)

	res, err := a.ComputeOptics(tr.lattice(), 0, []int{0, 1, 2}, false)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	cosMu := 1 - l/(2*f)
	mu := math.Acos(cosMu)
	sinMu := math.Sin(mu)
	beta0 := l / sinMu
	alpha0 := -l / (2 * f * sinMu)

	for plane := 0; plane < 2; plane++ {
		relNear(t, beta0, res.Records[0].Beta[plane], 1e-6, "beta at start")
		relNear(t, alpha0, res.Records[0].Alpha[plane], 1e-6, "alpha at start")
		relNear(t, beta0, res.Records[1].Beta[plane], 1e-6, "beta after lens")
		relNear(t, alpha0+beta0/f, res.Records[1].Alpha[plane], 1e-6, "alpha after lens")
		relNear(t, beta0, res.Records[2].Beta[plane], 1e-6, "beta is periodic")
		relNear(t, alpha0, res.Records[2].Alpha[plane], 1e-6, "alpha is periodic")
		assert.InDelta(t, 0, res.Records[1].Mu[plane], 1e-12, "thin lens has no phase advance")
		relNear(t, mu, res.Records[2].Mu[plane], 1e-6, "phase at end")
		relNear(t, mu/(2*math.Pi), res.Tune[plane], 1e-6, "tune")
	}

	assert.Nil(t, res.Chromaticity)
	assert.True(t, res.Converged)
	for _, r := range res.Records {
		for _, d := range r.Dispersion {
			assert.True(t, math.IsNaN(d), "dispersion must be unset without chromaticity")
		}
	}
}

func TestComputeOptics_Drift(t *testing.T) {
	tr := &linearTracker{elems: []linearElement{driftMap(5)}}
	a := newTestAnalyzer(tr)

	_, err := a.ComputeOptics(tr.lattice(), 0, nil, false)
	assert.ErrorIs(t, err, ErrUnstable)

	var ie *InstabilityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 0, ie.Plane)
	assert.InDelta(t, 1, ie.Trace, 1e-9)
}

func TestComputeOptics_NilRefptsGivesEnd(t *testing.T) {
	tr := chromaticTracker()
	a := newTestAnalyzer(tr)
	lat := tr.lattice()

	res, err := a.ComputeOptics(lat, 0, nil, false)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, lat.Len(), res.Records[0].Index)
}

func TestComputeOptics_Chromaticity(t *testing.T) {
	tr := chromaticTracker()
	a := newTestAnalyzer(tr)

	res, err := a.ComputeOptics(tr.lattice(), 0, []int{0, 1}, true)
	require.NoError(t, err)
	require.NotNil(t, res.Chromaticity)

	for plane := 0; plane < 2; plane++ {
		relNear(t, testQ0[plane], res.Tune[plane], 1e-9, "tune")
		relNear(t, testXi[plane], res.Chromaticity[plane], 1e-4, "chromaticity")
		assert.Less(t, res.Chromaticity[plane], 0.0)
		relNear(t, testBeta[plane], res.Records[0].Beta[plane], 1e-6, "beta")
	}
	for _, r := range res.Records {
		for i := range testDisp {
			relNear(t, testDisp[i], r.Dispersion[i], 1e-4, "dispersion")
		}
		assert.Equal(t, [2]float64{r.Dispersion[0], r.Dispersion[2]}, r.DispersionXY())
	}
}

func TestComputeOptics_ChromaticityCalls(t *testing.T) {
	tr := chromaticTracker()
	a := newTestAnalyzer(tr)

	_, err := a.ComputeOptics(tr.lattice(), 0, []int{1}, true)
	require.NoError(t, err)

	// each pass: orbit iterations, one refpt call, one matrix call
	eights := 0
	for _, b := range tr.batches {
		if b == 8 {
			eights++
		}
	}
	assert.Equal(t, 2, eights, "one matrix call at delta and one at delta+ddp")
}

func TestComputeOptics_Idempotent(t *testing.T) {
	tr := chromaticTracker()
	a := newTestAnalyzer(tr)
	lat := tr.lattice()

	first, err := a.ComputeOptics(lat, 1e-4, lat.AllRefpts(), true)
	require.NoError(t, err)
	second, err := a.ComputeOptics(lat, 1e-4, lat.AllRefpts(), true)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeOptics_SPosAndOrder(t *testing.T) {
	tr := &linearTracker{elems: []linearElement{thinLensMap(2), driftMap(1), driftMap(0)}}
	a := newTestAnalyzer(tr)

	lat := tr.lattice()
	lat.Elements[1].SetParam(accel.AttrLength, 1)

	res, err := a.ComputeOptics(lat, 0, []int{0, 2, 2, 3}, false)
	require.NoError(t, err)
	require.Len(t, res.Records, 4)

	wantS := []float64{0, 1, 1, 1}
	for i, r := range res.Records {
		assert.InDelta(t, wantS[i], r.SPos, 1e-15)
		if i > 0 {
			assert.GreaterOrEqual(t, r.Mu[0], res.Records[i-1].Mu[0])
			assert.GreaterOrEqual(t, r.Mu[1], res.Records[i-1].Mu[1])
		}
	}
}

func TestFractionalTune(t *testing.T) {
	r := &OpticsResult{Tune: [2]float64{1.666, 0.25}}
	q := r.FractionalTune()
	assert.InDelta(t, 0.666, q[0], 1e-12)
	assert.InDelta(t, 0.25, q[1], 1e-12)
}

func TestComputeOptics_TuneAboveHalfWithEndOnly(t *testing.T) {
	// two identical rotations of 0.3 turns each: total tune 0.6, although a
	// single arctangent at the end would only give 0.1
	rot := blockDiag(rotation(0.6*math.Pi, 5), rotation(0.6*math.Pi, 2))
	tr := &linearTracker{elems: []linearElement{{matrix: fixed(rot)}, {matrix: fixed(rot)}}}
	a := newTestAnalyzer(tr)

	res, err := a.ComputeOptics(tr.lattice(), 0, nil, false)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	relNear(t, 0.6, res.Tune[0], 1e-6, "horizontal tune")
	relNear(t, 0.6, res.Tune[1], 1e-6, "vertical tune")
	relNear(t, 1.2*math.Pi, res.Records[0].Mu[0], 1e-6, "phase at end")
	relNear(t, 5, res.Records[0].Beta[0], 1e-6, "beta_x")
}
