package optics_test

import (
	"errors"
	"io"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ringoptics/internal/accel"
	"github.com/san-kum/ringoptics/internal/lattice"
	"github.com/san-kum/ringoptics/internal/optics"
	"github.com/san-kum/ringoptics/internal/tracking"
)

func newAnalyzer() *optics.Analyzer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return optics.NewAnalyzer(tracking.New(tracking.WithLogger(logger)), optics.WithLogger(logger))
}

func preset(name string) *accel.Lattice {
	lat, err := lattice.Preset(name)
	Expect(err).NotTo(HaveOccurred())
	return lat
}

// symplecticError returns max |MᵀJM - J| for the 4x4 symplectic form.
func symplecticError(m accel.Matrix44) float64 {
	j := accel.Matrix44{{0, 1, 0, 0}, {-1, 0, 0, 0}, {0, 0, 0, 1}, {0, 0, -1, 0}}
	var mt accel.Matrix44
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			mt[r][c] = m[c][r]
		}
	}
	got := mt.Mul(j).Mul(m)
	worst := 0.0
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			worst = math.Max(worst, math.Abs(got[r][c]-j[r][c]))
		}
	}
	return worst
}

var _ = Describe("Linear optics on tracked lattices", func() {
	var analyzer *optics.Analyzer

	BeforeEach(func() {
		analyzer = newAnalyzer()
	})

	Context("a pure drift", func() {
		It("has a zero closed orbit and the drift matrix", func() {
			lat := preset("drift")

			orbit, err := analyzer.FindClosedOrbit(lat, 0, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(orbit.Converged).To(BeTrue())
			Expect(orbit.Orbit.Norm()).To(BeNumerically("<", 1e-15))

			tm, err := analyzer.FindTransferMatrix(lat, 0, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			want := accel.Matrix44{{1, 5, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 5}, {0, 0, 0, 1}}
			for i := 0; i < 4; i++ {
				for j := 0; j < 4; j++ {
					Expect(tm.M44[i][j]).To(BeNumerically("~", want[i][j], 1e-9))
				}
			}
		})

		It("reports a marginally stable instability", func() {
			_, err := analyzer.ComputeOptics(preset("drift"), 0, nil, false)
			Expect(err).To(MatchError(optics.ErrUnstable))

			var ie *optics.InstabilityError
			Expect(errors.As(err, &ie)).To(BeTrue())
			Expect(ie.Trace).To(BeNumerically("~", 1, 1e-9))
		})
	})

	DescribeTable("stable lattices",
		func(name string, tuneX, tuneY float64) {
			lat := preset(name)
			res, err := analyzer.ComputeOptics(lat, 0, lat.AllRefpts(), false)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue())
			Expect(res.Records).To(HaveLen(lat.Len() + 1))

			Expect(res.Tune[0]).To(BeNumerically("~", tuneX, 1e-6))
			Expect(res.Tune[1]).To(BeNumerically("~", tuneY, 1e-6))

			By("keeping beta positive and phase non-decreasing")
			for i, r := range res.Records {
				Expect(r.Beta[0]).To(BeNumerically(">", 0))
				Expect(r.Beta[1]).To(BeNumerically(">", 0))
				if i > 0 {
					Expect(r.Mu[0]).To(BeNumerically(">=", res.Records[i-1].Mu[0]))
					Expect(r.Mu[1]).To(BeNumerically(">=", res.Records[i-1].Mu[1]))
				}
			}

			By("returning to the start values after one turn")
			first, last := res.Records[0], res.Records[len(res.Records)-1]
			for p := 0; p < 2; p++ {
				Expect(last.Beta[p]).To(BeNumerically("~", first.Beta[p], 1e-6*first.Beta[p]))
				Expect(last.Alpha[p]).To(BeNumerically("~", first.Alpha[p], 1e-6))
			}

			By("producing symplectic matrices")
			for _, r := range res.Records {
				Expect(symplecticError(r.M44)).To(BeNumerically("<", 1e-8))
			}
		},
		Entry("thick FODO cell", "fodo", 0.0433485663, 0.0433485663),
		Entry("thin-lens FODO cell", "thin-fodo", 0.0804306233, 0.0804306233),
		Entry("16-bend ring", "ring", 1.6660828143, 0.9779917560),
	)

	Context("tune and refpt selection", func() {
		It("reports the full ring tune whichever refpts are requested", func() {
			lat := preset("ring")
			for _, refpts := range [][]int{nil, {0}, {lat.Len()}, {5, 40, lat.Len()}} {
				res, err := analyzer.ComputeOptics(lat, 0, refpts, false)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Tune[0]).To(BeNumerically("~", 1.6660828143, 1e-6))
				Expect(res.Tune[1]).To(BeNumerically("~", 0.9779917560, 1e-6))

				q := res.FractionalTune()
				Expect(q[0]).To(BeNumerically("~", 0.6660828143, 1e-6))
				Expect(q[1]).To(BeNumerically("~", 0.9779917560, 1e-6))
			}
		})

		It("gives a sparse refpt the phase of the full lattice", func() {
			lat := preset("ring")
			full, err := analyzer.ComputeOptics(lat, 0, lat.AllRefpts(), false)
			Expect(err).NotTo(HaveOccurred())
			sparse, err := analyzer.ComputeOptics(lat, 0, []int{40, lat.Len()}, false)
			Expect(err).NotTo(HaveOccurred())

			Expect(sparse.Records).To(HaveLen(2))
			for i, idx := range []int{40, lat.Len()} {
				Expect(sparse.Records[i].Index).To(Equal(idx))
				for p := 0; p < 2; p++ {
					Expect(sparse.Records[i].Mu[p]).To(BeNumerically("~", full.Records[idx].Mu[p], 1e-9))
					Expect(sparse.Records[i].Beta[p]).To(BeNumerically("~", full.Records[idx].Beta[p], 1e-9))
				}
			}
		})
	})

	Context("chromatic effects", func() {
		It("finds negative natural chromaticity in a FODO cell", func() {
			res, err := analyzer.ComputeOptics(preset("fodo"), 0, nil, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Chromaticity).NotTo(BeNil())
			Expect(res.Chromaticity[0]).To(BeNumerically("<", 0))
			Expect(res.Chromaticity[1]).To(BeNumerically("<", 0))
			Expect(res.Records[0].Dispersion[0]).To(BeNumerically("~", 0, 1e-6))
		})

		It("raises horizontal chromaticity with the ring sextupoles", func() {
			lat := preset("ring")
			corrected, err := analyzer.ComputeOptics(lat, 0, nil, true)
			Expect(err).NotTo(HaveOccurred())

			for i := range lat.Elements {
				if lat.Elements[i].FamName == "SF" || lat.Elements[i].FamName == "SD" {
					lat.Elements[i].PolynomB[2] = 0
				}
			}
			lat.Touch()
			natural, err := analyzer.ComputeOptics(lat, 0, nil, true)
			Expect(err).NotTo(HaveOccurred())

			Expect(natural.Chromaticity[0]).To(BeNumerically("<", 0))
			Expect(natural.Chromaticity[1]).To(BeNumerically("<", 0))
			Expect(corrected.Chromaticity[0]).To(BeNumerically(">", natural.Chromaticity[0]))
		})

		It("has horizontal dispersion in the ring and none vertically", func() {
			lat := preset("ring")
			res, err := analyzer.ComputeOptics(lat, 0, []int{0, 2}, true)
			Expect(err).NotTo(HaveOccurred())

			d := res.Records[1].DispersionXY()
			Expect(d[0]).To(BeNumerically("~", 2.965, 0.01))
			Expect(d[1]).To(BeNumerically("~", 0, 1e-6))
		})
	})

	Context("closed orbit off momentum", func() {
		It("is a fixed point of the one-turn map", func() {
			lat := preset("ring")
			delta := 1e-3
			res, err := analyzer.FindClosedOrbit(lat, delta, []int{0, lat.Len()})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue())

			tr := tracking.New()
			out, err := tr.Track(lat, []accel.PhaseVector{accel.NewPhaseVector(res.Orbit, delta)}, accel.TrackOptions{Turns: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.At(0, 0, 0).Transverse().Sub(res.Orbit).Norm()).To(BeNumerically("<", 1e-10))
			Expect(res.AtRefpts[1].Sub(res.AtRefpts[0]).Norm()).To(BeNumerically("<", 1e-10))
		})

		It("fails when a probe hits the aperture", func() {
			lat := preset("ring")
			Expect(lat.Elements[1].PassMethod).To(Equal("AperturePass"))
			lat.Elements[1].SetParam(accel.AttrXMin, -1e-9)
			lat.Elements[1].SetParam(accel.AttrXMax, 1e-9)
			lat.Touch()

			_, err := analyzer.FindClosedOrbit(lat, 0, nil)
			Expect(err).To(MatchError(optics.ErrParticleLost))
		})
	})
})
