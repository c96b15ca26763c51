// Package optics computes the linear optics of a circular lattice.
//
// The analysis runs bottom-up on top of an [accel.Tracker]:
//
//   - [Analyzer.FindClosedOrbit]: 4-D closed orbit by Newton-Raphson on
//     finite-difference Jacobians, solved in the least-squares sense
//   - [Analyzer.FindTransferMatrix]: one-turn and segment 4x4 matrices by
//     central differences around the closed orbit
//   - [Analyzer.ComputeOptics]: beta, alpha, phase advance and tune per
//     plane, plus optional chromaticity and dispersion
//
// # Usage
//
//	a := optics.NewAnalyzer(tracking.New())
//	res, err := a.ComputeOptics(lat, 0, lat.AllRefpts(), true)
//	if errors.Is(err, optics.ErrUnstable) {
//	    // no periodic solution in at least one plane
//	}
//
// An Analyzer drives a single tracker and inherits its concurrency
// limits: use one Analyzer per goroutine.
package optics
