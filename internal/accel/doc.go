// Package accel provides the shared records of a circular accelerator lattice.
//
// The package defines the data exchanged between the tracker and the optics
// analysis:
//
//   - [PhaseVector]: 6-D particle coordinates (x, px, y, py, δ, ct)
//   - [Orbit4]: transverse part of a closed orbit at fixed δ
//   - [Matrix44]: linear transverse transfer matrix
//   - [Element] and [Lattice]: the ring description
//   - [Tracker]: capability that advances particles through a lattice
//
// # Reference points
//
// A reference point (refpt) i denotes the entrance of element i. The index
// len(lattice) denotes the end of the last element:
//
//	lat := accel.NewLattice("ring", elems)
//	s, _ := lat.SPos([]int{0, lat.Len()}) // s[1] is the circumference
//
// # Thread Safety
//
// Lattices are read-only during tracking and analysis and may be shared
// between goroutines. Mutating an element requires calling [Lattice.Touch]
// so that trackers rebuild any cached setup.
package accel
