// Package lattice reads and writes YAML lattice descriptions and provides
// a set of built-in lattices.
//
// A lattice file lists elements in beam order:
//
//	name: fodo
//	elements:
//	  - name: QF
//	    pass_method: QuadLinearPass
//	    params: {Length: 0.2, K: 1.2}
//	  - name: D1
//	    pass_method: DriftPass
//	    params: {Length: 1.0}
package lattice
