// Package tracking propagates particles through a lattice element by element.
//
// A [Tracker] looks up each element's PassMethod in a [Registry] and builds
// one [Integrator] per element. The built integrators are cached and reused
// across calls when the caller passes the Reuse hint and the lattice
// identity and revision are unchanged.
//
// Bundled pass methods:
//
//   - IdentityPass: markers and monitors
//   - DriftPass: field-free drift
//   - QuadLinearPass: thick linear quadrupole
//   - BendLinearPass: sector bend with edge focusing
//   - ThinMPolePass: thin multipole kick
//   - StrMPoleSymplectic4Pass: thick multipole, 4th order drift-kick integrator
//   - CorrectorPass: drift with steering kick
//   - AperturePass: rectangular aperture, lost particles become NaN
//   - Matrix66Pass: arbitrary 6x6 linear map
//
// # Usage
//
//	tr := tracking.New()
//	out, err := tr.Track(lat, particles, accel.TrackOptions{Turns: 1})
//
// Tracker instances are NOT thread-safe; give each goroutine its own.
package tracking
