package accel

// TrackOptions controls a tracking call.
type TrackOptions struct {
	// Turns is the number of revolutions; it must be non-negative.
	Turns int
	// Refpts selects where coordinates are recorded. Empty means only
	// the end of the lattice.
	Refpts []int
	// Reuse asserts that the lattice is unchanged since the previous call
	// on the same tracker, allowing cached element setup to be kept.
	Reuse bool
}

// Tracks holds tracked coordinates indexed as [turn][refpt][particle].
type Tracks [][][]PhaseVector

// At returns the coordinates of particle p at refpt index r after turn t.
func (tr Tracks) At(turn, refpt, particle int) PhaseVector {
	return tr[turn][refpt][particle]
}

// Tracker advances a batch of particles through a lattice.
//
// Implementations may cache per-element setup between calls sharing the
// same lattice identity and revision. They are not required to be safe for
// concurrent use.
type Tracker interface {
	Track(lat *Lattice, particles []PhaseVector, opts TrackOptions) (Tracks, error)
}

// TrackerFunc adapts a plain function to the Tracker interface.
type TrackerFunc func(lat *Lattice, particles []PhaseVector, opts TrackOptions) (Tracks, error)

func (f TrackerFunc) Track(lat *Lattice, particles []PhaseVector, opts TrackOptions) (Tracks, error) {
	return f(lat, particles, opts)
}
