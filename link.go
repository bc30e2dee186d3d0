package bmm

import "math"

// Bond is one cohesive link slot, returned by snapshot and iteration
// helpers; the store itself keeps the fields as parallel per-particle
// slices, per the structure-of-arrays convention used throughout.
type Bond struct {
	J       int
	Rrest   float64
	Phirest [2]float64
	Rlim    float64
	Philim  float64
}

// LinkStore holds per-particle cohesive-bond adjacency lists. A bond
// between i and j is stored exactly once, on the particle with the lower
// index (see TryBond), mirroring the half-neighborhood convention used by
// the neighbor cache.
type LinkStore struct {
	capacity int // NLINK, max bonds per particle.
	n        []int
	j        [][]int
	rrest    [][]float64
	phirest  [][][2]float64
	rlim     [][]float64
	philim   [][]float64
}

// NewLinkStore allocates a link store for up to mpart particles, each
// holding up to capacity (NLINK) bonds.
func NewLinkStore(mpart, capacity int) *LinkStore {
	s := &LinkStore{capacity: capacity}
	s.n = make([]int, mpart)
	s.j = make([][]int, mpart)
	s.rrest = make([][]float64, mpart)
	s.phirest = make([][][2]float64, mpart)
	s.rlim = make([][]float64, mpart)
	s.philim = make([][]float64, mpart)
	for i := range s.j {
		s.j[i] = make([]int, 0, capacity)
		s.rrest[i] = make([]float64, 0, capacity)
		s.phirest[i] = make([][2]float64, 0, capacity)
		s.rlim[i] = make([]float64, 0, capacity)
		s.philim[i] = make([]float64, 0, capacity)
	}
	return s
}

// Count returns the number of bonds owned by particle i.
func (s *LinkStore) Count(i int) int { return s.n[i] }

// Bond returns the k'th bond owned by particle i.
func (s *LinkStore) Bond(i, k int) Bond {
	return Bond{
		J:       s.j[i][k],
		Rrest:   s.rrest[i][k],
		Phirest: s.phirest[i][k],
		Rlim:    s.rlim[i][k],
		Philim:  s.philim[i][k],
	}
}

// TryBond attempts to create a cohesive bond between particles i and j
// using the current positions/angles/radii in part and the link
// parameters in opts. The bond is stored on whichever of i, j has the
// lower index. Capacity exhaustion (link.n[owner] == NLINK) is a
// non-error no-op, per the error-handling design; the return value simply
// reports whether a bond was created.
func (s *LinkStore) TryBond(i, j int, part *ParticleStore, sampler Sampler, opts LinkOptions) bool {
	if i == j {
		return false
	}
	owner, other := i, j
	if owner > other {
		owner, other = other, owner
	}

	xi := part.Position(owner)
	xj := part.Position(other)
	dx := Diff(xj, xi)
	d2 := Norm2(dx)
	rsum := part.r[owner] + part.r[other]
	if d2 > rsum*rsum*opts.Ccrlink {
		return false
	}
	if s.n[owner] >= s.capacity {
		return false
	}

	d := math.Sqrt(d2)
	theta := Dir(dx)
	rrest := d * opts.Cshlink
	phirestOwner := part.phi[owner] - theta
	phirestOther := part.phi[other] - (theta + math.Pi)

	rlim := sampler.Uniform(opts.Crlim[0], opts.Crlim[1]) * rrest
	philim := sampler.Uniform(opts.Cphilim[0], opts.Cphilim[1]) * (2 * math.Pi)

	s.n[owner]++
	s.j[owner] = append(s.j[owner], other)
	s.rrest[owner] = append(s.rrest[owner], rrest)
	s.phirest[owner] = append(s.phirest[owner], [2]float64{phirestOwner, phirestOther})
	s.rlim[owner] = append(s.rlim[owner], rlim)
	s.philim[owner] = append(s.philim[owner], philim)
	return true
}

// UnlinkAll resets every particle's bond count to zero. Idempotent: a
// second call leaves every count at zero.
func (s *LinkStore) UnlinkAll() {
	for i := range s.n {
		s.n[i] = 0
		s.j[i] = s.j[i][:0]
		s.rrest[i] = s.rrest[i][:0]
		s.phirest[i] = s.phirest[i][:0]
		s.rlim[i] = s.rlim[i][:0]
		s.philim[i] = s.philim[i][:0]
	}
}

// Break removes the k'th bond from particle i's list. Exported for the
// force accumulator's cohesive-bond pass, which breaks bonds that exceed
// their tensile or angular strain limits.
func (s *LinkStore) Break(i, k int) {
	s.breakAt(i, k)
}

// breakAt removes the k'th bond from particle i's list by compacting the
// slice with swap-with-last, matching the store's general swap-remove
// convention.
func (s *LinkStore) breakAt(i, k int) {
	last := s.n[i] - 1
	s.j[i][k] = s.j[i][last]
	s.rrest[i][k] = s.rrest[i][last]
	s.phirest[i][k] = s.phirest[i][last]
	s.rlim[i][k] = s.rlim[i][last]
	s.philim[i][k] = s.philim[i][last]

	s.n[i]--
	s.j[i] = s.j[i][:s.n[i]]
	s.rrest[i] = s.rrest[i][:s.n[i]]
	s.phirest[i] = s.phirest[i][:s.n[i]]
	s.rlim[i] = s.rlim[i][:s.n[i]]
	s.philim[i] = s.philim[i][:s.n[i]]
}

// FixupAfterRemove reconciles bond references after the particle store's
// swap-with-last removal moved the particle formerly at index last into
// removed. Per the design note on swap-with-last removal: bonds owned by
// the removed particle are gone (its own row is copied over, following
// the particle's own swap, and then rebuilt from the moved particle's
// row), and any OTHER particle's bond that pointed at removed is broken
// (that endpoint no longer exists) while any bond pointing at last is
// rewritten to removed (that endpoint simply changed index).
func (s *LinkStore) FixupAfterRemove(removed, last int) {
	s.n[removed] = s.n[last]
	s.j[removed] = append(s.j[removed][:0], s.j[last]...)
	s.rrest[removed] = append(s.rrest[removed][:0], s.rrest[last]...)
	s.phirest[removed] = append(s.phirest[removed][:0], s.phirest[last]...)
	s.rlim[removed] = append(s.rlim[removed][:0], s.rlim[last]...)
	s.philim[removed] = append(s.philim[removed][:0], s.philim[last]...)

	s.n[last] = 0
	s.j[last] = s.j[last][:0]
	s.rrest[last] = s.rrest[last][:0]
	s.phirest[last] = s.phirest[last][:0]
	s.rlim[last] = s.rlim[last][:0]
	s.philim[last] = s.philim[last][:0]

	for i := range s.n {
		if i == removed {
			continue
		}
		k := 0
		for k < s.n[i] {
			switch s.j[i][k] {
			case removed:
				s.breakAt(i, k)
				continue
			case last:
				s.j[i][k] = removed
			}
			k++
		}
	}
}
