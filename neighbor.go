package bmm

// NeighborCache bounds pairwise force evaluation from O(n^2) to O(n*k) by
// binning particles into a uniform grid and deriving, per particle, a
// half-Moore-masked neighbor list filtered by a cutoff radius. It carries
// a staleness flag and a position snapshot from the last build, so the
// engine can detect drift without rebuilding every step. Grounded on the
// bucket/query shape of a spatial hash grid, generalized with the
// staleness and half-mask bookkeeping the source's cache requires.
type NeighborCache struct {
	opts NeighOptions
	box  [NDim]float64
	per  [NDim]bool

	stale bool

	cacheX [NDim][]float64
	ijcell [][NDim]int
	icell  []int

	cellParts map[int][]int
	neigh     [][]int
}

// NewNeighborCache allocates a cache sized for up to mpart particles.
func NewNeighborCache(opts NeighOptions, box [NDim]float64, per [NDim]bool, mpart int) *NeighborCache {
	c := &NeighborCache{opts: opts, box: box, per: per, stale: true}
	for d := 0; d < NDim; d++ {
		c.cacheX[d] = make([]float64, mpart)
	}
	c.ijcell = make([][NDim]int, mpart)
	c.icell = make([]int, mpart)
	c.cellParts = make(map[int][]int)
	c.neigh = make([][]int, mpart)
	for i := range c.neigh {
		c.neigh[i] = make([]int, 0, c.neighCapacity())
	}
	return c
}

// neighCapacity is NGROUP * 3^NDim / 2, the per-particle neighbor-list
// bound named in the data model. The product is taken before the integer
// division, so for NDim=2 this is NGROUP*9/2 (144 for NGROUP=32).
func (c *NeighborCache) neighCapacity() int {
	pow := 1
	for d := 0; d < NDim; d++ {
		pow *= 3
	}
	return c.opts.NGroup * pow / 2
}

// MarkStale flags the cache for a full rebuild on the next RebuildIfNeeded
// call. Called by the particle store wrapper on every Add/Remove.
func (c *NeighborCache) MarkStale() { c.stale = true }

// Stale reports the raw stale flag, independent of drift-based expiry.
func (c *NeighborCache) Stale() bool { return c.stale }

// Neighbors returns particle i's neighbor list from the last build. The
// slice is owned by the cache and must not be retained across a rebuild.
func (c *NeighborCache) Neighbors(i int) []int { return c.neigh[i] }

func (c *NeighborCache) cellIndexOf(x Vec2) [NDim]int {
	var ij [NDim]int
	for d := 0; d < NDim; d++ {
		n := c.opts.Ncell[d]
		v := int(x[d] * float64(n-1) / c.box[d])
		if v < 0 {
			v = 0
		}
		if v > n-1 {
			v = n - 1
		}
		ij[d] = v
	}
	return ij
}

// halfMooreOffsets returns the fixed half-neighborhood used to avoid
// double-counting pairs: the cell itself, plus every offset vector that is
// lexicographically greater than the zero vector. For 2D this is 5 of the
// 9 Moore cells: (0,0), (1,-1), (1,0), (1,1), (0,1).
func halfMooreOffsets() [][NDim]int {
	offsets := make([][NDim]int, 0, 5)
	for d0 := -1; d0 <= 1; d0++ {
		for d1 := -1; d1 <= 1; d1++ {
			off := [NDim]int{d0, d1}
			if off[0] > 0 || (off[0] == 0 && off[1] >= 0) {
				offsets = append(offsets, off)
			}
		}
	}
	return offsets
}

// Build performs a full rebuild: cell assignment, per-cell binning, and
// per-particle neighbor-list construction via the half-Moore mask. On
// overflow it returns a fatal error and leaves the cache in a partially
// rebuilt (and therefore still logically stale) state.
func (c *NeighborCache) Build(part *ParticleStore) error {
	n := part.N()

	for i := 0; i < n; i++ {
		for d := 0; d < NDim; d++ {
			c.cacheX[d][i] = part.x[d][i]
		}
		ij := c.cellIndexOf(part.Position(i))
		c.ijcell[i] = ij
		c.icell[i] = Unhc(ij[:], c.opts.Ncell[:])
	}

	for k := range c.cellParts {
		delete(c.cellParts, k)
	}
	for i := 0; i < n; i++ {
		cell := c.icell[i]
		list := c.cellParts[cell]
		if len(list) >= c.opts.NGroup {
			return newFatal("neighbor cache build", ErrCellOverflow)
		}
		c.cellParts[cell] = append(list, i)
	}

	offsets := halfMooreOffsets()
	for i := 0; i < n; i++ {
		c.neigh[i] = c.neigh[i][:0]
	}
	for i := 0; i < n; i++ {
		ij := c.ijcell[i]
		for _, off := range offsets {
			var nij [NDim]int
			skip := false
			for d := 0; d < NDim; d++ {
				v := ij[d] + off[d]
				nd := c.opts.Ncell[d]
				if c.per[d] {
					_, v = QuotInt(v, nd)
				} else if v < 0 || v >= nd {
					skip = true
					break
				}
				nij[d] = v
			}
			if skip {
				continue
			}
			cell := Unhc(nij[:], c.opts.Ncell[:])
			for _, j := range c.cellParts[cell] {
				if !c.eligible(i, j, part) {
					continue
				}
				if len(c.neigh[i]) >= c.neighCapacity() {
					return newFatal("neighbor cache build", ErrNeighOverflow)
				}
				c.neigh[i] = append(c.neigh[i], j)
			}
		}
	}

	c.stale = false
	return nil
}

func (c *NeighborCache) eligible(i, j int, part *ParticleStore) bool {
	if c.icell[i] == c.icell[j] && j <= i {
		return false
	}
	d2 := CpDist2(part.Position(i), part.Position(j), c.box, c.per)
	return d2 <= c.opts.Rcutoff*c.opts.Rcutoff
}

// Expired reports whether any particle has drifted far enough since the
// last build that it might have crossed more than one cell: the drift is
// compared against the safe margin dx_d = box[d] / (2*(ncell[d]-2)) minus
// the particle's own radius, and reaching it (>=) counts as expired. It
// does not consult the stale flag; callers
// combine the two per the rebuild policy (stale OR expired).
func (c *NeighborCache) Expired(part *ParticleStore) bool {
	n := part.N()
	for d := 0; d < NDim; d++ {
		nd := c.opts.Ncell[d]
		dx := c.box[d] / (2 * float64(nd-2))
		for i := 0; i < n; i++ {
			drift := Swrap(part.x[d][i]-c.cacheX[d][i], c.box[d])
			if drift < 0 {
				drift = -drift
			}
			if drift >= dx-part.r[i] {
				return true
			}
		}
	}
	return false
}

// RebuildIfNeeded runs Build when the cache is stale or expired, per the
// rebuild policy: "if stale OR expired() then rebuild" at the start of
// every step. The bool result reports whether a rebuild actually ran, so
// callers can log rebuild cost without recomputing the stale/expired
// check themselves.
func (c *NeighborCache) RebuildIfNeeded(part *ParticleStore) (bool, error) {
	if c.stale || c.Expired(part) {
		return true, c.Build(part)
	}
	return false, nil
}
