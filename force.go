package bmm

import "math"

// ambientEps is the CREEPING ambient law's viscous-sink coefficient: force
// is scaled by (1 - ambientEps) every step.
const ambientEps = 1e-2

// Simulation is the mutable aggregate exclusively owned by the main loop:
// particle state, link state, the neighbor cache, and the configuration
// they were built from. No other component holds a reference to it; the
// snapshot writer only borrows it for the duration of one comm() call.
type Simulation struct {
	Opts    Options
	Part    *ParticleStore
	Links   *LinkStore
	Cache   *NeighborCache
	Sampler Sampler
	Logger  Logger
}

// NewSimulation allocates a particle store, link store, and neighbor cache
// sized from opts.
func NewSimulation(opts Options, sampler Sampler, logger Logger) *Simulation {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Simulation{
		Opts:    opts,
		Part:    NewParticleStore(opts.Capacity),
		Links:   NewLinkStore(opts.Capacity, opts.Link.Capacity),
		Cache:   NewNeighborCache(opts.Neigh, opts.Box, opts.Per, opts.Capacity),
		Sampler: sampler,
		Logger:  logger,
	}
}

// AddParticle appends a particle and marks the cache stale, per the
// lifecycle rule that every add/remove invalidates the cache.
func (s *Simulation) AddParticle(role Role, radius, mass float64) (int, bool) {
	i, ok := s.Part.Add(role, radius, mass)
	if ok {
		s.Cache.MarkStale()
	}
	return i, ok
}

// RemoveParticle removes particle i via swap-with-last, reconciles the
// link store's cross-references (see LinkStore.FixupAfterRemove), and
// marks the cache stale.
func (s *Simulation) RemoveParticle(i int) {
	moved := s.Part.Remove(i)
	if moved < 0 {
		// i was the last slot: nothing moved in, but its own bonds and the
		// bonds pointing at it still have to go.
		moved = i
	}
	s.Links.FixupAfterRemove(i, moved)
	s.Cache.MarkStale()
}

// ForceStep clears every active particle's accumulators and runs the four
// passes in the mandated order: ambient, pair contacts, cohesive bonds,
// external driving. Ordering is a strict sequence; pair contacts must
// traverse the cached half-mask order so that the exact floating-point
// accumulation sequence matches the source's.
func (s *Simulation) ForceStep(stage Stage) {
	s.Part.ClearAllForces()
	s.forceAmbient()
	s.forcePairContacts()
	s.forceLinks()
	s.forceExternal(stage)
}

func (s *Simulation) forceAmbient() {
	n := s.Part.N()
	switch s.Opts.Famb {
	case AmbientCreeping:
		for i := 0; i < n; i++ {
			f := s.Part.Force(i)
			s.Part.f[0][i] = f[0] * (1 - ambientEps)
			s.Part.f[1][i] = f[1] * (1 - ambientEps)
		}
	case AmbientQuad, AmbientCorr:
		// Reserved for future drag laws; identity until specified.
	}
}

func (s *Simulation) forcePairContacts() {
	n := s.Part.N()
	box, per := s.Opts.Box, s.Opts.Per
	if s.Opts.Neigh.Caching == CachingNone {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				s.applyPair(i, j, box, per)
			}
		}
		return
	}
	for i := 0; i < n; i++ {
		for _, j := range s.Cache.Neighbors(i) {
			s.applyPair(i, j, box, per)
		}
	}
}

func (s *Simulation) applyPair(i, j int, box [NDim]float64, per [NDim]bool) {
	p := s.Part
	xi, xj := p.Position(i), p.Position(j)
	dx := CpDiff(xj, xi, box, per)
	d := Norm(dx)
	rsum := p.r[i] + p.r[j]
	if d == 0 || d > rsum {
		return
	}

	nhat := Scale(dx, 1/d)
	that := Rperp(nhat)

	overlap := rsum - d
	dv := Diff(p.Velocity(i), p.Velocity(j))
	rate := Dot(dv, nhat)
	vt := Dot(dv, that) + p.r[i]*p.omega[i] + p.r[j]*p.omega[j]

	var fn float64
	switch s.Opts.Fnorm {
	case NormalDashpot:
		fn = s.Opts.Part.Young*overlap + s.Opts.Gamma*rate
		if fn < 0 {
			fn = 0
		}
	}

	var ft float64
	switch s.Opts.Ftang {
	case TangentialHW:
		cap := s.Opts.Mu * fn
		mag := s.Opts.GammaT * math.Abs(vt)
		if mag > cap {
			mag = cap
		}
		ft = -math.Copysign(mag, vt)
		if vt == 0 {
			ft = 0
		}
	}

	p.AddForce(i, Scale(nhat, -fn))
	p.AddForce(j, Scale(nhat, fn))
	p.AddForce(i, Scale(that, ft))
	p.AddForce(j, Scale(that, -ft))

	// Open question preserved verbatim from the source: both endpoints
	// receive the torque with the SAME sign, not the action-reaction
	// opposite sign a naive reading of r x F would suggest. This keeps
	// contact and bond torque conventions consistent; it is the source's
	// observable behavior, not a bug we get to fix here.
	p.tau[i] += ft * p.r[i]
	p.tau[j] += ft * p.r[j]
}

func (s *Simulation) forceLinks() {
	switch s.Opts.Flink {
	case LinkBeam:
		s.forceLinksBeam()
	}
}

func (s *Simulation) forceLinksBeam() {
	p := s.Part
	ktens := s.Opts.Link.Ktens
	kshear := s.Opts.Link.Kshear
	box, per := s.Opts.Box, s.Opts.Per

	for i := 0; i < p.N(); i++ {
		k := 0
		for k < s.Links.Count(i) {
			b := s.Links.Bond(i, k)
			j := b.J

			xi, xj := p.Position(i), p.Position(j)
			dx := CpDiff(xj, xi, box, per)
			d := Norm(dx)
			theta := Dir(dx)

			dphiI := (p.phi[i] - theta) - b.Phirest[0]
			dphiJ := (p.phi[j] - (theta + math.Pi)) - b.Phirest[1]

			if math.Abs(d-b.Rrest) > b.Rlim || math.Abs(dphiI) > b.Philim || math.Abs(dphiJ) > b.Philim {
				s.Logger.Infof("link broke: %d-%d (d=%.6g rrest=%.6g rlim=%.6g)", i, j, d, b.Rrest, b.Rlim)
				s.Links.Break(i, k)
				continue
			}

			var nhat Vec2
			if d > 0 {
				nhat = Scale(dx, 1/d)
			}
			fn := -ktens * (d - b.Rrest)
			p.AddForce(i, Scale(nhat, -fn))
			p.AddForce(j, Scale(nhat, fn))

			p.tau[i] += -kshear * dphiI
			p.tau[j] += -kshear * dphiJ

			k++
		}
	}
}

func (s *Simulation) forceExternal(stage Stage) {
	p := s.Part
	box := s.Opts.Box
	switch stage.Mode {
	case StageSediment:
		kcohes := stage.Params[0]
		for i := 0; i < p.N(); i++ {
			p.f[1][i] += kcohes * (box[1]/2 - p.x[1][i])
		}
	case StageCrunch, StageSmash:
		// Stage-specific velocity targets and gap-opening forces on FIXED
		// and DRIVEN particles; Params[0] is the target axis-1 velocity,
		// Params[1] the drive stiffness pulling toward it.
		target := stage.Params[0]
		kdrive := stage.Params[1]
		for i := 0; i < p.N(); i++ {
			if p.role[i] != RoleFixed && p.role[i] != RoleDriven {
				continue
			}
			p.f[1][i] += kdrive * (target - p.v[1][i])
		}
	case StageIdle, StageBegin, StageCreate, StageLink, StageMeasure, StageAccel, StageFault, StageSeparate:
		// No external force.
	}
}
