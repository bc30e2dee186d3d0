package bmm

// Role classifies how a particle responds to external driving forces and
// stage-specific velocity targets.
type Role int

const (
	RoleFree Role = iota
	RoleFixed
	RoleDriven
)

// CachingMode selects whether pair contacts are iterated exhaustively or
// through the neighbor cache.
type CachingMode int

const (
	CachingNone CachingMode = iota
	CachingNeigh
)

// AmbientLaw selects the per-particle ambient drag law applied in pass 1
// of the force accumulator.
type AmbientLaw int

const (
	AmbientCreeping AmbientLaw = iota
	AmbientQuad
	AmbientCorr
)

// NormalLaw selects the pairwise normal contact force law.
type NormalLaw int

const (
	NormalDashpot NormalLaw = iota
)

// TangentialLaw selects the pairwise tangential contact force law.
type TangentialLaw int

const (
	TangentialHW TangentialLaw = iota
)

// LinkLaw selects the cohesive-bond force law.
type LinkLaw int

const (
	LinkBeam LinkLaw = iota
)

// IntegratorLaw selects the time-stepping scheme. IntegGear is reserved:
// the source stubs the Gear predictor/corrector and so does this rewrite.
type IntegratorLaw int

const (
	IntegEuler IntegratorLaw = iota
	IntegGear
)

// StageMode selects the governing law and external-force behavior of one
// script stage.
type StageMode int

const (
	StageIdle StageMode = iota
	StageBegin
	StageCreate
	StageLink
	StageMeasure
	StageSediment
	StageCrunch
	StageSmash
	StageAccel
	StageFault
	StageSeparate
)

// Stage is one ordered tuple in the script: duration, time step, governing
// mode, and mode-specific parameters.
type Stage struct {
	Tspan float64
	Dt    float64
	Mode  StageMode

	// Params carries mode-specific numbers. For StageSediment, Params[0] is
	// kcohes. For StageCreate, Params[0] is the target packing fraction.
	// Unused slots are ignored by modes that do not need them.
	Params [4]float64
}

// MaterialOptions carries per-particle material constants.
type MaterialOptions struct {
	Young float64 // Young's modulus used by the dashpot normal law.
	Rmin  float64
	Rmax  float64
}

// LinkOptions carries the link-creation and bond-strength parameters
// consumed by the link store's TryBond.
type LinkOptions struct {
	Ccrlink  float64    // creation-radius factor.
	Cshlink  float64    // rest-length factor applied to inter-center distance.
	Ktens    float64    // tensile stiffness.
	Kshear   float64    // angular (shear) stiffness.
	Crlim    [2]float64 // breakage tensile-strain limit range, as a factor of rrest.
	Cphilim  [2]float64 // breakage angular-strain limit range, as a factor of 2*pi.
	Capacity int        // NLINK, max bonds per particle.
}

// NeighOptions carries the neighbor grid shape and cutoff.
type NeighOptions struct {
	Ncell   [NDim]int // cell count per dimension.
	Rcutoff float64
	NGroup  int // max particles per cell, and the neighbor-list capacity factor base.
	Caching CachingMode
}

// Options is the simulation's immutable-after-configuration parameter
// block, populated by the configuration collaborator named in the
// external-interfaces section; the engine never parses configuration
// itself.
type Options struct {
	Box [NDim]float64
	Per [NDim]bool

	Integ IntegratorLaw
	Famb  AmbientLaw
	Fnorm NormalLaw
	Ftang TangentialLaw
	Flink LinkLaw

	Gamma  float64 // dashpot normal damping, gamma_n.
	Mu     float64 // Coulomb friction coefficient.
	GammaT float64 // tangential viscous coefficient, gamma_t.

	Part  MaterialOptions
	Link  LinkOptions
	Neigh NeighOptions

	Istab    int // stabilization cadence, in steps.
	DtComm   float64
	Capacity int // MPART, max particle count.

	Script []Stage
}

// DefaultOptions returns the zero-then-overridden defaults grounded on the
// source's bmm_dem_opts_def: unit box, dashpot/HW laws, istab of 1000
// steps, and the tensile/shear/breakage constants used by every scenario
// in the source's own test suite.
func DefaultOptions() Options {
	return Options{
		Box: [NDim]float64{1.0, 1.0},
		Per: [NDim]bool{true, true},

		Integ: IntegEuler,
		Famb:  AmbientCreeping,
		Fnorm: NormalDashpot,
		Ftang: TangentialHW,
		Flink: LinkBeam,

		Gamma:  1.0,
		Mu:     1.0,
		GammaT: 1.0,

		Part: MaterialOptions{
			Young: 1.0,
			Rmin:  0.01,
			Rmax:  0.05,
		},
		Link: LinkOptions{
			Ccrlink:  1.2,
			Cshlink:  0.8,
			Ktens:    1.0,
			Kshear:   1.0,
			Crlim:    [2]float64{1.0, 1.0},
			Cphilim:  [2]float64{1.0, 1.0},
			Capacity: 8,
		},
		Neigh: NeighOptions{
			Ncell:   [NDim]int{5, 5},
			Rcutoff: 1.0,
			NGroup:  32,
			Caching: CachingNeigh,
		},

		Istab:    1000,
		DtComm:   1.0,
		Capacity: 1024,
	}
}
