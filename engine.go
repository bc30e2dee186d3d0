package bmm

import (
	"bytes"
	"io"
	"math"

	"github.com/google/uuid"

	"github.com/tuplanolla/bmm/wire"
)

// Engine wires the simulation aggregate, the script driver, the signal
// latch, and the snapshot sink into the single-threaded main loop
// described by the concurrency and resource model: the engine is the sole
// owner of the Simulation, and the sink only ever borrows it for the
// duration of one Comm call.
type Engine struct {
	Sim    *Simulation
	Script *ScriptState
	Signal *SignalLatch
	Sink   io.Writer
	RunID  uuid.UUID

	t         float64
	stepCount int
	commTprev float64
	createRan map[int]bool
}

// NewEngine constructs an Engine from options, a snapshot sink, and an
// optional sampler/logger/signal latch (nil selects the stdlib-backed
// defaults). A fresh run id is minted so a downstream consumer replaying
// multiple runs' message streams can tell them apart; when no logger is
// supplied, a DefaultLogger tagged with that run id is built so stage
// transitions and link breaks are actually reported rather than silently
// discarded. Cache rebuilds are logged at debug level, which that default
// logger leaves switched off.
func NewEngine(opts Options, sink io.Writer, sampler Sampler, logger Logger, sig *SignalLatch) *Engine {
	if sampler == nil {
		sampler = NewSampler(1)
	}
	runID := uuid.New()
	if logger == nil {
		logger = NewDefaultLogger(runID.String(), false)
	}
	if sig == nil {
		sig = &SignalLatch{}
	}
	return &Engine{
		Sim:       NewSimulation(opts, sampler, logger),
		Script:    NewScriptState(opts.Script, logger),
		Signal:    sig,
		Sink:      sink,
		RunID:     runID,
		createRan: make(map[int]bool),
	}
}

// Time returns the current simulated time.
func (e *Engine) Time() float64 { return e.t }

// StepCount returns the number of integration steps taken so far.
func (e *Engine) StepCount() int { return e.stepCount }

// Run executes the main loop: while the signal latch is clear and the
// script is ongoing, call Comm then Trans; if Trans ends the script,
// stop; otherwise Step and repeat. Returns ErrInterrupted (wrapped) if a
// termination signal was observed, or any fatal error surfaced by a step.
func (e *Engine) Run() error {
	for !e.Signal.Latched() && e.Script.Ongoing() {
		if err := e.Comm(); err != nil {
			return err
		}
		if !e.Script.Trans(e.t) {
			break
		}
		if err := e.Step(); err != nil {
			return err
		}
	}
	if e.Signal.Latched() {
		return newFatal("run", ErrInterrupted)
	}
	return nil
}

// Step runs exactly one integration step using the current stage's dt:
// rebuild the neighbor cache if needed, predict (a no-op under Euler),
// accumulate forces, correct (Euler integration), and stabilize every
// istab steps.
func (e *Engine) Step() error {
	stage := e.Script.Current()

	if stage.Mode == StageCreate && !e.createRan[e.Script.Index] {
		if err := e.runCreate(stage); err != nil {
			return err
		}
		e.createRan[e.Script.Index] = true
	}
	// createRan is keyed by stage index, so it also records that a LINK
	// stage's single bonding pass has run.
	if stage.Mode == StageLink && !e.createRan[e.Script.Index] {
		e.runLink(stage)
		e.createRan[e.Script.Index] = true
	}

	rebuilt, err := e.Sim.Cache.RebuildIfNeeded(e.Sim.Part)
	if err != nil {
		return err
	}
	if rebuilt {
		e.Sim.Logger.Debugf("neighbor cache rebuilt at step %d (t=%.6g)", e.stepCount, e.t)
	}

	e.Sim.ForceStep(stage)

	if err := e.Sim.Integrate(stage.Dt); err != nil {
		return err
	}

	e.stepCount++
	if e.Sim.Opts.Istab > 0 && e.stepCount%e.Sim.Opts.Istab == 0 {
		e.Sim.Stabilize()
	}
	e.t += stage.Dt
	return nil
}

// Comm emits a snapshot bundle (ISTEP, NEIGH, PARTS) when at least dt_comm
// of simulated time has elapsed since the last emission.
func (e *Engine) Comm() error {
	if e.Sink == nil {
		return nil
	}
	toff := e.t - e.commTprev - e.Sim.Opts.DtComm
	if toff < 0 {
		return nil
	}
	if err := e.writeIstep(); err != nil {
		return err
	}
	if err := e.writeNeigh(); err != nil {
		return err
	}
	if err := e.writeParts(); err != nil {
		return err
	}
	e.commTprev = e.t
	return nil
}

// writeRecord emits kind's one-byte tag, an SP header whose Size is the
// payload's byte length, and then the payload itself, to Sink.
func (e *Engine) writeRecord(kind wire.MsgKind, payload []byte) error {
	if err := wire.WriteNum(e.Sink, kind); err != nil {
		return newFatal("comm", ErrSinkWrite)
	}
	spec := wire.Spec{Endian: wire.Little, Tag: wire.SP, Size: uint64(len(payload))}
	if err := wire.WriteSpec(e.Sink, spec); err != nil {
		return newFatal("comm", ErrSinkWrite)
	}
	if len(payload) > 0 {
		if _, err := e.Sink.Write(payload); err != nil {
			return newFatal("comm", ErrSinkWrite)
		}
	}
	return nil
}

// writeIstep emits the step index and the current simulated time.
func (e *Engine) writeIstep() error {
	var buf bytes.Buffer
	sink := wire.NewSink(&buf)
	if err := sink.PutUint64(uint64(e.stepCount), wire.Little); err != nil {
		return newFatal("comm", ErrSinkWrite)
	}
	if err := sink.PutFloat64(e.t, wire.Little); err != nil {
		return newFatal("comm", ErrSinkWrite)
	}
	return e.writeRecord(wire.Istep, buf.Bytes())
}

// writeNeigh emits, per active particle, its half-mask cache neighbor
// list followed by its owned cohesive-bond partner list.
func (e *Engine) writeNeigh() error {
	var buf bytes.Buffer
	sink := wire.NewSink(&buf)
	n := e.Sim.Part.N()
	if err := sink.PutUint32(uint32(n), wire.Little); err != nil {
		return newFatal("comm", ErrSinkWrite)
	}
	for i := 0; i < n; i++ {
		neigh := e.Sim.Cache.Neighbors(i)
		if err := sink.PutUint32(uint32(len(neigh)), wire.Little); err != nil {
			return newFatal("comm", ErrSinkWrite)
		}
		for _, j := range neigh {
			if err := sink.PutUint32(uint32(j), wire.Little); err != nil {
				return newFatal("comm", ErrSinkWrite)
			}
		}
		nlink := e.Sim.Links.Count(i)
		if err := sink.PutUint32(uint32(nlink), wire.Little); err != nil {
			return newFatal("comm", ErrSinkWrite)
		}
		for k := 0; k < nlink; k++ {
			if err := sink.PutUint32(uint32(e.Sim.Links.Bond(i, k).J), wire.Little); err != nil {
				return newFatal("comm", ErrSinkWrite)
			}
		}
	}
	return e.writeRecord(wire.Neigh, buf.Bytes())
}

// writeParts emits the full particle table, one row per active particle,
// in the field order role, label, radius, mass, jred, x, v, a, phi,
// omega, alpha, f, tau.
func (e *Engine) writeParts() error {
	var buf bytes.Buffer
	sink := wire.NewSink(&buf)
	p := e.Sim.Part
	n := p.N()
	if err := sink.PutUint32(uint32(n), wire.Little); err != nil {
		return newFatal("comm", ErrSinkWrite)
	}
	for i := 0; i < n; i++ {
		if err := sink.PutUint8(uint8(p.role[i])); err != nil {
			return newFatal("comm", ErrSinkWrite)
		}
		if err := sink.PutUint64(uint64(p.l[i]), wire.Little); err != nil {
			return newFatal("comm", ErrSinkWrite)
		}
		fields := [...]float64{
			p.r[i], p.m[i], p.jred[i],
			p.x[0][i], p.x[1][i],
			p.v[0][i], p.v[1][i],
			p.a[0][i], p.a[1][i],
			p.phi[i], p.omega[i], p.alpha[i],
			p.f[0][i], p.f[1][i],
			p.tau[i],
		}
		for _, v := range fields {
			if err := sink.PutFloat64(v, wire.Little); err != nil {
				return newFatal("comm", ErrSinkWrite)
			}
		}
	}
	return e.writeRecord(wire.Parts, buf.Bytes())
}

// runCreate fills the box with particles row by row, sampling each
// radius uniformly from [Rmin, Rmax], until the accumulated disk area
// reaches the stage's target packing fraction (Params[0]) or a row would
// no longer fit. Grounded on the original implementation's hexagonal-ish
// row-filling creation routine; supplements a CREATE stage the
// distillation left as a black box.
func (e *Engine) runCreate(stage Stage) error {
	targetFrac := stage.Params[0]
	if targetFrac <= 0 {
		return nil
	}
	opts := e.Sim.Opts
	boxArea := opts.Box[0] * opts.Box[1]

	x, y, rowHeight, area := 0.0, 0.0, 0.0, 0.0
	for area/boxArea < targetFrac {
		r := e.Sim.Sampler.Uniform(opts.Part.Rmin, opts.Part.Rmax)
		if x+2*r > opts.Box[0] {
			x = 0
			y += rowHeight
			rowHeight = 0
		}
		if y+2*r > opts.Box[1] {
			break
		}
		mass := math.Pi * r * r
		i, ok := e.Sim.AddParticle(RoleFree, r, mass)
		if !ok {
			break
		}
		e.Sim.Part.SetPosition(i, Vec2{x + r, y + r})
		x += 2 * r
		if 2*r > rowHeight {
			rowHeight = 2 * r
		}
		area += mass
	}
	return nil
}

// runLink attempts a bond between every pair of particles within bonding
// range, once per LINK stage, by an exhaustive scan over all pairs; the
// neighbor cache is not consulted.
func (e *Engine) runLink(stage Stage) {
	n := e.Sim.Part.N()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			e.Sim.Links.TryBond(i, j, e.Sim.Part, e.Sim.Sampler, e.Sim.Opts.Link)
		}
	}
}

// DriftEstimate is a diagnostic supplement to the engine, grounded on the
// original implementation's drift-time estimator. It preserves, verbatim,
// an operator-precedence quirk flagged as an open question rather than
// fixed: the division binds OUTSIDE the min, i.e. this computes
// min(t, A-rad) / (v+0.01), not min(t, (A-rad)/(v+0.01)).
func (e *Engine) DriftEstimate() float64 {
	t := e.Sim.Opts.DtComm
	a := math.Min(e.Sim.Opts.Box[0], e.Sim.Opts.Box[1])
	rad := e.Sim.Part.MaxRadius()
	maxv := e.Sim.Part.MaxVelocityPerAxis()
	v := math.Max(maxv[0], maxv[1])
	return math.Min(t, a-rad) / (v + 0.01)
}

// CoefficientOfRestitution computes the ratio of post- to pre-contact
// normal relative velocity for a pair, negated, matching the source's
// cor() estimator. Supplements a diagnostic named in scenario S2 but not
// otherwise specified by an operation in the data model.
func CoefficientOfRestitution(viBefore, vjBefore, viAfter, vjAfter, nhat Vec2) float64 {
	before := Dot(Diff(viBefore, vjBefore), nhat)
	if before == 0 {
		return 0
	}
	after := Dot(Diff(viAfter, vjAfter), nhat)
	return -after / before
}
