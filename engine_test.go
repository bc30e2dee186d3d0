package bmm

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/tuplanolla/bmm/wire"
)

// TestScriptCompletion is scenario S6: a two-stage script should end with
// ongoing() false and the stage index at len(stages), having emitted the
// expected number of snapshot bundles.
func TestScriptCompletion(t *testing.T) {
	opts := DefaultOptions()
	opts.Capacity = 4
	opts.DtComm = 0.05
	opts.Script = []Stage{
		{Tspan: 0.1, Dt: 0.001, Mode: StageIdle},
		{Tspan: 0.1, Dt: 0.001, Mode: StageSediment, Params: [4]float64{1.0}},
	}

	var sink bytes.Buffer
	eng := NewEngine(opts, &sink, NewSampler(1), nil, nil)

	if err := eng.Run(); err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if eng.Script.Ongoing() {
		t.Fatalf("expected script to have ended")
	}
	if eng.Script.Index != len(opts.Script) {
		t.Fatalf("expected stage index %d, got %d", len(opts.Script), eng.Script.Index)
	}

	totalTspan := 0.0
	for _, stage := range opts.Script {
		totalTspan += stage.Tspan
	}
	want := int(math.Ceil(totalTspan / opts.DtComm))
	got := countIsteps(t, sink.Bytes())
	if got != want {
		t.Fatalf("expected %d snapshot bundles, got %d", want, got)
	}
}

// countIsteps walks a sink's recorded byte stream and counts how many
// ISTEP records it contains, skipping each record's payload by its
// header-declared size.
func countIsteps(t *testing.T, data []byte) int {
	t.Helper()
	r := bytes.NewReader(data)
	count := 0
	for {
		kind, err := wire.ReadNum(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected message-kind read error: %v", err)
		}
		spec, err := wire.ReadSpec(r)
		if err != nil {
			t.Fatalf("unexpected header read error: %v", err)
		}
		if _, err := io.CopyN(io.Discard, r, int64(spec.Size)); err != nil {
			t.Fatalf("unexpected payload read error: %v", err)
		}
		if kind == wire.Istep {
			count++
		}
	}
	return count
}

// TestCellOverflowSurfacesFatal is scenario S5: placing more particles in
// one cell than NGROUP permits must cause the build (and therefore the
// step) to fail, and the main loop must surface that as an error.
func TestCellOverflowSurfacesFatal(t *testing.T) {
	opts := DefaultOptions()
	opts.Capacity = 8
	opts.Neigh.NGroup = 2
	opts.Neigh.Ncell = [NDim]int{5, 5}
	opts.Script = []Stage{{Tspan: 1.0, Dt: 0.01, Mode: StageIdle}}

	eng := NewEngine(opts, nil, NewSampler(1), nil, nil)
	for k := 0; k < 3; k++ {
		i, ok := eng.Sim.AddParticle(RoleFree, 0.01, 1.0)
		if !ok {
			t.Fatalf("expected add to succeed")
		}
		eng.Sim.Part.SetPosition(i, Vec2{0.5, 0.5})
	}

	if err := eng.Run(); err == nil {
		t.Fatalf("expected cell overflow to surface as a fatal error")
	}
}

// TestDriftEstimatePrecedenceQuirk guards the open-question precedence
// quirk verbatim: the division must bind outside math.Min, not inside it.
func TestDriftEstimatePrecedenceQuirk(t *testing.T) {
	opts := DefaultOptions()
	opts.Capacity = 1
	opts.DtComm = 0.2
	opts.Box = [NDim]float64{1.0, 1.0}
	eng := NewEngine(opts, nil, NewSampler(1), nil, nil)
	i, _ := eng.Sim.AddParticle(RoleFree, 0.1, 1.0)
	eng.Sim.Part.SetVelocity(i, Vec2{2.0, 0.0})

	got := eng.DriftEstimate()
	a := math.Min(opts.Box[0], opts.Box[1])
	want := math.Min(opts.DtComm, a-0.1) / (2.0 + 0.01)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

// TestCoefficientOfRestitutionTwoBodyRebound is scenario S2: two particles
// closing head-on under the dashpot normal law should rebound with a
// coefficient of restitution in (0, 1], the damping term bleeding off some
// but not all of the closing speed.
func TestCoefficientOfRestitutionTwoBodyRebound(t *testing.T) {
	opts := DefaultOptions()
	opts.Capacity = 2
	opts.Neigh.Caching = CachingNone
	opts.Per = [NDim]bool{false, false}
	opts.Famb = AmbientQuad
	opts.Mu = 0
	opts.GammaT = 0
	opts.Part.Young = 1e3
	sim := NewSimulation(opts, NewSampler(1), nil)

	i, _ := sim.AddParticle(RoleFree, 0.05, 1.0)
	j, _ := sim.AddParticle(RoleFree, 0.05, 1.0)
	sim.Part.SetPosition(i, Vec2{0.3, 0.5})
	sim.Part.SetPosition(j, Vec2{0.7, 0.5})
	sim.Part.SetVelocity(i, Vec2{1.0, 0.0})
	sim.Part.SetVelocity(j, Vec2{-1.0, 0.0})

	nhat := Vec2{1.0, 0.0}
	rsum := 0.1
	dt := 1e-4

	var vBefore, vAfter [2]Vec2
	contact := false
	for step := 0; step < 20000; step++ {
		d := Norm(Diff(sim.Part.Position(j), sim.Part.Position(i)))
		if !contact && d <= rsum {
			vBefore[0], vBefore[1] = sim.Part.Velocity(i), sim.Part.Velocity(j)
			contact = true
		}
		sim.ForceStep(Stage{Mode: StageIdle})
		if err := sim.Integrate(dt); err != nil {
			t.Fatalf("unexpected integrate error: %v", err)
		}
		if contact {
			if d2 := Norm(Diff(sim.Part.Position(j), sim.Part.Position(i))); d2 > rsum {
				vAfter[0], vAfter[1] = sim.Part.Velocity(i), sim.Part.Velocity(j)
				break
			}
		}
	}
	if !contact {
		t.Fatalf("particles never made contact")
	}

	cor := CoefficientOfRestitution(vBefore[0], vBefore[1], vAfter[0], vAfter[1], nhat)
	if cor <= 0 || cor > 1.0001 {
		t.Fatalf("expected coefficient of restitution in (0, 1], got %v", cor)
	}
}

func TestSignalLatchInterruptsRun(t *testing.T) {
	opts := DefaultOptions()
	opts.Capacity = 1
	opts.Script = []Stage{{Tspan: 10.0, Dt: 0.01, Mode: StageIdle}}

	sig := &SignalLatch{}
	sig.Set()
	eng := NewEngine(opts, nil, NewSampler(1), nil, sig)

	err := eng.Run()
	if err == nil {
		t.Fatalf("expected interrupted error")
	}
}
