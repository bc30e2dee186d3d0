package bmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStationaryParticleStaysPut is scenario S1: a single particle with
// zero velocity and no neighbors should not move under 100 steps of
// ambient-only forcing, and its kinetic energy should stay at zero.
func TestStationaryParticleStaysPut(t *testing.T) {
	opts := DefaultOptions()
	opts.Capacity = 1
	opts.Box = [NDim]float64{1.0, 1.0}
	opts.Per = [NDim]bool{true, false}
	sim := NewSimulation(opts, NewSampler(1), nil)
	i, _ := sim.AddParticle(RoleFree, 0.05, 1.0)
	sim.Part.SetPosition(i, Vec2{0.5, 0.5})

	dt := 1e-3
	for step := 0; step < 100; step++ {
		sim.ForceStep(Stage{Mode: StageIdle})
		if err := sim.Integrate(dt); err != nil {
			t.Fatalf("unexpected integrate error: %v", err)
		}
	}

	pos := sim.Part.Position(i)
	assert.InDelta(t, 0.5, pos[0], 1e-12)
	assert.InDelta(t, 0.5, pos[1], 1e-12)
	assert.Equal(t, 0.0, sim.Part.KineticEnergy())
}

// TestPeriodicWrapAcrossBoundary is scenario S3: a particle moving in +x
// across a periodic boundary should reappear on the other side.
func TestPeriodicWrapAcrossBoundary(t *testing.T) {
	opts := DefaultOptions()
	opts.Capacity = 1
	opts.Box = [NDim]float64{1.0, 1.0}
	opts.Per = [NDim]bool{true, true}
	opts.Famb = AmbientQuad // avoid the creeping damping touching velocity indirectly
	sim := NewSimulation(opts, NewSampler(1), nil)
	i, _ := sim.AddParticle(RoleFree, 0.01, 1.0)
	sim.Part.SetPosition(i, Vec2{0.99, 0.5})
	sim.Part.SetVelocity(i, Vec2{1.0, 0.0})

	sim.ForceStep(Stage{Mode: StageIdle})
	if err := sim.Integrate(0.02); err != nil {
		t.Fatalf("unexpected integrate error: %v", err)
	}

	pos := sim.Part.Position(i)
	assert.InDelta(t, 0.01, pos[0], 1e-12)
	assert.InDelta(t, 0.5, pos[1], 1e-12)
}

func TestStabilizeWrapsAngle(t *testing.T) {
	sim := newTestSim(1)
	i, _ := sim.AddParticle(RoleFree, 0.05, 1.0)
	sim.Part.phi[i] = 10.0 // well outside [0, 2*pi)
	sim.Stabilize()
	assert.GreaterOrEqual(t, sim.Part.phi[i], 0.0)
	assert.Less(t, sim.Part.phi[i], 2*3.14159265358979)
}
