package bmm

import "testing"

func TestParticleAddAssignsLabelsAndDefaults(t *testing.T) {
	s := NewParticleStore(4)
	i, ok := s.Add(RoleFree, 0.1, 1.0)
	if !ok || i != 0 {
		t.Fatalf("expected first add to succeed at index 0, got i=%d ok=%v", i, ok)
	}
	if s.Label(i) != 0 {
		t.Fatalf("expected first label to be 0, got %d", s.Label(i))
	}
	if s.jred[i] != 0.5 {
		t.Fatalf("expected jred = 1/2 for a 2D disk, got %v", s.jred[i])
	}
	j, ok := s.Add(RoleFree, 0.1, 1.0)
	if !ok || s.Label(j) != 1 {
		t.Fatalf("expected second label to be 1, got %d", s.Label(j))
	}
}

func TestParticleAddFailsAtCapacity(t *testing.T) {
	s := NewParticleStore(2)
	if _, ok := s.Add(RoleFree, 0.1, 1.0); !ok {
		t.Fatalf("expected add to succeed")
	}
	if _, ok := s.Add(RoleFree, 0.1, 1.0); !ok {
		t.Fatalf("expected add to succeed")
	}
	if _, ok := s.Add(RoleFree, 0.1, 1.0); ok {
		t.Fatalf("expected add to fail at capacity")
	}
	if s.N() != 2 {
		t.Fatalf("expected n=2, got %d", s.N())
	}
}

func TestParticleRemoveSwapsWithLast(t *testing.T) {
	s := NewParticleStore(4)
	a, _ := s.Add(RoleFree, 0.1, 1.0)
	_, _ = s.Add(RoleFree, 0.2, 2.0)
	c, _ := s.Add(RoleFree, 0.3, 3.0)

	lastLabel := s.Label(c)
	moved := s.Remove(a)
	if moved != c {
		t.Fatalf("expected Remove to report last index %d moved, got %d", c, moved)
	}
	if s.N() != 2 {
		t.Fatalf("expected n=2 after remove, got %d", s.N())
	}
	if s.Label(a) != lastLabel {
		t.Fatalf("expected slot 0 to now carry the former last particle's label %d, got %d", lastLabel, s.Label(a))
	}
}

func TestParticleRemoveLastIsNoSwap(t *testing.T) {
	s := NewParticleStore(4)
	_, _ = s.Add(RoleFree, 0.1, 1.0)
	last, _ := s.Add(RoleFree, 0.2, 2.0)
	moved := s.Remove(last)
	if moved != -1 {
		t.Fatalf("expected no swap reported when removing the last slot, got %d", moved)
	}
	if s.N() != 1 {
		t.Fatalf("expected n=1, got %d", s.N())
	}
}

func TestKineticEnergyZeroAtRest(t *testing.T) {
	s := NewParticleStore(1)
	s.Add(RoleFree, 0.05, 1.0)
	if ke := s.KineticEnergy(); ke != 0 {
		t.Fatalf("expected zero kinetic energy at rest, got %v", ke)
	}
}
