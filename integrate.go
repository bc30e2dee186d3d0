package bmm

import "math"

// Integrate advances every active particle by one Euler step of size dt:
// a <- f/m, v <- v + a*dt, x <- x + v*dt (wrapped for periodic
// dimensions), then alpha <- tau/j, phi <- phi + omega*dt,
// omega <- omega + alpha*dt. IntegGear is a reserved, unsupported
// selector; the source stubs its predictor/corrector and so does this.
func (s *Simulation) Integrate(dt float64) error {
	switch s.Opts.Integ {
	case IntegEuler:
		s.integrateEuler(dt)
		return nil
	case IntegGear:
		return newFatal("integrate", ErrUnsupported)
	default:
		return newFatal("integrate", ErrUnsupported)
	}
}

func (s *Simulation) integrateEuler(dt float64) {
	p := s.Part
	box, per := s.Opts.Box, s.Opts.Per
	for i := 0; i < p.N(); i++ {
		for d := 0; d < NDim; d++ {
			p.a[d][i] = p.f[d][i] / p.m[i]
			p.v[d][i] += p.a[d][i] * dt
			p.x[d][i] += p.v[d][i] * dt
			if per[d] {
				p.x[d][i] = Uwrap(p.x[d][i], box[d])
			}
		}
		p.alpha[i] = p.tau[i] / p.j[i]
		p.phi[i] += p.omega[i] * dt
		p.omega[i] += p.alpha[i] * dt
	}
}

// Stabilize wraps every active particle's angle back into [0, 2*pi) to
// prevent unbounded growth of the angular coordinate. Called every istab
// steps, not every step.
func (s *Simulation) Stabilize() {
	p := s.Part
	for i := 0; i < p.N(); i++ {
		p.phi[i] = Uwrap(p.phi[i], 2*math.Pi)
	}
}
