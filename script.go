package bmm

// ScriptState is the script driver's own data: the current stage index,
// the simulated time the current stage began, the time of the last stage
// transition, and a per-stage time-quantization error accumulator
// (Toff[i] is populated only once stage i has ended).
type ScriptState struct {
	Stages     []Stage
	Index      int
	Tprev      float64
	StageStart float64
	Toff       []float64
	Logger     Logger
}

// NewScriptState builds driver state for the given ordered stage list,
// logging every transition through logger (nil selects a no-op logger).
func NewScriptState(stages []Stage, logger Logger) *ScriptState {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &ScriptState{
		Stages: stages,
		Toff:   make([]float64, len(stages)),
		Logger: logger,
	}
}

// Ongoing reports whether the stage index is still within bounds.
func (s *ScriptState) Ongoing() bool {
	return s.Index < len(s.Stages)
}

// Current returns the active stage. Callers must check Ongoing first.
func (s *ScriptState) Current() Stage {
	return s.Stages[s.Index]
}

// Trans advances the stage index if the current stage's duration has
// elapsed at simulated time t, recording the per-stage time-quantization
// error before moving on. Returns whether the script continues.
func (s *ScriptState) Trans(t float64) bool {
	if !s.Ongoing() {
		return false
	}
	from := s.Index
	stage := s.Stages[s.Index]
	if t-s.StageStart >= stage.Tspan {
		toff := (t - s.StageStart) - stage.Tspan
		s.Toff[s.Index] = toff
		s.Tprev = t
		s.Index++
		s.StageStart = t
		if s.Ongoing() {
			s.Logger.Infof("stage %d (mode %d) ended at t=%.6g (quantization error %.6g); entering stage %d (mode %d)",
				from, stage.Mode, t, toff, s.Index, s.Stages[s.Index].Mode)
		} else {
			s.Logger.Infof("stage %d (mode %d) ended at t=%.6g (quantization error %.6g); script complete",
				from, stage.Mode, t, toff)
		}
	}
	return s.Ongoing()
}
