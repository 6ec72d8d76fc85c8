package pipeline

import (
	"log/slog"

	"github.com/example/go-pico-tts/internal/ring"
)

// Scheduler is the Control PU of spec §4.6: it owns an ordered array of
// stages and the rings between them, and steps exactly one stage per
// Tick call according to the rules below. It never spawns a goroutine;
// all suspension is the caller repeatedly invoking Tick.
type Scheduler struct {
	stages []Stage
	rings  []*ring.Ring // len(stages)-1 intermediate rings; rings[i] sits between stages[i] and stages[i+1]
	head   *ring.Ring
	tail   *ring.Ring

	curPU      int
	lastStatus []StepResult

	log *slog.Logger
}

// NewScheduler builds a scheduler over stages in pipeline order, wired
// through head (external text input), the len(stages)-1 intermediate
// rings, and tail (external PCM output). head and tail are not reset or
// stepped directly by the scheduler; stages read/write them on their own.
func NewScheduler(stages []Stage, head *ring.Ring, rings []*ring.Ring, tail *ring.Ring, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &Scheduler{
		stages:     stages,
		rings:      rings,
		head:       head,
		tail:       tail,
		lastStatus: make([]StepResult, len(stages)),
		log:        log,
	}
}

// NumStages returns the stage count.
func (s *Scheduler) NumStages() int { return len(s.stages) }

// CurrentStage returns the index the next Tick will step.
func (s *Scheduler) CurrentStage() int { return s.curPU }

// LastStatus returns stage i's StepResult as of the most recent Tick that
// stepped it.
func (s *Scheduler) LastStatus(i int) StepResult { return s.lastStatus[i] }

func (s *Scheduler) hasDownstream() bool { return s.curPU+1 < len(s.stages) }

// Tick steps exactly one stage and applies the scheduling rules of spec
// §4.6 steps 1–6, returning the result the caller should react to (the
// engine's scenario tests drive it through Engine.GetData, which repeats
// Tick).
func (s *Scheduler) Tick(mode StepMode) StepResult {
	r := s.stages[s.curPU].Step(mode)
	s.lastStatus[s.curPU] = r

	switch r {
	case Atomic:
		// Focus does not move; caller must tick again immediately.
		return Atomic

	case Busy:
		if s.hasDownstream() {
			s.curPU++
			s.lastStatus[s.curPU] = Busy
		}

		return Busy

	case Idle:
		if s.hasDownstream() && s.lastStatus[s.curPU+1] == Busy {
			s.curPU++

			return Idle
		}

		if i, ok := s.nearestUpstreamNonIdle(); ok {
			s.curPU = i
			s.lastStatus[i] = Busy

			return Idle
		}

		return Idle

	case OutFull:
		if s.hasDownstream() {
			s.curPU++
			s.lastStatus[s.curPU] = Busy

			return OutFull
		}

		return OutFull

	case Error:
		s.log.Warn("stage reported error", "stage", s.curPU)

		return Error

	default:
		return r
	}
}

// nearestUpstreamNonIdle walks backward from curPU looking for the
// nearest stage whose last recorded status was not Idle (spec §4.6 step
// 4: "walk backward to the nearest upstream non-Idle stage").
func (s *Scheduler) nearestUpstreamNonIdle() (int, bool) {
	for i := s.curPU - 1; i >= 0; i-- {
		if s.lastStatus[i] != Idle {
			return i, true
		}
	}

	return 0, false
}

// Run ticks until Idle, OutFull, or Error is returned to the caller
// (Atomic and Busy keep looping internally, matching how a real caller
// would drive the scheduler to a natural stopping point).
func (s *Scheduler) Run(mode StepMode) StepResult {
	for {
		switch r := s.Tick(mode); r {
		case Atomic, Busy:
			continue
		default:
			return r
		}
	}
}

// Reset calls Terminate then Initialize(mode) on every stage in order,
// then Reset on every intermediate ring, and rewinds focus to stage 0
// (spec §4.6 "Reset").
func (s *Scheduler) Reset(mode ResetMode) error {
	for _, st := range s.stages {
		st.Terminate()
	}
	for _, st := range s.stages {
		if err := st.Initialize(mode); err != nil {
			return err
		}
	}
	for _, r := range s.rings {
		r.Reset()
	}

	s.curPU = 0
	for i := range s.lastStatus {
		s.lastStatus[i] = Idle
	}

	return nil
}
