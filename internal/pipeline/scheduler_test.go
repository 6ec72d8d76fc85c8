package pipeline

import (
	"testing"

	"github.com/example/go-pico-tts/internal/ring"
	"github.com/stretchr/testify/require"
)

// scriptedStage returns results from a fixed script, one per Step call,
// repeating the last entry once exhausted.
type scriptedStage struct {
	script []StepResult
	calls  int
}

func (s *scriptedStage) Initialize(ResetMode) error { return nil }
func (s *scriptedStage) Terminate()                 {}
func (s *scriptedStage) Step(StepMode) StepResult {
	i := s.calls
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.calls++

	return s.script[i]
}

func newRings(n int) []*ring.Ring {
	rs := make([]*ring.Ring, n)
	for i := range rs {
		rs[i] = ring.New(make([]byte, 32))
	}

	return rs
}

func TestTickBusyAdvancesFocusDownstream(t *testing.T) {
	a := &scriptedStage{script: []StepResult{Busy}}
	b := &scriptedStage{script: []StepResult{Idle}}

	sched := NewScheduler([]Stage{a, b}, ring.New(make([]byte, 8)), newRings(1), ring.New(make([]byte, 8)), nil)

	r := sched.Tick(Normal)
	require.Equal(t, Busy, r)
	require.Equal(t, 1, sched.CurrentStage())
	require.Equal(t, Busy, sched.LastStatus(1))
}

func TestTickAtomicHoldsFocus(t *testing.T) {
	a := &scriptedStage{script: []StepResult{Atomic}}

	sched := NewScheduler([]Stage{a}, ring.New(nil), nil, ring.New(nil), nil)

	require.Equal(t, Atomic, sched.Tick(Normal))
	require.Equal(t, 0, sched.CurrentStage())
}

func TestTickIdleAdvancesWhenDownstreamBusy(t *testing.T) {
	a := &scriptedStage{script: []StepResult{Idle}}
	b := &scriptedStage{script: []StepResult{Idle}}

	sched := NewScheduler([]Stage{a, b}, ring.New(nil), newRings(1), ring.New(nil), nil)
	sched.lastStatus[1] = Busy // simulate b having just produced output

	r := sched.Tick(Normal)
	require.Equal(t, Idle, r)
	require.Equal(t, 1, sched.CurrentStage())
}

func TestTickIdleWalksBackToUpstreamNonIdle(t *testing.T) {
	a := &scriptedStage{script: []StepResult{Busy}}
	b := &scriptedStage{script: []StepResult{Idle}}

	sched := NewScheduler([]Stage{a, b}, ring.New(nil), newRings(1), ring.New(nil), nil)

	require.Equal(t, Busy, sched.Tick(Normal)) // advances to stage 1, lastStatus[0]=Busy
	require.Equal(t, Idle, sched.Tick(Normal))  // stage 1 idle, no downstream, walks back to 0
	require.Equal(t, 0, sched.CurrentStage())
}

func TestTickAllIdleReturnsIdle(t *testing.T) {
	a := &scriptedStage{script: []StepResult{Idle}}

	sched := NewScheduler([]Stage{a}, ring.New(nil), nil, ring.New(nil), nil)

	require.Equal(t, Idle, sched.Tick(Normal))
	require.Equal(t, 0, sched.CurrentStage())
}

func TestTickOutFullAdvancesToDrain(t *testing.T) {
	a := &scriptedStage{script: []StepResult{OutFull}}
	b := &scriptedStage{script: []StepResult{Idle}}

	sched := NewScheduler([]Stage{a, b}, ring.New(nil), newRings(1), ring.New(nil), nil)

	r := sched.Tick(Normal)
	require.Equal(t, OutFull, r)
	require.Equal(t, 1, sched.CurrentStage())
}

func TestTickOutFullNoDownstreamReturnsToCaller(t *testing.T) {
	a := &scriptedStage{script: []StepResult{OutFull}}

	sched := NewScheduler([]Stage{a}, ring.New(nil), nil, ring.New(nil), nil)

	require.Equal(t, OutFull, sched.Tick(Normal))
	require.Equal(t, 0, sched.CurrentStage())
}

func TestTickErrorPropagates(t *testing.T) {
	a := &scriptedStage{script: []StepResult{Error}}

	sched := NewScheduler([]Stage{a}, ring.New(nil), nil, ring.New(nil), nil)

	require.Equal(t, Error, sched.Tick(Normal))
}

func TestResetReinitializesStagesAndRings(t *testing.T) {
	a := &scriptedStage{script: []StepResult{Idle}}
	r1 := ring.New(make([]byte, 8))
	r1.PutCh('x')

	sched := NewScheduler([]Stage{a}, ring.New(nil), []*ring.Ring{r1}, ring.New(nil), nil)
	sched.curPU = 0

	require.NoError(t, sched.Reset(Full))
	require.True(t, r1.Empty())
	require.Equal(t, 0, sched.CurrentStage())
}
