// Package pipeline implements the cooperative nine-stage scheduler of spec
// §4.5/§4.6: a single-threaded Control PU that repeatedly steps one stage
// at a time, never blocking and never spawning a goroutine.
package pipeline

// ResetMode selects how deeply Reset clears a stage's state (spec §6).
type ResetMode int

const (
	// Full discards all in-flight work and re-binds knowledge bases from
	// the voice.
	Full ResetMode = 0
	// Soft is a flush: input/output buffers are discarded but derived
	// state (accumulated prosody context, the engine's sub-arena) survives.
	Soft ResetMode = 16
)

func (m ResetMode) String() string {
	switch m {
	case Full:
		return "Full"
	case Soft:
		return "Soft"
	default:
		return "ResetMode(?)"
	}
}

// StepMode is passed to Stage.Step. It carries no state of its own today;
// it exists as a distinct type so stages never confuse it with StepResult
// (spec §4.5 keeps the two enums separate even though the base case has a
// single mode).
type StepMode int

// Normal is the only StepMode a caller currently has reason to pass.
const Normal StepMode = 0

// StepResult is the outcome of one Stage.Step call (spec §3).
type StepResult int

const (
	// Idle means the stage had no input and no pending work.
	Idle StepResult = iota
	// Busy means the stage made progress and may be rescheduled.
	Busy
	// Atomic means the stage is mid-way through an indivisible multi-item
	// emission and must be rescheduled immediately without moving focus.
	Atomic
	// OutFull means the stage's output ring could not accept produced
	// data; a downstream stage must drain before this one can continue.
	OutFull
	// Error means the stage hit an unrecoverable condition; the scheduler
	// surfaces this to the caller without guessing a reset.
	Error
)

func (r StepResult) String() string {
	switch r {
	case Idle:
		return "Idle"
	case Busy:
		return "Busy"
	case Atomic:
		return "Atomic"
	case OutFull:
		return "OutFull"
	case Error:
		return "Error"
	default:
		return "StepResult(?)"
	}
}

// Stage is the processing-unit protocol every pipeline stage implements
// (spec §4.5). Initialize may be called any number of times between
// construction and destruction; Step never blocks and always returns one
// of the five StepResult values; Terminate releases any stage-owned state
// before the stage is discarded or re-initialized.
type Stage interface {
	Initialize(mode ResetMode) error
	Step(mode StepMode) StepResult
	Terminate()
}
