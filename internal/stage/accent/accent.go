// Package accent implements the pipeline's fifth stage (spec §4.9):
// inserting Bound items with strengths in {SBeg, SEnd, Term, Phr1, Phr2,
// Phr3} and types in {P, T, Q, E}, and mutating word-accent marks as each
// disambiguated word becomes a WordPhon. Grounded on
// original_source/pico/lib/picoacph.h's boundary/accent contract; the
// real accent-prediction model is linguistic content out of spec.md's
// scope (§1), so the accent mark assigned here is a minimal but real
// per-word heuristic (stressed iff the word's POS bit is 0), not a claim
// of prosodic fidelity.
package accent

import (
	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
)

// Strength is a boundary strength (spec §4.9).
type Strength byte

const (
	SBeg Strength = iota
	SEnd
	Term
	Phr1
	Phr2
	Phr3
)

// Kind is a boundary type (spec §4.9).
type Kind byte

const (
	KindP Kind = iota // period
	KindT             // non-terminal (comma, semicolon, colon, ...)
	KindQ             // question
	KindE             // exclamation
)

// puncBoundary maps a sentence-punctuation byte to the strength/type
// pair a Bound item carries (Info1 = strength, Info2 = type).
func puncBoundary(b byte) (Strength, Kind) {
	switch b {
	case '.':
		return Term, KindP
	case '!':
		return Term, KindE
	case '?':
		return Term, KindQ
	case ',':
		return Phr1, KindT
	case ';':
		return Phr2, KindT
	case ':':
		return Phr2, KindT
	default:
		return Phr3, KindT
	}
}

// AccentMark is the stress mark mutated onto each WordPhon (spec §4.9's
// "word-accent marks").
type AccentMark byte

const (
	Unstressed AccentMark = iota
	Stressed
)

// Stage is the accent/phrasing pipeline.Stage implementation.
type Stage struct {
	in, out *ring.Ring
	reg     *except.Registry

	atSentenceStart bool
	queue           []item.Item
}

// New builds an accent stage.
func New(in, out *ring.Ring, reg *except.Registry) *Stage {
	return &Stage{in: in, out: out, reg: reg}
}

var _ pipeline.Stage = (*Stage)(nil)

func (s *Stage) Initialize(pipeline.ResetMode) error {
	s.atSentenceStart = true
	s.queue = nil

	return nil
}

func (s *Stage) Terminate() {
	s.queue = nil
}

func (s *Stage) Step(pipeline.StepMode) pipeline.StepResult {
	if len(s.queue) > 0 {
		return s.drainQueue()
	}

	var it item.Item
	if sig := s.in.GetItem(&it); sig != ring.Ok {
		return pipeline.Idle
	}

	s.process(it)

	if len(s.queue) == 0 {
		return pipeline.Busy
	}

	return s.drainQueue()
}

func (s *Stage) drainQueue() pipeline.StepResult {
	it := s.queue[0]
	if sig := s.out.PutItem(&it); sig != ring.Ok {
		return pipeline.OutFull
	}

	s.queue = s.queue[1:]
	if len(s.queue) > 0 {
		return pipeline.Atomic
	}

	return pipeline.Busy
}

func (s *Stage) process(it item.Item) {
	switch it.Type {
	case item.WordIndex:
		s.emitBoundIfSentenceStart()

		mark := Unstressed
		if it.Info1 == 0 {
			mark = Stressed
		}

		var wp item.Item
		wp.Set(item.WordPhon, it.Info1, byte(mark), it.PayloadBytes())
		s.queue = append(s.queue, wp)

	case item.Punc:
		strength, kind := puncBoundary(it.Info1)

		var bound item.Item
		bound.Set(item.Bound, byte(strength), byte(kind), nil)
		s.queue = append(s.queue, bound)

		if strength == Term {
			var end item.Item
			end.Set(item.Bound, byte(SEnd), byte(kind), nil)
			s.queue = append(s.queue, end)
			s.atSentenceStart = true
		}

	default:
		s.queue = append(s.queue, it)
	}
}

// emitBoundIfSentenceStart queues an SBeg Bound before the first WordPhon
// of a sentence, so every sentence's span is explicitly delimited even
// though no upstream Punc precedes the very first word.
func (s *Stage) emitBoundIfSentenceStart() {
	if !s.atSentenceStart {
		return
	}

	var bound item.Item
	bound.Set(item.Bound, byte(SBeg), byte(KindP), nil)
	s.queue = append(s.queue, bound)
	s.atSentenceStart = false
}
