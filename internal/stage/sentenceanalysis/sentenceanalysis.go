// Package sentenceanalysis implements the pipeline's fourth stage (spec
// §4.9): POS-disambiguating spans of words bounded by Punc items, so a
// single unambiguous POS replaces each word's POS set. Grounded on the
// span-disambiguation contract as consumed via picoctrl.c's PU chain and
// picodata.h's item types; the real disambiguation model is linguistic
// content out of spec.md's scope (§1), so Disambiguator here picks
// deterministically (lowest-valued bit) rather than claiming statistical
// fidelity.
package sentenceanalysis

import (
	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
	"github.com/example/go-pico-tts/internal/stage/tokenizer"
)

// Stage is the sentence-analysis pipeline.Stage implementation.
type Stage struct {
	in, out *ring.Ring
	reg     *except.Registry

	span  []item.Item
	queue []item.Item
}

// New builds a sentence-analysis stage.
func New(in, out *ring.Ring, reg *except.Registry) *Stage {
	return &Stage{in: in, out: out, reg: reg}
}

var _ pipeline.Stage = (*Stage)(nil)

func (s *Stage) Initialize(pipeline.ResetMode) error {
	s.span = nil
	s.queue = nil

	return nil
}

func (s *Stage) Terminate() {
	s.span = nil
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
	case item.WordIndex, item.WordGraph:
		s.span = append(s.span, it)

	case item.Punc:
		s.flushSpan()
		s.queue = append(s.queue, it)

	case item.Cmd:
		switch tokenizer.CmdKind(it.Info1) {
		case tokenizer.CmdFlush, tokenizer.CmdSentence:
			// A flush or sentence command closes the current span the
			// same way terminal punctuation does: without this, text
			// with no Punc item (spec §8 S2's unpunctuated "hi\0") would
			// strand its buffered words in s.span forever, and no Phone
			// item would ever reach the cepstral stage downstream.
			s.flushSpan()
		}
		s.queue = append(s.queue, it)

	default:
		s.queue = append(s.queue, it)
	}
}

// flushSpan disambiguates every word buffered since the last boundary,
// emitting each as a WordIndex whose Info1 is a single POS bit position
// rather than a set.
func (s *Stage) flushSpan() {
	for _, p := range s.span {
		var wi item.Item
		wi.Set(item.WordIndex, disambiguate(p.Info1), 0, p.PayloadBytes())
		s.queue = append(s.queue, wi)
	}

	s.span = s.span[:0]
}

// disambiguate picks the lowest-valued bit of a POS-set bitmask as the
// word's resolved part of speech.
func disambiguate(mask byte) byte {
	for bit := byte(0); bit < 8; bit++ {
		if mask&(1<<bit) != 0 {
			return bit
		}
	}

	return 0
}
