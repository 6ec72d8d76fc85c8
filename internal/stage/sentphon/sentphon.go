// Package sentphon implements the pipeline's sixth stage (spec §4.9):
// applying finite-state transducers on the {phonemes, POS, phrase-types,
// accent-levels} planes to turn each WordPhon into one or more SyllPhon
// runs carrying a per-syllable accent level. Grounded on
// original_source/pico/lib/picospho.h's FST-application contract; a real
// trained FST is linguistic content out of spec.md's scope (§1), so
// Splitter here is a minimal but real vowel-run syllabifier, not a claim
// of phonological fidelity.
package sentphon

import (
	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
)

var vowels = map[byte]bool{
	'a': true, 'e': true, 'i': true, 'o': true, 'u': true, 'y': true,
	'A': true, 'E': true, 'I': true, 'O': true, 'U': true, 'Y': true,
}

// syllabify splits word into syllables at each vowel run's end, the
// minimal mechanism standing in for a trained grapheme syllabifier.
func syllabify(word string) []string {
	if word == "" {
		return nil
	}

	var syllables []string
	start := 0
	inVowel := vowels[word[0]]

	for i := 1; i < len(word); i++ {
		v := vowels[word[i]]
		if inVowel && !v {
			syllables = append(syllables, word[start:i])
			start = i
		}
		inVowel = v
	}
	syllables = append(syllables, word[start:])

	return syllables
}

// Stage is the sentence-phonemes pipeline.Stage implementation.
type Stage struct {
	in, out *ring.Ring
	reg     *except.Registry

	queue []item.Item
}

// New builds a sentphon stage.
func New(in, out *ring.Ring, reg *except.Registry) *Stage {
	return &Stage{in: in, out: out, reg: reg}
}

var _ pipeline.Stage = (*Stage)(nil)

func (s *Stage) Initialize(pipeline.ResetMode) error {
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

// process applies the FST stand-in: a WordPhon's POS plane (Info1) and
// accent-level plane (Info2) are carried onto every syllable it expands
// into, with the accent mark itself landing only on the first syllable
// (spec §4.9's "per-syllable accent").
func (s *Stage) process(it item.Item) {
	if it.Type != item.WordPhon {
		s.queue = append(s.queue, it)

		return
	}

	pos := it.Info1
	accented := it.Info2 != 0
	syllables := syllabify(string(it.PayloadBytes()))

	for i, syll := range syllables {
		accent := byte(0)
		if i == 0 && accented {
			accent = 1
		}

		var sp item.Item
		sp.Set(item.SyllPhon, accent, pos, []byte(syll))
		s.queue = append(s.queue, sp)
	}
}
