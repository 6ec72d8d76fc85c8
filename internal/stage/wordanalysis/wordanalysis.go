// Package wordanalysis implements the pipeline's third stage (spec §4.9):
// for each word-shaped Token, consult the lexicon; on hit emit WordIndex
// with one POS per lexical match, on miss emit WordGraph annotated with a
// decision-tree-predicted POS set. Grounded on original_source/pico/lib/
// picowa.h's word-analysis contract; the lexicon and decision tree formats
// are linguistic content out of spec.md's scope (§1), so Lexicon and
// DecisionList here are a minimal but real lookup mechanism.
package wordanalysis

import (
	"strings"

	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
	"github.com/example/go-pico-tts/internal/stage/tokenizer"
)

// POS is a part-of-speech bit position (0-7) within the POS-set bitmask
// carried in a WordIndex/WordGraph item's Info1 (spec §4.9's "POS set").
// Both item types carry the word's original text in Payload; Type alone
// signals lexicon hit (WordIndex) vs. miss (WordGraph).
type POS byte

// sentencePunct is the set of Token(Char) runs treated as sentence-level
// punctuation, promoted to Punc items so downstream stages have the
// span boundaries spec §4.9 assumes.
var sentencePunct = map[string]bool{
	".": true, "!": true, "?": true, ",": true, ";": true, ":": true,
}

// Lexicon maps a lowercased word to the POS set its lexical entry carries.
type Lexicon struct {
	entries map[string][]POS
}

// NewLexicon builds a Lexicon from word/POS-list pairs, as loaded from a
// voice's word-analysis knowledge base.
func NewLexicon(entries map[string][]POS) *Lexicon {
	m := make(map[string][]POS, len(entries))
	for k, v := range entries {
		m[strings.ToLower(k)] = v
	}

	return &Lexicon{entries: m}
}

func (l *Lexicon) lookup(word string) ([]POS, bool) {
	if l == nil {
		return nil, false
	}
	v, ok := l.entries[strings.ToLower(word)]

	return v, ok
}

// DecisionRule predicts a POS set for a lexicon miss from the word's
// suffix, sorted longest-suffix-first by the caller (NewDecisionList
// does the sorting).
type DecisionRule struct {
	Suffix string
	Set    POS
}

// DecisionList is the fallback predictor consulted when the lexicon has
// no entry for a word: a longest-suffix-match table, the minimal real
// substitute for a trained decision tree (spec §1 scopes the real model
// out).
type DecisionList struct {
	rules    []DecisionRule
	fallback POS
}

// NewDecisionList sorts rules by descending suffix length so the most
// specific suffix wins ties.
func NewDecisionList(fallback POS, rules []DecisionRule) *DecisionList {
	sorted := make([]DecisionRule, len(rules))
	copy(sorted, rules)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && len(sorted[j].Suffix) > len(sorted[j-1].Suffix); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	return &DecisionList{rules: sorted, fallback: fallback}
}

func (d *DecisionList) predict(word string) POS {
	if d == nil {
		return 0
	}

	lower := strings.ToLower(word)
	for _, r := range d.rules {
		if strings.HasSuffix(lower, r.Suffix) {
			return r.Set
		}
	}

	return d.fallback
}

// Stage is the word-analysis pipeline.Stage implementation.
type Stage struct {
	in, out  *ring.Ring
	reg      *except.Registry
	lexicon  *Lexicon
	decision *DecisionList

	queue []item.Item
}

// New builds a word-analysis stage. lexicon and decision may be nil, in
// which case every word-shaped token is treated as a lexicon miss with
// POS set 0.
func New(in, out *ring.Ring, lexicon *Lexicon, decision *DecisionList, reg *except.Registry) *Stage {
	return &Stage{in: in, out: out, lexicon: lexicon, decision: decision, reg: reg}
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

func (s *Stage) process(it item.Item) {
	if it.Type != item.Token {
		s.queue = append(s.queue, it)

		return
	}

	class := tokenizer.CharClass(it.Info1)
	word := string(it.PayloadBytes())

	if class == tokenizer.Char && sentencePunct[word] {
		var punc item.Item
		punc.Set(item.Punc, word[0], 0, nil)
		s.queue = append(s.queue, punc)

		return
	}

	if class != tokenizer.Letter {
		s.queue = append(s.queue, it)

		return
	}

	if posList, ok := s.lexicon.lookup(word); ok {
		var mask byte
		for _, p := range posList {
			mask |= 1 << byte(p)
		}

		var wi item.Item
		wi.Set(item.WordIndex, mask, 0, it.PayloadBytes())
		s.queue = append(s.queue, wi)

		return
	}

	predicted := s.decision.predict(word)

	var wg item.Item
	wg.Set(item.WordGraph, byte(predicted), 0, it.PayloadBytes())
	s.queue = append(s.queue, wg)
}
