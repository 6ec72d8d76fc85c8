// Package preproc implements the pipeline's second stage (spec §4.9):
// rewriting Token(Digit/Sequence/Char) runs into Token(LetterV) runs via a
// substitution table, forwarding everything else unchanged. Grounded on
// original_source/pico/lib/picopr.h's preprocessing contract; the actual
// substitution rules are linguistic content out of scope (spec.md §1), so
// Table here is a minimal but real byte-range lookup, not a claim of
// linguistic fidelity.
package preproc

import (
	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
	"github.com/example/go-pico-tts/internal/stage/tokenizer"
)

// Rule rewrites a run's raw bytes into replacement text, keyed by the
// token's info1 class (spec §4.7's CharClass).
type Rule struct {
	Class   byte
	Replace map[string]string
}

// Table is the substitution table a voice's preproc knowledge base
// supplies, keyed by class.
type Table struct {
	rules map[byte]map[string]string
}

// NewTable builds a Table from rules; later rules for the same class
// override earlier ones with the same key.
func NewTable(rules []Rule) *Table {
	t := &Table{rules: make(map[byte]map[string]string)}
	for _, r := range rules {
		m, ok := t.rules[r.Class]
		if !ok {
			m = make(map[string]string)
			t.rules[r.Class] = m
		}
		for k, v := range r.Replace {
			m[k] = v
		}
	}

	return t
}

// rewrite returns the replacement for raw under class, or raw unchanged
// with ok=false if no rule applies.
func (t *Table) rewrite(class byte, raw string) (string, bool) {
	m, ok := t.rules[class]
	if !ok {
		return raw, false
	}
	v, ok := m[raw]

	return v, ok
}

// Stage is the preproc pipeline.Stage implementation.
type Stage struct {
	in, out *ring.Ring
	reg     *except.Registry
	table   *Table

	pending *item.Item
	hasItem bool
}

// New builds a preproc stage. table may be nil, in which case every
// token passes through unchanged.
func New(in, out *ring.Ring, table *Table, reg *except.Registry) *Stage {
	return &Stage{in: in, out: out, table: table, reg: reg}
}

var _ pipeline.Stage = (*Stage)(nil)

func (s *Stage) Initialize(pipeline.ResetMode) error {
	s.hasItem = false
	s.pending = nil

	return nil
}

func (s *Stage) Terminate() {
	s.pending = nil
	s.hasItem = false
}

func (s *Stage) Step(pipeline.StepMode) pipeline.StepResult {
	if !s.hasItem {
		var it item.Item
		if sig := s.in.GetItem(&it); sig != ring.Ok {
			return pipeline.Idle
		}

		s.transform(&it)
		s.pending = &it
		s.hasItem = true
	}

	if sig := s.out.PutItem(s.pending); sig != ring.Ok {
		return pipeline.OutFull
	}

	s.hasItem = false
	s.pending = nil

	return pipeline.Busy
}

// transform rewrites Token items whose class has a table entry into
// Token(LetterV); every other item (including a Token with no matching
// rule) passes through unchanged, per spec §4.9.
func (s *Stage) transform(it *item.Item) {
	if it.Type != item.Token || s.table == nil {
		return
	}

	switch tokenizer.CharClass(it.Info1) {
	case tokenizer.Digit, tokenizer.Sequence, tokenizer.Char:
		raw := string(it.PayloadBytes())
		if repl, ok := s.table.rewrite(it.Info1, raw); ok {
			it.Set(item.Token, byte(tokenizer.Letter), it.Info2, []byte(repl))
		}
	}
}
