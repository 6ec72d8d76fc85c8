// Package tokenizer implements the pipeline's first stage (spec §4.7): a
// UTF-8 decode loop with inline markup-tag interpretation, grounded on
// original_source/pico/lib/picotok.c's token-type classification
// (PICODATA_ITEMINFO1_TOKTYPE_LETTER/SPACE/UNDEFINED/...) and tag
// dispatch table.
package tokenizer

import (
	"unicode"
	"unicode/utf8"

	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/resource"
	"github.com/example/go-pico-tts/internal/ring"
)

// CharClass is the character-class lattice of spec §4.7, folding
// LetterWithVariant into Letter at classification time as the original
// does (picotok.c's PICODATA_ITEMINFO1_TOKTYPE_LETTERV collapse).
type CharClass byte

const (
	Undefined CharClass = iota
	Letter
	Digit
	Sequence
	Space
	Char
)

// CmdKind enumerates the markup tag handlers of spec §4.7.
type CmdKind byte

const (
	CmdVolume CmdKind = iota + 1
	CmdPitch
	CmdSpeed
	CmdSpeaker
	CmdVoice
	CmdPreprocContext
	CmdMark
	CmdPlay
	CmdUseSig
	CmdGenFile
	CmdSentence
	CmdParagraph
	CmdBreak
	CmdSpell
	CmdPhoneme
	CmdItem
	CmdIgnore
	CmdFlush
)

// CmdPhase distinguishes a tag's open/close/standalone form.
type CmdPhase byte

const (
	PhaseStart CmdPhase = iota
	PhaseEnd
	PhaseStandalone
)

var tagNames = map[string]CmdKind{
	"volume":         CmdVolume,
	"pitch":          CmdPitch,
	"speed":          CmdSpeed,
	"speaker":        CmdSpeaker,
	"voice":          CmdVoice,
	"preproccontext": CmdPreprocContext,
	"mark":           CmdMark,
	"play":           CmdPlay,
	"usesig":         CmdUseSig,
	"genfile":        CmdGenFile,
	"sentence":       CmdSentence,
	"paragraph":      CmdParagraph,
	"break":          CmdBreak,
	"spell":          CmdSpell,
	"phoneme":        CmdPhoneme,
	"item":           CmdItem,
	"ignore":         CmdIgnore,
}

// maxRunLen keeps one accumulated token's payload within item.MaxPayloadLen.
const maxRunLen = item.MaxPayloadLen

// Stage is the tokenizer's pipeline.Stage implementation.
type Stage struct {
	in  *ring.Ring
	out *ring.Ring
	reg *except.Registry

	runBuf   []byte
	runClass CharClass

	utf8buf []byte

	inMarkup bool
	tagBuf   []byte
	inQuote  byte // 0 if not inside a quoted attribute value
	escaped  bool

	eolRun int

	queue []item.Item
}

// New builds a tokenizer stage reading raw bytes from in and writing
// Token/Cmd/Other items to out. voice is accepted for symmetry with the
// other stages' constructors; the tokenizer's classification table is a
// fixed mechanism rather than a voice-supplied one (spec §1 scopes
// linguistic content out).
func New(in, out *ring.Ring, _ *resource.Voice, reg *except.Registry) *Stage {
	return &Stage{in: in, out: out, reg: reg}
}

var _ pipeline.Stage = (*Stage)(nil)

func (s *Stage) Initialize(pipeline.ResetMode) error {
	s.runBuf = s.runBuf[:0]
	s.runClass = Undefined
	s.utf8buf = s.utf8buf[:0]
	s.inMarkup = false
	s.tagBuf = s.tagBuf[:0]
	s.inQuote = 0
	s.escaped = false
	s.eolRun = 0
	s.queue = nil

	return nil
}

func (s *Stage) Terminate() {
	s.runBuf = nil
	s.utf8buf = nil
	s.tagBuf = nil
	s.queue = nil
}

// Step advances the tokenizer by one unit of work: either draining one
// queued item to cb_out, or consuming one input byte (spec §4.5/§4.7).
func (s *Stage) Step(pipeline.StepMode) pipeline.StepResult {
	if len(s.queue) > 0 {
		return s.drainQueue()
	}

	b, sig := s.in.GetCh()
	if sig == ring.Eof {
		return pipeline.Idle
	}

	s.utf8buf = append(s.utf8buf, b)

	r, size := utf8.DecodeRune(s.utf8buf)
	if r == utf8.RuneError && size <= 1 {
		// DecodeRune can't distinguish "invalid byte" from "valid lead
		// byte awaiting continuation bytes" with only a short prefix in
		// hand; give it up to utf8.UTFMax bytes to resolve before
		// declaring the sequence malformed.
		if len(s.utf8buf) >= utf8.UTFMax {
			s.reg.RaiseWarning(except.IrregularItemDiscarded, "malformed utf-8 sequence discarded")
			s.utf8buf = s.utf8buf[:0]
		}

		return pipeline.Busy
	}

	s.utf8buf = s.utf8buf[:0]
	s.consumeRune(r)

	return pipeline.Busy
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

func (s *Stage) consumeRune(r rune) {
	if s.inMarkup {
		s.consumeMarkupRune(r)

		return
	}

	if r == 0 {
		s.flushRun()
		s.enqueue(CmdFlush, PhaseStandalone, nil)

		return
	}

	if r == '<' {
		s.flushRun()
		s.inMarkup = true
		s.tagBuf = append(s.tagBuf[:0], '<')

		return
	}

	s.trackEOL(r)
	s.appendToRun(r)
}

func (s *Stage) trackEOL(r rune) {
	if r == '\n' {
		s.eolRun++
		if s.eolRun == 2 {
			s.flushRun()
			s.enqueue(CmdSentence, PhaseStandalone, nil)
			s.eolRun = 0
		}

		return
	}
	if r != '\r' {
		s.eolRun = 0
	}
}

func (s *Stage) appendToRun(r rune) {
	class := classify(r)
	if class != s.runClass && len(s.runBuf) > 0 {
		s.flushRun()
	}

	s.runClass = class
	if len(s.runBuf)+utf8.RuneLen(r) <= maxRunLen {
		s.runBuf = utf8.AppendRune(s.runBuf, r)
	} else {
		s.flushRun()
		s.runBuf = utf8.AppendRune(s.runBuf, r)
	}
}

// flushRun emits the accumulated run as a Token item, upgrading an
// all-digit run of more than one rune to Sequence (spec §4.7's Sequence
// class; the original's precise digit/seq/char grammar is linguistic
// content out of scope per spec.md §1, so this is the mechanism, not a
// claim of fidelity).
func (s *Stage) flushRun() {
	if len(s.runBuf) == 0 {
		return
	}

	class := s.runClass
	if class == Digit && utf8.RuneCountInString(string(s.runBuf)) > 1 {
		class = Sequence
	}

	var it item.Item
	it.Set(item.Token, byte(class), 0, s.runBuf)
	s.queue = append(s.queue, it)

	s.runBuf = s.runBuf[:0]
	s.runClass = Undefined
}

func classify(r rune) CharClass {
	switch {
	case unicode.IsLetter(r):
		return Letter
	case unicode.IsDigit(r):
		return Digit
	case unicode.IsSpace(r):
		return Space
	case unicode.IsPunct(r), unicode.IsSymbol(r):
		return Char
	default:
		return Undefined
	}
}

func (s *Stage) enqueue(kind CmdKind, phase CmdPhase, payload []byte) {
	var it item.Item
	it.Set(item.Cmd, byte(kind), byte(phase), payload)
	s.queue = append(s.queue, it)
}
