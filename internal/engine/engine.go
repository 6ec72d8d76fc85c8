package engine

import (
	"fmt"

	"github.com/example/go-pico-tts/internal/arena"
	"github.com/example/go-pico-tts/internal/cepstral"
	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/resource"
	"github.com/example/go-pico-tts/internal/ring"
	"github.com/example/go-pico-tts/internal/stage/accent"
	"github.com/example/go-pico-tts/internal/stage/phonmap"
	"github.com/example/go-pico-tts/internal/stage/preproc"
	"github.com/example/go-pico-tts/internal/stage/sentenceanalysis"
	"github.com/example/go-pico-tts/internal/stage/sentphon"
	"github.com/example/go-pico-tts/internal/stage/signal"
	"github.com/example/go-pico-tts/internal/stage/tokenizer"
	"github.com/example/go-pico-tts/internal/stage/wordanalysis"
)

// numStages is the pipeline's fixed stage count (spec §4.5): tokenizer,
// preproc, wordanalysis, sentenceanalysis, accent, sentphon, phonmap,
// cepstral, signal.
const numStages = 9

// DataType is the PCM output's data-type tag (spec §6).
type DataType byte

// PCM16Bit is the only data-type tag get_data ever produces.
const PCM16Bit DataType = 1

// Engine is one system's singleton pipeline instance: the assembled
// stages, the rings threading them, and the engine's own sub-arena and
// exception registry (spec §4.2, §4.5, §6).
type Engine struct {
	system *System
	voice  *resource.Voice
	arena  *arena.Arena
	reg    *except.Registry

	head  *ring.Ring
	tail  *ring.Ring
	rings []*ring.Ring

	stages []pipeline.Stage
	sched  *pipeline.Scheduler

	// pending holds the tail end of a drained Frame's payload that didn't
	// fit in the caller's out buffer on a previous GetData call (spec §8
	// S6: a buffer smaller than one PCM sample pair must still see every
	// byte eventually, never losing or duplicating any of it).
	pending []byte
}

func newEngineFromVoice(sys *System, voice *resource.Voice, sub *arena.Arena, ringBytes int) (*Engine, error) {
	reg := except.New()

	buffers := make([][]byte, numStages+1)
	for i := range buffers {
		addr, err := sub.Allocate(ringBytes)
		if err != nil {
			return nil, fmt.Errorf("engine: ring %d: %w", i, err)
		}
		buffers[i] = sub.Bytes(addr, ringBytes)
	}

	head := ring.New(buffers[0])
	tail := ring.New(buffers[numStages])

	rings := make([]*ring.Ring, numStages-1)
	for i := range rings {
		rings[i] = ring.New(buffers[i+1])
	}

	lexicon, decision, err := loadWordAnalysisKBs(voice)
	if err != nil {
		return nil, err
	}

	phoneTable, indexTable, err := loadPhonMapKBs(voice)
	if err != nil {
		return nil, err
	}

	preprocTable, err := loadPreprocKB(voice)
	if err != nil {
		return nil, err
	}

	pdfLfz, pdfMgc, err := loadCepstralKBs(voice)
	if err != nil {
		return nil, err
	}

	stages := []pipeline.Stage{
		tokenizer.New(head, rings[0], voice, reg),
		preproc.New(rings[0], rings[1], preprocTable, reg),
		wordanalysis.New(rings[1], rings[2], lexicon, decision, reg),
		sentenceanalysis.New(rings[2], rings[3], reg),
		accent.New(rings[3], rings[4], reg),
		sentphon.New(rings[4], rings[5], reg),
		phonmap.New(rings[5], rings[6], phoneTable, nil, indexTable, 0, reg),
		cepstral.New(rings[6], rings[7], pdfLfz, pdfMgc, reg),
		signal.New(rings[7], tail, reg),
	}

	sched := pipeline.NewScheduler(stages, head, rings, tail, nil)
	if err := sched.Reset(pipeline.Full); err != nil {
		return nil, fmt.Errorf("engine: initialize stages: %w", err)
	}

	return &Engine{
		system: sys,
		voice:  voice,
		arena:  sub,
		reg:    reg,
		head:   head,
		tail:   tail,
		rings:  rings,
		stages: stages,
		sched:  sched,
	}, nil
}

func loadWordAnalysisKBs(voice *resource.Voice) (*wordanalysis.Lexicon, *wordanalysis.DecisionList, error) {
	var (
		lexicon  *wordanalysis.Lexicon
		decision *wordanalysis.DecisionList
		err      error
	)

	if kb, ok := voice.KB(KBLexicon); ok {
		if lexicon, err = decodeLexicon(kb.Data); err != nil {
			return nil, nil, fmt.Errorf("engine: %w", err)
		}
	}
	if kb, ok := voice.KB(KBDecision); ok {
		if decision, err = decodeDecisionList(kb.Data); err != nil {
			return nil, nil, fmt.Errorf("engine: %w", err)
		}
	}

	return lexicon, decision, nil
}

func loadPhonMapKBs(voice *resource.Voice) (*phonmap.PhoneTable, *phonmap.IndexTable, error) {
	var (
		table   *phonmap.PhoneTable
		indices *phonmap.IndexTable
		err     error
	)

	if kb, ok := voice.KB(KBPhone); ok {
		if table, err = decodePhoneTable(kb.Data); err != nil {
			return nil, nil, fmt.Errorf("engine: %w", err)
		}
	}
	if kb, ok := voice.KB(KBIndex); ok {
		if indices, err = decodeIndexTable(kb.Data); err != nil {
			return nil, nil, fmt.Errorf("engine: %w", err)
		}
	}

	return table, indices, nil
}

func loadPreprocKB(voice *resource.Voice) (*preproc.Table, error) {
	kb, ok := voice.KB(KBPreproc)
	if !ok {
		return nil, nil
	}

	table, err := decodePreprocTable(kb.Data)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return table, nil
}

func loadCepstralKBs(voice *resource.Voice) (*cepstral.Codebook, *cepstral.Codebook, error) {
	lfzKB, ok := voice.KB(KBPdfLfz)
	if !ok {
		return nil, nil, fmt.Errorf("engine: %w", resource.ErrKbMissing)
	}
	mgcKB, ok := voice.KB(KBPdfMgc)
	if !ok {
		return nil, nil, fmt.Errorf("engine: %w", resource.ErrKbMissing)
	}

	pdfLfz, err := cepstral.DecodeCodebook(lfzKB.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: lfz codebook: %w", err)
	}
	pdfMgc, err := cepstral.DecodeCodebook(mgcKB.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: mgc codebook: %w", err)
	}

	return pdfLfz, pdfMgc, nil
}

// FeedText pushes UTF-8 bytes into the pipeline's head ring, one byte at
// a time, stopping at the first byte the ring cannot accept (spec §6:
// feed_text "pushes into head ring; returns bytes accepted"). The
// caller should re-feed the remainder after draining more output via
// GetData.
func (e *Engine) FeedText(text []byte) int {
	n := 0
	for _, b := range text {
		if sig := e.head.PutCh(b); sig != ring.Ok {
			break
		}
		n++
	}

	return n
}

// maxTicksPerGetData bounds the internal Tick loop GetData runs looking
// for either a drainable frame or genuine quiescence, so a pathological
// input can never hang a caller inside a single call.
const maxTicksPerGetData = 1 << 16

// GetData ticks the scheduler (spec §6: get_data "one scheduler tick +
// drain of tail ring") until a Frame item reaches the tail ring or the
// pipeline goes genuinely idle, then returns the drained byte count,
// the data-type tag, and the StepResult the caller should react to.
//
// A single Tick's Idle result only means the stage it just stepped had
// nothing to do; per the scheduler's backward-walk bookkeeping
// (pipeline.Scheduler.Tick), focus may still move to a productive
// upstream stage on the very next call. GetData treats the pipeline as
// truly drained only after numStages+1 consecutive Idle ticks, enough
// for a full backward sweep to confirm nothing upstream has work left.
//
// outDataType is written unconditionally, even on StepError (spec §9's
// documented oddity): a caller that reads it after an error still sees
// PCM16Bit rather than a zero value.
func (e *Engine) GetData(out []byte) (n int, dataType DataType, status pipeline.StepResult) {
	dataType = PCM16Bit

	if e.reg.HasException() {
		return 0, dataType, pipeline.Error
	}

	if len(e.pending) > 0 {
		n = copy(out, e.pending)
		e.pending = e.pending[n:]

		return n, dataType, pipeline.Busy
	}

	idleStreak := 0
	for i := 0; i < maxTicksPerGetData; i++ {
		r := e.sched.Tick(pipeline.Normal)
		if r == pipeline.Error || e.reg.HasException() {
			return 0, dataType, pipeline.Error
		}

		if r == pipeline.Idle {
			idleStreak++
		} else {
			idleStreak = 0
		}

		// GetSpeechData is drained into a full-frame scratch buffer
		// rather than out directly: the ring dequeues the whole item
		// regardless of how much of it the caller's buffer can hold,
		// so a too-small out would otherwise silently drop the rest of
		// the frame (spec §8 S6).
		var scratch [item.MaxPayloadLen]byte
		if got, sig := e.tail.GetSpeechData(scratch[:]); sig == ring.Ok {
			n = copy(out, scratch[:got])
			if n < got {
				e.pending = append(e.pending[:0:0], scratch[n:got]...)
			}

			return n, dataType, pipeline.Busy
		}

		if idleStreak > numStages {
			return 0, dataType, pipeline.Idle
		}
	}

	return 0, dataType, pipeline.Busy
}

// Reset performs a full or soft reset (spec §6, §5): both modes discard
// the head/tail buffers and the engine's own exception registry; Full
// additionally re-initializes every stage's internal state, while Soft
// preserves whatever derived state a stage chooses to keep across
// Initialize(Soft).
func (e *Engine) Reset(mode pipeline.ResetMode) error {
	e.head.Reset()
	e.tail.Reset()
	e.reg.Reset()
	e.pending = nil

	return e.sched.Reset(mode)
}

// Dispose tears the engine down: every stage is terminated, the voice's
// resource locks are released, and the system's singleton slot is freed
// so a new engine may be created (spec §6: dispose_engine).
func (e *Engine) Dispose() {
	for _, st := range e.stages {
		st.Terminate()
	}

	e.system.mgr.ReleaseVoice(e.voice)
	e.system.disposeEngine()
}

// HasException reports whether the engine's registry holds a pending
// exception (spec §7: "get_data returns StepError whenever the registry
// holds an exception").
func (e *Engine) HasException() bool { return e.reg.HasException() }

// ExceptionCode returns the pending exception's code, or 0 if none.
func (e *Engine) ExceptionCode() except.Code { return e.reg.ExceptionCode() }

// StatusMessage copies the pending exception's message into out (spec
// §7: get_status_message).
func (e *Engine) StatusMessage(out []byte) int { return e.reg.ExceptionMessage(out) }

// NumWarnings returns the number of warnings raised since the last
// Reset.
func (e *Engine) NumWarnings() int { return e.reg.NumWarnings() }
