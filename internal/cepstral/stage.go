// Stage wiring for the cepstral smoother: the pipeline.Stage that
// consumes Phone items (phonmap's per-state duration/codebook-index
// triples) and produces smoothed FramePar items, driven by the
// Collect/ParseIn/Smooth/EmitFrame/Feed state machine picocep.c's cepStep
// implements (PICOCEP_STEPSTATE_*).
package cepstral

import (
	"encoding/binary"

	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
	"github.com/example/go-pico-tts/internal/stage/accent"
	"github.com/example/go-pico-tts/internal/stage/phonmap"
	"github.com/example/go-pico-tts/internal/stage/tokenizer"
)

// defaultSpeed is the speed level a Cmd(Speed) item's absolute and
// per-mille forms are both relative to (spec §4.7: 20-500 absolute
// range, 100 = normal rate).
const defaultSpeed = 100

// minSpeed/maxSpeed bound s.speed the same way markup.go's
// encodeLevelAttr already bounds the absolute level it accepts.
const (
	minSpeed = 20
	maxSpeed = 500
)

// Fixed-point bases for the two codebooks (spec §4.8): LFZ solves with a
// double-decimal inverse (LfzInvPow, invDoubleDec=true) while MGC solves
// with a single-decimal inverse (MgcInvPow, invDoubleDec=false).
const (
	LfzInvPow = 31
	MgcInvPow = 24
)

// MaxWindowLen bounds how many frames a single sentence may
// accumulate before Collect is forced into Smooth regardless of sentence
// boundaries (spec §4.8: N <= 10000).
const MaxWindowLen = 10000

// StepState names the cepstral state machine's current phase, exported
// so tests can assert on transition counts (e.g. Smooth entered exactly
// once per sentence) without reaching into unexported fields.
type StepState byte

const (
	StepCollect StepState = iota
	StepParseIn
	StepSmooth
	StepEmitFrame
	StepFeed
)

func (s StepState) String() string {
	switch s {
	case StepCollect:
		return "Collect"
	case StepParseIn:
		return "ParseIn"
	case StepSmooth:
		return "Smooth"
	case StepEmitFrame:
		return "EmitFrame"
	case StepFeed:
		return "Feed"
	default:
		return "Unknown"
	}
}

// forwardedItem is a non-Phone item collected mid-sentence, replayed
// during EmitFrame once the output frame stream reaches the position it
// arrived at (picocep.c's forwardingItem: everything but CMD is
// forwarded, at its original sync position relative to the frame
// stream).
type forwardedItem struct {
	at int
	it item.Item
}

// Stage is the cepstral-smoother pipeline.Stage implementation.
type Stage struct {
	in, out *ring.Ring
	reg     *except.Registry

	pdfLfz, pdfMgc *Codebook
	maxFrames      int

	// speed is the current Cmd(Speed)-controlled rate (spec §4.7):
	// treatPhone stretches/compresses each phone state's frame count by
	// defaultSpeed/speed, so a level below 100 lengthens output (S4).
	speed int

	state StepState

	lfzIdx, mgcIdx []uint16
	phoneID        []byte
	forward        []forwardedItem

	lfzOut   [][]int16 // [frame][lfz coefficient]
	mgcOut   [][]int16 // [frame][mgc coefficient]
	frameIdx int

	// SmoothCount counts Smooth-state entries, exposed for tests.
	SmoothCount int

	queue []item.Item
}

// New builds a cepstral stage over the two PDF codebooks. Both must be
// non-nil with CepOrder > 0.
func New(in, out *ring.Ring, pdfLfz, pdfMgc *Codebook, reg *except.Registry) *Stage {
	return &Stage{
		in: in, out: out, reg: reg,
		pdfLfz: pdfLfz, pdfMgc: pdfMgc,
		maxFrames: MaxWindowLen,
	}
}

var _ pipeline.Stage = (*Stage)(nil)

func (s *Stage) Initialize(pipeline.ResetMode) error {
	s.resetSentence()
	s.state = StepCollect
	s.queue = nil
	s.SmoothCount = 0
	s.speed = defaultSpeed

	return nil
}

func (s *Stage) Terminate() {
	s.resetSentence()
	s.queue = nil
}

func (s *Stage) resetSentence() {
	s.lfzIdx = nil
	s.mgcIdx = nil
	s.phoneID = nil
	s.forward = nil
	s.lfzOut = nil
	s.mgcOut = nil
	s.frameIdx = 0
}

func (s *Stage) Step(pipeline.StepMode) pipeline.StepResult {
	if len(s.queue) > 0 {
		return s.drainQueue()
	}

	switch s.state {
	case StepCollect, StepParseIn:
		return s.stepCollect()
	case StepSmooth:
		return s.stepSmooth()
	case StepEmitFrame, StepFeed:
		return s.stepEmit()
	default:
		return pipeline.Idle
	}
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

func (s *Stage) stepCollect() pipeline.StepResult {
	var it item.Item
	if sig := s.in.GetItem(&it); sig != ring.Ok {
		return pipeline.Idle
	}

	switch {
	case it.Type == item.Phone:
		s.treatPhone(it)
		if len(s.lfzIdx) >= s.maxFrames {
			s.state = StepSmooth
		}

	case it.Type == item.Bound && accent.Strength(it.Info1) == accent.SEnd:
		s.state = StepSmooth

	case it.Type == item.Cmd:
		// CMD items are consumed, never forwarded or buffered
		// (picocep.c's forwardingItem excludes them). Speed still
		// updates the rate treatPhone stretches frame counts by; Flush
		// forces whatever phones are buffered through smoothing even
		// without a terminal Bound (picocep.c's PARSE comment: "sentence
		// end or flush remaining after frame"), so text with no closing
		// punctuation still reaches get_data.
		switch tokenizer.CmdKind(it.Info1) {
		case tokenizer.CmdSpeed:
			s.applySpeedCmd(it.PayloadBytes())
		case tokenizer.CmdFlush:
			if len(s.lfzIdx) > 0 {
				s.state = StepSmooth
			}
		}

	default:
		s.forward = append(s.forward, forwardedItem{at: len(s.lfzIdx), it: it})
	}

	return pipeline.Busy
}

// treatPhone expands one Phone item's per-state triples into per-frame
// index/phone-id entries, repeating each state's indices by its frame
// count, scaled by defaultSpeed/s.speed (picocep.c's treat_phone, with
// the rate stretch Cmd(Speed) controls applied here).
func (s *Stage) treatPhone(it item.Item) {
	states := phonmap.DecodeStates(it.PayloadBytes())
	for _, st := range states {
		frames := s.scaledFrames(st.Frames)
		for f := uint16(0); f < frames; f++ {
			s.lfzIdx = append(s.lfzIdx, st.LfzIndex)
			s.mgcIdx = append(s.mgcIdx, st.MgcIndex)
			s.phoneID = append(s.phoneID, it.Info1)
		}
	}
}

// scaledFrames stretches/compresses a state's frame count by
// defaultSpeed/s.speed, rounding to the nearest frame and never
// dropping a state to zero frames.
func (s *Stage) scaledFrames(frames uint16) uint16 {
	if s.speed == 0 || s.speed == defaultSpeed {
		return frames
	}

	scaled := (int(frames)*defaultSpeed*2 + s.speed) / (s.speed * 2)
	if scaled < 1 {
		scaled = 1
	}

	return uint16(scaled)
}

// applySpeedCmd updates s.speed from a Cmd(Speed) item's payload: a unit
// byte (0 = absolute level, 1 = per-mille of the current speed) followed
// by a little-endian int16 value, matching
// tokenizer.encodeLevelAttr's encoding.
func (s *Stage) applySpeedCmd(payload []byte) {
	if len(payload) < 3 {
		return
	}

	unit := payload[0]
	n := int(int16(binary.LittleEndian.Uint16(payload[1:3])))

	next := n
	if unit != 0 {
		next = s.speed * n / 1000
	}

	if next < minSpeed {
		next = minSpeed
	}
	if next > maxSpeed {
		next = maxSpeed
	}

	s.speed = next
}

func (s *Stage) stepSmooth() pipeline.StepResult {
	s.SmoothCount++

	if len(s.lfzIdx) == 0 {
		s.state = StepEmitFrame
		s.frameIdx = 0

		return pipeline.Busy
	}

	lfzOrder := int(s.pdfLfz.CepOrder)
	mgcOrder := int(s.pdfMgc.CepOrder)
	n := len(s.lfzIdx)

	lfzCoef := make([][]int16, lfzOrder)
	for c := 0; c < lfzOrder; c++ {
		lfzCoef[c] = s.pdfLfz.SmoothCoefficient(s.lfzIdx, byte(c), LfzInvPow, true)
	}

	mgcCoef := make([][]int16, mgcOrder)
	for c := 0; c < mgcOrder; c++ {
		mgcCoef[c] = s.pdfMgc.SmoothCoefficient(s.mgcIdx, byte(c), MgcInvPow, false)
	}

	s.lfzOut = make([][]int16, n)
	s.mgcOut = make([][]int16, n)
	for f := 0; f < n; f++ {
		lfzFrame := make([]int16, lfzOrder)
		for c := 0; c < lfzOrder; c++ {
			lfzFrame[c] = lfzCoef[c][f]
		}
		s.lfzOut[f] = lfzFrame

		mgcFrame := make([]int16, mgcOrder)
		for c := 0; c < mgcOrder; c++ {
			mgcFrame[c] = mgcCoef[c][f]
		}
		s.mgcOut[f] = mgcFrame
	}

	s.frameIdx = 0
	s.state = StepEmitFrame

	return pipeline.Busy
}

func (s *Stage) stepEmit() pipeline.StepResult {
	if len(s.forward) > 0 && s.forward[0].at <= s.frameIdx {
		fw := s.forward[0]
		s.forward = s.forward[1:]
		s.queue = append(s.queue, fw.it)

		return s.drainQueue()
	}

	if s.frameIdx >= len(s.lfzOut) {
		if len(s.forward) > 0 {
			fw := s.forward[0]
			s.forward = s.forward[1:]
			s.queue = append(s.queue, fw.it)

			return s.drainQueue()
		}

		s.resetSentence()
		s.state = StepCollect

		return pipeline.Busy
	}

	fp := s.buildFrameItem(s.frameIdx)
	s.frameIdx++
	s.queue = append(s.queue, fp)
	s.state = StepFeed

	return s.drainQueue()
}

// buildFrameItem encodes one output frame (voicing, F0, MGC vector) as a
// FramePar item, propagating unvoiced frames to F0=0 (spec §4.8's
// voicing LSB rule, read from the MGC codebook's static first byte).
func (s *Stage) buildFrameItem(frame int) item.Item {
	voiced := s.pdfMgc.Voicing(s.mgcIdx[frame])

	var f0 int16
	if voiced && len(s.lfzOut[frame]) > 0 {
		f0 = s.lfzOut[frame][0]
	}

	var it item.Item
	it.Set(item.FramePar, s.phoneID[frame], boolByte(voiced), EncodeFrame(f0, s.mgcOut[frame]))

	return it
}

func boolByte(b bool) byte {
	if b {
		return 1
	}

	return 0
}

// EncodeFrame packs a frame's voicing-gated F0 and MGC vector into a
// FramePar item's payload: 2-byte F0, then one little-endian int16 per
// MGC coefficient.
func EncodeFrame(f0 int16, mgc []int16) []byte {
	payload := make([]byte, 2+2*len(mgc))
	binary.LittleEndian.PutUint16(payload, uint16(f0))
	for i, v := range mgc {
		binary.LittleEndian.PutUint16(payload[2+2*i:], uint16(v))
	}

	return payload
}

// DecodeFrame unpacks a FramePar item's payload into F0 and its MGC
// vector.
func DecodeFrame(payload []byte) (f0 int16, mgc []int16) {
	if len(payload) < 2 {
		return 0, nil
	}

	f0 = int16(binary.LittleEndian.Uint16(payload))

	n := (len(payload) - 2) / 2
	mgc = make([]int16, n)
	for i := 0; i < n; i++ {
		mgc[i] = int16(binary.LittleEndian.Uint16(payload[2+2*i:]))
	}

	return f0, mgc
}
