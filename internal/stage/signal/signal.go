// Package signal implements the signal-generator stub (spec §1: "only
// its input contract is specified"). It turns the cepstral stage's
// FramePar items into item.Frame items carrying raw 16-bit PCM, the
// minimal real component needed to run spec.md's end-to-end scenarios
// (§8) through `get_data` — it does not claim acoustic fidelity to the
// original vocoder. Built on stdlib `math`/int32 fixed-point arithmetic;
// algo-dsp and algo-vecmath were candidates but are dropped (see
// DESIGN.md) for lack of any grounded call site in the retrieval pack.
package signal

import (
	"math"

	"github.com/example/go-pico-tts/internal/cepstral"
	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
)

// SampleRateHz is the engine's fixed output rate (spec §6).
const SampleRateHz = 16000

// SamplesPerFrame is the nominal frame duration at SampleRateHz (spec
// §4.8: 4 ms/frame), chosen so one frame's PCM payload (SamplesPerFrame
// * 2 bytes) stays under item.MaxPayloadLen.
const SamplesPerFrame = SampleRateHz * 4 / 1000

// defaultPitchPeriod is the toy pitch period (in samples) used when a
// frame's F0 is non-positive; a real vocoder would reject or interpolate
// instead, but period selection is acoustic-fidelity territory the
// signal stub explicitly does not claim (package doc).
const defaultPitchPeriod = 80

// Stage is the signal-generator pipeline.Stage implementation.
type Stage struct {
	in, out *ring.Ring
	reg     *except.Registry

	rng   uint32
	phase int

	queue []item.Item
}

// New builds a signal stage.
func New(in, out *ring.Ring, reg *except.Registry) *Stage {
	return &Stage{in: in, out: out, reg: reg}
}

var _ pipeline.Stage = (*Stage)(nil)

func (s *Stage) Initialize(pipeline.ResetMode) error {
	s.rng = 0x2545f491
	s.phase = 0
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

	if it.Type != item.FramePar {
		s.queue = append(s.queue, it)

		return s.drainQueue()
	}

	s.queue = append(s.queue, s.synthesize(it))

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

// synthesize turns one FramePar into SamplesPerFrame PCM samples: a
// pulse train at the frame's pitch period for voiced frames, an LCG
// noise source otherwise, both scaled by the frame's leading MGC
// coefficient as a crude gain proxy.
func (s *Stage) synthesize(fp item.Item) item.Item {
	f0, mgc := cepstral.DecodeFrame(fp.PayloadBytes())
	voiced := fp.Info2 != 0

	gain := int32(1 << 8)
	if len(mgc) > 0 {
		gain = int32(mgc[0])
		if gain < 0 {
			gain = -gain
		}
		gain = gain>>2 + 1
	}

	period := int(f0)
	if period <= 0 {
		period = defaultPitchPeriod
	}

	payload := make([]byte, 0, SamplesPerFrame*2)
	for i := 0; i < SamplesPerFrame; i++ {
		var excite int32

		if voiced {
			s.phase++
			if s.phase >= period {
				s.phase = 0
				excite = gain
			}
		} else {
			s.rng = s.rng*1664525 + 1013904223
			excite = int32(int16(s.rng>>16)) * gain / (1 << 8)
		}

		smp := clampInt16(excite)
		payload = append(payload, byte(smp), byte(smp>>8))
	}

	var out item.Item
	out.Set(item.Frame, fp.Info2, 0, payload)

	return out
}

func clampInt16(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
