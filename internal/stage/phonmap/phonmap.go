// Package phonmap implements the pipeline's seventh and final linguistic
// stage (spec §4.9): expanding each SyllPhon into Phone items carrying
// per-state frame counts, applying a duration transform (uniform or
// weighted by per-phoneme weights) to reach a target duration. Grounded
// on original_source/pico/lib/picoacph.h's phonetic-acoustic mapping
// contract; a trained duration model is linguistic content out of
// spec.md's scope (§1), so DurationModel here is a minimal but real
// state-count distributor, not a claim of acoustic fidelity.
package phonmap

import (
	"encoding/binary"

	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
)

// NumStates is the number of HMM-style states each Phone item's duration
// is distributed across (spec §4.8's frame-rate model assumes a fixed
// per-phone state count).
const NumStates = 5

// DurationModel distributes a phone's target frame count across
// NumStates.
type DurationModel interface {
	Durations(phoneCode byte, targetFrames int) [NumStates]byte
}

// UniformDuration splits targetFrames evenly across states, with any
// remainder landing on the final state.
type UniformDuration struct{}

func (UniformDuration) Durations(_ byte, targetFrames int) [NumStates]byte {
	var out [NumStates]byte
	if targetFrames <= 0 {
		return out
	}

	base := targetFrames / NumStates
	rem := targetFrames % NumStates
	for i := 0; i < NumStates; i++ {
		out[i] = byte(base)
	}
	out[NumStates-1] += byte(rem)

	return out
}

// WeightedDuration distributes targetFrames proportionally to a
// per-phoneme weight vector (falling back to Default when phoneCode has
// no entry), rounding down and assigning any remainder to the last
// state.
type WeightedDuration struct {
	Weights map[byte][NumStates]float64
	Default [NumStates]float64
}

func (w WeightedDuration) Durations(phoneCode byte, targetFrames int) [NumStates]byte {
	var out [NumStates]byte
	if targetFrames <= 0 {
		return out
	}

	weights, ok := w.Weights[phoneCode]
	if !ok {
		weights = w.Default
	}

	var total float64
	for _, v := range weights {
		total += v
	}
	if total <= 0 {
		return UniformDuration{}.Durations(phoneCode, targetFrames)
	}

	assigned := 0
	for i := 0; i < NumStates; i++ {
		frames := int(float64(targetFrames) * weights[i] / total)
		out[i] = byte(frames)
		assigned += frames
	}
	out[NumStates-1] += byte(targetFrames - assigned)

	return out
}

// PhoneTable maps a grapheme byte to a phone code, the minimal stand-in
// for a trained grapheme-to-phoneme model (spec §1 scopes the real
// model out). A nil PhoneTable, or a byte absent from it, maps a
// grapheme to its own byte value.
type PhoneTable struct {
	codes map[byte]byte
}

// NewPhoneTable builds a PhoneTable from grapheme/phone-code pairs.
func NewPhoneTable(codes map[byte]byte) *PhoneTable {
	return &PhoneTable{codes: codes}
}

func (p *PhoneTable) lookup(grapheme byte) byte {
	if p == nil {
		return grapheme
	}
	if code, ok := p.codes[grapheme]; ok {
		return code
	}

	return grapheme
}

// IndexTable maps a phone code to the base LFZ/MGC codebook index its
// states read from (picocep.c's treat_phone adds a per-state
// stateoffset to a base index drawn from the resource header; IndexTable
// is the minimal stand-in, applying state number directly as the
// offset). A nil IndexTable, or a code absent from it, uses the phone
// code itself as the base index.
type IndexTable struct {
	base map[byte]uint16
}

// NewIndexTable builds an IndexTable from phone-code/base-index pairs.
func NewIndexTable(base map[byte]uint16) *IndexTable {
	return &IndexTable{base: base}
}

func (t *IndexTable) lookup(code byte) uint16 {
	if t == nil {
		return uint16(code)
	}
	if v, ok := t.base[code]; ok {
		return v
	}

	return uint16(code)
}

// StateInfo is one state's entry in a Phone item's payload: the frame
// count and the codebook indices the cepstral stage reads the static
// mean/variance pair from (spec §4.8).
type StateInfo struct {
	Frames   uint16
	LfzIndex uint16
	MgcIndex uint16
}

// stateEncodedLen is the wire size of one StateInfo: three little-endian
// uint16 fields (picocep.c's treat_phone reads the same 6-byte stride
// per state via get_pi_uint16).
const stateEncodedLen = 6

// EncodeStates packs NumStates StateInfo entries into a Phone item's
// payload.
func EncodeStates(states [NumStates]StateInfo) []byte {
	payload := make([]byte, NumStates*stateEncodedLen)
	for i, st := range states {
		off := i * stateEncodedLen
		binary.LittleEndian.PutUint16(payload[off:], st.Frames)
		binary.LittleEndian.PutUint16(payload[off+2:], st.LfzIndex)
		binary.LittleEndian.PutUint16(payload[off+4:], st.MgcIndex)
	}

	return payload
}

// DecodeStates unpacks a Phone item's payload into NumStates StateInfo
// entries. Payload shorter than NumStates*stateEncodedLen yields zeroed
// trailing entries.
func DecodeStates(payload []byte) [NumStates]StateInfo {
	var states [NumStates]StateInfo
	for i := range states {
		off := i * stateEncodedLen
		if off+stateEncodedLen > len(payload) {
			break
		}
		states[i] = StateInfo{
			Frames:   binary.LittleEndian.Uint16(payload[off:]),
			LfzIndex: binary.LittleEndian.Uint16(payload[off+2:]),
			MgcIndex: binary.LittleEndian.Uint16(payload[off+4:]),
		}
	}

	return states
}

// Stage is the phonetic-acoustic-mapping pipeline.Stage implementation.
type Stage struct {
	in, out *ring.Ring
	reg     *except.Registry

	table    *PhoneTable
	duration DurationModel
	indices  *IndexTable

	// framesPerPhone is the nominal target duration handed to duration,
	// a stand-in for the resource-header-derived duration spec §4.8
	// describes for the cepstral stage's frame rate.
	framesPerPhone int

	queue []item.Item
}

// New builds a phonmap stage. table, duration, and indices may be
// nil/zero, in which case graphemes map to themselves, durations split
// evenly across NumStates, and codebook base indices equal the phone
// code.
func New(in, out *ring.Ring, table *PhoneTable, duration DurationModel, indices *IndexTable, framesPerPhone int, reg *except.Registry) *Stage {
	if duration == nil {
		duration = UniformDuration{}
	}
	if framesPerPhone <= 0 {
		framesPerPhone = NumStates * 4
	}

	return &Stage{in: in, out: out, table: table, duration: duration, indices: indices, framesPerPhone: framesPerPhone, reg: reg}
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
	if it.Type != item.SyllPhon {
		s.queue = append(s.queue, it)

		return
	}

	for _, g := range it.PayloadBytes() {
		code := s.table.lookup(g)
		durations := s.duration.Durations(code, s.framesPerPhone)
		base := s.indices.lookup(code)

		var states [NumStates]StateInfo
		for i := 0; i < NumStates; i++ {
			states[i] = StateInfo{
				Frames:   uint16(durations[i]),
				LfzIndex: base + uint16(i),
				MgcIndex: base + uint16(i),
			}
		}

		var ph item.Item
		ph.Set(item.Phone, code, it.Info1, EncodeStates(states))
		s.queue = append(s.queue, ph)
	}
}
