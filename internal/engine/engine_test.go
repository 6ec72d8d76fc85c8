package engine

import (
	"encoding/binary"
	"testing"

	"github.com/example/go-pico-tts/internal/cepstral"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/stretchr/testify/require"
)

// buildResourceFile assembles a minimal valid resource file: magic, kb
// count, directory, then kb payloads, mirroring
// internal/resource's own test fixture builder (unexported there, so
// duplicated here at the wire-format level only).
func buildResourceFile(kbs map[byte][]byte) []byte {
	var dir []byte
	var data []byte

	for id, payload := range kbs {
		dir = append(dir, id)
		dir = binary.LittleEndian.AppendUint32(dir, uint32(len(data)))
		dir = binary.LittleEndian.AppendUint32(dir, uint32(len(payload)))
		dir = append(dir, byte(len(fmtID(id))))
		dir = append(dir, fmtID(id)...)

		data = append(data, payload...)
	}

	buf := []byte{'P', 'I', 'C', 'O'}
	key := [4]byte{0x5A, 0x3C, 0x7E, 0x11}
	for i := range buf {
		buf[i] ^= key[i]
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(kbs)))
	buf = append(buf, dir...)
	buf = append(buf, data...)

	return buf
}

func fmtID(id byte) string {
	return string([]byte{'k', 'b', id})
}

func denseVector9(staticMean int16) []byte {
	v := make([]byte, 9)
	v[0] = byte(staticMean)
	v[1] = byte(staticMean >> 8)

	return v
}

// testCodebooks builds LFZ/MGC codebooks with one vector per phonmap
// state (NumStates=5): phonmap.IndexTable maps every grapheme in the
// fixtures' test text to base index 0, so a Phone item's five states
// read vectors 0..4 here.
func testCodebooks() (lfz, mgc []byte) {
	var lfzContent []byte
	for _, mean := range []int16{80, 85, 90, 95, 100} {
		lfzContent = append(lfzContent, denseVector9(mean)...)
	}

	lfzCB := &cepstral.Codebook{
		NumVUV:    0,
		CepOrder:  1,
		NumDeltas: 0xFF,
		BigPow:    8,
		MeanPow:   0,
		MeanPowUm: []byte{0, 0, 0},
		IvarPow:   []byte{0, 0, 0},
		VecSize:   9,
		Content:   lfzContent,
	}

	var mgcContent []byte
	for _, mean := range []int16{50, 52, 54, 56, 58} {
		mgcContent = append(mgcContent, append([]byte{1}, denseVector9(mean)...)...)
	}

	mgcCB := &cepstral.Codebook{
		NumVUV:    1,
		CepOrder:  1,
		NumDeltas: 0xFF,
		BigPow:    8,
		MeanPow:   0,
		MeanPowUm: []byte{0, 0, 0},
		IvarPow:   []byte{0, 0, 0},
		VecSize:   10,
		Content:   mgcContent,
	}

	return cepstral.EncodeCodebook(lfzCB), cepstral.EncodeCodebook(mgcCB)
}

// indexTableKB builds a KBIndex payload (code byte, index u16 LE triples)
// mapping every grapheme code the fixture's test text produces to base
// index 0.
func indexTableKB(codes ...byte) []byte {
	var out []byte
	for _, c := range codes {
		out = append(out, c)
		out = binary.LittleEndian.AppendUint16(out, 0)
	}

	return out
}

func newTestEngine(t *testing.T) (*System, *Engine) {
	t.Helper()

	lfz, mgc := testCodebooks()

	sys, err := NewSystem(make([]byte, 1<<20))
	require.NoError(t, err)

	raw := buildResourceFile(map[byte][]byte{
		KBPdfLfz: lfz,
		KBPdfMgc: mgc,
		KBIndex:  indexTableKB('h', 'i'),
	})

	_, err = sys.LoadResource("voice01", raw)
	require.NoError(t, err)

	require.NoError(t, sys.CreateVoiceDefinition("en-US"))
	require.NoError(t, sys.AddResourceToVoiceDefinition("en-US", "voice01"))

	e, err := sys.NewEngine("en-US", 1<<18, 4096)
	require.NoError(t, err)

	return sys, e
}

func TestNewEngineSingletonEnforced(t *testing.T) {
	sys, e := newTestEngine(t)
	defer e.Dispose()

	_, err := sys.NewEngine("en-US", 1<<18, 4096)
	require.ErrorIs(t, err, ErrMaxNumExceeded)
}

func TestEngineFeedTextAndGetDataProducesPCM(t *testing.T) {
	_, e := newTestEngine(t)
	defer e.Dispose()

	n := e.FeedText([]byte("hi.\x00"))
	require.Equal(t, 4, n)

	out := make([]byte, 4096)

	total := 0
	dataType := DataType(0)
	status := pipeline.Idle

	for i := 0; i < 64; i++ {
		got, dt, st := e.GetData(out)
		dataType = dt
		status = st
		total += got

		if st == pipeline.Idle && got == 0 {
			break
		}
	}

	require.Equal(t, PCM16Bit, dataType)
	require.Equal(t, pipeline.Idle, status)
	require.Greater(t, total, 0)
	require.Zero(t, total%2)
}

func TestEngineGetDataSetsDataTypeOnError(t *testing.T) {
	_, e := newTestEngine(t)
	defer e.Dispose()

	e.reg.RaiseWarning(0, "unused") // sanity: warnings don't block progress
	require.False(t, e.HasException())

	// Force an exception directly to exercise the unconditional
	// outDataType overwrite (spec §9).
	e.reg.RaiseException(1, "forced")

	out := make([]byte, 16)
	n, dt, status := e.GetData(out)
	require.Equal(t, 0, n)
	require.Equal(t, PCM16Bit, dt)
	require.Equal(t, pipeline.Error, status)
}

func TestEngineResetClearsExceptionAndBuffers(t *testing.T) {
	_, e := newTestEngine(t)
	defer e.Dispose()

	e.reg.RaiseException(1, "forced")
	require.True(t, e.HasException())

	require.NoError(t, e.Reset(pipeline.Full))
	require.False(t, e.HasException())
}

func TestEngineDisposeFreesSingletonSlot(t *testing.T) {
	sys, e := newTestEngine(t)
	e.Dispose()

	e2, err := sys.NewEngine("en-US", 1<<18, 4096)
	require.NoError(t, err)
	defer e2.Dispose()
}
