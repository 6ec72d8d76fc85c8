package signal

import (
	"testing"

	"github.com/example/go-pico-tts/internal/cepstral"
	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
	"github.com/stretchr/testify/require"
)

func newTestStage(t *testing.T) (*Stage, *ring.Ring, *ring.Ring) {
	t.Helper()

	in := ring.New(make([]byte, 4096))
	out := ring.New(make([]byte, 4096))

	s := New(in, out, except.New())
	require.NoError(t, s.Initialize(pipeline.Full))

	return s, in, out
}

func framePar(info1, info2 byte, f0 int16, mgc []int16) item.Item {
	var it item.Item
	it.Set(item.FramePar, info1, info2, cepstral.EncodeFrame(f0, mgc))

	return it
}

func TestSignalEmitsOneFrameItemPerFramePar(t *testing.T) {
	s, in, out := newTestStage(t)

	fp := framePar(7, 1, 80, []int16{10, -5})
	require.Equal(t, ring.Ok, in.PutItem(&fp))

	r := s.Step(pipeline.Normal)
	require.Equal(t, pipeline.Busy, r)

	var got item.Item
	require.Equal(t, ring.Ok, out.GetItem(&got))
	require.Equal(t, item.Frame, got.Type)
	require.Len(t, got.PayloadBytes(), SamplesPerFrame*2)

	require.Equal(t, pipeline.Idle, s.Step(pipeline.Normal))
}

func TestSignalForwardsNonFrameParItemsUnchanged(t *testing.T) {
	s, in, out := newTestStage(t)

	var other item.Item
	other.Set(item.Other, 9, 0, []byte("hello"))
	require.Equal(t, ring.Ok, in.PutItem(&other))

	require.Equal(t, pipeline.Busy, s.Step(pipeline.Normal))

	var got item.Item
	require.Equal(t, ring.Ok, out.GetItem(&got))
	require.Equal(t, item.Other, got.Type)
	require.Equal(t, "hello", string(got.PayloadBytes()))
}

func TestSignalVoicedFrameProducesNonZeroSamples(t *testing.T) {
	s, in, out := newTestStage(t)

	fp := framePar(1, 1, 40, []int16{2000})
	require.Equal(t, ring.Ok, in.PutItem(&fp))
	require.Equal(t, pipeline.Busy, s.Step(pipeline.Normal))

	var got item.Item
	require.Equal(t, ring.Ok, out.GetItem(&got))

	nonZero := false
	payload := got.PayloadBytes()
	for i := 0; i+1 < len(payload); i += 2 {
		if payload[i] != 0 || payload[i+1] != 0 {
			nonZero = true

			break
		}
	}
	require.True(t, nonZero)
}

func TestSignalUnvoicedFrameUsesNoiseNotSilence(t *testing.T) {
	s, in, out := newTestStage(t)

	fp := framePar(1, 0, 0, []int16{2000})
	require.Equal(t, ring.Ok, in.PutItem(&fp))
	require.Equal(t, pipeline.Busy, s.Step(pipeline.Normal))

	var got item.Item
	require.Equal(t, ring.Ok, out.GetItem(&got))

	nonZero := false
	payload := got.PayloadBytes()
	for i := 0; i+1 < len(payload); i += 2 {
		if payload[i] != 0 || payload[i+1] != 0 {
			nonZero = true

			break
		}
	}
	require.True(t, nonZero)
}

func TestSignalFitsWithinItemPayloadLimit(t *testing.T) {
	require.LessOrEqual(t, SamplesPerFrame*2, item.MaxPayloadLen)
}
