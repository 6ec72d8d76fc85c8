package cepstral

import (
	"testing"

	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
	"github.com/example/go-pico-tts/internal/stage/accent"
	"github.com/example/go-pico-tts/internal/stage/phonmap"
	"github.com/stretchr/testify/require"
)

func newTestStage(t *testing.T) (*Stage, *ring.Ring, *ring.Ring) {
	t.Helper()

	in := ring.New(make([]byte, 2048))
	out := ring.New(make([]byte, 2048))

	lfz := newDenseCodebook(denseVector(100, 0, 0, 4, 0, 0), denseVector(150, 0, 0, 4, 0, 0))
	mgc := &Codebook{
		NumVUV:    1,
		CepOrder:  1,
		NumDeltas: denseDeltas,
		BigPow:    8,
		MeanPow:   0,
		MeanPowUm: []byte{0, 0, 0},
		IvarPow:   []byte{0, 0, 0},
		VecSize:   10,
		Content: append(
			append([]byte{1}, denseVector(50, 0, 0, 4, 0, 0)...),
			append([]byte{0}, denseVector(60, 0, 0, 4, 0, 0)...)...,
		),
	}

	s := New(in, out, lfz, mgc, except.New())
	require.NoError(t, s.Initialize(pipeline.Full))

	return s, in, out
}

func phoneItem(code byte, info2 byte, frames [phonmap.NumStates]uint16, lfzIndex, mgcIndex uint16) item.Item {
	var states [phonmap.NumStates]phonmap.StateInfo
	for i := range states {
		states[i] = phonmap.StateInfo{Frames: frames[i], LfzIndex: lfzIndex, MgcIndex: mgcIndex}
	}

	var it item.Item
	it.Set(item.Phone, code, info2, phonmap.EncodeStates(states))

	return it
}

func drive(t *testing.T, s *Stage, in, out *ring.Ring) []item.Item {
	t.Helper()

	var got []item.Item
	for i := 0; i < 10000; i++ {
		r := s.Step(pipeline.Normal)

		var it item.Item
		for out.GetItem(&it) == ring.Ok {
			got = append(got, it)
		}

		if r == pipeline.Idle {
			return got
		}
	}

	t.Fatal("stage never went idle")

	return nil
}

func TestCepstralEmitsOneFrameParPerAccumulatedFrame(t *testing.T) {
	s, in, out := newTestStage(t)

	ph := phoneItem('a', 0, [phonmap.NumStates]uint16{2, 1, 1, 1, 1}, 0, 0)
	require.Equal(t, ring.Ok, in.PutItem(&ph))

	var end item.Item
	end.Set(item.Bound, byte(accent.SEnd), 0, nil)
	require.Equal(t, ring.Ok, in.PutItem(&end))

	got := drive(t, s, in, out)
	require.Len(t, got, 6)
	for _, fp := range got {
		require.Equal(t, item.FramePar, fp.Type)
	}
	require.Equal(t, 1, s.SmoothCount)
}

func TestCepstralReplaysForwardedItemAtSyncPosition(t *testing.T) {
	s, in, out := newTestStage(t)

	ph1 := phoneItem('a', 0, [phonmap.NumStates]uint16{1, 1, 1, 1, 1}, 0, 0)
	require.Equal(t, ring.Ok, in.PutItem(&ph1))

	var marker item.Item
	marker.Set(item.Other, 42, 0, []byte("marker"))
	require.Equal(t, ring.Ok, in.PutItem(&marker))

	ph2 := phoneItem('b', 0, [phonmap.NumStates]uint16{1, 1, 1, 1, 1}, 1, 1)
	require.Equal(t, ring.Ok, in.PutItem(&ph2))

	var end item.Item
	end.Set(item.Bound, byte(accent.SEnd), 0, nil)
	require.Equal(t, ring.Ok, in.PutItem(&end))

	got := drive(t, s, in, out)

	var markerPos = -1
	for i, it := range got {
		if it.Type == item.Other {
			markerPos = i
		}
	}
	require.NotEqual(t, -1, markerPos)
	require.Equal(t, 5, markerPos) // 5 frames from ph1 precede the marker
	require.Equal(t, "marker", string(got[markerPos].PayloadBytes()))
}

func TestCepstralDropsCmdItems(t *testing.T) {
	s, in, out := newTestStage(t)

	var cmd item.Item
	cmd.Set(item.Cmd, 1, 0, nil)
	require.Equal(t, ring.Ok, in.PutItem(&cmd))

	ph := phoneItem('a', 0, [phonmap.NumStates]uint16{1, 1, 1, 1, 1}, 0, 0)
	require.Equal(t, ring.Ok, in.PutItem(&ph))

	var end item.Item
	end.Set(item.Bound, byte(accent.SEnd), 0, nil)
	require.Equal(t, ring.Ok, in.PutItem(&end))

	got := drive(t, s, in, out)
	require.Len(t, got, 5)
	for _, it := range got {
		require.NotEqual(t, item.Cmd, it.Type)
	}
}

func TestCepstralVoicingGatesF0ToZero(t *testing.T) {
	s, in, out := newTestStage(t)

	// mgcIndex 1 is the unvoiced vector in newTestStage's mgc codebook.
	ph := phoneItem('a', 0, [phonmap.NumStates]uint16{1, 1, 1, 1, 1}, 0, 1)
	require.Equal(t, ring.Ok, in.PutItem(&ph))

	var end item.Item
	end.Set(item.Bound, byte(accent.SEnd), 0, nil)
	require.Equal(t, ring.Ok, in.PutItem(&end))

	got := drive(t, s, in, out)
	require.Len(t, got, 5)
	for _, fp := range got {
		require.Equal(t, byte(0), fp.Info2) // unvoiced
		f0, _ := DecodeFrame(fp.PayloadBytes())
		require.Equal(t, int16(0), f0)
	}
}

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	payload := EncodeFrame(1234, []int16{-5, 10, 999})
	f0, mgc := DecodeFrame(payload)
	require.Equal(t, int16(1234), f0)
	require.Equal(t, []int16{-5, 10, 999}, mgc)
}
