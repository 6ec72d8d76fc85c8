package phonmap

import (
	"testing"

	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
	"github.com/stretchr/testify/require"
)

func newStage(t *testing.T, table *PhoneTable, dur DurationModel, indices *IndexTable, frames int) (*Stage, *ring.Ring, *ring.Ring) {
	t.Helper()

	in := ring.New(make([]byte, 128))
	out := ring.New(make([]byte, 128))
	s := New(in, out, table, dur, indices, frames, except.New())
	require.NoError(t, s.Initialize(pipeline.Full))

	return s, in, out
}

func drive(s *Stage, out *ring.Ring) []item.Item {
	var got []item.Item

	for {
		r := s.Step(pipeline.Normal)

		var it item.Item
		for out.GetItem(&it) == ring.Ok {
			got = append(got, it)
		}

		if r == pipeline.Idle {
			return got
		}
	}
}

func TestUniformDurationSplitsEvenlyWithRemainderOnLastState(t *testing.T) {
	d := UniformDuration{}.Durations('a', 22)
	require.Equal(t, [NumStates]byte{4, 4, 4, 4, 6}, d)
}

func TestUniformDurationZeroTarget(t *testing.T) {
	require.Equal(t, [NumStates]byte{}, UniformDuration{}.Durations('a', 0))
}

func TestWeightedDurationUsesPerPhonemeWeights(t *testing.T) {
	w := WeightedDuration{
		Weights: map[byte][NumStates]float64{
			'a': {1, 1, 2, 1, 1},
		},
	}
	d := w.Durations('a', 30)
	require.Equal(t, byte(5), d[0])
	require.Equal(t, byte(5), d[1])
	require.Equal(t, byte(10), d[2])
}

func TestWeightedDurationFallsBackToDefault(t *testing.T) {
	w := WeightedDuration{Default: [NumStates]float64{1, 1, 1, 1, 1}}
	d := w.Durations('z', 25)
	require.Equal(t, [NumStates]byte{5, 5, 5, 5, 5}, d)
}

func TestPhonMapExpandsSyllableIntoOnePhonePerGrapheme(t *testing.T) {
	s, in, out := newStage(t, nil, UniformDuration{}, nil, 20)

	var sp item.Item
	sp.Set(item.SyllPhon, 1, 3, []byte("ba"))
	require.Equal(t, ring.Ok, in.PutItem(&sp))

	got := drive(s, out)
	require.Len(t, got, 2)
	require.Equal(t, item.Phone, got[0].Type)
	require.Equal(t, byte('b'), got[0].Info1)
	require.Equal(t, byte(3), got[0].Info2)
	require.Equal(t, byte('a'), got[1].Info1)

	states := DecodeStates(got[0].PayloadBytes())
	require.Equal(t, [NumStates]StateInfo{
		{Frames: 4, LfzIndex: uint16('b') + 0, MgcIndex: uint16('b') + 0},
		{Frames: 4, LfzIndex: uint16('b') + 1, MgcIndex: uint16('b') + 1},
		{Frames: 4, LfzIndex: uint16('b') + 2, MgcIndex: uint16('b') + 2},
		{Frames: 4, LfzIndex: uint16('b') + 3, MgcIndex: uint16('b') + 3},
		{Frames: 4, LfzIndex: uint16('b') + 4, MgcIndex: uint16('b') + 4},
	}, states)
}

func TestPhonMapUsesPhoneTableTranslation(t *testing.T) {
	table := NewPhoneTable(map[byte]byte{'c': 200})
	s, in, out := newStage(t, table, UniformDuration{}, nil, 20)

	var sp item.Item
	sp.Set(item.SyllPhon, 0, 0, []byte("c"))
	require.Equal(t, ring.Ok, in.PutItem(&sp))

	got := drive(s, out)
	require.Len(t, got, 1)
	require.Equal(t, byte(200), got[0].Info1)

	states := DecodeStates(got[0].PayloadBytes())
	require.Equal(t, uint16(200), states[0].LfzIndex)
	require.Equal(t, uint16(200), states[0].MgcIndex)
}

func TestPhonMapUsesIndexTableBaseOffset(t *testing.T) {
	table := NewPhoneTable(map[byte]byte{'c': 200})
	indices := NewIndexTable(map[byte]uint16{200: 50})
	s, in, out := newStage(t, table, UniformDuration{}, indices, 20)

	var sp item.Item
	sp.Set(item.SyllPhon, 0, 0, []byte("c"))
	require.Equal(t, ring.Ok, in.PutItem(&sp))

	got := drive(s, out)
	require.Len(t, got, 1)

	states := DecodeStates(got[0].PayloadBytes())
	require.Equal(t, uint16(50), states[0].LfzIndex)
	require.Equal(t, uint16(54), states[NumStates-1].LfzIndex)
	require.Equal(t, uint16(50), states[0].MgcIndex)
}

func TestPhonMapForwardsNonSyllPhonItems(t *testing.T) {
	s, in, out := newStage(t, nil, nil, nil, 0)

	var bound item.Item
	bound.Set(item.Bound, 1, 0, nil)
	require.Equal(t, ring.Ok, in.PutItem(&bound))

	got := drive(s, out)
	require.Len(t, got, 1)
	require.Equal(t, item.Bound, got[0].Type)
}

func TestPhonMapIdleOnEmptyInput(t *testing.T) {
	s, _, _ := newStage(t, nil, nil, nil, 0)
	require.Equal(t, pipeline.Idle, s.Step(pipeline.Normal))
}
