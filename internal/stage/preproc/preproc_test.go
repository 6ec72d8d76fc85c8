package preproc

import (
	"testing"

	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
	"github.com/example/go-pico-tts/internal/stage/tokenizer"
	"github.com/stretchr/testify/require"
)

func newStage(t *testing.T, table *Table, inCap, outCap int) (*Stage, *ring.Ring, *ring.Ring) {
	t.Helper()

	in := ring.New(make([]byte, inCap))
	out := ring.New(make([]byte, outCap))
	s := New(in, out, table, except.New())
	require.NoError(t, s.Initialize(pipeline.Full))

	return s, in, out
}

func putToken(t *testing.T, r *ring.Ring, class tokenizer.CharClass, payload string) {
	t.Helper()

	var it item.Item
	it.Set(item.Token, byte(class), 0, []byte(payload))
	require.Equal(t, ring.Ok, r.PutItem(&it))
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

func TestPreprocRewritesDigitRun(t *testing.T) {
	table := NewTable([]Rule{
		{Class: byte(tokenizer.Digit), Replace: map[string]string{"5": "five"}},
	})
	s, in, out := newStage(t, table, 64, 64)
	putToken(t, in, tokenizer.Digit, "5")

	got := drive(s, out)
	require.Len(t, got, 1)
	require.Equal(t, item.Token, got[0].Type)
	require.Equal(t, byte(tokenizer.Letter), got[0].Info1)
	require.Equal(t, "five", string(got[0].PayloadBytes()))
}

func TestPreprocForwardsUnmatchedRun(t *testing.T) {
	table := NewTable([]Rule{
		{Class: byte(tokenizer.Digit), Replace: map[string]string{"5": "five"}},
	})
	s, in, out := newStage(t, table, 64, 64)
	putToken(t, in, tokenizer.Digit, "9")

	got := drive(s, out)
	require.Len(t, got, 1)
	require.Equal(t, byte(tokenizer.Digit), got[0].Info1)
	require.Equal(t, "9", string(got[0].PayloadBytes()))
}

func TestPreprocForwardsNonTokenItems(t *testing.T) {
	s, in, out := newStage(t, nil, 64, 64)

	var cmd item.Item
	cmd.Set(item.Cmd, 1, 0, nil)
	require.Equal(t, ring.Ok, in.PutItem(&cmd))

	got := drive(s, out)
	require.Len(t, got, 1)
	require.Equal(t, item.Cmd, got[0].Type)
}

func TestPreprocNilTableForwardsEverything(t *testing.T) {
	s, in, out := newStage(t, nil, 64, 64)
	putToken(t, in, tokenizer.Digit, "5")

	got := drive(s, out)
	require.Len(t, got, 1)
	require.Equal(t, byte(tokenizer.Digit), got[0].Info1)
	require.Equal(t, "5", string(got[0].PayloadBytes()))
}

func TestPreprocOutFullBackpressure(t *testing.T) {
	table := NewTable([]Rule{
		{Class: byte(tokenizer.Digit), Replace: map[string]string{"5": "five"}},
	})
	s, in, out := newStage(t, table, 64, 4) // too small for any item
	putToken(t, in, tokenizer.Digit, "5")

	require.Equal(t, pipeline.OutFull, s.Step(pipeline.Normal))
	require.Equal(t, pipeline.OutFull, s.Step(pipeline.Normal))
}

func TestPreprocIdleOnEmptyInput(t *testing.T) {
	s, _, _ := newStage(t, nil, 16, 16)
	require.Equal(t, pipeline.Idle, s.Step(pipeline.Normal))
}
