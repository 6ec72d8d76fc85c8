package sentphon

import (
	"testing"

	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/item"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/example/go-pico-tts/internal/ring"
	"github.com/stretchr/testify/require"
)

func newStage(t *testing.T) (*Stage, *ring.Ring, *ring.Ring) {
	t.Helper()

	in := ring.New(make([]byte, 128))
	out := ring.New(make([]byte, 128))
	s := New(in, out, except.New())
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

func TestSyllabifySplitsOnVowelRunBoundaries(t *testing.T) {
	require.Equal(t, []string{"ba", "na", "na"}, syllabify("banana"))
	require.Equal(t, []string{"cat"}, syllabify("cat"))
	require.Empty(t, syllabify(""))
}

func TestSentPhonEmitsSyllPhonPerSyllableWithAccentOnFirst(t *testing.T) {
	s, in, out := newStage(t)

	var wp item.Item
	wp.Set(item.WordPhon, 2, 1, []byte("banana")) // pos=2, accented
	require.Equal(t, ring.Ok, in.PutItem(&wp))

	got := drive(s, out)
	require.Len(t, got, 3)
	for _, sp := range got {
		require.Equal(t, item.SyllPhon, sp.Type)
		require.Equal(t, byte(2), sp.Info2)
	}
	require.Equal(t, byte(1), got[0].Info1)
	require.Equal(t, byte(0), got[1].Info1)
	require.Equal(t, byte(0), got[2].Info1)
	require.Equal(t, "ba", string(got[0].PayloadBytes()))
	require.Equal(t, "na", string(got[1].PayloadBytes()))
	require.Equal(t, "na", string(got[2].PayloadBytes()))
}

func TestSentPhonUnaccentedWordCarriesNoAccent(t *testing.T) {
	s, in, out := newStage(t)

	var wp item.Item
	wp.Set(item.WordPhon, 0, 0, []byte("cat"))
	require.Equal(t, ring.Ok, in.PutItem(&wp))

	got := drive(s, out)
	require.Len(t, got, 1)
	require.Equal(t, byte(0), got[0].Info1)
}

func TestSentPhonForwardsBoundAndCmd(t *testing.T) {
	s, in, out := newStage(t)

	var bound item.Item
	bound.Set(item.Bound, 1, 0, nil)
	require.Equal(t, ring.Ok, in.PutItem(&bound))

	got := drive(s, out)
	require.Len(t, got, 1)
	require.Equal(t, item.Bound, got[0].Type)
}

func TestSentPhonIdleOnEmptyInput(t *testing.T) {
	s, _, _ := newStage(t)
	require.Equal(t, pipeline.Idle, s.Step(pipeline.Normal))
}
