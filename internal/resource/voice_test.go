package resource

import (
	"testing"

	"github.com/example/go-pico-tts/internal/except"
	"github.com/stretchr/testify/require"
)

func TestManagerVoiceAssembly(t *testing.T) {
	m := NewManager(nil)

	raw1 := buildResourceFile(0, map[byte]string{1: "sig"}, map[byte][]byte{1: []byte("aaa")})
	raw2 := buildResourceFile(0, map[byte]string{2: "dur"}, map[byte][]byte{2: []byte("bbb")})

	_, err := m.LoadResource("sig01", raw1)
	require.NoError(t, err)
	_, err = m.LoadResource("dur01", raw2)
	require.NoError(t, err)

	require.NoError(t, m.CreateVoiceDefinition("en-US"))
	require.NoError(t, m.AddResourceToVoiceDefinition("en-US", "sig01"))
	require.NoError(t, m.AddResourceToVoiceDefinition("en-US", "dur01"))

	v, err := m.CreateVoice("en-US", 1, 2)
	require.NoError(t, err)
	require.Len(t, v.KBs, 2)

	kb, ok := v.KB(1)
	require.True(t, ok)
	require.Equal(t, []byte("aaa"), kb.Data)

	r1 := m.resources["sig01"]
	require.Equal(t, 1, r1.lockCount)

	m.ReleaseVoice(v)
	require.Equal(t, 0, r1.lockCount)
	require.Nil(t, v.KBs)
}

func TestManagerCreateVoiceDefinitionConflict(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.CreateVoiceDefinition("en-US"))
	require.ErrorIs(t, m.CreateVoiceDefinition("en-US"), ErrNameConflict)
}

func TestManagerAddResourceUndefinedVoice(t *testing.T) {
	m := NewManager(nil)
	require.ErrorIs(t, m.AddResourceToVoiceDefinition("ghost", "r1"), ErrNameUndefined)
}

func TestManagerCreateVoiceMissingResource(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.CreateVoiceDefinition("en-US"))
	require.NoError(t, m.AddResourceToVoiceDefinition("en-US", "nope"))

	_, err := m.CreateVoice("en-US")
	require.ErrorIs(t, err, ErrResourceMissing)
}

func TestManagerCreateVoiceMissingKb(t *testing.T) {
	m := NewManager(nil)
	raw := buildResourceFile(0, map[byte]string{1: "sig"}, map[byte][]byte{1: []byte("aaa")})
	_, err := m.LoadResource("sig01", raw)
	require.NoError(t, err)

	require.NoError(t, m.CreateVoiceDefinition("en-US"))
	require.NoError(t, m.AddResourceToVoiceDefinition("en-US", "sig01"))

	_, err = m.CreateVoice("en-US", 1, 99)
	require.ErrorIs(t, err, ErrKbMissing)

	// Releasing on the missing-kb failure path must not leave the
	// resource locked.
	require.Equal(t, 0, m.resources["sig01"].lockCount)
}

func TestManagerUnloadResourceBusy(t *testing.T) {
	m := NewManager(nil)
	raw := buildResourceFile(0, map[byte]string{1: "sig"}, map[byte][]byte{1: []byte("aaa")})
	r, err := m.LoadResource("sig01", raw)
	require.NoError(t, err)

	require.NoError(t, m.CreateVoiceDefinition("en-US"))
	require.NoError(t, m.AddResourceToVoiceDefinition("en-US", "sig01"))

	v, err := m.CreateVoice("en-US")
	require.NoError(t, err)

	require.ErrorIs(t, m.UnloadResource(r), ErrResourceBusy)

	m.ReleaseVoice(v)
	require.NoError(t, m.UnloadResource(r))
}

func TestManagerDuplicateLoadRaisesWarning(t *testing.T) {
	warnings := except.New()
	m := NewManager(warnings)

	raw := buildResourceFile(0, map[byte]string{1: "sig"}, map[byte][]byte{1: []byte("aaa")})
	_, err := m.LoadResource("sig01", raw)
	require.NoError(t, err)

	_, err = m.LoadResource("sig01", raw)
	require.NoError(t, err)
	require.Equal(t, 1, warnings.NumWarnings())
}
