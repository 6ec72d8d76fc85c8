package resource

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildResourceFile assembles a minimal valid resource file: a leading
// foreign-header prefix, the obfuscated magic, the kb count, the
// directory, then the kb payload bytes back to back.
func buildResourceFile(prefix int, kbs map[byte]string, payloads map[byte][]byte) []byte {
	var dir []byte
	var data []byte

	ids := make([]byte, 0, len(kbs))
	for id := range kbs {
		ids = append(ids, id)
	}

	for _, id := range ids {
		name := kbs[id]
		payload := payloads[id]

		dir = append(dir, id)
		dir = binary.LittleEndian.AppendUint32(dir, uint32(len(data)))
		dir = binary.LittleEndian.AppendUint32(dir, uint32(len(payload)))
		dir = append(dir, byte(len(name)))
		dir = append(dir, name...)

		data = append(data, payload...)
	}

	buf := make([]byte, prefix)
	buf = append(buf, magicPlain[:]...)
	for i := 0; i < 4; i++ {
		buf[prefix+i] ^= magicKey[i]
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ids)))
	buf = append(buf, dir...)
	buf = append(buf, data...)

	return buf
}

func TestLoadResourceRoundTrip(t *testing.T) {
	raw := buildResourceFile(5, map[byte]string{1: "alpha", 2: "beta"}, map[byte][]byte{
		1: []byte("hello"),
		2: []byte("world!"),
	})

	r, err := LoadResource("r1", raw)
	require.NoError(t, err)
	require.Equal(t, "r1", r.Name)
	require.Len(t, r.KBs, 2)

	kb1, ok := r.KB(1)
	require.True(t, ok)
	require.Equal(t, "alpha", kb1.Name)
	require.Equal(t, []byte("hello"), kb1.Data)

	kb2, ok := r.KB(2)
	require.True(t, ok)
	require.Equal(t, []byte("world!"), kb2.Data)

	_, ok = r.KB(99)
	require.False(t, ok)
}

func TestLoadResourceMagicNotFound(t *testing.T) {
	_, err := LoadResource("bad", make([]byte, 128))
	require.ErrorIs(t, err, ErrUnexpectedFileType)
}

func TestLoadResourceTruncatedDirectory(t *testing.T) {
	raw := buildResourceFile(0, map[byte]string{1: "alpha"}, map[byte][]byte{1: []byte("hi")})
	raw = raw[:len(raw)-3] // cut into the payload/directory tail

	_, err := LoadResource("trunc", raw)
	require.Error(t, err)
}

func TestLoadResourceTooSmall(t *testing.T) {
	_, err := LoadResource("tiny", []byte{1, 2})
	require.ErrorIs(t, err, ErrUnexpectedFileType)
}
