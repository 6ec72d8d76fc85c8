package audio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cwbudde/wav"
)

// ErrFormatMismatch is returned when a decoded WAV does not match the
// engine's expected format.
var ErrFormatMismatch = errors.New("WAV format mismatch")

// DecodeWAVPCM16 decodes WAV bytes into raw little-endian 16-bit PCM,
// validating that the format is 16 kHz mono 16-bit, per spec §6. Nothing
// in this module calls it: the "play" markup command and `pico-tts
// doctor` do not read WAV files.
func DecodeWAVPCM16(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty WAV input")
	}

	r := bytes.NewReader(data)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	if dec.SampleRate != ExpectedSampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, want %d", ErrFormatMismatch, dec.SampleRate, ExpectedSampleRate)
	}
	if dec.NumChans != ExpectedChannels {
		return nil, fmt.Errorf("%w: channels %d, want %d", ErrFormatMismatch, dec.NumChans, ExpectedChannels)
	}
	if dec.BitDepth != ExpectedBitDepth {
		return nil, fmt.Errorf("%w: bit depth %d, want %d", ErrFormatMismatch, dec.BitDepth, ExpectedBitDepth)
	}

	ibuf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}

	pcm := make([]byte, 0, len(ibuf.Data)*2)
	for _, s := range ibuf.Data {
		pcm = append(pcm, byte(s), byte(s>>8))
	}

	return pcm, nil
}
