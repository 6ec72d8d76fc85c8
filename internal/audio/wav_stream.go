package audio

import (
	"encoding/binary"
	"io"
)

// WriteWAVHeaderStreaming writes a 44-byte WAV header suitable for streaming
// where the total data length is not known in advance, as is the case while
// draining an engine's tail ring via repeated get_data calls. Both the RIFF
// chunk size and the data sub-chunk size are set to 0xFFFFFFFF, the
// conventional marker for an unknown/streaming length.
//
// Format: 16 kHz, mono, 16-bit PCM (matching ExpectedSampleRate, spec §6).
func WriteWAVHeaderStreaming(w io.Writer) (int, error) {
	const (
		channels      = ExpectedChannels
		bitsPerSample = ExpectedBitDepth
		sampleRate    = ExpectedSampleRate
		byteRate      = sampleRate * channels * bitsPerSample / 8
		blockAlign    = channels * bitsPerSample / 8
	)

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 0xFFFFFFFF)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], channels)
	binary.LittleEndian.PutUint32(hdr[24:28], sampleRate)
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], 0xFFFFFFFF)

	return w.Write(hdr[:])
}

// WritePCM16 writes raw little-endian 16-bit PCM bytes as pulled straight
// from the engine's tail ring. No further conversion is needed since the
// pipeline already produces 16-bit linear PCM (spec §1).
func WritePCM16(w io.Writer, pcm []byte) (int, error) {
	return w.Write(pcm)
}
