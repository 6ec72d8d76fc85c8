package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Expected WAV format for picogo engine output: 16 kHz, mono, 16-bit PCM
// per spec §6.
const (
	ExpectedSampleRate = 16000
	ExpectedChannels   = 1
	ExpectedBitDepth   = 16
)

func toUint32Checked(value int64, label string) (uint32, error) {
	const maxUint32 = int64(^uint32(0))
	if value < 0 || value > maxUint32 {
		return 0, fmt.Errorf("%s exceeds uint32: %d", label, value)
	}

	return uint32(value), nil
}

// EncodeWAVPCM16 wraps raw little-endian 16-bit PCM bytes, as pulled from
// the engine's tail ring by get_data, in a RIFF/WAVE/fmt/data container.
// pcm must hold a whole number of 2-byte samples.
//
//nolint:funlen // WAV header construction stays explicit and validated in one place.
func EncodeWAVPCM16(pcm []byte, sampleRate int) ([]byte, error) {
	if sampleRate < 1 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm byte length %d is not a whole number of samples", len(pcm))
	}

	const channels = ExpectedChannels
	const bitsPerSample = ExpectedBitDepth
	byteRate := int64(sampleRate) * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := int64(len(pcm))
	riffSize := int64(4+(8+16)+8) + dataSize

	riffSizeU32, err := toUint32Checked(riffSize, "riff size")
	if err != nil {
		return nil, err
	}

	sampleRateU32, err := toUint32Checked(int64(sampleRate), "sample rate")
	if err != nil {
		return nil, err
	}

	byteRateU32, err := toUint32Checked(byteRate, "byte rate")
	if err != nil {
		return nil, err
	}

	dataSizeU32, err := toUint32Checked(dataSize, "data size")
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, riffSizeU32)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, sampleRateU32)
	_ = binary.Write(buf, binary.LittleEndian, byteRateU32)
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataSizeU32)
	buf.Write(pcm)

	return buf.Bytes(), nil
}
