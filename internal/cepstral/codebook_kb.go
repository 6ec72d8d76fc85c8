package cepstral

import (
	"errors"
	"fmt"
)

// ErrCodebookCorrupt is returned by DecodeCodebook when a knowledge base's
// bytes are too short for its own declared header fields.
var ErrCodebookCorrupt = errors.New("cepstral: codebook corrupt")

// codebookHeaderLen is the fixed prefix before the two per-coefficient
// shift tables: NumVUV, CepOrder, NumDeltas, BigPow, MeanPow, VecSize.
const codebookHeaderLen = 6

// DecodeCodebook parses one LFZ or MGC PDF resource from a knowledge
// base's raw bytes (spec §4.8, §6): a fixed header of single-byte fields
// followed by the two 3*CepOrder shift tables and the flat vector table,
// mirroring the field layout picocep.c's pico_initialize reads out of the
// LFZ/MGC resource headers before ever touching a vector.
func DecodeCodebook(data []byte) (*Codebook, error) {
	if len(data) < codebookHeaderLen {
		return nil, fmt.Errorf("%w: header truncated", ErrCodebookCorrupt)
	}

	cb := &Codebook{
		NumVUV:    data[0],
		CepOrder:  data[1],
		NumDeltas: data[2],
		BigPow:    data[3],
		MeanPow:   data[4],
		VecSize:   data[5],
	}

	pos := codebookHeaderLen
	shiftLen := 3 * int(cb.CepOrder)

	if pos+2*shiftLen > len(data) {
		return nil, fmt.Errorf("%w: shift tables truncated", ErrCodebookCorrupt)
	}

	cb.MeanPowUm = append([]byte(nil), data[pos:pos+shiftLen]...)
	pos += shiftLen
	cb.IvarPow = append([]byte(nil), data[pos:pos+shiftLen]...)
	pos += shiftLen

	cb.Content = data[pos:]

	return cb, nil
}

// EncodeCodebook is DecodeCodebook's inverse, used by tests and fixture
// generation to build a valid knowledge-base byte blob from a Codebook.
func EncodeCodebook(cb *Codebook) []byte {
	out := make([]byte, codebookHeaderLen, codebookHeaderLen+len(cb.MeanPowUm)+len(cb.IvarPow)+len(cb.Content))
	out[0] = cb.NumVUV
	out[1] = cb.CepOrder
	out[2] = cb.NumDeltas
	out[3] = cb.BigPow
	out[4] = cb.MeanPow
	out[5] = cb.VecSize
	out = append(out, cb.MeanPowUm...)
	out = append(out, cb.IvarPow...)
	out = append(out, cb.Content...)

	return out
}
