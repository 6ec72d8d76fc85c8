package cepstral

// WantMeanOrIvar selects which statistic getFromPdf retrieves, mirroring
// picocep.c's picocep_WantMeanOrIvar_t.
type WantMeanOrIvar int

const (
	WantMean WantMeanOrIvar = iota
	WantIvar
)

// WantStaticOrDelta selects which coefficient band getFromPdf retrieves,
// mirroring picocep.c's picocep_WantStaticOrDeltax_t.
type WantStaticOrDelta int

const (
	WantStatic WantStaticOrDelta = iota
	WantDelta
	WantDelta2
)

// denseDeltas is the numdeltas sentinel selecting the dense codebook
// layout (picocep.c's `pdf->numdeltas == 0xFF`), where every coefficient
// carries an explicit delta/delta² slot instead of a sparse index/value
// list.
const denseDeltas = 0xFF

// Codebook is a PDF resource's flat vector table (picokpdf_PdfMUL): a
// sequence of n vectors, each vecsize bytes, holding per-coefficient
// static mean, delta mean, delta² mean (dense or sparse), and inverse
// variances, plus a leading voicing byte when NumVUV > 0.
type Codebook struct {
	// NumVUV is 1 when every vector is prefixed by a voicing byte, 0
	// otherwise.
	NumVUV byte
	// CepOrder is the number of cepstral coefficients per vector.
	CepOrder byte
	// NumDeltas is the sparse delta count, or denseDeltas for the dense
	// layout.
	NumDeltas byte
	// BigPow is the fixed-point base (2**BigPow) smoothing arithmetic is
	// carried out in.
	BigPow byte
	// MeanPow is the fixed-point base the final smoothed output is
	// rescaled to.
	MeanPow byte
	// MeanPowUm holds the per-coefficient mean shift across static,
	// delta, and delta² bands (length 3*CepOrder).
	MeanPowUm []byte
	// IvarPow holds the per-coefficient inverse-variance shift across
	// static, delta, and delta² bands (length 3*CepOrder).
	IvarPow []byte
	// VecSize is the byte stride between consecutive vectors.
	VecSize byte
	// Content is the codebook's raw vector table.
	Content []byte
}

func int16LE(b []byte) int32 {
	return int32(int16(uint16(b[0]) | uint16(b[1])<<8))
}

// GetFromPdf retrieves one mean or inverse-variance value for coefficient
// cepnum from the vector starting at vecstart, ported from picocep.c's
// getFromPdf (dense and sparse layouts both honored).
func (cb *Codebook) GetFromPdf(vecstart uint32, cepnum byte, want WantMeanOrIvar, kind WantStaticOrDelta) int32 {
	if cb.NumDeltas == denseDeltas {
		return cb.getFromPdfDense(vecstart, cepnum, want, kind)
	}

	return cb.getFromPdfSparse(vecstart, cepnum, want, kind)
}

func (cb *Codebook) getFromPdfDense(vecstart uint32, cepnum byte, want WantMeanOrIvar, kind WantStaticOrDelta) int32 {
	order := uint32(cb.CepOrder)
	numvuv := uint32(cb.NumVUV)

	if want == WantMean {
		var cc uint32
		switch kind {
		case WantStatic:
			cc = uint32(cepnum)
		case WantDelta:
			cc = order + uint32(cepnum)
		case WantDelta2:
			cc = order*2 + uint32(cepnum)
		}

		p := vecstart + numvuv + cc*2
		mean := int16LE(cb.Content[p : p+2])

		shift := cb.MeanPowUm[cc]
		if mean >= 0 {
			return mean << shift
		}

		return -(-mean << shift)
	}

	var k, shiftIdx uint32
	switch kind {
	case WantStatic:
		k = vecstart + numvuv + order*6 + uint32(cepnum)
		shiftIdx = uint32(cepnum)
	case WantDelta:
		k = vecstart + numvuv + order*7 + uint32(cepnum)
		shiftIdx = order + uint32(cepnum)
	case WantDelta2:
		k = vecstart + numvuv + order*8 + uint32(cepnum)
		shiftIdx = order*2 + uint32(cepnum)
	}

	return int32(cb.Content[k]) << cb.IvarPow[shiftIdx]
}

func (cb *Codebook) getFromPdfSparse(vecstart uint32, cepnum byte, want WantMeanOrIvar, kind WantStaticOrDelta) int32 {
	order := uint32(cb.CepOrder)
	numvuv := uint32(cb.NumVUV)
	numdeltas := uint32(cb.NumDeltas)

	if want == WantMean {
		switch kind {
		case WantStatic:
			p := vecstart + numvuv + uint32(cepnum)*2
			mean := int16LE(cb.Content[p : p+2])
			shift := cb.MeanPowUm[cepnum]
			if mean >= 0 {
				return mean << shift
			}

			return -(-mean << shift)

		case WantDelta:
			target := uint32(cepnum)
			for s := uint32(0); s < numdeltas; s++ {
				idxPos := vecstart + numvuv + order*2 + s
				ind := uint32(cb.Content[idxPos])
				if ind == target {
					p := vecstart + numvuv + order*2 + numdeltas + s*2
					mean := int16LE(cb.Content[p : p+2])
					shift := cb.MeanPowUm[order+target]
					if mean >= 0 {
						return mean << shift
					}

					return -(-mean << shift)
				}
			}

			return 0

		case WantDelta2:
			target := order + uint32(cepnum)
			for s := uint32(0); s < numdeltas; s++ {
				idxPos := vecstart + numvuv + order*2 + s
				ind := uint32(cb.Content[idxPos])
				if ind == target {
					p := vecstart + numvuv + order*2 + numdeltas + s*2
					mean := int16LE(cb.Content[p : p+2])
					shift := cb.MeanPowUm[order*2+uint32(cepnum)]
					if mean >= 0 {
						return mean << shift
					}

					return -(-mean << shift)
				}
			}

			return 0
		}

		return 0
	}

	var k, shiftIdx uint32
	switch kind {
	case WantStatic:
		k = vecstart + numvuv + order*2 + numdeltas*3 + uint32(cepnum)
		shiftIdx = uint32(cepnum)
	case WantDelta:
		k = vecstart + numvuv + order*3 + numdeltas*3 + uint32(cepnum)
		shiftIdx = order + uint32(cepnum)
	case WantDelta2:
		order2 := order * 2
		k = vecstart + numvuv + order2 + numdeltas*3 + order2 + uint32(cepnum)
		shiftIdx = order2 + uint32(cepnum)
	}

	return int32(cb.Content[k]) << cb.IvarPow[shiftIdx]
}

// Voicing returns whether the vector at index is voiced: the LSB of its
// leading voicing byte (picocep.c's getVoiced: "odd value is voiced").
// Returns true unconditionally when the codebook carries no voicing byte.
func (cb *Codebook) Voicing(index uint16) bool {
	if cb.NumVUV == 0 {
		return true
	}

	vecstart := uint32(index) * uint32(cb.VecSize)

	return cb.Content[vecstart]&1 == 1
}
