package cepstral

// Operator coefficient tables for the delta/delta² normal-equation
// assembly, ported verbatim from picocep.c's initSmoothing. xi/xsqi are
// the general interior-frame coefficients and squares; x1/x2/xm/xn (and
// their squares) are the boundary-frame variants for the first two and
// last two frames of a sentence.
var (
	xi   = [5]int32{1, -1, 2, -4, 2}
	xsqi = [5]int32{1, 1, 4, 16, 4}

	x1   = [2]int32{-1, 2}
	xsq1 = [2]int32{1, 4}

	x2   = [3]int32{-1, -4, 2}
	xsq2 = [3]int32{1, 16, 4}

	xm   = [3]int32{1, 2, -4}
	xsqm = [3]int32{1, 4, 16}

	xn   = [2]int32{1, 2}
	xsqn = [2]int32{1, 4}
)

// normalEquations holds the pentadiagonal system's three diagonals and
// right-hand side for one coefficient across a sentence's N frames
// (picocep.c's diag0/diag1/diag2/WUm object members).
type normalEquations struct {
	diag0, diag1, diag2, wum []int32
}

// buildSystem assembles the pentadiagonal normal-equation system for one
// cepstral coefficient across the frames indexed by indices, ported from
// picocep.c's makeWUWandWUm. indices holds one codebook index per frame
// (LFZ or MGC, matching whichever codebook cb is).
func buildSystem(cb *Codebook, indices []uint16, cepnum byte) *normalEquations {
	n := len(indices)
	sys := &normalEquations{
		diag0: make([]int32, n),
		diag1: make([]int32, n),
		diag2: make([]int32, n),
		wum:   make([]int32, n),
	}

	vecsize := uint32(cb.VecSize)

	var prevWUm, prevDiag0, prevDiag1, prevDiag1_1, prevDiag2 int32

	for i := 0; i < n; i++ {
		var x, xsq []int32
		var id [2]int
		var idd [3]int
		var numd, numdd int

		switch {
		case i > 1 && i < n-2:
			x, xsq = xi[:], xsqi[:]
			numd, numdd = 2, 3
			id[0], idd[0] = i-1, i-1
			id[1], idd[2] = i+1, i+1
			idd[1] = i
		case i == 0:
			x, xsq = x1[:], xsq1[:]
			numd, numdd = 1, 1
			id[0], idd[0] = 1, 1
		case i == 1:
			x, xsq = x2[:], xsq2[:]
			numd, numdd = 1, 2
			id[0], idd[1] = 2, 2
			idd[0] = 1
		case i == n-2:
			x, xsq = xm[:], xsqm[:]
			numd, numdd = 1, 2
			id[0], idd[0] = n-3, n-3
			idd[1] = n - 2
		case i == n-1:
			x, xsq = xn[:], xsqn[:]
			numd, numdd = 1, 1
			id[0], idd[0] = n-2, n-2
		}

		if i > 0 && indices[i] == indices[i-1] {
			sys.diag0[i] = prevDiag0
			sys.wum[i] = prevWUm
		} else {
			vecstart := uint32(indices[i]) * vecsize
			ivar := cb.GetFromPdf(vecstart, cepnum, WantIvar, WantStatic)
			prevDiag0 = ivar << 2
			sys.diag0[i] = prevDiag0

			mean := cb.GetFromPdf(vecstart, cepnum, WantMean, WantStatic)
			if mean >= 0 {
				prevWUm = mean << 1
			} else {
				prevWUm = -(-mean << 1)
			}
			sys.wum[i] = prevWUm
		}

		for j := 0; j < numd; j++ {
			vecstart := uint32(indices[id[j]]) * vecsize
			ivar := cb.GetFromPdf(vecstart, cepnum, WantIvar, WantDelta)
			sys.diag0[i] += xsq[j] * ivar

			mean := cb.GetFromPdf(vecstart, cepnum, WantMean, WantDelta)
			if mean != 0 {
				sys.wum[i] += x[j] * mean
			}
		}

		for j := 0; j < numdd; j++ {
			vecstart := uint32(indices[idd[j]]) * vecsize
			ivar := cb.GetFromPdf(vecstart, cepnum, WantIvar, WantDelta2)
			sys.diag0[i] += xsq[numd+j] * ivar

			mean := cb.GetFromPdf(vecstart, cepnum, WantMean, WantDelta2)
			if mean != 0 {
				sys.wum[i] += x[numd+j] * mean
			}
		}

		sys.diag0[i] = (sys.diag0[i] + 2) / 4
		sys.wum[i] = (sys.wum[i] + 1) / 2

		if i < n-1 {
			if i < n-2 {
				if i > 0 && indices[i+1] == indices[i] {
					sys.diag1[i] = prevDiag1
				} else {
					vecstart := uint32(indices[i+1]) * vecsize
					prevDiag1 = cb.GetFromPdf(vecstart, cepnum, WantIvar, WantDelta2)
					sys.diag1[i] = prevDiag1
				}
			} else {
				sys.diag1[i] = 0
			}

			if i > 0 {
				if i > 1 && indices[i] == indices[i-1] {
					sys.diag1[i] += prevDiag1_1
				} else {
					vecstart := uint32(indices[i]) * vecsize
					prevDiag1_1 = cb.GetFromPdf(vecstart, cepnum, WantIvar, WantDelta2)
					sys.diag1[i] += prevDiag1_1
				}
			}

			sys.diag1[i] *= -2
		}
	}

	for i := 0; i < n-2; i++ {
		if i > 0 && indices[i+1] == indices[i] {
			sys.diag2[i] = prevDiag2
			continue
		}

		vecstart := uint32(indices[i+1]) * vecsize
		sys.diag2[i] = cb.GetFromPdf(vecstart, cepnum, WantIvar, WantDelta2)
		ivar := cb.GetFromPdf(vecstart, cepnum, WantIvar, WantDelta)
		sys.diag2[i] -= (ivar + 2) / 4
		prevDiag2 = sys.diag2[i]
	}

	return sys
}

// solve performs the LDL-style forward/back substitution that solves
// the pentadiagonal system for the smoothed coefficient trajectory,
// ported from picocep.c's invMatrix. Returns one value per frame, still
// in the WUm fixed-point base (callers right-shift by meanpow).
func (sys *normalEquations) solve(bigpow, invpow uint8, invDoubleDec bool) []int32 {
	n := len(sys.wum)
	invdiag0 := make([]int32, n)

	inv0, rowscpow := fixptInvDiagEle(uint32(sys.diag0[0]), bigpow, invpow)
	invdiag0[0] = inv0

	if sys.diag1[0] >= 0 {
		sys.diag1[0] <<= rowscpow
	} else {
		sys.diag1[0] = -(-sys.diag1[0] << rowscpow)
	}
	sys.diag1[0] = fixptInv(sys.diag1[0], uint32(invdiag0[0]), bigpow, invpow, invDoubleDec)

	if sys.diag2[0] >= 0 {
		sys.diag2[0] <<= rowscpow
	} else {
		sys.diag2[0] = -(-sys.diag2[0] << rowscpow)
	}
	sys.diag2[0] = fixptInv(sys.diag2[0], uint32(invdiag0[0]), bigpow, invpow, invDoubleDec)

	if sys.wum[0] >= 0 {
		sys.wum[0] <<= rowscpow
	} else {
		sys.wum[0] = -(-sys.wum[0] << rowscpow)
	}

	prevrowscpow := uint8(0)

	for j := 1; j < n; j++ {
		sys.wum[j] -= fixptMult(sys.diag1[j-1], sys.wum[j-1], bigpow, invDoubleDec)
		if j > 1 {
			sys.wum[j] -= fixptMult(sys.diag2[j-2], sys.wum[j-2], bigpow, invDoubleDec)
		}

		v1 := fixptMult(sys.diag1[j-1]/(1<<rowscpow), sys.diag0[j-1], bigpow, invDoubleDec)
		sys.diag0[j] -= fixptMult(sys.diag1[j-1], v1, bigpow, invDoubleDec)

		var v2 int32
		if j > 1 {
			v2 = fixptMult(sys.diag2[j-2]/(1<<prevrowscpow), sys.diag0[j-2], bigpow, invDoubleDec)
			sys.diag0[j] -= fixptMult(sys.diag2[j-2], v2, bigpow, invDoubleDec)
		}

		prevrowscpow = rowscpow
		inv, rp := fixptInvDiagEle(uint32(sys.diag0[j]), bigpow, invpow)
		invdiag0[j] = inv
		rowscpow = rp

		if sys.wum[j] >= 0 {
			sys.wum[j] <<= rowscpow
		} else {
			sys.wum[j] = -(-sys.wum[j] << rowscpow)
		}

		if j < n-1 {
			h := fixptMult(sys.diag2[j-1], v1, bigpow, invDoubleDec)
			d := sys.diag1[j] - h
			if d >= 0 {
				sys.diag1[j] = fixptInv(d<<rowscpow, uint32(invdiag0[j]), bigpow, invpow, invDoubleDec)
			} else {
				sys.diag1[j] = fixptInv(-(-d<<rowscpow), uint32(invdiag0[j]), bigpow, invpow, invDoubleDec)
			}
		}

		if j < n-2 {
			if sys.diag2[j] >= 0 {
				sys.diag2[j] = fixptInv(sys.diag2[j]<<rowscpow, uint32(invdiag0[j]), bigpow, invpow, invDoubleDec)
			} else {
				sys.diag2[j] = fixptInv(-(-sys.diag2[j]<<rowscpow), uint32(invdiag0[j]), bigpow, invpow, invDoubleDec)
			}
		}
	}

	for j := 0; j < n; j++ {
		sys.wum[j] = fixptInv(sys.wum[j], uint32(invdiag0[j]), bigpow, invpow, invDoubleDec)
		if invDoubleDec {
			sys.wum[j] = fixptDivPow(sys.wum[j], bigpow)
		}
	}

	for j := n - 2; j >= 0; j-- {
		sys.wum[j] -= fixptMult(sys.diag1[j], sys.wum[j+1], bigpow, invDoubleDec)
		if j < n-2 {
			sys.wum[j] -= fixptMult(sys.diag2[j], sys.wum[j+2], bigpow, invDoubleDec)
		}
	}

	return sys.wum
}

// minSmoothFrames is the smallest sentence length invMatrix's boundary
// cases assume (below this the boundary branches in buildSystem overlap
// ambiguously); shorter sentences use solveDirect instead, matching
// picocep.c's getDirect fallback.
const minSmoothFrames = 4

// solveDirect computes the un-smoothed static mean/ivar ratio per frame,
// the direct fallback used when a sentence is too short to support the
// pentadiagonal window (picocep.c's getDirect).
func solveDirect(cb *Codebook, indices []uint16, cepnum byte, bigpow uint8) []int32 {
	out := make([]int32, len(indices))

	var prevMean int32

	for i, idx := range indices {
		if i > 0 && indices[i] == indices[i-1] {
			out[i] = prevMean

			continue
		}

		vecstart := uint32(idx) * uint32(cb.VecSize)
		mean := cb.GetFromPdf(vecstart, cepnum, WantMean, WantStatic)
		ivar := cb.GetFromPdf(vecstart, cepnum, WantIvar, WantStatic)
		prevMean = fixptDiv(mean, ivar, bigpow)
		out[i] = prevMean
	}

	return out
}

// SmoothCoefficient solves for one coefficient's smoothed trajectory
// across a sentence's frames, selecting the pentadiagonal LDL solve or
// the direct fallback depending on sentence length.
func (cb *Codebook) SmoothCoefficient(indices []uint16, cepnum byte, invpow uint8, invDoubleDec bool) []int16 {
	var raw []int32
	if len(indices) < minSmoothFrames {
		raw = solveDirect(cb, indices, cepnum, cb.BigPow)
	} else {
		sys := buildSystem(cb, indices, cepnum)
		raw = sys.solve(cb.BigPow, invpow, invDoubleDec)
	}

	out := make([]int16, len(raw))
	for i, v := range raw {
		out[i] = int16(v / (1 << cb.MeanPow))
	}

	return out
}
