package cepstral

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixptDivPowZero(t *testing.T) {
	require.Equal(t, int32(0), fixptDivPow(0, 8))
}

func TestFixptDivPowExactShift(t *testing.T) {
	require.Equal(t, int32(1), fixptDivPow(256, 8))
	require.Equal(t, int32(-1), fixptDivPow(-256, 8))
}

func TestFixptMultIdentity(t *testing.T) {
	for _, bigpow := range []uint8{4, 8, 12} {
		one := int32(1) << bigpow
		require.Equal(t, one, fixptMult(one, one, bigpow, false), "bigpow=%d", bigpow)
	}
}

func TestFixptDivSelfRatioIsOne(t *testing.T) {
	const bigpow = 8
	require.Equal(t, int32(1<<bigpow), fixptDiv(5, 5, bigpow))
	require.Equal(t, int32(-1<<bigpow), fixptDiv(-5, 5, bigpow))
}

func TestFixptDivPowRoundsTowardNearest(t *testing.T) {
	// 129 / 256 rounds up to 1 at pow=8 (big = 128, (129+128)>>8 == 1).
	require.Equal(t, int32(1), fixptDivPow(129, 8))
	// 126 / 256 rounds down to 0.
	require.Equal(t, int32(0), fixptDivPow(126, 8))
}

func TestHighestBit(t *testing.T) {
	require.Equal(t, uint8(0), highestBit(0))
	require.Equal(t, uint8(1), highestBit(1))
	require.Equal(t, uint8(8), highestBit(0x80))
	require.Equal(t, uint8(9), highestBit(0x100))
}

func TestFixptInvDiagEleInvertsPowerOfTwo(t *testing.T) {
	// d = 1<<4 in base bigpow=4 represents the value 1.0; its inverse in
	// base invpow=8 should be 1<<8 (1.0 again), with no row rescale
	// needed.
	inv, rowscpow := fixptInvDiagEle(1<<4, 4, 8)
	require.Equal(t, uint8(0), rowscpow)
	require.Equal(t, int32(1<<8), inv)
}
