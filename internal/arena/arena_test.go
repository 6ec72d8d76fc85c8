package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAllocateDeallocateRoundTrip(t *testing.T) {
	buf := make([]byte, 4096)
	a, err := New(buf)
	require.NoError(t, err)

	off, err := a.Allocate(100)
	require.NoError(t, err)

	used, _, peak := a.Usage()
	require.Positive(t, used)
	require.Equal(t, used, peak)

	require.NoError(t, a.Deallocate(off))

	used, _, _ = a.Usage()
	require.Zero(t, used)
}

func TestDeallocateNullIsNoop(t *testing.T) {
	buf := make([]byte, 1024)
	a, err := New(buf)
	require.NoError(t, err)

	require.NoError(t, a.Deallocate(0))
}

func TestAllocateOutOfMemory(t *testing.T) {
	buf := make([]byte, 128)
	a, err := New(buf)
	require.NoError(t, err)

	_, err = a.Allocate(10000)
	require.Error(t, err)
}

func TestCoalescingMergesAdjacentFreeCells(t *testing.T) {
	buf := make([]byte, 4096)
	a, err := New(buf)
	require.NoError(t, err)

	offA, err := a.Allocate(64)
	require.NoError(t, err)
	offB, err := a.Allocate(64)
	require.NoError(t, err)
	offC, err := a.Allocate(64)
	require.NoError(t, err)

	require.NoError(t, a.Deallocate(offA))
	require.NoError(t, a.Deallocate(offC))
	require.NoError(t, a.Deallocate(offB))

	assertNoAdjacentFreeCells(t, a)

	used, _, _ := a.Usage()
	require.Zero(t, used)
}

type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func assertNoAdjacentFreeCells(t fataler, a *Arena) {
	t.Helper()
	cells := a.DebugCells()
	for i := 0; i+1 < len(cells); i++ {
		if cells[i].Free && cells[i+1].Free {
			t.Fatalf("adjacent free cells at %d and %d were not coalesced", cells[i].Addr, cells[i+1].Addr)
		}
	}
}

func sumSizes(cells []Cell, free bool) int64 {
	var sum int64
	for _, c := range cells {
		if c.Free == free {
			sum += int64(c.Size)
		}
	}

	return sum
}

// TestArenaConservation is Testable Property §8.1: for any sequence of
// allocate/deallocate calls, in-use + free + sentinel overhead equals the
// original region size.
func TestArenaConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		regionSize := rapid.IntRange(512, 8192).Draw(t, "regionSize")
		buf := make([]byte, regionSize)
		a, err := New(buf)
		require.NoError(t, err)

		var live []int32

		steps := rapid.IntRange(0, 64).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(live) > 0 && rapid.Boolean().Draw(t, "doFree") {
				idx := rapid.IntRange(0, len(live)-1).Draw(t, "idx")
				require.NoError(t, a.Deallocate(live[idx]))
				live = append(live[:idx], live[idx+1:]...)
				continue
			}

			size := rapid.IntRange(1, 200).Draw(t, "size")
			off, err := a.Allocate(size)
			if err != nil {
				continue
			}
			live = append(live, off)
		}

		cells := a.DebugCells()
		inUse := sumSizes(cells, false) // includes the two bookend cell headers
		free := sumSizes(cells, true)
		total := inUse + free + int64(prefixLen)
		require.Equal(t, int64(regionSize), total)

		assertNoAdjacentFreeCells(t, a)
	})
}
