// Package arena implements the bump-carving, free-list allocator described
// in spec §4.1: a single caller-supplied byte region is divided into cells
// with sign-encoded size headers and a doubly linked free list threaded
// through two permanent sentinel records, so insertion and removal never
// need a nil check.
package arena

import (
	"encoding/binary"
	"errors"
)

// Align is the platform-independent alignment every cell's payload is
// rounded up to.
const Align = 8

// cellHeader is size(int32) | left(int32) | prev(int32) | next(int32).
// prev/next are only meaningful while the cell is free; used cells leave
// them stale.
const cellHeader = 16

// prefixLen reserves two 8-byte sentinel records ahead of the bookend
// cells: headSentinel at offset 0 (its "next" lives at [4:8]), tailSentinel
// at offset 8 (its "prev" lives at [8:12]).
const prefixLen = 16

const headAddr = int32(0)
const tailAddr = int32(8)

// minSplit is the smallest remainder worth carving off as its own free
// cell; Allocate skips a free cell whose remainder would be smaller than
// this unless the cell fits exactly.
const minSplit = cellHeader + Align

var (
	// ErrRegionTooSmall is returned by New when the supplied region cannot
	// hold the sentinel prefix and both bookend cells.
	ErrRegionTooSmall = errors.New("arena: region too small")
	// ErrInvalidAddress is returned by Deallocate when addr was not
	// produced by this arena's Allocate.
	ErrInvalidAddress = errors.New("arena: invalid address")
)

// Arena carves a caller-supplied region into allocatable cells. It never
// grows or replaces buf; all bookkeeping lives inside buf itself so no Go
// heap allocation occurs after New.
type Arena struct {
	buf []byte

	startBookend int32
	endBookend   int32

	used      uint32
	peak      uint32
	deltaBase uint32
}

// New carves a fresh arena out of buf. buf's backing memory is owned by the
// caller for the lifetime of the Arena.
func New(buf []byte) (*Arena, error) {
	if len(buf) < prefixLen+3*cellHeader+Align {
		return nil, ErrRegionTooSmall
	}

	a := &Arena{buf: buf}

	a.startBookend = prefixLen
	a.endBookend = int32(len(buf)) - cellHeader
	middle := a.startBookend + cellHeader

	a.writeCellRaw(a.startBookend, -cellHeader, -1)
	a.writeCellRaw(a.endBookend, -cellHeader, middle)

	middleSize := a.endBookend - middle
	a.writeCellRaw(middle, middleSize, a.startBookend)

	a.setNext(headAddr, tailAddr)
	a.setPrev(tailAddr, headAddr)
	a.insertFree(middle)

	return a, nil
}

// Sub carves a nested Arena over a slice of this arena's own allocated
// memory, used by the engine to give a pipeline its own working-storage
// region (spec §3, Engine lifecycle).
func (a *Arena) Sub(size int) (*Arena, error) {
	off, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}

	return New(a.buf[off : int(off)+size])
}

func alignUp(n int) int32 {
	aligned := (n + Align - 1) / Align * Align

	return int32(aligned)
}

func (a *Arena) readI32(off int32) int32 {
	return int32(binary.LittleEndian.Uint32(a.buf[off : off+4]))
}

func (a *Arena) writeI32(off, v int32) {
	binary.LittleEndian.PutUint32(a.buf[off:off+4], uint32(v))
}

// writeCellRaw sets a cell's size and left-neighbor fields directly,
// leaving prev/next untouched (the caller threads free-list links
// separately).
func (a *Arena) writeCellRaw(addr, size, left int32) {
	a.writeI32(addr, size)
	a.writeI32(addr+4, left)
}

func (a *Arena) cellSize(addr int32) int32   { return a.readI32(addr) }
func (a *Arena) cellLeft(addr int32) int32   { return a.readI32(addr + 4) }
func (a *Arena) setLeft(addr, left int32)    { a.writeI32(addr+4, left) }
func (a *Arena) isFree(addr int32) bool      { return a.cellSize(addr) > 0 }
func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}

	return v
}

func (a *Arena) getNext(addr int32) int32 {
	if addr == headAddr {
		return a.readI32(4)
	}

	return a.readI32(addr + 12)
}

func (a *Arena) setNext(addr, v int32) {
	if addr == headAddr {
		a.writeI32(4, v)
		return
	}
	a.writeI32(addr+12, v)
}

func (a *Arena) getPrev(addr int32) int32 {
	if addr == tailAddr {
		return a.readI32(8)
	}

	return a.readI32(addr + 8)
}

func (a *Arena) setPrev(addr, v int32) {
	if addr == tailAddr {
		a.writeI32(8, v)
		return
	}
	a.writeI32(addr+8, v)
}

// insertFree links addr in immediately after the head sentinel. No branch
// is needed: head and tail sentinels always exist, so every cell always
// has a real predecessor and successor to relink.
func (a *Arena) insertFree(addr int32) {
	next := a.getNext(headAddr)
	a.setNext(headAddr, addr)
	a.setPrev(addr, headAddr)
	a.setNext(addr, next)
	a.setPrev(next, addr)
}

func (a *Arena) removeFree(addr int32) {
	p := a.getPrev(addr)
	n := a.getNext(addr)
	a.setNext(p, n)
	a.setPrev(n, p)
}

// Allocate returns the offset of a size-byte usable region, or an error if
// no free cell is large enough. It walks the free list for the first cell
// that fits exactly or with enough slack to split.
func (a *Arena) Allocate(size int) (int32, error) {
	if size < 0 {
		return 0, errors.New("arena: negative size")
	}

	need := alignUp(size)
	total := cellHeader + need

	addr := a.getNext(headAddr)
	for addr != tailAddr {
		cellSize := a.cellSize(addr)
		if cellSize == total || cellSize-total >= minSplit {
			left := a.cellLeft(addr)
			a.removeFree(addr)

			if cellSize-total >= minSplit {
				tailCellAddr := addr + total
				tailCellSize := cellSize - total
				a.writeCellRaw(tailCellAddr, tailCellSize, addr)
				a.insertFree(tailCellAddr)

				rightOfTail := tailCellAddr + tailCellSize
				a.setLeft(rightOfTail, tailCellAddr)

				a.writeCellRaw(addr, -total, left)
			} else {
				a.writeCellRaw(addr, -cellSize, left)
				total = cellSize
			}

			a.used += uint32(total)
			if a.used > a.peak {
				a.peak = a.used
			}

			return addr + cellHeader, nil
		}

		addr = a.getNext(addr)
	}

	return 0, errors.New("arena: out of memory")
}

// Deallocate releases a region previously returned by Allocate, coalescing
// with any free left/right neighbor. A zero addr is a no-op, matching the
// "deallocation of a null pointer" rule in spec §4.1.
func (a *Arena) Deallocate(addr int32) error {
	if addr == 0 {
		return nil
	}
	if addr < prefixLen+cellHeader || int(addr) >= len(a.buf) {
		return ErrInvalidAddress
	}

	cellAddr := addr - cellHeader
	raw := a.cellSize(cellAddr)
	if raw >= 0 {
		return ErrInvalidAddress // already free: double-free
	}
	size := absInt32(raw)
	a.used -= uint32(size)

	left := a.cellLeft(cellAddr)

	rightAddr := cellAddr + size
	if rightAddr != a.endBookend && a.isFree(rightAddr) {
		rightSize := a.cellSize(rightAddr)
		a.removeFree(rightAddr)
		size += rightSize
	}

	if left != -1 && a.isFree(left) {
		leftSize := a.cellSize(left)
		a.removeFree(left)
		cellAddr = left
		size += leftSize
		left = a.cellLeft(cellAddr)
	}

	a.writeCellRaw(cellAddr, size, left)
	a.setLeft(cellAddr+size, cellAddr)
	a.insertFree(cellAddr)

	return nil
}

// Bytes returns the raw region backing a previously allocated offset,
// exactly size bytes long; the cell's usable capacity (which may be
// larger due to alignment rounding) is not consulted.
func (a *Arena) Bytes(addr int32, size int) []byte {
	return a.buf[addr : int(addr)+size]
}

// Usage reports bytes currently in use, the signed delta since the last
// call to ResetDelta, and the high-water mark since New.
func (a *Arena) Usage() (used uint32, delta int64, peak uint32) {
	return a.used, int64(a.used) - int64(a.deltaBase), a.peak
}

// ResetDelta rebases the delta returned by Usage to the current usage.
func (a *Arena) ResetDelta() {
	a.deltaBase = a.used
}

// Capacity is the total number of bytes available to allocations (the
// region size minus the sentinel prefix and both bookend cells).
func (a *Arena) Capacity() int32 {
	return a.endBookend - (a.startBookend + cellHeader)
}

// Cell describes one cell in address order, for property tests verifying
// conservation (§8.1) and coalescing (§8.2).
type Cell struct {
	Addr int32
	Size int32
	Free bool
}

// DebugCells walks every cell from the start bookend to the end bookend in
// address order.
func (a *Arena) DebugCells() []Cell {
	var cells []Cell

	addr := a.startBookend
	for addr <= a.endBookend {
		raw := a.cellSize(addr)
		size := absInt32(raw)
		cells = append(cells, Cell{Addr: addr, Size: size, Free: raw > 0})
		addr += size
	}

	return cells
}
