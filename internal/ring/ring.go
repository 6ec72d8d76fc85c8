// Package ring implements the fixed-capacity character buffer of spec
// §4.3: a byte ring with item-aware get/put on top of raw byte access.
package ring

import "github.com/example/go-pico-tts/internal/item"

// Signal is the flow-control result of a ring operation. Signals are not
// errors; Eof in particular is a normal "nothing to read" condition.
type Signal int

const (
	Ok Signal = iota
	Eof
	BufOverflow  // destination too small, or source cannot accept the write
	BufUnderflow // source has no complete item
)

func (s Signal) String() string {
	switch s {
	case Ok:
		return "Ok"
	case Eof:
		return "Eof"
	case BufOverflow:
		return "BufOverflow"
	case BufUnderflow:
		return "BufUnderflow"
	default:
		return "Signal(?)"
	}
}

// Ring is a fixed-capacity circular byte buffer. buf is caller-supplied
// (normally carved from an arena) and never grows.
type Ring struct {
	buf   []byte
	head  int // next byte to read
	count int // bytes currently stored
}

// New wraps buf as an empty ring. buf's length is the ring's capacity.
func New(buf []byte) *Ring {
	return &Ring{buf: buf}
}

// Capacity returns the ring's fixed byte capacity.
func (r *Ring) Capacity() int { return len(r.buf) }

// Len returns the number of bytes currently stored.
func (r *Ring) Len() int { return r.count }

// Empty reports whether the ring holds no bytes.
func (r *Ring) Empty() bool { return r.count == 0 }

// Full reports whether the ring has no free space.
func (r *Ring) Full() bool { return r.count == len(r.buf) }

func (r *Ring) free() int { return len(r.buf) - r.count }

// PutCh appends one raw byte, used at the pipeline's text head.
func (r *Ring) PutCh(b byte) Signal {
	if r.Full() {
		return BufOverflow
	}

	tail := (r.head + r.count) % len(r.buf)
	r.buf[tail] = b
	r.count++

	return Ok
}

// GetCh removes and returns one raw byte.
func (r *Ring) GetCh() (byte, Signal) {
	if r.Empty() {
		return 0, Eof
	}

	b := r.buf[r.head]
	r.head = (r.head + 1) % len(r.buf)
	r.count--

	return b, Ok
}

// peekAt reads the byte at logical offset i from head without consuming
// it. Caller must ensure i < r.count.
func (r *Ring) peekAt(i int) byte {
	return r.buf[(r.head+i)%len(r.buf)]
}

// PutItem writes a whole item (header + payload) atomically: if there is
// not enough free space, the ring is left completely unchanged and
// BufOverflow is returned (Testable Property §8.3).
func (r *Ring) PutItem(it *item.Item) Signal {
	need := it.WireLen()
	if need > r.free() {
		return BufOverflow
	}

	tail := (r.head + r.count) % len(r.buf)
	tail = r.writeByte(tail, byte(it.Type))
	tail = r.writeByte(tail, it.Info1)
	tail = r.writeByte(tail, it.Info2)
	tail = r.writeByte(tail, it.Length)
	for i := 0; i < int(it.Length); i++ {
		tail = r.writeByte(tail, it.Payload[i])
	}
	r.count += need

	return Ok
}

func (r *Ring) writeByte(at int, b byte) int {
	r.buf[at] = b

	return (at + 1) % len(r.buf)
}

// GetItem removes and returns the leading whole item. It returns Eof if
// the ring is empty, or BufUnderflow if fewer bytes than a complete item
// are present (which should not happen given PutItem's atomicity, but is
// guarded against defensively).
func (r *Ring) GetItem(out *item.Item) Signal {
	if r.Empty() {
		return Eof
	}
	if r.count < item.HeaderLen {
		return BufUnderflow
	}

	length := r.peekAt(3)
	total := item.HeaderLen + int(length)
	if r.count < total {
		return BufUnderflow
	}

	out.Type = item.Type(r.peekAt(0))
	out.Info1 = r.peekAt(1)
	out.Info2 = r.peekAt(2)
	out.Length = length
	for i := 0; i < int(length); i++ {
		out.Payload[i] = r.peekAt(item.HeaderLen + i)
	}

	r.head = (r.head + total) % len(r.buf)
	r.count -= total

	return Ok
}

// GetSpeechData behaves like GetItem but returns only the payload when the
// leading item has type Frame; items of other types are silently dropped
// (spec §4.3), continuing until a Frame item is found or the ring empties.
func (r *Ring) GetSpeechData(out []byte) (n int, sig Signal) {
	var it item.Item

	for {
		sig = r.GetItem(&it)
		if sig != Ok {
			return 0, sig
		}
		if it.Type == item.Frame {
			return copy(out, it.PayloadBytes()), Ok
		}
		// non-Frame item on the tail ring: drop and keep looking.
	}
}

// Reset drops all content.
func (r *Ring) Reset() {
	r.head = 0
	r.count = 0
}
