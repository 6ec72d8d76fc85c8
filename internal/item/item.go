// Package item defines the universal currency that flows between pipeline
// stages: a 4-byte-headed, length-prefixed record (spec §3, §6).
package item

import "fmt"

// Type is the one-octet item type tag. Unknown values may only appear in
// transit through a stage that forwards items unchanged (spec §3).
type Type byte

const (
	WordSeqGraph Type = iota + 1
	Token
	WordGraph
	WordIndex
	WordPhon
	SyllPhon
	Bound
	Punc
	Cmd
	Phone
	Frame
	FramePar
	Other
	Err
)

func (t Type) String() string {
	switch t {
	case WordSeqGraph:
		return "WordSeqGraph"
	case Token:
		return "Token"
	case WordGraph:
		return "WordGraph"
	case WordIndex:
		return "WordIndex"
	case WordPhon:
		return "WordPhon"
	case SyllPhon:
		return "SyllPhon"
	case Bound:
		return "Bound"
	case Punc:
		return "Punc"
	case Cmd:
		return "Cmd"
	case Phone:
		return "Phone"
	case Frame:
		return "Frame"
	case FramePar:
		return "FramePar"
	case Other:
		return "Other"
	case Err:
		return "Err"
	default:
		return fmt.Sprintf("Type(%d)", byte(t))
	}
}

// MaxPayloadLen is the largest payload a single item may carry (spec §3:
// length is one octet, 0-255).
const MaxPayloadLen = 255

// HeaderLen is the fixed 4-byte header size: type, info1, info2, length.
const HeaderLen = 4

// Item is the fixed-size, allocation-free record passed between stages.
// Payload is a fixed array rather than a slice so copying an Item between
// ring buffers never touches the Go heap.
type Item struct {
	Type         Type
	Info1, Info2 byte
	Length       byte
	Payload      [MaxPayloadLen]byte
}

// Set copies payload into the item, truncating to MaxPayloadLen. Callers
// that need the full payload should keep it within bounds themselves;
// truncation here is a last-resort safety net, not a silent contract.
func (it *Item) Set(typ Type, info1, info2 byte, payload []byte) {
	it.Type = typ
	it.Info1 = info1
	it.Info2 = info2
	n := copy(it.Payload[:], payload)
	it.Length = byte(n)
}

// PayloadBytes returns the item's payload as a slice view (valid only
// until the Item is next reused).
func (it *Item) PayloadBytes() []byte {
	return it.Payload[:it.Length]
}

// WireLen is the number of bytes Item occupies on the wire: header plus
// payload.
func (it *Item) WireLen() int {
	return HeaderLen + int(it.Length)
}

// Encode writes the item's wire format (spec §6: u8 type | u8 info1 | u8
// info2 | u8 length | length bytes payload) into dst, returning the
// number of bytes written. dst must be at least WireLen() bytes.
func (it *Item) Encode(dst []byte) int {
	dst[0] = byte(it.Type)
	dst[1] = it.Info1
	dst[2] = it.Info2
	dst[3] = it.Length
	copy(dst[HeaderLen:], it.Payload[:it.Length])

	return HeaderLen + int(it.Length)
}

// Decode parses a wire-format item from src into it, returning the number
// of bytes consumed. It returns false if src does not hold a complete
// item header and payload.
func Decode(src []byte, it *Item) (n int, ok bool) {
	if len(src) < HeaderLen {
		return 0, false
	}

	length := src[3]
	total := HeaderLen + int(length)
	if len(src) < total {
		return 0, false
	}

	it.Type = Type(src[0])
	it.Info1 = src[1]
	it.Info2 = src[2]
	it.Length = length
	copy(it.Payload[:length], src[HeaderLen:total])

	return total, true
}
