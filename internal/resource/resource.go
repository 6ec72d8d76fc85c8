// Package resource implements the resource manager and voice assembly of
// spec §4.4: loading binary resource files, exposing named knowledge
// bases, and composing named voices as sets of resources.
//
// File I/O itself is an external collaborator per spec §1; callers read
// the file into memory (or mmap it) and hand LoadResource the raw bytes.
package resource

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrCantOpenFile       = errors.New("resource: cannot open file")
	ErrUnexpectedFileType = errors.New("resource: unexpected file type")
	ErrFileCorrupt        = errors.New("resource: file corrupt")
	ErrResourceBusy       = errors.New("resource: busy")
	ErrNameConflict       = errors.New("resource: name conflict")
	ErrNameUndefined      = errors.New("resource: name undefined")
	ErrResourceMissing    = errors.New("resource: missing")
	ErrKbMissing          = errors.New("resource: knowledge base missing")
)

// magicKey obfuscates the literal magic bytes the way the original
// implementation does; preserved as an observed oddity (spec §9) rather
// than replaced with a plain signature check.
var magicKey = [4]byte{0x5A, 0x3C, 0x7E, 0x11}

// magicPlain is the de-obfuscated 4-byte signature every resource file's
// header must contain, within maxMagicScan bytes of the start.
var magicPlain = [4]byte{'P', 'I', 'C', 'O'}

// maxMagicScan bounds how far into the file the foreign-header scan looks
// for the magic before giving up (spec §4.4/§6: "no farther than 64 bytes
// in").
const maxMagicScan = 64

// KnowledgeBase is an opaque byte-range reference into a loaded resource's
// bytes, named and id-tagged by the resource's directory.
type KnowledgeBase struct {
	ID   byte
	Name string
	Data []byte
}

// Resource is one loaded resource file: its knowledge bases and a lock
// count incremented by every voice that references it.
type Resource struct {
	Name      string
	KBs       []KnowledgeBase
	lockCount int
}

// KB looks up a knowledge base by id within this resource.
func (r *Resource) KB(id byte) (KnowledgeBase, bool) {
	for _, kb := range r.KBs {
		if kb.ID == id {
			return kb, true
		}
	}

	return KnowledgeBase{}, false
}

func unobfuscate(b []byte) [4]byte {
	var out [4]byte
	for i := range out {
		out[i] = b[i] ^ magicKey[i]
	}

	return out
}

func findMagic(data []byte) (offset int, ok bool) {
	limit := maxMagicScan
	if limit > len(data)-4 {
		limit = len(data) - 4
	}

	for i := 0; i <= limit; i++ {
		if unobfuscate(data[i:i+4]) == magicPlain {
			return i, true
		}
	}

	return 0, false
}

// dirEntry is a parsed (kb_id, offset, size, name) directory triple
// (spec §6), before its byte range is resolved against the kb region.
type dirEntry struct {
	id           byte
	name         string
	offset, size uint32
}

func parseDirectory(data []byte, count, pos int) ([]dirEntry, int, error) {
	entries := make([]dirEntry, 0, count)

	for i := 0; i < count; i++ {
		if pos+1+4+4+1 > len(data) {
			return nil, 0, fmt.Errorf("%w: truncated directory entry %d", ErrFileCorrupt, i)
		}

		id := data[pos]
		pos++
		offset := binary.LittleEndian.Uint32(data[pos:])
		pos += 4
		size := binary.LittleEndian.Uint32(data[pos:])
		pos += 4
		nameLen := int(data[pos])
		pos++

		if pos+nameLen > len(data) {
			return nil, 0, fmt.Errorf("%w: truncated name in entry %d", ErrFileCorrupt, i)
		}
		name := string(data[pos : pos+nameLen])
		pos += nameLen

		entries = append(entries, dirEntry{id: id, name: name, offset: offset, size: size})
	}

	return entries, pos, nil
}

// LoadResource parses raw resource-file bytes (optional foreign header,
// magic, u32 kb count, directory, kb byte ranges) into a Resource. The
// only header field read is the kb count; no (key, value) header-fields
// block is parsed. The caller is responsible for reading the file into
// data.
func LoadResource(name string, data []byte) (*Resource, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: file too small", ErrUnexpectedFileType)
	}

	magicOff, ok := findMagic(data)
	if !ok {
		return nil, fmt.Errorf("%w: magic not found in first %d bytes", ErrUnexpectedFileType, maxMagicScan)
	}

	pos := magicOff + 4
	if pos+4 > len(data) {
		return nil, fmt.Errorf("%w: truncated header", ErrFileCorrupt)
	}
	kbCount := int(binary.LittleEndian.Uint32(data[pos:]))
	pos += 4

	entries, pos, err := parseDirectory(data, kbCount, pos)
	if err != nil {
		return nil, err
	}

	kbs := make([]KnowledgeBase, len(entries))
	for i, e := range entries {
		start := pos + int(e.offset)
		end := start + int(e.size)
		if start < 0 || end > len(data) || start > end {
			return nil, fmt.Errorf("%w: kb %q out of range", ErrFileCorrupt, e.name)
		}

		kbs[i] = KnowledgeBase{ID: e.id, Name: e.name, Data: data[start:end]}
	}

	return &Resource{Name: name, KBs: kbs}, nil
}
