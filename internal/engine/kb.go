// Knowledge-base id conventions for the handful of kb types the engine
// composes into stages: one fixed id per kb kind, assigned the way
// original_source/pico/lib/picorsrc.h's PICO_KBID_* constants are.
// Lexicon/decision/phone/index/preproc formats are all minimal
// real wire formats standing in for linguistic content out of spec.md's
// scope (§1); the PDF codebook format is the one in-scope content, and
// is decoded by cepstral.DecodeCodebook instead of here.
package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/example/go-pico-tts/internal/stage/phonmap"
	"github.com/example/go-pico-tts/internal/stage/preproc"
	"github.com/example/go-pico-tts/internal/stage/wordanalysis"
)

const (
	KBLexicon  = 1
	KBDecision = 2
	KBPhone    = 3
	KBIndex    = 4
	KBPreproc  = 5
	KBPdfLfz   = 6
	KBPdfMgc   = 7
)

// decodeLexicon parses a sequence of (wordLen u8, word bytes, posCount u8,
// pos bytes...) records into a wordanalysis.Lexicon.
func decodeLexicon(data []byte) (*wordanalysis.Lexicon, error) {
	entries := make(map[string][]wordanalysis.POS)

	pos := 0
	for pos < len(data) {
		if pos+1 > len(data) {
			return nil, fmt.Errorf("lexicon kb: truncated word length at %d", pos)
		}
		wordLen := int(data[pos])
		pos++
		if pos+wordLen+1 > len(data) {
			return nil, fmt.Errorf("lexicon kb: truncated word/pos-count at %d", pos)
		}
		word := string(data[pos : pos+wordLen])
		pos += wordLen
		posCount := int(data[pos])
		pos++
		if pos+posCount > len(data) {
			return nil, fmt.Errorf("lexicon kb: truncated pos list at %d", pos)
		}

		set := make([]wordanalysis.POS, posCount)
		for i := 0; i < posCount; i++ {
			set[i] = wordanalysis.POS(data[pos+i])
		}
		pos += posCount

		entries[word] = set
	}

	return wordanalysis.NewLexicon(entries), nil
}

// decodeDecisionList parses (fallback u8, ruleCount u16, rules...) where
// each rule is (suffixLen u8, suffix bytes, posSet u8).
func decodeDecisionList(data []byte) (*wordanalysis.DecisionList, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("decision kb: truncated header")
	}

	fallback := wordanalysis.POS(data[0])
	ruleCount := int(binary.LittleEndian.Uint16(data[1:3]))
	pos := 3

	rules := make([]wordanalysis.DecisionRule, 0, ruleCount)
	for i := 0; i < ruleCount; i++ {
		if pos+1 > len(data) {
			return nil, fmt.Errorf("decision kb: truncated rule %d", i)
		}
		suffixLen := int(data[pos])
		pos++
		if pos+suffixLen+1 > len(data) {
			return nil, fmt.Errorf("decision kb: truncated rule %d body", i)
		}
		suffix := string(data[pos : pos+suffixLen])
		pos += suffixLen
		set := wordanalysis.POS(data[pos])
		pos++

		rules = append(rules, wordanalysis.DecisionRule{Suffix: suffix, Set: set})
	}

	return wordanalysis.NewDecisionList(fallback, rules), nil
}

// decodePhoneTable parses a flat sequence of (grapheme byte, code byte)
// pairs into a phonmap.PhoneTable.
func decodePhoneTable(data []byte) (*phonmap.PhoneTable, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("phone kb: odd byte count")
	}

	codes := make(map[byte]byte, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		codes[data[i]] = data[i+1]
	}

	return phonmap.NewPhoneTable(codes), nil
}

// decodeIndexTable parses a flat sequence of (code byte, index u16 LE)
// triples into a phonmap.IndexTable.
func decodeIndexTable(data []byte) (*phonmap.IndexTable, error) {
	if len(data)%3 != 0 {
		return nil, fmt.Errorf("index kb: length not a multiple of 3")
	}

	base := make(map[byte]uint16, len(data)/3)
	for i := 0; i+2 < len(data); i += 3 {
		base[data[i]] = binary.LittleEndian.Uint16(data[i+1 : i+3])
	}

	return phonmap.NewIndexTable(base), nil
}

// decodePreprocTable parses (ruleCount u16, rules...) where each rule is
// (class u8, pairCount u16, pairs...) and each pair is (keyLen u8, key
// bytes, valLen u8, val bytes).
func decodePreprocTable(data []byte) (*preproc.Table, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("preproc kb: truncated header")
	}

	ruleCount := int(binary.LittleEndian.Uint16(data[0:2]))
	pos := 2

	rules := make([]preproc.Rule, 0, ruleCount)
	for i := 0; i < ruleCount; i++ {
		if pos+3 > len(data) {
			return nil, fmt.Errorf("preproc kb: truncated rule %d header", i)
		}
		class := data[pos]
		pairCount := int(binary.LittleEndian.Uint16(data[pos+1 : pos+3]))
		pos += 3

		replace := make(map[string]string, pairCount)
		for p := 0; p < pairCount; p++ {
			if pos+1 > len(data) {
				return nil, fmt.Errorf("preproc kb: truncated pair %d of rule %d", p, i)
			}
			keyLen := int(data[pos])
			pos++
			if pos+keyLen+1 > len(data) {
				return nil, fmt.Errorf("preproc kb: truncated key of pair %d", p)
			}
			key := string(data[pos : pos+keyLen])
			pos += keyLen
			valLen := int(data[pos])
			pos++
			if pos+valLen > len(data) {
				return nil, fmt.Errorf("preproc kb: truncated value of pair %d", p)
			}
			val := string(data[pos : pos+valLen])
			pos += valLen

			replace[key] = val
		}

		rules = append(rules, preproc.Rule{Class: class, Replace: replace})
	}

	return preproc.NewTable(rules), nil
}
