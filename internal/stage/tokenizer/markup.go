package tokenizer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/example/go-pico-tts/internal/except"
)

// consumeMarkupRune accumulates one rune of an in-progress markup tag,
// tracking quoted attribute values and backslash escapes. scanQuoted
// applies backslash escapes to every quoted value; file-path attributes
// (genfile, play) get no exception and reach their Cmd payload with the
// backslashes removed.
func (s *Stage) consumeMarkupRune(r rune) {
	if r == 0 {
		// Unterminated tag: replay as ordinary text with a warning.
		s.reg.RaiseWarning(except.InvalidMarkupTag, "unterminated markup tag")
		s.inMarkup = false
		s.replayAsText(s.tagBuf)
		s.tagBuf = s.tagBuf[:0]
		s.inQuote = 0
		s.escaped = false

		return
	}

	s.tagBuf = utf8.AppendRune(s.tagBuf, r)

	if s.inQuote != 0 {
		switch {
		case s.escaped:
			s.escaped = false
		case r == '\\':
			s.escaped = true
		case byte(r) == s.inQuote:
			s.inQuote = 0
		}

		return
	}

	switch r {
	case '"', '\'':
		s.inQuote = byte(r)
	case '>':
		s.inMarkup = false
		tag := s.tagBuf
		s.tagBuf = nil

		if !s.dispatchTag(tag) {
			s.reg.RaiseWarning(except.InvalidMarkupTag, "malformed markup tag")
			s.replayAsText(tag)
		}
	}
}

// replayAsText re-runs raw tag bytes (including the leading '<') through
// the ordinary run accumulator, exactly as spec §4.7 requires on a
// markup syntax error.
func (s *Stage) replayAsText(raw []byte) {
	for _, r := range string(raw) {
		s.trackEOL(r)
		s.appendToRun(r)
	}
}

// parsedTag is the result of splitting a raw `<...>` tag into its name,
// phase, and attribute map.
type parsedTag struct {
	name  string
	phase CmdPhase
	attrs map[string]string
}

// dispatchTag parses raw (including the surrounding '<' '>') and, on
// success, appends the corresponding Cmd item(s) to the queue. It
// returns false on any syntax or validation error, leaving the queue
// untouched.
func (s *Stage) dispatchTag(raw []byte) bool {
	body := strings.TrimSuffix(strings.TrimPrefix(string(raw), "<"), ">")
	body = strings.TrimSpace(body)

	pt, ok := parseTagBody(body)
	if !ok {
		return false
	}

	kind, ok := tagNames[pt.name]
	if !ok {
		return false
	}

	payload, ok := encodeAttrs(kind, pt.phase, pt.attrs)
	if !ok {
		return false
	}

	s.enqueue(kind, pt.phase, payload)

	return true
}

func parseTagBody(body string) (parsedTag, bool) {
	phase := PhaseStart
	if strings.HasPrefix(body, "/") {
		phase = PhaseEnd
		body = strings.TrimPrefix(body, "/")
	} else if strings.HasSuffix(body, "/") {
		phase = PhaseStandalone
		body = strings.TrimSuffix(body, "/")
	}
	body = strings.TrimSpace(body)

	name, rest, _ := strings.Cut(body, " ")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return parsedTag{}, false
	}

	attrs, ok := parseAttrs(rest)
	if !ok {
		return parsedTag{}, false
	}

	return parsedTag{name: name, phase: phase, attrs: attrs}, true
}

func parseAttrs(s string) (map[string]string, bool) {
	attrs := make(map[string]string)
	s = strings.TrimSpace(s)

	for len(s) > 0 {
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			return nil, false
		}

		key := strings.TrimSpace(s[:eq])
		if key == "" {
			return nil, false
		}

		rest := strings.TrimSpace(s[eq+1:])
		if len(rest) == 0 {
			return nil, false
		}

		quote := rest[0]
		if quote != '"' && quote != '\'' {
			return nil, false
		}

		val, remain, ok := scanQuoted(rest[1:], quote)
		if !ok {
			return nil, false
		}

		attrs[strings.ToLower(key)] = val
		s = strings.TrimSpace(remain)
	}

	return attrs, true
}

func scanQuoted(s string, quote byte) (value, remainder string, ok bool) {
	var b strings.Builder
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == quote {
			return b.String(), s[i+1:], true
		}
		b.WriteByte(c)
	}

	return "", "", false
}

// levelDefault is the absolute level a closing tag with no level/value
// attribute resets to (e.g. `</speed>`), matching picotok.c's MIVolume/
// MISpeaker handlers, which emit an explicit CMD_ABSOLUTE/DEFAULT item
// rather than treating the bare closing tag as an error.
const levelDefault = 100

// encodeAttrs validates and encodes a tag's attributes into a Cmd
// item's payload, per the handler-specific ranges of spec §4.7.
func encodeAttrs(kind CmdKind, phase CmdPhase, attrs map[string]string) ([]byte, bool) {
	switch kind {
	case CmdSpeed, CmdVolume, CmdPitch:
		if phase == PhaseEnd {
			if _, hasLevel := attrs["level"]; !hasLevel {
				if _, hasValue := attrs["value"]; !hasValue {
					return []byte{0, byte(levelDefault), byte(levelDefault >> 8)}, true
				}
			}
		}

		return encodeLevelAttr(attrs)
	case CmdMark, CmdSpeaker, CmdVoice, CmdPreprocContext, CmdPlay, CmdGenFile, CmdPhoneme, CmdSpell:
		if v, ok := attrs["name"]; ok {
			return []byte(v), true
		}
		if v, ok := attrs["value"]; ok {
			return []byte(v), true
		}
		// Attribute-less forms (e.g. <mark/>) are still valid.
		return nil, true
	default:
		return nil, true
	}
}

// encodeLevelAttr validates and encodes a level="N" / level="N%" attribute
// against the absolute/per-mille ranges of spec §4.7 (speed 20–500
// absolute, 500–2000 per-mille of current), payload = unit byte (0 =
// absolute, 1 = per-mille) followed by a little-endian int16 value.
func encodeLevelAttr(attrs map[string]string) ([]byte, bool) {
	raw, ok := attrs["level"]
	if !ok {
		raw, ok = attrs["value"]
	}
	if !ok {
		return nil, false
	}

	relative := strings.HasSuffix(raw, "%")
	raw = strings.TrimSuffix(raw, "%")

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}

	if relative {
		if n < 500 || n > 2000 {
			return nil, false
		}
	} else {
		if n < 20 || n > 500 {
			return nil, false
		}
	}

	unit := byte(0)
	if relative {
		unit = 1
	}

	return []byte{unit, byte(n), byte(n >> 8)}, true
}
