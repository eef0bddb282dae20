// Package codepage maps the raw bytes a remote host sends into runes,
// pluggable per phonebook entry so that CP437 BBS art and UTF-8 hosts can
// share the same emulator core.
package codepage

import (
	"golang.org/x/text/encoding/charmap"
)

// Table converts incoming bytes into runes. Decode consumes one byte and
// either returns a complete rune (ok true) or reports that more bytes
// are needed before a rune is available (ok false, rune is 0) — the
// shape a stateful multi-byte decoder like UTF8 requires, and that a
// single-byte table like ASCII/CP437 always satisfies on the first
// call.
type Table interface {
	// Decode feeds one byte to the table's internal state and returns
	// the decoded rune, if any byte sequence just completed.
	Decode(b byte) (r rune, ok bool)
	// Name identifies the table (used in phonebook entries and logs).
	Name() string
	// Reset clears any buffered partial sequence, called when a
	// connection is dropped mid-multibyte-character.
	Reset()
}

// ASCII decodes bytes 0x00-0x7F as themselves and always strips the
// 8th bit on anything higher.
type ASCII struct{}

func (ASCII) Name() string { return "ASCII" }
func (ASCII) Reset()       {}

func (ASCII) Decode(b byte) (rune, bool) {
	return rune(b & 0x7f), true
}

// CP437 decodes IBM PC code page 437, the codepage virtually all BBS
// ANSI art and ANSI.SYS itself assume.
type CP437 struct{}

func (CP437) Name() string { return "CP437" }
func (CP437) Reset()       {}

func (CP437) Decode(b byte) (rune, bool) {
	r := charmap.CodePage437.DecodeByte(b)
	return r, true
}

// UTF8 decodes a standard UTF-8 byte stream, buffering continuation
// bytes across Decode calls. A byte that cannot start a sequence
// decodes to the Unicode replacement character; a sequence cut short by
// a non-continuation byte is dropped without one, and that byte is
// decoded afresh as a lead byte.
type UTF8 struct {
	buf  [4]byte
	want int
	have int
}

func (u *UTF8) Name() string { return "UTF-8" }

func (u *UTF8) Reset() {
	u.want, u.have = 0, 0
}

const replacementChar = '�'

func (u *UTF8) Decode(b byte) (rune, bool) {
	if u.want == 0 {
		switch {
		case b&0x80 == 0x00:
			return rune(b), true
		case b&0xE0 == 0xC0:
			u.want, u.have = 2, 0
		case b&0xF0 == 0xE0:
			u.want, u.have = 3, 0
		case b&0xF8 == 0xF0:
			u.want, u.have = 4, 0
		default:
			return replacementChar, true
		}
		u.buf[u.have] = b
		u.have++
		return 0, false
	}

	if b&0xC0 != 0x80 {
		// not a continuation byte: abandon the sequence in progress and
		// reprocess b as a fresh lead byte
		u.want, u.have = 0, 0
		return u.Decode(b)
	}

	u.buf[u.have] = b
	u.have++
	if u.have < u.want {
		return 0, false
	}

	r := decodeUTF8Seq(u.buf[:u.have])
	u.want, u.have = 0, 0
	return r, true
}

func decodeUTF8Seq(seq []byte) rune {
	switch len(seq) {
	case 2:
		return rune(seq[0]&0x1F)<<6 | rune(seq[1]&0x3F)
	case 3:
		return rune(seq[0]&0x0F)<<12 | rune(seq[1]&0x3F)<<6 | rune(seq[2]&0x3F)
	case 4:
		return rune(seq[0]&0x07)<<18 | rune(seq[1]&0x3F)<<12 | rune(seq[2]&0x3F)<<6 | rune(seq[3]&0x3F)
	}
	return replacementChar
}

// ByName resolves a table by its phonebook codepage string, defaulting
// to CP437 (ANSI.SYS's native codepage) when name is empty or unknown.
func ByName(name string) Table {
	switch name {
	case "ASCII":
		return ASCII{}
	case "UTF-8", "UTF8":
		return &UTF8{}
	case "CP437", "":
		return CP437{}
	default:
		return CP437{}
	}
}
