// Package keyenc turns a logical keystroke into the byte sequence an
// ANSI.SYS host expects, as a pure function with no session state of
// its own.
package keyenc

// Emulation names which terminal emulation's conventions Encode should
// follow. Only ANSI is implemented; the type exists so additional
// emulations (as the phonebook's emulation field already enumerates)
// have somewhere to plug in without changing Encode's signature.
type Emulation string

const (
	EmulationANSI Emulation = "ansi"
)

// Code names a logical key. Letter/digit/punctuation keys are carried
// as a rune instead (Key.Code == CodeRune), following the
// enum-with-String convention used for other small closed sets in this
// module.
type Code int

const (
	CodeRune Code = iota
	CodeBackspace
	CodeUp
	CodeDown
	CodeRight
	CodeLeft
	CodePPage
	CodeNPage
	CodeIC
	CodeDC
	CodeEnter
	CodePadEnter
	CodeHome
	CodeEnd
	CodeF1
	CodeF2
	CodeF3
	CodeF4
	CodeF5
	CodeF6
	CodeF7
	CodeF8
	CodeF9
	CodeF10
	CodeF11
	CodeF12
	CodeKP0
	CodeKP1
	CodeKP2
	CodeKP3
	CodeKP4
	CodeKP5
	CodeKP6
	CodeKP7
	CodeKP8
	CodeKP9
	CodeKPPeriod
	CodeKPPlus
	CodeKPMinus
	CodeKPStar
	CodeKPSlash
)

func (c Code) String() string {
	switch c {
	case CodeRune:
		return "Rune"
	case CodeBackspace:
		return "Backspace"
	case CodeUp:
		return "Up"
	case CodeDown:
		return "Down"
	case CodeRight:
		return "Right"
	case CodeLeft:
		return "Left"
	case CodePPage:
		return "PPage"
	case CodeNPage:
		return "NPage"
	case CodeIC:
		return "IC"
	case CodeDC:
		return "DC"
	case CodeEnter:
		return "Enter"
	case CodePadEnter:
		return "PadEnter"
	case CodeHome:
		return "Home"
	case CodeEnd:
		return "End"
	default:
		return "Code(?)"
	}
}

// Key is a logical keystroke: either a named special key (Code != CodeRune)
// or a plain/control character (Code == CodeRune, Rune holds the base
// letter and Ctrl reports whether control was held).
type Key struct {
	Code  Code
	Rune  rune
	Shift bool
	Ctrl  bool
}

// Options carries the per-connection settings that change how a key
// encodes, following this module's functional-options idiom adapted to
// a plain struct since Encode is a pure function, not a constructor.
type Options struct {
	HardBackspace   bool
	DoorwayMode     bool
	TelnetASCIIMode bool
}

// numpadRunes maps the numeric-keypad codes to the literal characters
// they send outside doorway mode.
var numpadRunes = map[Code]rune{
	CodeKP0: '0', CodeKP1: '1', CodeKP2: '2', CodeKP3: '3', CodeKP4: '4',
	CodeKP5: '5', CodeKP6: '6', CodeKP7: '7', CodeKP8: '8', CodeKP9: '9',
	CodeKPPeriod: '.', CodeKPPlus: '+', CodeKPMinus: '-',
	CodeKPStar: '*', CodeKPSlash: '/',
}

// Encode maps a logical key to the bytes written to the remote host.
// A nil (zero-length) result means the key produces no output in this
// emulation (the caller must treat that as "nothing to send", not an
// error).
func Encode(k Key, emu Emulation, opts Options) []byte {
	if k.Code == CodeRune {
		return encodeRune(k, opts)
	}

	if opts.DoorwayMode {
		if raw, ok := doorwayRawScanCodes[k.Code]; ok {
			return raw
		}
	}

	switch k.Code {
	case CodeBackspace:
		if opts.HardBackspace {
			return []byte{0x08}
		}
		return []byte{0x7f}
	case CodeUp:
		return []byte("\x1b[A")
	case CodeDown:
		return []byte("\x1b[B")
	case CodeRight:
		return []byte("\x1b[C")
	case CodeLeft:
		return []byte("\x1b[D")
	case CodePPage:
		return []byte("\x1b[5~")
	case CodeNPage:
		return []byte("\x1b[6~")
	case CodeIC:
		if k.Shift {
			return []byte("\x1b[2;2~")
		}
		return []byte("\x1b[2~")
	case CodeDC:
		if k.Shift {
			return []byte("\x1b[3;2~")
		}
		return []byte("\x1b[3~")
	case CodeEnter, CodePadEnter:
		if opts.TelnetASCIIMode {
			return []byte("\r\n")
		}
		return []byte("\r")
	case CodeHome, CodeEnd:
		// unmapped for ANSI emulation outside doorway mode
		return nil
	case CodeF1, CodeF2, CodeF3, CodeF4, CodeF5, CodeF6, CodeF7, CodeF8,
		CodeF9, CodeF10, CodeF11, CodeF12:
		// unmapped for ANSI emulation outside doorway mode
		return nil
	}

	if r, ok := numpadRunes[k.Code]; ok {
		return []byte(string(r))
	}

	return nil
}

func encodeRune(k Key, opts Options) []byte {
	if k.Ctrl {
		// Ctrl+letter is terminal-driver-level behavior, independent of
		// emulation: map to the conventional 0x01-0x1A range.
		upper := k.Rune
		if upper >= 'a' && upper <= 'z' {
			upper -= 'a' - 'A'
		}
		if upper >= 'A' && upper <= 'Z' {
			return []byte{byte(upper - 'A' + 1)}
		}
		return nil
	}
	return []byte(string(k.Rune))
}

// doorwayRawScanCodes holds the raw IBM PC scan-code escape sequences a
// doorway (full-screen door game) expects for keys ANSI emulation
// otherwise leaves unmapped, so line-editing-free full-screen programs
// still receive Home/End/F-keys.
var doorwayRawScanCodes = map[Code][]byte{
	CodeHome: {0x00, 0x47},
	CodeEnd:  {0x00, 0x4f},
	CodeF1:   {0x00, 0x3b},
	CodeF2:   {0x00, 0x3c},
	CodeF3:   {0x00, 0x3d},
	CodeF4:   {0x00, 0x3e},
	CodeF5:   {0x00, 0x3f},
	CodeF6:   {0x00, 0x40},
	CodeF7:   {0x00, 0x41},
	CodeF8:   {0x00, 0x42},
	CodeF9:   {0x00, 0x43},
	CodeF10:  {0x00, 0x44},
	CodeF11:  {0x00, 0x85},
	CodeF12:  {0x00, 0x86},
}
