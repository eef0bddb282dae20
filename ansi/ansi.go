// Package ansi implements the ANSI.SYS/ANSI-BBS control sequence
// interpreter: a byte-at-a-time state machine that drives a
// qodem/screen.Screen and answers device queries over the same
// transport the bytes arrived on.
package ansi

import (
	"errors"
	"strconv"

	"github.com/qodemgo/qodem/codepage"
	"github.com/qodemgo/qodem/screen"
)

// ErrSequenceOverflow is recorded (retrievable via LastErr) when a CSI
// sequence is abandoned and replayed because a parameter grew past
// maxParamDigits, distinguishing that case from an ordinary
// unrecognized-final replay.
var ErrSequenceOverflow = errors.New("ansi: control sequence parameter overflow")

// StepResult classifies what a single Step call produced, replacing the
// long if/else chain over magic return codes the original ANSI.SYS
// interpreter used with an exhaustively-matchable sum type.
type StepResult int

const (
	// NoCharYet means the byte was consumed into parser state (an
	// escape sequence in progress, a control byte, a buffered
	// multi-byte codepage sequence) and produced no glyph.
	NoCharYet StepResult = iota
	// OneChar means ToScreen() holds exactly one freshly decoded glyph.
	OneChar
	// ManyChars means ToScreen() holds one glyph from a replay queue
	// and the caller must call Step again (with any byte; it is
	// ignored while the queue drains) to get the rest.
	ManyChars
)

func (r StepResult) String() string {
	switch r {
	case NoCharYet:
		return "NoCharYet"
	case OneChar:
		return "OneChar"
	case ManyChars:
		return "ManyChars"
	default:
		return "StepResult(?)"
	}
}

type scanState int

const (
	scanNone scanState = iota
	scanESC
	scanStartSequence
	scanCount
	scanCountTwo
	scanCountMany
	scanMusic
)

// Charset selects which of the two ANSI.SYS line-drawing sets SO/SI
// switch between.
type Charset int

const (
	CharsetASCII Charset = iota
	CharsetLineDrawing
)

// lineDrawingMap is the VT100 DEC Special Graphics mapping ANSI.SYS
// inherited for SO-selected box drawing.
var lineDrawingMap = map[byte]rune{
	'`': '◆', 'a': '▒', 'f': '°', 'g': '±',
	'j': '┘', 'k': '┐', 'l': '┌', 'm': '└',
	'n': '┼', 'q': '─', 's': '_', 't': '├',
	'u': '┤', 'v': '┴', 'w': '┬', 'x': '│',
}

const emulationBufCap = 32
const musicBufCap = 1024
const maxParamDigits = 3

// BellFunc is invoked when a BEL control byte arrives. NoopBell is the
// zero-cost default, following the Provider/Noop hook convention used
// throughout this module.
type BellFunc func()

// NoopBell does nothing.
func NoopBell() {}

// AnsiMusicFunc receives a complete, terminator-stripped ANSI-music
// capture buffer.
type AnsiMusicFunc func([]byte)

// NoopAnsiMusic discards the buffer.
func NoopAnsiMusic([]byte) {}

// deviceAttributesReply is the full 7-byte DA identify string. The
// original C ANSI.SYS implementation this is modeled on wrote a
// truncated 3-byte reply by mistake; real terminfo/DA-aware hosts expect
// the complete sequence, so this emulator always sends all seven bytes.
var deviceAttributesReply = []byte("\x1b[?1;2c")

// Option configures an Emulator at construction.
type Option func(*Emulator)

// WithCodepage sets the byte-to-rune table. Defaults to codepage.CP437.
func WithCodepage(t codepage.Table) Option {
	return func(e *Emulator) { e.codepage = t }
}

// WithBell sets the BEL hook.
func WithBell(fn BellFunc) Option {
	return func(e *Emulator) { e.Bell = fn }
}

// WithAnsiMusic sets the ANSI-music flush hook.
func WithAnsiMusic(fn AnsiMusicFunc) Option {
	return func(e *Emulator) { e.Music = fn }
}

// Emulator is the ANSI.SYS control-sequence interpreter. It owns no
// transport; Step returns bytes the caller must write back (DSR/DA
// replies), and PrintGlyph-class output goes through the attached
// Screen.
type Emulator struct {
	Screen   *screen.Screen
	codepage codepage.Table

	Bell  BellFunc
	Music AnsiMusicFunc

	state scanState

	privateMode    bool // ANSI.SYS '=' prefix
	decPrivateMode bool // '?' prefix

	paramBuf string
	params   []int

	seqBuf []byte // raw bytes since ESC, for error replay

	replayQueue []byte
	lastChar    rune

	lastErr error

	repChar byte

	musicBuf []byte

	charset Charset
}

// New creates an Emulator bound to scr. The default codepage is CP437,
// ANSI.SYS's native table.
func New(scr *screen.Screen, opts ...Option) *Emulator {
	e := &Emulator{
		Screen:   scr,
		codepage: codepage.CP437{},
		Bell:     NoopBell,
		Music:    NoopAnsiMusic,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ToScreen returns the glyph produced by the most recent Step call that
// returned OneChar or ManyChars.
func (e *Emulator) ToScreen() rune { return e.lastChar }

// Step consumes one byte and returns what it produced, plus any bytes
// the caller must write back to the transport (DSR/DA replies bypass
// local echo and go straight out).
func (e *Emulator) Step(b byte) (StepResult, []byte) {
	if len(e.replayQueue) > 0 {
		return e.drainReplay()
	}

	switch e.state {
	case scanNone:
		return e.stepNone(b)
	case scanESC:
		return e.stepESC(b)
	case scanStartSequence:
		return e.stepStartSequence(b)
	case scanCount, scanCountTwo, scanCountMany:
		return e.stepCount(b)
	case scanMusic:
		return e.stepMusic(b)
	default:
		e.state = scanNone
		return NoCharYet, nil
	}
}

func (e *Emulator) drainReplay() (StepResult, []byte) {
	raw := e.replayQueue[0]
	e.replayQueue = e.replayQueue[1:]
	r, ok := e.codepage.Decode(raw)
	if !ok {
		// mid multi-byte sequence inside replay data; keep draining
		if len(e.replayQueue) == 0 {
			return NoCharYet, nil
		}
		return e.drainReplay()
	}
	e.lastChar = r
	e.screenWrite(r, raw)
	if len(e.replayQueue) > 0 {
		return ManyChars, nil
	}
	return OneChar, nil
}

func (e *Emulator) stepNone(b byte) (StepResult, []byte) {
	if b == 0x1b {
		e.state = scanESC
		e.seqBuf = e.seqBuf[:0]
		e.seqBuf = append(e.seqBuf, b)
		return NoCharYet, nil
	}
	if b < 0x20 {
		return e.dispatchControl(b)
	}

	r, ok := e.codepage.Decode(b)
	if !ok {
		return NoCharYet, nil
	}
	e.lastChar = r
	e.screenWrite(r, b)
	return OneChar, nil
}

// screenWrite draws r (mapping through the active line-drawing charset)
// and latches the raw byte for REP.
func (e *Emulator) screenWrite(r rune, raw byte) {
	if e.charset == CharsetLineDrawing {
		if mapped, ok := lineDrawingMap[byte(r)]; ok {
			r = mapped
		}
	}
	e.repChar = raw
	e.Screen.PrintGlyph(r)
}

func (e *Emulator) dispatchControl(b byte) (StepResult, []byte) {
	switch b {
	case 0x07: // BEL
		e.Bell()
	case 0x08: // BS
		e.Screen.CursorLeft(1)
	case 0x09: // HT
		next := e.Screen.NextTabStop(e.Screen.CursorX)
		e.Screen.CursorHorizontalAbsolute(next)
	case 0x0a: // LF
		e.Screen.LineFeed()
	case 0x0c: // FF
		e.Screen.FormFeed()
	case 0x0d: // CR
		e.Screen.CarriageReturn()
	case 0x0e: // SO: shift out to line-drawing charset
		e.charset = CharsetLineDrawing
	case 0x0f: // SI: shift in to ASCII charset
		e.charset = CharsetASCII
	default:
		// other control bytes are swallowed (no screen effect)
	}
	return NoCharYet, nil
}

func (e *Emulator) appendSeq(b byte) {
	if len(e.seqBuf) < emulationBufCap {
		e.seqBuf = append(e.seqBuf, b)
	}
}

func (e *Emulator) stepESC(b byte) (StepResult, []byte) {
	e.appendSeq(b)
	switch {
	case b == '[':
		e.state = scanStartSequence
		e.params = e.params[:0]
		e.paramBuf = ""
		e.privateMode, e.decPrivateMode = false, false
		return NoCharYet, nil
	case b == 'Z':
		e.resetSequence()
		return NoCharYet, append([]byte(nil), deviceAttributesReply...)
	case b == 0x1b:
		// tolerate a spurious second ESC; stay in ESC, restart seqBuf
		e.seqBuf = e.seqBuf[:0]
		e.seqBuf = append(e.seqBuf, b)
		return NoCharYet, nil
	default:
		return e.abortToReplay()
	}
}

func (e *Emulator) stepStartSequence(b byte) (StepResult, []byte) {
	e.appendSeq(b)
	switch {
	case b == '=':
		e.privateMode = true
		return NoCharYet, nil
	case b == '?':
		e.decPrivateMode = true
		return NoCharYet, nil
	case b == '!':
		// RIPScript marker: discard this sequence entirely
		e.resetSequence()
		return NoCharYet, nil
	case b == ';':
		e.params = append(e.params, 0)
		e.paramBuf = ""
		e.state = scanCountTwo
		return NoCharYet, nil
	case b >= '0' && b <= '9':
		e.paramBuf = string(b)
		e.state = scanCount
		return NoCharYet, nil
	default:
		resp := e.dispatchFinal(b, nil)
		if e.state != scanMusic {
			e.resetSequence()
		}
		return NoCharYet, resp
	}
}

func (e *Emulator) stepCount(b byte) (StepResult, []byte) {
	e.appendSeq(b)
	switch {
	case b >= '0' && b <= '9':
		e.paramBuf += string(b)
		if len(e.paramBuf) > maxParamDigits {
			e.lastErr = ErrSequenceOverflow
			return e.abortToReplay()
		}
		return NoCharYet, nil
	case b == ';':
		e.params = append(e.params, parseParam(e.paramBuf))
		e.paramBuf = ""
		if e.state == scanCount {
			e.state = scanCountTwo
		} else {
			e.state = scanCountMany
		}
		return NoCharYet, nil
	default:
		e.params = append(e.params, parseParam(e.paramBuf))
		if e.state != scanCount && !finalAllowsMultipleParams(b) {
			return e.abortToReplay()
		}
		resp := e.dispatchFinal(b, e.params)
		if e.state != scanMusic {
			e.resetSequence()
		}
		return NoCharYet, resp
	}
}

func finalAllowsMultipleParams(final byte) bool {
	switch final {
	case 'H', 'f', 'm':
		return true
	default:
		return false
	}
}

func parseParam(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

func (e *Emulator) resetSequence() {
	e.state = scanNone
	e.params = e.params[:0]
	e.paramBuf = ""
	e.privateMode, e.decPrivateMode = false, false
	e.seqBuf = e.seqBuf[:0]
}

// abortToReplay handles the failure path: the buffered sequence bytes
// (everything since ESC) are queued for byte-at-a-time codepage-mapped
// replay, and the parser returns to NONE.
func (e *Emulator) abortToReplay() (StepResult, []byte) {
	e.replayQueue = append(e.replayQueue, e.seqBuf...)
	e.resetSequence()
	return e.drainReplay()
}

// LastErr returns and clears the error (if any) that triggered the
// most recent abort-to-replay, for callers that want to distinguish
// overflow-triggered replays from ordinary unrecognized sequences.
func (e *Emulator) LastErr() error {
	err := e.lastErr
	e.lastErr = nil
	return err
}

func (e *Emulator) stepMusic(b byte) (StepResult, []byte) {
	if b == 0x0e || b == 0x0d {
		buf := e.musicBuf
		e.musicBuf = nil
		e.state = scanNone
		e.Music(buf)
		return NoCharYet, nil
	}
	if len(e.musicBuf) < musicBufCap {
		e.musicBuf = append(e.musicBuf, b)
	}
	return NoCharYet, nil
}

// arg returns params[i] if present, else def.
func arg(params []int, i, def int) int {
	if i < len(params) {
		return params[i]
	}
	return def
}

// dispatchFinal executes a completed CSI sequence and returns any bytes
// that must go straight back to the transport.
func (e *Emulator) dispatchFinal(final byte, params []int) []byte {
	s := e.Screen
	switch final {
	case 'A':
		s.CursorUp(arg(params, 0, 1))
	case 'B':
		s.CursorDown(arg(params, 0, 1))
	case 'C':
		s.CursorRight(arg(params, 0, 1))
	case 'D':
		s.CursorLeft(arg(params, 0, 1))
	case 'H', 'f':
		row := arg(params, 0, 1)
		col := arg(params, 1, 1)
		// ansi_position quirk: a literal 0 in either field is treated as
		// 1, preserved for BBS compatibility rather than "fixed".
		if row == 0 {
			row = 1
		}
		if col == 0 {
			col = 1
		}
		s.CursorPosition(row-1, col-1)
	case 'J':
		e.eraseScreen(arg(params, 0, 0))
	case 'K':
		e.eraseLine(arg(params, 0, 0))
	case 'm':
		e.sgr(params)
	case 's':
		s.SaveCursor()
	case 'u':
		s.RestoreCursor()
	case 'n':
		if arg(params, 0, 0) == 6 {
			row, col := s.CursorY+1, s.CursorX+1
			return []byte("\x1b[" + strconv.Itoa(row) + ";" + strconv.Itoa(col) + "R")
		}
	case 'c':
		return append([]byte(nil), deviceAttributesReply...)
	case '@':
		s.InsertBlanks(arg(params, 0, 1))
	case 'P':
		s.DeleteCharacter(arg(params, 0, 1))
	case 'L':
		s.InsertLines(arg(params, 0, 1))
	case 'M':
		if s.AnsiMusic {
			e.state = scanMusic
			e.musicBuf = nil
			return nil
		}
		s.DeleteLines(arg(params, 0, 1))
	case 'I':
		n := arg(params, 0, 1)
		for i := 0; i < n; i++ {
			s.CursorHorizontalAbsolute(s.NextTabStop(s.CursorX))
		}
	case 'G':
		s.CursorHorizontalAbsolute(arg(params, 0, 1) - 1)
	case 'd':
		s.CursorVerticalAbsolute(arg(params, 0, 1) - 1)
	case 'b':
		n := arg(params, 0, 1)
		for i := 0; i < n; i++ {
			e.screenWrite(e.lastChar, e.repChar)
		}
	case 'h', 'l':
		if e.decPrivateMode && arg(params, 0, 0) == 7 {
			s.LineWrap = final == 'h'
		}
	}
	return nil
}

func (e *Emulator) eraseScreen(mode int) {
	s := e.Screen
	switch mode {
	case 0:
		s.EraseScreen(s.CursorY, s.CursorX, s.Rows()-1, s.Cols()-1, false)
	case 1:
		s.EraseScreen(0, 0, s.CursorY, s.CursorX, false)
	case 2:
		s.ClearScreen()
		s.CursorPosition(0, 0)
	}
}

func (e *Emulator) eraseLine(mode int) {
	s := e.Screen
	switch mode {
	case 0:
		s.EraseLine(s.CursorY, s.CursorX, s.Cols()-1, false)
	case 1:
		s.EraseLine(s.CursorY, 0, s.CursorX, false)
	case 2:
		s.EraseLine(s.CursorY, 0, s.Cols()-1, false)
	}
}

// sgr applies a list of SGR codes in order. An empty list means a bare
// "ESC [ m", which is CSI m with default parameter 0 (reset).
func (e *Emulator) sgr(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}
	s := e.Screen
	for _, p := range params {
		switch {
		case p == 0:
			s.ResetAttr()
		case p == 1:
			s.CurrentAttr |= screen.AttrBold
		case p == 2:
			s.CurrentAttr |= screen.AttrDim
		case p == 4:
			s.CurrentAttr |= screen.AttrUnderline
		case p == 5:
			s.CurrentAttr |= screen.AttrBlink
		case p == 7:
			s.CurrentAttr |= screen.AttrReverse
		case p == 21 || p == 22:
			s.CurrentAttr &^= screen.AttrBold | screen.AttrDim
		case p == 24:
			s.CurrentAttr &^= screen.AttrUnderline
		case p == 25:
			s.CurrentAttr &^= screen.AttrBlink
		case p == 27:
			s.CurrentAttr &^= screen.AttrReverse
		case p >= 30 && p <= 37:
			s.CurrentColor = s.CurrentColor.WithFG(p - 30)
		case p >= 40 && p <= 47:
			s.CurrentColor = s.CurrentColor.WithBG(p - 40)
		case p == 38:
			// ANSI.SYS quirk inherited verbatim: "default fg" also sets
			// underline. Do not "fix" this; BBS art depends on it.
			s.CurrentColor = s.CurrentColor.WithFG(screen.DefaultColor.FG())
			s.CurrentAttr |= screen.AttrUnderline
		case p == 39:
			s.CurrentColor = s.CurrentColor.WithFG(screen.DefaultColor.FG())
			s.CurrentAttr &^= screen.AttrUnderline
		case p == 49:
			s.CurrentColor = s.CurrentColor.WithBG(screen.DefaultColor.BG())
			s.CurrentAttr &^= screen.AttrUnderline
		default:
			// unknown codes ignored
		}
	}
}

