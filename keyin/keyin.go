// Package keyin recognizes escape sequences coming from the local
// terminal/OS input layer, turning raw code points into logical key
// events (arrows, function keys, bracketed-paste markers) the rest of
// the module can act on without re-parsing ANSI input sequences.
package keyin

// Flag is a modifier bitset attached to an Event.
type Flag uint8

const (
	FlagShift Flag = 1 << iota
	FlagAlt
	FlagCtrl
	// FlagUnicode marks a Rune event whose code point is above 0xFF.
	FlagUnicode
)

// Special names a recognized non-printable key. SpecialNone means the
// Event carries a plain Rune instead.
type Special int

const (
	SpecialNone Special = iota
	SpecialEscape
	SpecialUp
	SpecialDown
	SpecialRight
	SpecialLeft
	SpecialHome
	SpecialEnd
	SpecialIC
	SpecialDC
	SpecialPPage
	SpecialNPage
	SpecialPasteStart
	SpecialPasteEnd
)

func (s Special) String() string {
	switch s {
	case SpecialNone:
		return "None"
	case SpecialEscape:
		return "Escape"
	case SpecialUp:
		return "Up"
	case SpecialDown:
		return "Down"
	case SpecialRight:
		return "Right"
	case SpecialLeft:
		return "Left"
	case SpecialHome:
		return "Home"
	case SpecialEnd:
		return "End"
	case SpecialIC:
		return "IC"
	case SpecialDC:
		return "DC"
	case SpecialPPage:
		return "PPage"
	case SpecialNPage:
		return "NPage"
	case SpecialPasteStart:
		return "PasteStart"
	case SpecialPasteEnd:
		return "PasteEnd"
	default:
		return "Special(?)"
	}
}

// Event is one recognized key: either a plain code point (Special ==
// SpecialNone) or a named special key, plus any modifiers.
type Event struct {
	Rune    rune
	Special Special
	Flags   Flag
}

const matchBufferCap = 16

type recognizerState int

const (
	stateIdle recognizerState = iota
	// stateAwaitBracket: ESC was just seen; the next code point decides
	// between a bracket sequence and a bare Alt+key.
	stateAwaitBracket
	// stateParams: inside "ESC [", accumulating digits/';'.
	stateParams
)

// baseFinals maps single-letter CSI finals with no numeric key selector
// to the key they represent. The modifier, when present, rides the
// conventional "ESC [ 1 ; N final" form.
var baseFinals = map[rune]Special{
	'A': SpecialUp, 'B': SpecialDown, 'C': SpecialRight, 'D': SpecialLeft,
	'H': SpecialHome, 'F': SpecialEnd,
	'@': SpecialIC, 'K': SpecialDC, 'V': SpecialPPage, 'U': SpecialNPage,
}

// tildeFinals maps the leading numeric selector of a "ESC [ N ~"
// sequence to the key it represents, including the bracketed-paste
// pseudo-keys.
var tildeFinals = map[int]Special{
	2: SpecialIC, 3: SpecialDC, 5: SpecialPPage, 6: SpecialNPage,
	7: SpecialHome, 8: SpecialEnd,
	200: SpecialPasteStart, 201: SpecialPasteEnd,
}

func isFinal(r rune) bool {
	switch r {
	case '~', 'A', 'B', 'C', 'D', 'F', 'H', 'K', 'V', 'U', '@':
		return true
	default:
		return false
	}
}

func modFlags(n int) Flag {
	m := n - 1
	var f Flag
	if m&1 != 0 {
		f |= FlagShift
	}
	if m&2 != 0 {
		f |= FlagAlt
	}
	if m&4 != 0 {
		f |= FlagCtrl
	}
	return f
}

// Recognizer is the IDLE/COLLECTING/DRAINING escape-sequence state
// machine. The zero value is ready to use.
type Recognizer struct {
	state recognizerState
	buf   []rune // raw code points since ESC, for draining on a miss

	params   []int
	paramBuf string
	sawDigit bool
}

func (r *Recognizer) reset() {
	r.state = stateIdle
	r.buf = r.buf[:0]
	r.params = r.params[:0]
	r.paramBuf = ""
	r.sawDigit = false
}

// Feed consumes one code point and returns zero, one, or many events —
// zero while a sequence is still being collected, one for an ordinary
// key or a recognized sequence, many when a miss forces the buffered
// bytes to drain as individual keys in this same call.
func (r *Recognizer) Feed(cp rune) []Event {
	switch r.state {
	case stateIdle:
		return r.feedIdle(cp)
	case stateAwaitBracket:
		return r.feedAwaitBracket(cp)
	case stateParams:
		return r.feedParams(cp)
	default:
		r.reset()
		return nil
	}
}

func (r *Recognizer) feedIdle(cp rune) []Event {
	if cp == 0x1b {
		r.state = stateAwaitBracket
		r.buf = append(r.buf[:0], cp)
		return nil
	}
	return []Event{plainEvent(cp)}
}

func plainEvent(cp rune) Event {
	var f Flag
	if cp > 0xff {
		f |= FlagUnicode
	}
	return Event{Rune: cp}.withFlags(f)
}

func (e Event) withFlags(f Flag) Event {
	e.Flags |= f
	return e
}

func (r *Recognizer) feedAwaitBracket(cp rune) []Event {
	if cp == '[' {
		r.buf = append(r.buf, cp)
		r.state = stateParams
		r.params = r.params[:0]
		r.paramBuf = ""
		r.sawDigit = false
		return nil
	}
	r.reset()
	return []Event{{Rune: cp, Flags: FlagAlt}}
}

func (r *Recognizer) feedParams(cp rune) []Event {
	if len(r.buf) >= matchBufferCap {
		return r.drainWith(cp)
	}

	switch {
	case cp >= '0' && cp <= '9':
		r.buf = append(r.buf, cp)
		r.paramBuf += string(cp)
		r.sawDigit = true
		return nil
	case cp == ';':
		r.buf = append(r.buf, cp)
		r.params = append(r.params, parseIntOrZero(r.paramBuf))
		r.paramBuf = ""
		return nil
	case cp == '[':
		r.buf = append(r.buf, cp)
		return nil
	case isFinal(cp):
		if r.sawDigit || r.paramBuf != "" {
			r.params = append(r.params, parseIntOrZero(r.paramBuf))
		}
		if ev, ok := lookupFinal(r.params, cp); ok {
			r.reset()
			return []Event{ev}
		}
		r.buf = append(r.buf, cp)
		return r.drain()
	default:
		return r.drainWith(cp)
	}
}

func parseIntOrZero(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func lookupFinal(params []int, final rune) (Event, bool) {
	if final == '~' {
		if len(params) == 0 {
			return Event{}, false
		}
		special, ok := tildeFinals[params[0]]
		if !ok {
			return Event{}, false
		}
		var flags Flag
		if len(params) >= 2 {
			flags = modFlags(params[1])
		}
		return Event{Special: special, Flags: flags}, true
	}
	special, ok := baseFinals[final]
	if !ok {
		return Event{}, false
	}
	var flags Flag
	if len(params) >= 2 {
		flags = modFlags(params[1])
	}
	return Event{Special: special, Flags: flags}, true
}

// drainWith appends cp to the buffer (forcing drain on overflow or an
// invalid byte) and flushes.
func (r *Recognizer) drainWith(cp rune) []Event {
	r.buf = append(r.buf, cp)
	return r.drain()
}

// drain emits the buffered code points as individual keys: a leading
// "ESC byte" pair becomes one Alt-flagged key, and every remaining
// buffered code point becomes a plain key.
func (r *Recognizer) drain() []Event {
	buf := append([]rune(nil), r.buf...)
	r.reset()

	var events []Event
	i := 0
	if len(buf) >= 2 && buf[0] == 0x1b {
		events = append(events, Event{Rune: buf[1], Flags: FlagAlt})
		i = 2
	}
	for ; i < len(buf); i++ {
		events = append(events, plainEvent(buf[i]))
	}
	return events
}

// Timeout is called by the main loop's poll when its window expires
// with a lone ESC pending (nothing typed after it yet). It reports
// (SpecialEscape event, true) in that case, else (zero, false).
func (r *Recognizer) Timeout() (Event, bool) {
	if r.state == stateAwaitBracket && len(r.buf) == 1 {
		r.reset()
		return Event{Special: SpecialEscape}, true
	}
	return Event{}, false
}
