package qodem

import (
	"github.com/qodemgo/qodem/ansi"
	"github.com/qodemgo/qodem/dialer"
	"github.com/qodemgo/qodem/keyenc"
	"github.com/qodemgo/qodem/keyin"
	"github.com/qodemgo/qodem/phonebook"
	"github.com/qodemgo/qodem/rlogin"
	"github.com/qodemgo/qodem/screen"
	"github.com/qodemgo/qodem/telnet"
)

// Session is the single owning context for one connection: one
// ansi.Emulator over one screen.Screen, one of {*telnet.Framer,
// *rlogin.Framer}, the phonebook.Store the entry came from, and (only
// while dialing a MODEM entry) one *dialer.Dialer. Nothing here is
// package-level state; every collaborator above is reachable only
// through a *Session.
type Session struct {
	Screen   *screen.Screen
	Emulator *ansi.Emulator

	Telnet *telnet.Framer
	Rlogin *rlogin.Framer

	Store *phonebook.Store
	Entry *phonebook.Entry
	Dial  *dialer.Dialer

	recognizer keyin.Recognizer
	keyOpts    keyenc.Options

	// bytesOut accumulates wire bytes produced within a single pump
	// call; every Pump* method returns and clears it.
	bytesOut []byte
}

// Option configures a Session at construction.
type Option func(*Session)

// WithTelnet attaches a Telnet connection framer.
func WithTelnet(f *telnet.Framer) Option {
	return func(s *Session) { s.Telnet = f }
}

// WithRlogin attaches an Rlogin connection framer.
func WithRlogin(f *rlogin.Framer) Option {
	return func(s *Session) { s.Rlogin = f }
}

// WithStore attaches the phonebook.Store the active entry came from.
func WithStore(store *phonebook.Store) Option {
	return func(s *Session) { s.Store = store }
}

// WithEntry sets the active phonebook entry, whose doorway mode seeds
// the keystroke encoder's Options.
func WithEntry(e *phonebook.Entry) Option {
	return func(s *Session) {
		s.Entry = e
		s.keyOpts.DoorwayMode = e.Doorway == phonebook.DoorwayAlways
	}
}

// New constructs a Session over a screen of the given size.
func New(rows, cols int, opts ...Option) *Session {
	scr := screen.New(rows, cols)
	s := &Session{
		Screen:   scr,
		Emulator: ansi.New(scr),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PumpTransport feeds one byte arriving from the remote connection
// through the active framer and the ANSI emulator, returning any
// bytes the caller must write back to the transport (Telnet/Rlogin
// negotiation replies, DSR/DA responses).
func (s *Session) PumpTransport(b byte) []byte {
	s.bytesOut = s.bytesOut[:0]

	payload, toPeer := s.frameIncoming(b)
	s.bytesOut = append(s.bytesOut, toPeer...)

	for _, pb := range payload {
		s.stepEmulator(pb)
	}

	return append([]byte(nil), s.bytesOut...)
}

// stepEmulator drives the emulator to completion for one input byte:
// a ManyChars result means the replay queue still holds buffered
// glyphs, drained with further Step calls (the byte argument is
// ignored while draining).
func (s *Session) stepEmulator(b byte) {
	result, resp := s.Emulator.Step(b)
	s.bytesOut = append(s.bytesOut, resp...)
	for result == ansi.ManyChars {
		result, resp = s.Emulator.Step(0)
		s.bytesOut = append(s.bytesOut, resp...)
	}
}

// frameIncoming routes one incoming byte through whichever connection
// framer is active.
func (s *Session) frameIncoming(b byte) (payload []byte, toPeer []byte) {
	switch {
	case s.Telnet != nil:
		return s.Telnet.Feed(b)
	case s.Rlogin != nil:
		return s.Rlogin.Feed(b)
	default:
		return []byte{b}, nil
	}
}

// PumpKeystroke feeds one recognized input code point through the key
// recognizer and, for a resolved key, through the encoder, returning
// the bytes to write to the transport.
func (s *Session) PumpKeystroke(cp rune) []byte {
	var out []byte
	for _, ev := range s.recognizer.Feed(cp) {
		out = append(out, s.encodeEvent(ev)...)
	}
	return s.encodeOutbound(out)
}

// PollTimeout must be called by the main loop's poll when it expires
// with no new input: it resolves a lone pending ESC into an Escape
// key press.
func (s *Session) PollTimeout() []byte {
	ev, ok := s.recognizer.Timeout()
	if !ok {
		return nil
	}
	return s.encodeOutbound(s.encodeEvent(ev))
}

func (s *Session) encodeEvent(ev keyin.Event) []byte {
	key := keyenc.Key{
		Rune:  ev.Rune,
		Shift: ev.Flags&keyin.FlagShift != 0,
		Ctrl:  ev.Flags&keyin.FlagCtrl != 0,
	}
	switch ev.Special {
	case keyin.SpecialNone:
		key.Code = keyenc.CodeRune
	case keyin.SpecialEscape:
		key.Code = keyenc.CodeRune
		key.Rune = 0x1b
	default:
		key.Code = specialToCode(ev.Special)
		if key.Code == keyenc.CodeRune {
			return nil
		}
	}
	opts := s.keyOpts
	opts.HardBackspace = s.Screen.HardBackspace
	if s.Telnet != nil {
		opts.TelnetASCIIMode = s.Telnet.IsASCII()
	}
	return keyenc.Encode(key, keyenc.EmulationANSI, opts)
}

func specialToCode(sp keyin.Special) keyenc.Code {
	switch sp {
	case keyin.SpecialUp:
		return keyenc.CodeUp
	case keyin.SpecialDown:
		return keyenc.CodeDown
	case keyin.SpecialRight:
		return keyenc.CodeRight
	case keyin.SpecialLeft:
		return keyenc.CodeLeft
	case keyin.SpecialHome:
		return keyenc.CodeHome
	case keyin.SpecialEnd:
		return keyenc.CodeEnd
	case keyin.SpecialIC:
		return keyenc.CodeIC
	case keyin.SpecialDC:
		return keyenc.CodeDC
	case keyin.SpecialPPage:
		return keyenc.CodePPage
	case keyin.SpecialNPage:
		return keyenc.CodeNPage
	default:
		return keyenc.CodeRune
	}
}

// encodeOutbound applies the active framer's wire encoding (IAC
// doubling, CR NUL) to outbound key bytes before they reach the
// transport.
func (s *Session) encodeOutbound(data []byte) []byte {
	if s.Telnet != nil {
		return s.Telnet.EncodeOutbound(data)
	}
	return data
}
