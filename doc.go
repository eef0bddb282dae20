// Package qodem wires a terminal emulator, a connection framer, a
// phonebook, and (while dialing) a modem-dial state machine into a
// single owning [Session], plus the CLI surface that drives one.
//
// # Architecture
//
//   - [Session]: the single-threaded context a main loop calls into at
//     its two blocking points, one for transport bytes
//     ([Session.PumpTransport]) and one for keystrokes
//     ([Session.PumpKeystroke]).
//   - [github.com/qodemgo/qodem/ansi.Emulator]: the ANSI.SYS
//     interpreter driving a [github.com/qodemgo/qodem/screen.Screen].
//   - [github.com/qodemgo/qodem/telnet.Framer] or
//     [github.com/qodemgo/qodem/rlogin.Framer]: the connection framer,
//     chosen per [github.com/qodemgo/qodem/phonebook.Entry.Method].
//   - [github.com/qodemgo/qodem/dialer.Dialer]: constructed only while
//     dialing a MODEM entry, discarded once connected.
//
// No package-level state is kept anywhere in the module; every value
// above is reachable only through a Session.
package qodem
