// Package rlogin implements the Rlogin startup handshake and the
// out-of-band window-size protocol, with no socket of its own. The
// caller owns the transport; Framer only turns bytes in one direction
// into application payload plus any bytes that must go back out.
package rlogin

import "encoding/binary"

const oobWindowSize = 0x80

// Framer tracks the two-phase Rlogin session: a startup handshake
// (client sends its NUL-delimited identity, waits for the server's
// single acknowledging NUL), then an 8-bit-clean data phase in which
// an out-of-band 0x80 byte from the server requests the current
// window size.
type Framer struct {
	startupSent  bool
	startupAcked bool

	rows, cols, xpix, ypix int
}

// NewFramer returns a Framer ready for Startup.
func NewFramer() *Framer {
	return &Framer{}
}

// Startup builds the client's one-shot login message:
// NUL local-user NUL remote-user NUL terminal/speed NUL.
func (f *Framer) Startup(localUser, remoteUser, termSpeed string) []byte {
	f.startupSent = true
	buf := make([]byte, 0, len(localUser)+len(remoteUser)+len(termSpeed)+4)
	buf = append(buf, 0)
	buf = append(buf, []byte(localUser)...)
	buf = append(buf, 0)
	buf = append(buf, []byte(remoteUser)...)
	buf = append(buf, 0)
	buf = append(buf, []byte(termSpeed)...)
	buf = append(buf, 0)
	return buf
}

// ConsumeStartupAck feeds one byte of the server's handshake reply.
// It reports true once the single acknowledging NUL has been seen;
// after that the session is in its 8-bit-clean data phase and bytes
// must go through Feed instead.
func (f *Framer) ConsumeStartupAck(b byte) bool {
	if f.startupAcked {
		return true
	}
	if b == 0 {
		f.startupAcked = true
	}
	return f.startupAcked
}

// SetWindowSize records the local terminal geometry used to answer a
// future OOB window-size request and to build an unsolicited resize
// notification.
func (f *Framer) SetWindowSize(rows, cols, xpix, ypix int) {
	f.rows, f.cols, f.xpix, f.ypix = rows, cols, xpix, ypix
}

// Feed consumes one byte of the post-handshake stream. payload is
// application data for the terminal emulator (nil if this byte was
// the OOB trigger); oob is the window-size reply the caller must send
// back out on the connection's out-of-band channel, if any.
func (f *Framer) Feed(b byte) (payload []byte, oob []byte) {
	if b == oobWindowSize {
		return nil, f.windowSizeMessage()
	}
	return []byte{b}, nil
}

// Resize records a new local window size and returns the unsolicited
// OOB message announcing it, in the same wire format as a requested
// reply.
func (f *Framer) Resize(rows, cols, xpix, ypix int) []byte {
	f.SetWindowSize(rows, cols, xpix, ypix)
	return f.windowSizeMessage()
}

// windowSizeMessage builds the "FF FF s s rows cols xpix ypix" reply,
// all 16-bit fields big-endian.
func (f *Framer) windowSizeMessage() []byte {
	buf := make([]byte, 12)
	buf[0] = 0xff
	buf[1] = 0xff
	buf[2] = 's'
	buf[3] = 's'
	binary.BigEndian.PutUint16(buf[4:6], uint16(f.rows))
	binary.BigEndian.PutUint16(buf[6:8], uint16(f.cols))
	binary.BigEndian.PutUint16(buf[8:10], uint16(f.xpix))
	binary.BigEndian.PutUint16(buf[10:12], uint16(f.ypix))
	return buf
}
