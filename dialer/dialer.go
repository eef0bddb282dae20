// Package dialer implements the modem-dial state machine: an inner
// FSM that talks AT commands to a modem and an outer FSM that drives
// the redial cycle (busy, cycle pause, kill, give up) across a
// phonebook's tagged entries.
package dialer

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/qodemgo/qodem/phonebook"
)

// ErrNoCarrier is carried on an ActionGiveUp Action whose GiveUp state
// is dialNoNumbersLeft: the redial cycle exhausted its tagged entries
// without ever reaching CONNECTED.
var ErrNoCarrier = errors.New("dialer: no carrier, redial cycle exhausted")

// modemState is the inner FSM: the AT command conversation with the
// modem itself, independent of the outer redial policy.
type modemState int

const (
	modemInit modemState = iota
	modemSentAT
	modemSentDialString
	modemConnected
)

// dialState is the outer redial-cycle FSM.
type dialState int

const (
	dialDialing dialState = iota
	dialCycle
	dialBetweenPause
	dialLineBusy
	dialManualCycle
	dialKilled
	dialConnected
	dialUserAborted
	dialNoNumbersLeft
)

func (s dialState) String() string {
	switch s {
	case dialDialing:
		return "DIALING"
	case dialCycle:
		return "CYCLE"
	case dialBetweenPause:
		return "BETWEEN_PAUSE"
	case dialLineBusy:
		return "LINE_BUSY"
	case dialManualCycle:
		return "MANUAL_CYCLE"
	case dialKilled:
		return "KILLED"
	case dialConnected:
		return "CONNECTED"
	case dialUserAborted:
		return "USER_ABORTED"
	case dialNoNumbersLeft:
		return "NO_NUMBERS_LEFT"
	default:
		return "DIALING"
	}
}

// ActionKind names what the caller must do in response to a Feed,
// Tick, or HandleKey call.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionSend
	ActionConnected
	ActionRedial
	ActionGiveUp
)

// Action is the dialer's explicit response: the caller writes Send to
// the modem transport, reconfigures the local UART to NewDTEBaud when
// Kind is ActionConnected, or returns control to the phonebook when
// Kind is ActionGiveUp.
type Action struct {
	Kind       ActionKind
	Send       []byte
	DCEBaud    int
	NewDTEBaud int
	GiveUp     dialState
	Err        error
}

// giveUp builds an ActionGiveUp Action, attaching ErrNoCarrier when
// the redial cycle is exhausting itself without ever connecting.
func giveUp(state dialState) Action {
	a := Action{Kind: ActionGiveUp, GiveUp: state}
	if state == dialNoNumbersLeft {
		a.Err = ErrNoCarrier
	}
	return a
}

// supportedBauds are the local UART rates the dialer can select
// between, ascending.
var supportedBauds = []int{300, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// NearestSupportedBaud returns the largest supported rate that does
// not exceed reported.
func NearestSupportedBaud(reported int) int {
	best := supportedBauds[0]
	for _, b := range supportedBauds {
		if b <= reported {
			best = b
		}
	}
	return best
}

const (
	cycleDuration        = 1 * time.Second
	lineBusyDuration     = 3 * time.Second
	manualCycleDuration  = 3 * time.Second
	killedDuration       = 1 * time.Second
	userAbortedDuration  = 1 * time.Second
	noNumbersLeftDur     = 3 * time.Second
	connectedHoldDuration = 3 * time.Second
)

// Dialer drives one dial attempt (and subsequent redial cycling)
// against a phonebook.Store's tagged entries.
type Dialer struct {
	clock Clock
	store *phonebook.Store

	index      int
	entry      *phonebook.Entry

	modemState modemState
	dialState  dialState

	dialConnectTimeout time.Duration
	dialBetweenTime    time.Duration

	deadline   time.Time
	cycleStart time.Time

	lineBuf    []byte
	sawATEcho  bool
	dialString string

	DCEBaud int
}

// New constructs a Dialer over store's tagged entries, starting at
// the first tagged entry. dialConnectTimeout and dialBetweenTime are
// OPTION_DIAL_CONNECT_TIME and OPTION_DIAL_BETWEEN_TIME.
func New(store *phonebook.Store, clock Clock, dialConnectTimeout, dialBetweenTime time.Duration) *Dialer {
	d := &Dialer{
		clock:              clock,
		store:              store,
		dialConnectTimeout: dialConnectTimeout,
		dialBetweenTime:    dialBetweenTime,
	}
	d.selectNextTagged(-1)
	return d
}

func (d *Dialer) selectNextTagged(from int) bool {
	n := len(d.store.Entries)
	if n == 0 {
		d.dialState = dialNoNumbersLeft
		d.cycleStart = d.clock.Now()
		return false
	}
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if d.store.Entries[idx].Tagged {
			d.index = idx
			d.entry = d.store.Entries[idx]
			d.beginDial()
			return true
		}
	}
	d.dialState = dialNoNumbersLeft
	d.cycleStart = d.clock.Now()
	return false
}

func (d *Dialer) beginDial() {
	d.modemState = modemInit
	d.dialState = dialDialing
	d.lineBuf = d.lineBuf[:0]
	d.sawATEcho = false
	d.deadline = d.clock.Now().Add(d.dialConnectTimeout)
}

// DialString returns the initial action to kick off dialing: the
// caller must send this to the modem transport.
func (d *Dialer) DialString() []byte {
	return []byte("AT\r")
}

// State reports the current outer dial state, for display.
func (d *Dialer) State() string { return d.dialState.String() }

// Feed consumes one byte arriving from the modem (or, once
// modemConnected, from the remote peer — the caller stops routing
// bytes here at that point and hands them to the emulator pipeline
// directly instead).
func (d *Dialer) Feed(b byte) Action {
	if d.modemState == modemConnected {
		return Action{Kind: ActionNone}
	}
	if b != '\r' && b != '\n' {
		d.lineBuf = append(d.lineBuf, b)
		return Action{Kind: ActionNone}
	}
	line := string(d.lineBuf)
	d.lineBuf = d.lineBuf[:0]
	if line == "" {
		return Action{Kind: ActionNone}
	}

	switch d.modemState {
	case modemInit:
		d.modemState = modemSentAT
		return Action{Kind: ActionNone}
	case modemSentAT:
		if line == "AT" {
			// modem echo of our own command
			return Action{Kind: ActionNone}
		}
		if line == "OK" {
			d.dialString = d.entry.Address
			d.modemState = modemSentDialString
			return Action{Kind: ActionSend, Send: []byte("ATDT" + d.dialString + "\r")}
		}
		// any other final reply still advances past SENT_AT, retried next cycle
		d.modemState = modemSentDialString
		return Action{Kind: ActionNone}
	case modemSentDialString:
		if strings.Contains(line, "ATDT"+d.dialString) {
			return Action{Kind: ActionNone}
		}
		switch {
		case line == "NO DIALTONE", line == "BUSY", line == "NO CARRIER", line == "VOICE":
			d.dialState = dialLineBusy
			d.cycleStart = d.clock.Now()
			return Action{Kind: ActionNone}
		case strings.HasPrefix(line, "CONNECT"):
			baud := parseConnectBaud(line)
			newDTE := baud
			if !d.entry.LockDTEBaud && baud > 0 {
				newDTE = NearestSupportedBaud(baud)
			}
			d.DCEBaud = baud
			d.dialState = dialConnected
			d.cycleStart = d.clock.Now()
			d.modemState = modemConnected
			return Action{Kind: ActionConnected, DCEBaud: baud, NewDTEBaud: newDTE}
		}
		return Action{Kind: ActionNone}
	}
	return Action{Kind: ActionNone}
}

func parseConnectBaud(line string) int {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return n
}

// HandleKey applies the redial-policy keys: X extends the current
// dial deadline by 10s, C forces an immediate manual cycle, K kills
// (untags) the current entry and advances.
func (d *Dialer) HandleKey(key rune) Action {
	switch key {
	case 'X', 'x':
		if d.dialState == dialDialing {
			d.deadline = d.deadline.Add(10 * time.Second)
		}
		return Action{Kind: ActionNone}
	case 'C', 'c':
		d.dialState = dialManualCycle
		d.cycleStart = d.clock.Now()
		return Action{Kind: ActionNone}
	case 'K', 'k':
		d.entry.Tagged = false
		d.dialState = dialKilled
		d.cycleStart = d.clock.Now()
		if d.store.TaggedCount() == 0 {
			d.dialState = dialNoNumbersLeft
		}
		return Action{Kind: ActionNone}
	}
	return Action{Kind: ActionNone}
}

// Tick advances the outer redial FSM against the wall clock. It must
// be called once per main-loop iteration.
func (d *Dialer) Tick(now time.Time) Action {
	switch d.dialState {
	case dialDialing:
		if now.After(d.deadline) {
			d.dialState = dialCycle
			d.cycleStart = now
		}
		return Action{Kind: ActionNone}
	case dialCycle:
		if now.Sub(d.cycleStart) >= cycleDuration {
			d.dialState = dialBetweenPause
			d.cycleStart = now
		}
		return Action{Kind: ActionNone}
	case dialBetweenPause:
		if now.Sub(d.cycleStart) >= d.dialBetweenTime {
			if d.selectNextTagged(d.index) {
				return Action{Kind: ActionRedial}
			}
			return giveUp(d.dialState)
		}
		return Action{Kind: ActionNone}
	case dialLineBusy:
		if now.Sub(d.cycleStart) >= lineBusyDuration {
			if d.selectNextTagged(d.index) {
				return Action{Kind: ActionRedial}
			}
			return giveUp(d.dialState)
		}
		return Action{Kind: ActionNone}
	case dialManualCycle:
		if now.Sub(d.cycleStart) >= manualCycleDuration {
			if d.selectNextTagged(d.index) {
				return Action{Kind: ActionRedial}
			}
			return giveUp(d.dialState)
		}
		return Action{Kind: ActionNone}
	case dialKilled:
		if now.Sub(d.cycleStart) >= killedDuration {
			if d.selectNextTagged(d.index) {
				return Action{Kind: ActionRedial}
			}
			return giveUp(d.dialState)
		}
		return Action{Kind: ActionNone}
	case dialUserAborted:
		if now.Sub(d.cycleStart) >= userAbortedDuration {
			return giveUp(dialUserAborted)
		}
		return Action{Kind: ActionNone}
	case dialNoNumbersLeft:
		if now.Sub(d.cycleStart) >= noNumbersLeftDur {
			return giveUp(dialNoNumbersLeft)
		}
		return Action{Kind: ActionNone}
	case dialConnected:
		if now.Sub(d.cycleStart) >= connectedHoldDuration {
			return giveUp(dialConnected)
		}
		return Action{Kind: ActionNone}
	}
	return Action{Kind: ActionNone}
}

// Abort transitions to USER_ABORTED, e.g. in response to an explicit
// cancel key outside the X/C/K redial policy.
func (d *Dialer) Abort() {
	d.dialState = dialUserAborted
	d.cycleStart = d.clock.Now()
}
