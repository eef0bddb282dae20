package dialer

import (
	"testing"
	"time"

	"github.com/qodemgo/qodem/phonebook"
)

func storeWith(entries ...*phonebook.Entry) *phonebook.Store {
	s := &phonebook.Store{Entries: entries}
	return s
}

func TestNearestSupportedBaudRoundsDown(t *testing.T) {
	if got := NearestSupportedBaud(19200); got != 19200 {
		t.Fatalf("NearestSupportedBaud(19200) = %d", got)
	}
	if got := NearestSupportedBaud(20000); got != 19200 {
		t.Fatalf("NearestSupportedBaud(20000) = %d, want 19200", got)
	}
	if got := NearestSupportedBaud(100); got != 300 {
		t.Fatalf("NearestSupportedBaud(100) = %d, want 300 (floor)", got)
	}
}

func TestHappyPathReachesConnected(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	store := storeWith(&phonebook.Entry{Name: "bbs", Address: "1234", Tagged: true})
	d := New(store, clock, 30*time.Second, 10*time.Second)

	feedLine := func(s string) Action {
		var last Action
		for _, b := range []byte(s) {
			last = d.Feed(b)
		}
		return last
	}

	feedLine("AT\r")
	feedLine("OK\r")
	act := feedLine("CONNECT 19200\r")
	if act.Kind != ActionConnected {
		t.Fatalf("action = %+v, want ActionConnected", act)
	}
	if act.DCEBaud != 19200 || act.NewDTEBaud != 19200 {
		t.Fatalf("baud = %d/%d, want 19200/19200", act.DCEBaud, act.NewDTEBaud)
	}
	if d.State() != "CONNECTED" {
		t.Fatalf("state = %s, want CONNECTED", d.State())
	}
}

func TestLockDTEBaudKeepsReportedRate(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	store := storeWith(&phonebook.Entry{Name: "bbs", Address: "1234", Tagged: true, LockDTEBaud: true})
	d := New(store, clock, 30*time.Second, 10*time.Second)

	feed := func(s string) Action {
		var last Action
		for _, b := range []byte(s) {
			last = d.Feed(b)
		}
		return last
	}
	feed("AT\r")
	feed("OK\r")
	act := feed("CONNECT 57600\r")
	if act.NewDTEBaud != 57600 {
		t.Fatalf("NewDTEBaud = %d, want 57600 (locked, no rounding)", act.NewDTEBaud)
	}
}

func TestBusyReplyEntersLineBusyThenCyclesToNextEntry(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	store := storeWith(
		&phonebook.Entry{Name: "first", Address: "1111", Tagged: true},
		&phonebook.Entry{Name: "second", Address: "2222", Tagged: true},
	)
	d := New(store, clock, 30*time.Second, 2*time.Second)

	feed := func(s string) Action {
		var last Action
		for _, b := range []byte(s) {
			last = d.Feed(b)
		}
		return last
	}
	feed("AT\r")
	feed("OK\r")
	feed("BUSY\r")
	if d.State() != "LINE_BUSY" {
		t.Fatalf("state = %s, want LINE_BUSY", d.State())
	}

	clock.Advance(3 * time.Second)
	act := d.Tick(clock.Now())
	if act.Kind != ActionRedial {
		t.Fatalf("action = %+v, want ActionRedial", act)
	}
	if d.entry.Name != "second" {
		t.Fatalf("entry = %s, want second", d.entry.Name)
	}
	if d.State() != "DIALING" {
		t.Fatalf("state = %s, want DIALING", d.State())
	}
}

func TestDialingTimesOutIntoCycleThenBetweenPause(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	store := storeWith(&phonebook.Entry{Name: "only", Address: "1234", Tagged: true})
	d := New(store, clock, 5*time.Second, 2*time.Second)

	clock.Advance(6 * time.Second)
	d.Tick(clock.Now())
	if d.State() != "CYCLE" {
		t.Fatalf("state = %s, want CYCLE", d.State())
	}

	clock.Advance(2 * time.Second)
	d.Tick(clock.Now())
	if d.State() != "BETWEEN_PAUSE" {
		t.Fatalf("state = %s, want BETWEEN_PAUSE", d.State())
	}
}

func TestXKeyExtendsDialingDeadline(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	store := storeWith(&phonebook.Entry{Name: "only", Address: "1234", Tagged: true})
	d := New(store, clock, 5*time.Second, 2*time.Second)

	d.HandleKey('X')
	clock.Advance(6 * time.Second)
	d.Tick(clock.Now())
	if d.State() != "DIALING" {
		t.Fatalf("state = %s, want DIALING (deadline extended)", d.State())
	}
}

func TestCKeyForcesManualCycle(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	store := storeWith(&phonebook.Entry{Name: "only", Address: "1234", Tagged: true})
	d := New(store, clock, 30*time.Second, 2*time.Second)

	d.HandleKey('C')
	if d.State() != "MANUAL_CYCLE" {
		t.Fatalf("state = %s, want MANUAL_CYCLE", d.State())
	}
}

func TestKKeyUntagsAndExhaustsToNoNumbersLeft(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	store := storeWith(&phonebook.Entry{Name: "only", Address: "1234", Tagged: true})
	d := New(store, clock, 30*time.Second, 2*time.Second)

	d.HandleKey('K')
	if d.State() != "NO_NUMBERS_LEFT" {
		t.Fatalf("state = %s, want NO_NUMBERS_LEFT", d.State())
	}
	if store.TaggedCount() != 0 {
		t.Fatalf("TaggedCount = %d, want 0 after kill", store.TaggedCount())
	}
}

func TestNoTaggedEntriesAtConstructionGivesUp(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	store := storeWith(&phonebook.Entry{Name: "untagged", Address: "1234", Tagged: false})
	d := New(store, clock, 30*time.Second, 2*time.Second)
	if d.State() != "NO_NUMBERS_LEFT" {
		t.Fatalf("state = %s, want NO_NUMBERS_LEFT", d.State())
	}
}

func TestExhaustingOnlyEntryGivesUpWithErrNoCarrier(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	store := storeWith(&phonebook.Entry{Name: "only", Address: "1234", Tagged: true})
	d := New(store, clock, 30*time.Second, 2*time.Second)

	// K untags the only entry, so the dialer has nothing left to cycle
	// to and lands in NO_NUMBERS_LEFT (dialer.go:298-304), unlike a BUSY
	// reply against a single tagged entry, which re-selects the same
	// entry and redials it (spec.md §4.6: "stay on it").
	d.HandleKey('K')
	if d.State() != "NO_NUMBERS_LEFT" {
		t.Fatalf("state = %s, want NO_NUMBERS_LEFT", d.State())
	}
	if store.TaggedCount() != 0 {
		t.Fatalf("TaggedCount = %d, want 0 after kill", store.TaggedCount())
	}

	clock.Advance(4 * time.Second)
	act := d.Tick(clock.Now())
	if act.Kind != ActionGiveUp || act.GiveUp != dialNoNumbersLeft {
		t.Fatalf("action = %+v, want ActionGiveUp/NO_NUMBERS_LEFT", act)
	}
	if act.Err != ErrNoCarrier {
		t.Fatalf("Err = %v, want ErrNoCarrier", act.Err)
	}
}
