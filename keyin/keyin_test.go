package keyin

import "testing"

func TestPlainRunePassesThroughIdle(t *testing.T) {
	var r Recognizer
	events := r.Feed('x')
	if len(events) != 1 || events[0].Rune != 'x' || events[0].Special != SpecialNone {
		t.Fatalf("got %+v, want plain 'x'", events)
	}
}

func TestUnicodeFlagSetAboveFF(t *testing.T) {
	var r Recognizer
	events := r.Feed(0x2603) // snowman
	if len(events) != 1 || events[0].Flags&FlagUnicode == 0 {
		t.Fatalf("got %+v, want FlagUnicode set", events)
	}
}

func TestLoneEscThenOrdinaryByteIsAlt(t *testing.T) {
	var r Recognizer
	if events := r.Feed(0x1b); len(events) != 0 {
		t.Fatalf("ESC alone should produce no event yet, got %+v", events)
	}
	events := r.Feed('q')
	if len(events) != 1 || events[0].Rune != 'q' || events[0].Flags&FlagAlt == 0 {
		t.Fatalf("got %+v, want Alt+q", events)
	}
}

func TestArrowSequenceNoModifier(t *testing.T) {
	var r Recognizer
	r.Feed(0x1b)
	r.Feed('[')
	events := r.Feed('A')
	if len(events) != 1 || events[0].Special != SpecialUp || events[0].Flags != 0 {
		t.Fatalf("got %+v, want plain Up", events)
	}
}

func TestArrowWithShiftCtrl(t *testing.T) {
	var r Recognizer
	var last []Event
	for _, cp := range []rune{0x1b, '[', '1', ';', '6', 'C'} {
		last = r.Feed(cp)
	}
	if len(last) != 1 || last[0].Special != SpecialRight {
		t.Fatalf("got %+v, want Right", last)
	}
	if last[0].Flags&FlagShift == 0 || last[0].Flags&FlagCtrl == 0 {
		t.Fatalf("flags = %v, want Shift|Ctrl (N=6 -> m=5 -> shift+ctrl)", last[0].Flags)
	}
}

func TestTildeSequenceDelete(t *testing.T) {
	var r Recognizer
	var last []Event
	for _, cp := range []rune{0x1b, '[', '3', '~'} {
		last = r.Feed(cp)
	}
	if len(last) != 1 || last[0].Special != SpecialDC {
		t.Fatalf("got %+v, want DC", last)
	}
}

func TestBracketedPasteMarkers(t *testing.T) {
	var r Recognizer
	var last []Event
	for _, cp := range []rune{0x1b, '[', '2', '0', '0', '~'} {
		last = r.Feed(cp)
	}
	if len(last) != 1 || last[0].Special != SpecialPasteStart {
		t.Fatalf("got %+v, want PasteStart", last)
	}

	for _, cp := range []rune{0x1b, '[', '2', '0', '1', '~'} {
		last = r.Feed(cp)
	}
	if len(last) != 1 || last[0].Special != SpecialPasteEnd {
		t.Fatalf("got %+v, want PasteEnd", last)
	}
}

func TestInvalidSequenceDrainsBuffer(t *testing.T) {
	var r Recognizer
	r.Feed(0x1b)
	r.Feed('[')
	r.Feed('9') // begins a param
	// 'z' is not a recognized final and not a digit/;/[ -> drain
	events := r.Feed('z')
	if len(events) == 0 {
		t.Fatalf("invalid sequence should drain, got no events")
	}
	// first event should be the ESC+'[' pair collapsed to Alt+'['
	if events[0].Rune != '[' || events[0].Flags&FlagAlt == 0 {
		t.Fatalf("first drained event = %+v, want Alt+'['", events[0])
	}
}

func TestUnrecognizedFinalDrains(t *testing.T) {
	var r Recognizer
	r.Feed(0x1b)
	r.Feed('[')
	// 'Z' is not in the recognized final set at all in this table
	events := r.Feed('Z')
	if len(events) == 0 {
		t.Fatalf("unrecognized byte should force a drain")
	}
}

func TestTimeoutFiresOnlyForLoneEsc(t *testing.T) {
	var r Recognizer
	if _, ok := r.Timeout(); ok {
		t.Fatalf("Timeout should report false with nothing pending")
	}
	r.Feed(0x1b)
	ev, ok := r.Timeout()
	if !ok || ev.Special != SpecialEscape {
		t.Fatalf("Timeout after lone ESC = (%+v, %v), want (Escape, true)", ev, ok)
	}
}

func TestBufferOverflowForcesDrain(t *testing.T) {
	var r Recognizer
	r.Feed(0x1b)
	r.Feed('[')
	sawMultiEventDrain := false
	for i := 0; i < 20; i++ {
		events := r.Feed('1')
		if len(events) > 1 {
			sawMultiEventDrain = true
		}
	}
	if !sawMultiEventDrain {
		t.Fatalf("buffer overflow should force a multi-event drain")
	}
}
