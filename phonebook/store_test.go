package phonebook

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dialdir")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp phonebook: %v", err)
	}
	return path
}

func TestParseBasicEntry(t *testing.T) {
	path := writeTemp(t, `# a comment
[entry]
name=bbs one
address=bbs.example.com
port=23
username=alice
password=secret
tagged=true
doorway=always
method=TELNET
emulation=ansi
codepage=cp437
quicklearn=false
use_modem_cfg=false
use_default_toggles=true
toggles=0
xonxoff=false
rtscts=false
baud=38400
data_bits=8
parity=none
stop_bits=1
lock_dte_baud=false
times_on=4
last_call=1000
script_filename=
capture_filename=
translate_8bit_filename=
translate_unicode_filename=
keybindings_filename=
`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(s.Entries))
	}
	e := s.Entries[0]
	if e.Name != "bbs one" || e.Address != "bbs.example.com" || e.Port != 23 {
		t.Fatalf("entry = %+v", e)
	}
	if e.Method != MethodTelnet || e.Doorway != DoorwayAlways {
		t.Fatalf("method/doorway = %v/%v", e.Method, e.Doorway)
	}
	if !e.Tagged {
		t.Fatalf("expected tagged=true")
	}
}

func TestNotesHeredocTerminatesOnEND(t *testing.T) {
	path := writeTemp(t, `[entry]
name=has notes
notes=<<<END
line one
line two
END
keybindings_filename=
`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e := s.Entries[0]
	if len(e.Notes) != 2 || e.Notes[0] != "line one" || e.Notes[1] != "line two" {
		t.Fatalf("notes = %v", e.Notes)
	}
}

func TestKeybindingsFilenameTerminatesEntryWithoutBlankLine(t *testing.T) {
	path := writeTemp(t, `[entry]
name=first
keybindings_filename=a.keys
[entry]
name=second
keybindings_filename=b.keys
`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(s.Entries))
	}
	if s.Entries[0].Name != "first" || s.Entries[1].Name != "second" {
		t.Fatalf("entries = %+v", s.Entries)
	}
}

func TestTaggedIteratorSkipsUntagged(t *testing.T) {
	path := writeTemp(t, `[entry]
name=a
tagged=true
keybindings_filename=
[entry]
name=b
tagged=false
keybindings_filename=
[entry]
name=c
tagged=true
keybindings_filename=
`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var names []string
	for e := range s.Tagged() {
		names = append(names, e.Name)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Fatalf("tagged names = %v", names)
	}
	if s.TaggedCount() != 2 {
		t.Fatalf("TaggedCount = %d, want 2", s.TaggedCount())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := writeTemp(t, `[entry]
name=round trip
address=host
port=22
tagged=true
method=SSH
baud=9600
times_on=2
last_call=500
keybindings_filename=
`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Entries[0].TimesOn++
	s.Entries[0].LastCall = time.Unix(600, 0).UTC()
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.Entries) != 1 {
		t.Fatalf("reloaded entries = %d, want 1", len(reloaded.Entries))
	}
	e := reloaded.Entries[0]
	if e.Name != "round trip" || e.TimesOn != 3 || e.Method != MethodSSH {
		t.Fatalf("reloaded entry = %+v", e)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Fatalf("expected .bak sibling: %v", err)
	}
}

func TestSaveRejectsStaleFile(t *testing.T) {
	path := writeTemp(t, `[entry]
name=stale check
keybindings_filename=
`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// simulate an external writer touching the file after load
	future := time.Now().Add(time.Hour)
	if err := os.WriteFile(path, []byte("[entry]\nname=external\nkeybindings_filename=\n"), 0o600); err != nil {
		t.Fatalf("external write: %v", err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if err := s.Save(); err != ErrStale {
		t.Fatalf("Save over externally-modified file = %v, want ErrStale", err)
	}
}
