package phonebook

import (
	"bufio"
	"errors"
	"fmt"
	"iter"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrStale is returned by Save when the in-memory snapshot is older
// than the file's last known on-disk modification time, meaning
// something else touched the file since it was loaded.
var ErrStale = errors.New("phonebook: file changed on disk since load")

// Store owns a slice of entries loaded from (and saved back to) a
// single phonebook file, plus the mtime it was loaded at.
type Store struct {
	path       string
	Entries    []*Entry
	loadedMod time.Time
}

// Load reads and parses path into a new Store.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	entries, err := parseEntries(f)
	if err != nil {
		return nil, err
	}

	return &Store{path: path, Entries: entries, loadedMod: info.ModTime()}, nil
}

// Tagged returns an iterator over every tagged entry, in file order.
func (s *Store) Tagged() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, e := range s.Entries {
			if !e.Tagged {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// TaggedCount reports how many entries are currently tagged, the
// count the dialer's redial policy watches for NO_NUMBERS_LEFT.
func (s *Store) TaggedCount() int {
	n := 0
	for range s.Tagged() {
		n++
	}
	return n
}

// Save writes the store back to its file, refusing if the on-disk
// mtime has moved past the mtime seen at Load, and writing a .bak
// sibling of the previous contents first.
func (s *Store) Save() error {
	info, err := os.Stat(s.path)
	if err == nil && info.ModTime().After(s.loadedMod) {
		return ErrStale
	}

	if old, err := os.ReadFile(s.path); err == nil {
		if err := os.WriteFile(s.path+".bak", old, 0o600); err != nil {
			return err
		}
	}

	data := formatEntries(s.Entries)
	if err := os.WriteFile(s.path, []byte(data), 0o600); err != nil {
		return err
	}

	info, err = os.Stat(s.path)
	if err == nil {
		s.loadedMod = info.ModTime()
	}
	return nil
}

func parseEntries(f *os.File) ([]*Entry, error) {
	var entries []*Entry
	var cur *Entry
	var inNotes bool

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if inNotes {
			if line == "END" {
				inNotes = false
				continue
			}
			cur.Notes = append(cur.Notes, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if trimmed == "[entry]" {
			cur = &Entry{}
			entries = append(entries, cur)
			continue
		}

		if cur == nil {
			continue
		}

		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}

		if key == "notes" && value == "<<<END" {
			inNotes = true
			continue
		}

		applyKey(cur, key, value)

		if key == "keybindings_filename" {
			cur = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func applyKey(e *Entry, key, value string) {
	switch key {
	case "name":
		e.Name = value
	case "address":
		e.Address = value
	case "port":
		e.Port, _ = strconv.Atoi(value)
	case "username":
		e.Username = value
	case "password":
		e.Password = value
	case "tagged":
		e.Tagged = value == "true"
	case "doorway":
		e.Doorway = doorwayFromString(value)
	case "method":
		e.Method = methodFromString(value)
	case "emulation":
		e.Emulation = value
	case "codepage":
		e.Codepage = value
	case "quicklearn":
		e.Quicklearn = value == "true"
	case "use_modem_cfg":
		e.UseModemCfg = value == "true"
	case "use_default_toggles":
		e.UseDefaultToggles = value == "true"
	case "toggles":
		n, _ := strconv.ParseUint(value, 10, 32)
		e.Toggles = uint32(n)
	case "xonxoff":
		e.XonXoff = value == "true"
	case "rtscts":
		e.RtsCts = value == "true"
	case "baud":
		e.Baud, _ = strconv.Atoi(value)
	case "data_bits":
		e.DataBits, _ = strconv.Atoi(value)
	case "parity":
		e.Parity = value
	case "stop_bits":
		e.StopBits, _ = strconv.Atoi(value)
	case "lock_dte_baud":
		e.LockDTEBaud = value == "true"
	case "times_on":
		n, _ := strconv.ParseUint(value, 10, 32)
		e.TimesOn = uint32(n)
	case "last_call":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			e.LastCall = time.Unix(n, 0).UTC()
		}
	case "script_filename":
		e.ScriptFilename = value
	case "capture_filename":
		e.CaptureFilename = value
	case "translate_8bit_filename":
		e.Translate8BitFilename = value
	case "translate_unicode_filename":
		e.TranslateUnicodeFilename = value
	case "keybindings_filename":
		e.KeybindingsFilename = value
	}
}

func formatEntries(entries []*Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString("[entry]\n")
		fmt.Fprintf(&b, "name=%s\n", e.Name)
		fmt.Fprintf(&b, "address=%s\n", e.Address)
		fmt.Fprintf(&b, "port=%d\n", e.Port)
		fmt.Fprintf(&b, "username=%s\n", e.Username)
		fmt.Fprintf(&b, "password=%s\n", e.Password)
		fmt.Fprintf(&b, "tagged=%s\n", boolString(e.Tagged))
		fmt.Fprintf(&b, "doorway=%s\n", e.Doorway)
		fmt.Fprintf(&b, "method=%s\n", e.Method)
		fmt.Fprintf(&b, "emulation=%s\n", e.Emulation)
		fmt.Fprintf(&b, "codepage=%s\n", e.Codepage)
		fmt.Fprintf(&b, "quicklearn=%s\n", boolString(e.Quicklearn))
		fmt.Fprintf(&b, "use_modem_cfg=%s\n", boolString(e.UseModemCfg))
		fmt.Fprintf(&b, "use_default_toggles=%s\n", boolString(e.UseDefaultToggles))
		fmt.Fprintf(&b, "toggles=%d\n", e.Toggles)
		fmt.Fprintf(&b, "xonxoff=%s\n", boolString(e.XonXoff))
		fmt.Fprintf(&b, "rtscts=%s\n", boolString(e.RtsCts))
		fmt.Fprintf(&b, "baud=%d\n", e.Baud)
		fmt.Fprintf(&b, "data_bits=%d\n", e.DataBits)
		fmt.Fprintf(&b, "parity=%s\n", e.Parity)
		fmt.Fprintf(&b, "stop_bits=%d\n", e.StopBits)
		fmt.Fprintf(&b, "lock_dte_baud=%s\n", boolString(e.LockDTEBaud))
		fmt.Fprintf(&b, "times_on=%d\n", e.TimesOn)
		fmt.Fprintf(&b, "last_call=%d\n", e.LastCall.Unix())
		fmt.Fprintf(&b, "script_filename=%s\n", e.ScriptFilename)
		fmt.Fprintf(&b, "capture_filename=%s\n", e.CaptureFilename)
		fmt.Fprintf(&b, "translate_8bit_filename=%s\n", e.Translate8BitFilename)
		fmt.Fprintf(&b, "translate_unicode_filename=%s\n", e.TranslateUnicodeFilename)
		if len(e.Notes) > 0 {
			b.WriteString("notes=<<<END\n")
			for _, n := range e.Notes {
				b.WriteString(n)
				b.WriteString("\n")
			}
			b.WriteString("END\n")
		}
		fmt.Fprintf(&b, "keybindings_filename=%s\n", e.KeybindingsFilename)
		b.WriteString("\n")
	}
	return b.String()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
