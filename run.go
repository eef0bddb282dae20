package qodem

import (
	"fmt"
	"strconv"

	"github.com/jessevdk/go-flags"

	"github.com/qodemgo/qodem/phonebook"
	"github.com/qodemgo/qodem/rlogin"
	"github.com/qodemgo/qodem/telnet"
)

// Run parses the CLI surface, loads the named phonebook, resolves
// --dial to an entry, and returns a Session ready for the caller's
// main loop to drive, plus an ExitCode the process should exit with.
// A non-ExitOK code means sess is nil: the caller should print the
// returned error and exit without entering its loop.
//
// Run never calls os.Exit itself; process lifecycle (including
// logging the returned error) is the caller's job, matching the
// library posture the rest of this module keeps.
func Run(args []string, phonebookPath string) (sess *Session, code ExitCode, err error) {
	var opts CLIOptions
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, ExitConfigError, fmt.Errorf("qodem: parsing arguments: %w", err)
	}

	store, err := phonebook.Load(phonebookPath)
	if err != nil {
		return nil, ExitConfigError, fmt.Errorf("qodem: loading phonebook %q: %w", phonebookPath, err)
	}

	entry, err := resolveDialTarget(store, opts.Dial)
	if err != nil {
		return nil, ExitConfigError, fmt.Errorf("qodem: resolving --dial %q: %w", opts.Dial, err)
	}

	sessOpts := []Option{WithStore(store)}
	if entry != nil {
		sessOpts = append(sessOpts, WithEntry(entry))
		switch entry.Method {
		case phonebook.MethodTelnet:
			f := telnet.NewFramer()
			f.SetTerminalType(entry.Emulation)
			sessOpts = append(sessOpts, WithTelnet(f))
		case phonebook.MethodRlogin:
			sessOpts = append(sessOpts, WithRlogin(rlogin.NewFramer()))
		}
	}

	return New(24, 80, sessOpts...), ExitOK, nil
}

// resolveDialTarget resolves the --dial flag (empty means "no dial
// target yet, let the phonebook UI pick one") by entry name first,
// falling back to a 1-based tagged-entry index.
func resolveDialTarget(store *phonebook.Store, dial string) (*phonebook.Entry, error) {
	if dial == "" {
		return nil, nil
	}
	for _, e := range store.Entries {
		if e.Name == dial {
			return e, nil
		}
	}
	if n, err := strconv.Atoi(dial); err == nil {
		i := 0
		for _, e := range store.Entries {
			if !e.Tagged {
				continue
			}
			i++
			if i == n {
				return e, nil
			}
		}
	}
	return nil, fmt.Errorf("no phonebook entry named or tagged-indexed %q", dial)
}
