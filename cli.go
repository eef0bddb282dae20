package qodem

// CLIOptions is the command-line surface, parsed with
// github.com/jessevdk/go-flags' struct-tag convention.
type CLIOptions struct {
	Keyfile  string `long:"keyfile" description:"load key bindings from this file"`
	Xl8      string `long:"xl8" description:"8-bit translation table file"`
	Xlu      string `long:"xlu" description:"Unicode translation table file"`
	Scrfile  string `long:"scrfile" description:"capture the session to this file"`
	Dial     string `long:"dial" description:"dial this phonebook entry by name or tagged index"`
	ReadOnly bool   `long:"read-only" description:"open the phonebook without permission to save changes"`
}

// ExitCode names qodem.Run's three possible process exit statuses.
type ExitCode int

const (
	// ExitOK means the session ran to completion with no error.
	ExitOK ExitCode = 0
	// ExitConfigError means a CLI flag or phonebook file could not be
	// parsed.
	ExitConfigError ExitCode = 1
	// ExitIOError means the transport failed during the session.
	ExitIOError ExitCode = 2
)
