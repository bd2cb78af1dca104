package console

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// Spinner provides visual feedback for long-running operations such as
// cache fetches and installs. It degrades to plain status lines when
// stderr is not a terminal or ACCESSIBLE is set.
type Spinner struct {
	s       *spinner.Spinner
	message string
	plain   bool
}

// NewSpinner creates a Spinner with the given message. Call Start/Stop
// around the operation it describes.
func NewSpinner(message string) *Spinner {
	plain := !isatty.IsTerminal(os.Stderr.Fd()) || os.Getenv("ACCESSIBLE") != ""
	sp := &Spinner{message: message, plain: plain}
	if !plain {
		sp.s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		sp.s.Suffix = " " + message
	}
	return sp
}

// Start begins the spinner animation (a no-op in plain mode beyond printing once).
func (sp *Spinner) Start() {
	if sp.plain {
		fmt.Fprintf(os.Stderr, "%s...\n", sp.message)
		return
	}
	sp.s.Start()
}

// UpdateMessage changes the spinner's in-flight message.
func (sp *Spinner) UpdateMessage(message string) {
	sp.message = message
	if sp.plain {
		fmt.Fprintf(os.Stderr, "%s...\n", message)
		return
	}
	sp.s.Suffix = " " + message
}

// Stop halts the spinner and prints a final status line.
func (sp *Spinner) Stop(final string) {
	if sp.plain {
		fmt.Fprintln(os.Stderr, final)
		return
	}
	sp.s.Stop()
	fmt.Fprintln(os.Stderr, final)
}
