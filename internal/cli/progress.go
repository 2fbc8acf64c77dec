package cli

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// progressEnabled reports whether a spinner may draw on stderr: a terminal,
// outside CI, with no verbose logging interleaved.
var progressEnabled = func() bool {
	return isTerminal(os.Stderr) && os.Getenv("CI") == "" && !cfg.Verbose && !cfg.Debug
}

// startProgress shows msg next to a spinner until the returned stop func
// is called.
func startProgress(msg string) (stop func()) {
	if !progressEnabled() {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + msg
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}
