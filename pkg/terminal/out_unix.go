//go:build linux || darwin || freebsd

package terminal

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// getColorableWriter returns the writer terminal output goes to. Escape
// sequences are stripped when stdout is not a terminal.
func getColorableWriter() io.Writer {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return colorable.NewColorableStdout()
	}
	return colorable.NewNonColorable(os.Stdout)
}
