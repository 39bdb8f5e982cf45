//go:build linux || darwin || freebsd

package proc

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/mattn/go-isatty"
)

// attachProcessToTTY redirects the tracee's standard streams to the
// terminal named by tty and makes it the controlling terminal.
func attachProcessToTTY(process *exec.Cmd, tty string) (*os.File, error) {
	f, err := os.OpenFile(tty, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if !isatty.IsTerminal(f.Fd()) {
		f.Close()
		return nil, fmt.Errorf("%s is not a terminal", f.Name())
	}
	process.Stdin = f
	process.Stdout = f
	process.Stderr = f
	process.SysProcAttr.Setpgid = false
	process.SysProcAttr.Setsid = true
	process.SysProcAttr.Setctty = true

	return f, nil
}
