package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-delve/liner"

	"github.com/Turtel216/cd-debugger/pkg/config"
	"github.com/Turtel216/cd-debugger/pkg/proc"
	"github.com/Turtel216/cd-debugger/pkg/source"
)

// Term represents the terminal running the debug session.
type Term struct {
	dbp     *proc.Process
	conf    *config.Config
	prompt  string
	line    *liner.State
	cmds    *Commands
	stdout  io.Writer
	sources *source.Cache

	processArgs []string
	launchWD    string
	launchFlags proc.LaunchFlags
	launchTTY   string
	attached    bool
}

// New returns a new Term driving dbp.
func New(dbp *proc.Process, conf *config.Config) *Term {
	cmds := DebugCommands()
	if conf != nil && conf.Aliases != nil {
		cmds.Merge(conf.Aliases)
	}
	if conf == nil {
		conf = &config.Config{}
	}

	return &Term{
		dbp:     dbp,
		conf:    conf,
		prompt:  "(cdb) ",
		line:    liner.NewLiner(),
		cmds:    cmds,
		stdout:  getColorableWriter(),
		sources: source.NewCache(),
	}
}

// SetProcessArgs records how the tracee was launched, argument vector
// and working directory included, so the restart command can relaunch it
// the same way.
func (t *Term) SetProcessArgs(args []string, wd string, flags proc.LaunchFlags, tty string) {
	t.processArgs = args
	t.launchWD = wd
	t.launchFlags = flags
	t.launchTTY = tty
}

// SetAttached marks the session as attached to a preexisting process
// instead of one launched by the debugger.
func (t *Term) SetAttached() {
	t.attached = true
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	t.line.Close()
}

// Run reads commands in a loop until the user exits the session.
// Returns the exit status to report.
func (t *Term) Run() (int, error) {
	defer t.Close()

	t.line.SetCompleter(func(line string) (c []string) {
		for _, cmd := range t.cmds.cmds {
			for _, alias := range cmd.aliases {
				if strings.HasPrefix(alias, strings.ToLower(line)) {
					c = append(c, alias)
				}
			}
		}
		return
	})

	fullHistoryFile, err := config.HistoryFilePath()
	if err != nil {
		fmt.Printf("Unable to load history file: %v.\n", err)
	} else if f, err := os.Open(fullHistoryFile); err == nil {
		t.line.ReadHistory(f)
		f.Close()
	}

	fmt.Println("Type 'help' for list of commands.")

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(t.stdout, "exit")
				return t.handleExit()
			}
			if err == liner.ErrPromptAborted {
				continue
			}
			return 1, fmt.Errorf("prompt for input failed: %v", err)
		}

		if err := t.cmds.Call(cmdstr, t); err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit()
			}
			fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
		}
	}
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func (t *Term) handleExit() (int, error) {
	if fullHistoryFile, err := config.HistoryFilePath(); err == nil {
		if f, err := os.Create(fullHistoryFile); err == nil {
			_, err = t.line.WriteHistory(f)
			if err != nil {
				fmt.Printf("readline history file could not be saved: %v\n", err)
			}
			f.Close()
		}
	}

	if !t.dbp.Exited() {
		if t.attached {
			fmt.Fprintf(t.stdout, "Detaching from process %d\n", t.dbp.Pid)
			if err := t.dbp.Detach(false); err != nil {
				return 1, err
			}
		} else {
			fmt.Fprintf(t.stdout, "Killing process %d\n", t.dbp.Pid)
			if err := t.dbp.Kill(); err != nil {
				return 1, err
			}
		}
	}
	return 0, nil
}

// Restart kills the current tracee and launches a new one with args.
// Breakpoints are reapplied at the same addresses; with randomization
// disabled they still name the same instructions.
func (t *Term) Restart(args []string) error {
	if !t.dbp.Exited() {
		if err := t.dbp.Kill(); err != nil {
			return err
		}
	}
	oldbps := t.dbp.Breakpoints

	dbp, err := proc.Launch(args, t.launchWD, t.launchFlags, t.launchTTY)
	if err != nil {
		return err
	}
	t.dbp = dbp
	t.processArgs = args
	for addr := range oldbps {
		if _, err := dbp.SetBreakpoint(addr); err != nil {
			fmt.Fprintf(os.Stderr, "could not restore breakpoint at %#x: %v\n", addr, err)
		}
	}
	fmt.Fprintf(t.stdout, "Process restarted with PID %d\n", dbp.Pid)
	return nil
}

// stoppedPC returns the address the tracee is logically stopped at. When
// the stop was caused by a breakpoint trap the PC has moved one byte past
// the breakpoint and is translated back.
func (t *Term) stoppedPC() (uint64, error) {
	pc, err := t.dbp.PC()
	if err != nil {
		return 0, err
	}
	if bp, ok := t.dbp.FindBreakpoint(pc - 1); ok && bp.Enabled() {
		return bp.Addr, nil
	}
	return pc, nil
}

// printStopInfo reports where the tracee stopped, with a source listing
// when line information resolves.
func (t *Term) printStopInfo() error {
	pc, err := t.dbp.PC()
	if err != nil {
		return err
	}
	if bp, ok := t.dbp.FindBreakpoint(pc - 1); ok && bp.Enabled() {
		fmt.Fprintf(t.stdout, "hit %s\n", bp)
		pc = bp.Addr
	}

	location := fmt.Sprintf("%#x", pc)
	if fn, err := t.dbp.BinInfo.FindFunction(pc); err == nil {
		location = fmt.Sprintf("%s() %s", fn.Name, location)
	}
	file, line, err := t.dbp.BinInfo.PCToLine(pc)
	if err != nil {
		// Stopped in code without line info, a normal outcome.
		fmt.Fprintf(t.stdout, "> %s\n", location)
		return nil
	}
	fmt.Fprintf(t.stdout, "> %s %s:%d\n", location, file, line)
	return t.printSource(file, line)
}

func (t *Term) printSource(file string, line int) error {
	return t.sources.Print(t.stdout, file, line, t.conf.GetSourceListLineCount())
}
