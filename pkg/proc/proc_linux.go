package proc

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	sys "golang.org/x/sys/unix"
)

const (
	personalityGetPersonality = 0xffffffff // argument to pass to personality syscall to get the current personality
	_ADDR_NO_RANDOMIZE        = 0x0040000  // ADDR_NO_RANDOMIZE linux constant
)

// LaunchFlags adjusts how the tracee is started.
type LaunchFlags uint8

const (
	// LaunchDisableASLR runs the tracee with address space layout
	// randomization turned off, so addresses are reproducible between
	// debugging sessions.
	LaunchDisableASLR LaunchFlags = 1 << iota
)

func (fl LaunchFlags) has(flag LaunchFlags) bool { return fl&flag != 0 }

// Launch creates and begins debugging a new process. First entry in
// cmd is the program to run, and the rest are the arguments to be
// supplied to that process. A non-empty tty names a terminal the
// tracee's standard streams are redirected to. Launch blocks until the
// child has requested tracing and performed its first stop on exec.
func Launch(cmd []string, wd string, flags LaunchFlags, tty string) (*Process, error) {
	var (
		process *exec.Cmd
		err     error
	)
	dbp := New(0)
	execOnPtraceThread(func() {
		if flags.has(LaunchDisableASLR) {
			// personality is inherited across fork/exec, so flip it on
			// this thread for the duration of the start and restore it
			// afterwards.
			oldPersonality, _, perr := syscall.Syscall(sys.SYS_PERSONALITY, personalityGetPersonality, 0, 0)
			if perr == syscall.Errno(0) {
				newPersonality := oldPersonality | _ADDR_NO_RANDOMIZE
				syscall.Syscall(sys.SYS_PERSONALITY, newPersonality, 0, 0)
				defer syscall.Syscall(sys.SYS_PERSONALITY, oldPersonality, 0, 0)
			}
		}

		process = exec.Command(cmd[0])
		process.Args = cmd
		process.Stdin = os.Stdin
		process.Stdout = os.Stdout
		process.Stderr = os.Stderr
		process.SysProcAttr = &syscall.SysProcAttr{Ptrace: true, Setpgid: true}
		if wd != "" {
			process.Dir = wd
		}
		if tty != "" {
			var ttyFile *os.File
			ttyFile, err = attachProcessToTTY(process, tty)
			if err != nil {
				return
			}
			// The child holds its own descriptor after the fork.
			defer ttyFile.Close()
		}
		err = process.Start()
	})
	if err != nil {
		return nil, err
	}
	dbp.Pid = process.Process.Pid
	if _, err = dbp.wait(); err != nil {
		return nil, fmt.Errorf("waiting for target execve failed: %s", err)
	}
	return initializeDebugProcess(dbp, process.Path)
}

// Attach to an existing process with the given PID.
func Attach(pid int) (*Process, error) {
	dbp := New(pid)
	var err error
	execOnPtraceThread(func() { err = sys.PtraceAttach(pid) })
	if err != nil {
		return nil, err
	}
	if _, err = dbp.wait(); err != nil {
		return nil, err
	}
	exepath, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return nil, fmt.Errorf("could not find executable of %d: %v", pid, err)
	}
	return initializeDebugProcess(dbp, exepath)
}

// Detach releases the tracee. Unless kill is requested the original
// instruction bytes are restored first, so the detached process does not
// run into stale trap bytes.
func (p *Process) Detach(kill bool) error {
	if p.exited {
		return nil
	}
	if kill {
		return p.Kill()
	}
	if err := p.ClearAllBreakpoints(); err != nil {
		return err
	}
	var err error
	execOnPtraceThread(func() { err = PtraceDetach(p.Pid, 0) })
	if err != nil {
		return err
	}
	p.postExit(0)
	return nil
}

// Kill terminates the tracee.
func (p *Process) Kill() error {
	if p.exited {
		return nil
	}
	if err := sys.Kill(-p.Pid, sys.SIGKILL); err != nil {
		return fmt.Errorf("could not deliver signal: %v", err)
	}
	status, err := p.wait()
	if err != nil {
		return err
	}
	p.Status = status
	p.postExit(status.ExitStatus())
	return nil
}

// EntryPoint returns the runtime entry point address of the tracee, read
// from its ELF auxiliary vector. For a position independent executable
// this differs from the entry point recorded in the file by the load
// bias.
func (p *Process) EntryPoint() (uint64, error) {
	auxvbuf, err := os.ReadFile(fmt.Sprintf("/proc/%d/auxv", p.Pid))
	if err != nil {
		return 0, fmt.Errorf("could not read auxiliary vector: %v", err)
	}
	entry := EntryPointFromAuxv(auxvbuf, WordSize)
	if entry == 0 {
		return 0, fmt.Errorf("no entry point in auxiliary vector")
	}
	return entry, nil
}

func initializeDebugProcess(dbp *Process, path string) (*Process, error) {
	proc, err := os.FindProcess(dbp.Pid)
	if err != nil {
		return nil, err
	}
	dbp.Process = proc

	bi, err := LoadBinaryInfo(path)
	if err != nil {
		return nil, err
	}
	dbp.BinInfo = bi

	// The load bias can only be read once the tracee exists and has
	// stopped for the first time.
	entry, err := dbp.EntryPoint()
	if err != nil {
		return nil, err
	}
	bi.SetLoadBias(entry)
	return dbp, nil
}

func (p *Process) wait() (*sys.WaitStatus, error) {
	var status sys.WaitStatus
	if _, err := sys.Wait4(p.Pid, &status, 0, nil); err != nil {
		return nil, err
	}
	return &status, nil
}
