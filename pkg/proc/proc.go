// Package proc provides functions for launching and manipulating
// a traced process during the debug session.
package proc

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	sys "golang.org/x/sys/unix"

	"github.com/Turtel216/cd-debugger/pkg/logflags"
)

// Process represents the debugged process. It owns the process identity,
// the breakpoint table and the debug metadata of the executable. All
// trace operations on the tracee go through this struct.
type Process struct {
	Pid         int
	Process     *os.Process
	BinInfo     *BinaryInfo
	Breakpoints map[uint64]*Breakpoint
	Status      *sys.WaitStatus

	breakpointIDCounter int
	exitStatus          int
	running             bool
	exited              bool
	logger              *logrus.Entry
}

// ProcessExitedError indicates that the tracee has exited. Every
// operation attempted afterwards fails with this error.
type ProcessExitedError struct {
	Pid    int
	Status int
}

func (pe ProcessExitedError) Error() string {
	return fmt.Sprintf("process %d has exited with status %d", pe.Pid, pe.Status)
}

// New returns an initialized Process struct.
func New(pid int) *Process {
	return &Process{
		Pid:         pid,
		Breakpoints: make(map[uint64]*Breakpoint),
		logger:      logflags.DebuggerLogger(),
	}
}

// Exited returns whether the tracee has exited.
func (p *Process) Exited() bool {
	return p.exited
}

// Running returns whether the tracee is currently executing.
func (p *Process) Running() bool {
	return p.running
}

// Continue resumes the tracee and blocks until it stops or exits. If the
// tracee is stopped on an enabled breakpoint it first steps over it, so
// the resume makes progress instead of retrapping in place.
func (p *Process) Continue() error {
	if p.exited {
		return ProcessExitedError{Pid: p.Pid, Status: p.exitStatus}
	}
	if err := p.stepOverBreakpoint(); err != nil {
		return err
	}
	if p.exited {
		return ProcessExitedError{Pid: p.Pid, Status: p.exitStatus}
	}
	var err error
	execOnPtraceThread(func() { err = PtraceCont(p.Pid, 0) })
	if err != nil {
		return fmt.Errorf("could not continue: %v", err)
	}
	p.running = true
	return p.trapWait()
}

// StepInstruction executes exactly one instruction of the tracee. If the
// tracee is stopped on an enabled breakpoint the breakpoint is stepped
// over, otherwise a raw single step is issued.
func (p *Process) StepInstruction() error {
	if p.exited {
		return ProcessExitedError{Pid: p.Pid, Status: p.exitStatus}
	}
	pc, err := p.PC()
	if err != nil {
		return err
	}
	if bp, ok := p.FindBreakpoint(pc - 1); ok && bp.Enabled() {
		return p.stepOverBreakpoint()
	}
	return p.singleStep()
}

// stepOverBreakpoint checks whether the tracee is stopped because it
// executed the trap byte of an enabled breakpoint. The trap instruction
// advances the program counter past itself before the stop is observed,
// so the breakpoint lives at PC-1. If one is found the PC is moved back
// to the breakpoint address, the original byte is restored, one real
// instruction executes, and the trap byte is reinstalled.
//
// A breakpoint sitting on the very next instruction is not handled here:
// the injected single step will execute its trap byte like any other
// instruction. Known limitation inherited from the original design.
func (p *Process) stepOverBreakpoint() error {
	pc, err := p.PC()
	if err != nil {
		return err
	}
	bp, ok := p.FindBreakpoint(pc - 1)
	if !ok || !bp.Enabled() {
		return nil
	}
	p.logger.Debugf("stepping over breakpoint %d at %#x", bp.ID, bp.Addr)
	if err := p.SetPC(bp.Addr); err != nil {
		return err
	}
	if err := p.disableBreakpoint(bp); err != nil {
		return err
	}
	stepErr := p.singleStep()
	// Reinstall the trap byte even when the step failed, so a failure
	// partway through never leaves the breakpoint permanently disabled.
	if p.exited {
		return stepErr
	}
	if err := p.enableBreakpoint(bp); err != nil {
		if stepErr != nil {
			return stepErr
		}
		return err
	}
	return stepErr
}

func (p *Process) singleStep() error {
	var err error
	execOnPtraceThread(func() { err = PtraceSingleStep(p.Pid) })
	if err != nil {
		return fmt.Errorf("step failed: %v", err)
	}
	p.running = true
	return p.trapWait()
}

// trapWait blocks until the tracee delivers a stop or termination
// notification and updates the session state accordingly. It is the only
// suspension point of the controller.
func (p *Process) trapWait() error {
	status, err := p.wait()
	p.running = false
	if err != nil {
		return fmt.Errorf("wait err %v %d", err, p.Pid)
	}
	p.Status = status
	if status.Exited() {
		p.postExit(status.ExitStatus())
		return ProcessExitedError{Pid: p.Pid, Status: p.exitStatus}
	}
	p.logger.Debugf("stopped with signal %v", status.StopSignal())
	return nil
}

func (p *Process) postExit(status int) {
	p.exited = true
	p.running = false
	p.exitStatus = status
	if p.BinInfo != nil {
		p.BinInfo.Close()
	}
}
