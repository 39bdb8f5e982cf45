package proc

import (
	"errors"
	"fmt"
)

// 0xCC is INT 3, the software breakpoint trap instruction.
var breakpointInstruction = []byte{0xCC}

// Breakpoint represents a single patched instruction location. It stores
// the byte of data that originally was at Addr; that byte is only
// meaningful while the breakpoint is enabled.
type Breakpoint struct {
	// FunctionName, File and Line describe the source location of Addr,
	// when debug info resolves one. They are informational only.
	FunctionName string
	File         string
	Line         int
	Addr         uint64
	OriginalData []byte
	ID           int

	enabled bool
}

func (bp *Breakpoint) String() string {
	if bp.File != "" {
		return fmt.Sprintf("Breakpoint %d at %#x %s:%d", bp.ID, bp.Addr, bp.File, bp.Line)
	}
	return fmt.Sprintf("Breakpoint %d at %#x", bp.ID, bp.Addr)
}

// Enabled reports whether the trap byte is currently installed at the
// breakpoint address.
func (bp *Breakpoint) Enabled() bool {
	return bp.enabled
}

// NoBreakpointError is returned when trying to clear a breakpoint that
// does not exist.
type NoBreakpointError struct {
	Addr uint64
}

func (nbp NoBreakpointError) Error() string {
	return fmt.Sprintf("no breakpoint at %#x", nbp.Addr)
}

// SetBreakpoint sets a software breakpoint at addr and enables it. If a
// breakpoint already exists at addr it is disabled and replaced, so the
// map holds at most one breakpoint per address.
func (p *Process) SetBreakpoint(addr uint64) (*Breakpoint, error) {
	if p.exited {
		return nil, ProcessExitedError{Pid: p.Pid}
	}
	if old, ok := p.Breakpoints[addr]; ok {
		if err := p.disableBreakpoint(old); err != nil {
			return nil, err
		}
		delete(p.Breakpoints, addr)
	}

	bp := p.newBreakpoint(addr)
	if fn, err := p.BinInfo.FindFunction(addr); err == nil {
		bp.FunctionName = fn.Name
	}
	if file, line, err := p.BinInfo.PCToLine(addr); err == nil {
		bp.File, bp.Line = file, line
	}

	if err := p.enableBreakpoint(bp); err != nil {
		return nil, err
	}
	p.Breakpoints[addr] = bp
	return bp, nil
}

// ClearBreakpoint disables and removes the breakpoint at addr, restoring
// the original instruction byte.
func (p *Process) ClearBreakpoint(addr uint64) (*Breakpoint, error) {
	if p.exited {
		return nil, ProcessExitedError{Pid: p.Pid}
	}
	bp, ok := p.Breakpoints[addr]
	if !ok {
		return nil, NoBreakpointError{Addr: addr}
	}
	if err := p.disableBreakpoint(bp); err != nil {
		return nil, err
	}
	delete(p.Breakpoints, addr)
	return bp, nil
}

// ClearAllBreakpoints restores the original byte at every breakpoint so
// no artifacts are left behind if the tracee is detached instead of
// killed.
func (p *Process) ClearAllBreakpoints() error {
	var errs []error
	for addr, bp := range p.Breakpoints {
		if err := p.disableBreakpoint(bp); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(p.Breakpoints, addr)
	}
	return errors.Join(errs...)
}

// FindBreakpoint returns the breakpoint set at addr, if any. This is the
// lookup used on every stop event.
func (p *Process) FindBreakpoint(addr uint64) (*Breakpoint, bool) {
	bp, ok := p.Breakpoints[addr]
	return bp, ok
}

func (p *Process) newBreakpoint(addr uint64) *Breakpoint {
	p.breakpointIDCounter++
	return &Breakpoint{
		Addr:         addr,
		OriginalData: make([]byte, len(breakpointInstruction)),
		ID:           p.breakpointIDCounter,
	}
}

// enableBreakpoint saves the instruction byte at the breakpoint address
// and overwrites it with the trap instruction. Save and patch form a
// single logical unit: if the patch write fails the tracee's text is
// untouched and the breakpoint stays disabled.
func (p *Process) enableBreakpoint(bp *Breakpoint) error {
	if bp.enabled {
		return nil
	}
	if _, err := p.readMemory(uintptr(bp.Addr), bp.OriginalData); err != nil {
		return err
	}
	if _, err := p.writeMemory(uintptr(bp.Addr), breakpointInstruction); err != nil {
		return err
	}
	bp.enabled = true
	return nil
}

// disableBreakpoint restores the saved instruction byte. Calling it on an
// already disabled breakpoint is a no-op.
func (p *Process) disableBreakpoint(bp *Breakpoint) error {
	if !bp.enabled {
		return nil
	}
	if _, err := p.writeMemory(uintptr(bp.Addr), bp.OriginalData); err != nil {
		return fmt.Errorf("could not clear breakpoint: %v", err)
	}
	bp.enabled = false
	return nil
}
