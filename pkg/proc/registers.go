package proc

import (
	"errors"
	"fmt"

	"github.com/Turtel216/cd-debugger/pkg/dwarf/regnum"
)

// Register is the logical identity of a CPU register, independent of
// where the register lives in the ptrace register snapshot.
type Register int

// UnknownRegisterError is returned by the register lookup functions when
// a name or DWARF number does not correspond to any register descriptor.
// Callers should treat it as bad user input, not a fatal condition.
var UnknownRegisterError = errors.New("unknown register")

// Registers obtains a fresh register snapshot from the tracee. The
// snapshot is not cached: the tracee's state can change between calls.
func (p *Process) Registers() (Registers, error) {
	if p.exited {
		return nil, ProcessExitedError{Pid: p.Pid}
	}
	return registers(p)
}

// GetRegister returns the current value of the given register.
func (p *Process) GetRegister(r Register) (uint64, error) {
	regs, err := p.Registers()
	if err != nil {
		return 0, err
	}
	return regs.Get(r)
}

// SetRegister sets the value of the given register. The underlying
// mechanism only supports whole snapshot writes, so this fetches the
// full register file, modifies one slot and writes everything back.
func (p *Process) SetRegister(r Register, val uint64) error {
	if p.exited {
		return ProcessExitedError{Pid: p.Pid}
	}
	return setRegister(p, r, val)
}

// GetDwarfRegister returns the value of the register debug info refers to
// as n. Registers that carry no DWARF number never match.
func (p *Process) GetDwarfRegister(n int) (uint64, error) {
	r, err := RegisterByDwarf(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%d)", UnknownRegisterError, regnum.AMD64ToName(n), n)
	}
	return p.GetRegister(r)
}

// PC returns the current program counter of the tracee.
func (p *Process) PC() (uint64, error) {
	regs, err := p.Registers()
	if err != nil {
		return 0, err
	}
	return regs.PC(), nil
}

// SetPC sets the program counter of the tracee.
func (p *Process) SetPC(pc uint64) error {
	return p.SetRegister(Rip, pc)
}
