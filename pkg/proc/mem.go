package proc

import (
	"encoding/binary"
	"fmt"
)

// WordSize is the native word size of the supported architecture.
const WordSize = 8

// MemoryAccessError is returned when a peek or poke into the tracee's
// address space fails. It wraps the underlying OS error.
type MemoryAccessError struct {
	Addr uint64
	Op   string
	Err  error
}

func (mae MemoryAccessError) Error() string {
	return fmt.Sprintf("could not %s memory at %#x: %v", mae.Op, mae.Addr, mae.Err)
}

func (mae MemoryAccessError) Unwrap() error {
	return mae.Err
}

// ReadWord reads one native word from the tracee's address space.
func (p *Process) ReadWord(addr uint64) (uint64, error) {
	if p.exited {
		return 0, ProcessExitedError{Pid: p.Pid}
	}
	data := make([]byte, WordSize)
	if _, err := p.readMemory(uintptr(addr), data); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

// WriteWord overwrites one native word in the tracee's address space.
// Writes are word sized and word aligned; sub-word patching is reserved
// for the breakpoint code.
func (p *Process) WriteWord(addr uint64, val uint64) error {
	if p.exited {
		return ProcessExitedError{Pid: p.Pid}
	}
	data := make([]byte, WordSize)
	binary.LittleEndian.PutUint64(data, val)
	_, err := p.writeMemory(uintptr(addr), data)
	return err
}

func (p *Process) readMemory(addr uintptr, data []byte) (read int, err error) {
	if len(data) == 0 {
		return
	}
	execOnPtraceThread(func() { read, err = PtracePeekData(p.Pid, addr, data) })
	if err != nil {
		err = MemoryAccessError{Addr: uint64(addr), Op: "read", Err: err}
	}
	return
}

func (p *Process) writeMemory(addr uintptr, data []byte) (written int, err error) {
	if len(data) == 0 {
		return
	}
	execOnPtraceThread(func() { written, err = PtracePokeData(p.Pid, addr, data) })
	if err != nil {
		err = MemoryAccessError{Addr: uint64(addr), Op: "write", Err: err}
	}
	return
}
