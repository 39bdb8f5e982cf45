package proc

import (
	"golang.org/x/arch/x86/x86asm"
)

const maxInstructionLength = 15

// AsmInstruction is one decoded instruction of the tracee.
type AsmInstruction struct {
	Loc        uint64
	Bytes      []byte
	Text       string
	Breakpoint bool
}

// Disassemble decodes up to count instructions starting at the runtime
// address startAddr. Trap bytes of enabled breakpoints are replaced with
// their saved original data first, so the listing shows the real
// instruction stream, not the patched one.
func (p *Process) Disassemble(startAddr uint64, count int) ([]AsmInstruction, error) {
	if p.exited {
		return nil, ProcessExitedError{Pid: p.Pid, Status: p.exitStatus}
	}
	mem := make([]byte, count*maxInstructionLength)
	if _, err := p.readMemory(uintptr(startAddr), mem); err != nil {
		return nil, err
	}
	for _, bp := range p.Breakpoints {
		if !bp.Enabled() {
			continue
		}
		if bp.Addr >= startAddr && bp.Addr < startAddr+uint64(len(mem)) {
			copy(mem[bp.Addr-startAddr:], bp.OriginalData)
		}
	}

	out := make([]AsmInstruction, 0, count)
	pc := startAddr
	for len(out) < count && len(mem) >= maxInstructionLength {
		inst, err := x86asm.Decode(mem, 64)
		size := inst.Len
		text := ""
		if err != nil {
			// Decoding failed, skip one byte and resynchronize.
			size = 1
			text = "?"
		} else {
			patchPCRel(pc, &inst)
			text = x86asm.IntelSyntax(inst, pc, p.symLookup)
		}
		_, atBreakpoint := p.FindBreakpoint(pc)
		out = append(out, AsmInstruction{
			Loc:        pc,
			Bytes:      append([]byte{}, mem[:size]...),
			Text:       text,
			Breakpoint: atBreakpoint,
		})
		mem = mem[size:]
		pc += uint64(size)
	}
	return out, nil
}

// patchPCRel converts PC relative arguments to absolute addresses.
func patchPCRel(pc uint64, inst *x86asm.Inst) {
	for i := range inst.Args {
		if rel, isrel := inst.Args[i].(x86asm.Rel); isrel {
			inst.Args[i] = x86asm.Imm(int64(pc) + int64(rel) + int64(inst.Len))
		}
	}
}

func (p *Process) symLookup(addr uint64) (string, uint64) {
	fn, err := p.BinInfo.FindFunction(addr)
	if err != nil {
		return "", 0
	}
	return fn.Name, p.BinInfo.ToRuntime(fn.Entry)
}
