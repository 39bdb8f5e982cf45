package proc

import (
	"bytes"
	"fmt"

	sys "golang.org/x/sys/unix"

	"github.com/Turtel216/cd-debugger/pkg/dwarf/regnum"
)

// The logical registers of the amd64 register file.
const (
	Rax Register = iota
	Rbx
	Rcx
	Rdx
	Rdi
	Rsi
	Rbp
	Rsp
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	Rip
	Rflags
	Cs
	OrigRax
	FsBase
	GsBase
	Fs
	Gs
	Ss
	Ds
	Es
)

const numRegisters = 27

// regDescriptor ties a logical register to its DWARF number, its display
// name and its slot in the ptrace register snapshot. The accessor pair
// replaces untyped offset arithmetic into the snapshot with a
// compile-time checked field mapping.
type regDescriptor struct {
	reg   Register
	dwarf int // -1 when the register is not exposed to debug info
	name  string
	peek  func(*sys.PtraceRegs) uint64
	poke  func(*sys.PtraceRegs, uint64)
}

// registerDescriptors mirrors the layout of struct user_regs_struct, the
// order PTRACE_GETREGS stores registers in. It must not be reordered
// independently of that layout: the Nth descriptor addresses the Nth word
// of a full register snapshot.
var registerDescriptors = [numRegisters]regDescriptor{
	{R15, regnum.AMD64_R15, "r15", func(r *sys.PtraceRegs) uint64 { return r.R15 }, func(r *sys.PtraceRegs, v uint64) { r.R15 = v }},
	{R14, regnum.AMD64_R14, "r14", func(r *sys.PtraceRegs) uint64 { return r.R14 }, func(r *sys.PtraceRegs, v uint64) { r.R14 = v }},
	{R13, regnum.AMD64_R13, "r13", func(r *sys.PtraceRegs) uint64 { return r.R13 }, func(r *sys.PtraceRegs, v uint64) { r.R13 = v }},
	{R12, regnum.AMD64_R12, "r12", func(r *sys.PtraceRegs) uint64 { return r.R12 }, func(r *sys.PtraceRegs, v uint64) { r.R12 = v }},
	{Rbp, regnum.AMD64_Rbp, "rbp", func(r *sys.PtraceRegs) uint64 { return r.Rbp }, func(r *sys.PtraceRegs, v uint64) { r.Rbp = v }},
	{Rbx, regnum.AMD64_Rbx, "rbx", func(r *sys.PtraceRegs) uint64 { return r.Rbx }, func(r *sys.PtraceRegs, v uint64) { r.Rbx = v }},
	{R11, regnum.AMD64_R11, "r11", func(r *sys.PtraceRegs) uint64 { return r.R11 }, func(r *sys.PtraceRegs, v uint64) { r.R11 = v }},
	{R10, regnum.AMD64_R10, "r10", func(r *sys.PtraceRegs) uint64 { return r.R10 }, func(r *sys.PtraceRegs, v uint64) { r.R10 = v }},
	{R9, regnum.AMD64_R9, "r9", func(r *sys.PtraceRegs) uint64 { return r.R9 }, func(r *sys.PtraceRegs, v uint64) { r.R9 = v }},
	{R8, regnum.AMD64_R8, "r8", func(r *sys.PtraceRegs) uint64 { return r.R8 }, func(r *sys.PtraceRegs, v uint64) { r.R8 = v }},
	{Rax, regnum.AMD64_Rax, "rax", func(r *sys.PtraceRegs) uint64 { return r.Rax }, func(r *sys.PtraceRegs, v uint64) { r.Rax = v }},
	{Rcx, regnum.AMD64_Rcx, "rcx", func(r *sys.PtraceRegs) uint64 { return r.Rcx }, func(r *sys.PtraceRegs, v uint64) { r.Rcx = v }},
	{Rdx, regnum.AMD64_Rdx, "rdx", func(r *sys.PtraceRegs) uint64 { return r.Rdx }, func(r *sys.PtraceRegs, v uint64) { r.Rdx = v }},
	{Rsi, regnum.AMD64_Rsi, "rsi", func(r *sys.PtraceRegs) uint64 { return r.Rsi }, func(r *sys.PtraceRegs, v uint64) { r.Rsi = v }},
	{Rdi, regnum.AMD64_Rdi, "rdi", func(r *sys.PtraceRegs) uint64 { return r.Rdi }, func(r *sys.PtraceRegs, v uint64) { r.Rdi = v }},
	{OrigRax, -1, "orig_rax", func(r *sys.PtraceRegs) uint64 { return r.Orig_rax }, func(r *sys.PtraceRegs, v uint64) { r.Orig_rax = v }},
	{Rip, -1, "rip", func(r *sys.PtraceRegs) uint64 { return r.Rip }, func(r *sys.PtraceRegs, v uint64) { r.Rip = v }},
	{Cs, regnum.AMD64_Cs, "cs", func(r *sys.PtraceRegs) uint64 { return r.Cs }, func(r *sys.PtraceRegs, v uint64) { r.Cs = v }},
	{Rflags, regnum.AMD64_Rflags, "eflags", func(r *sys.PtraceRegs) uint64 { return r.Eflags }, func(r *sys.PtraceRegs, v uint64) { r.Eflags = v }},
	{Rsp, regnum.AMD64_Rsp, "rsp", func(r *sys.PtraceRegs) uint64 { return r.Rsp }, func(r *sys.PtraceRegs, v uint64) { r.Rsp = v }},
	{Ss, regnum.AMD64_Ss, "ss", func(r *sys.PtraceRegs) uint64 { return r.Ss }, func(r *sys.PtraceRegs, v uint64) { r.Ss = v }},
	{FsBase, regnum.AMD64_Fs_base, "fs_base", func(r *sys.PtraceRegs) uint64 { return r.Fs_base }, func(r *sys.PtraceRegs, v uint64) { r.Fs_base = v }},
	{GsBase, regnum.AMD64_Gs_base, "gs_base", func(r *sys.PtraceRegs) uint64 { return r.Gs_base }, func(r *sys.PtraceRegs, v uint64) { r.Gs_base = v }},
	{Ds, regnum.AMD64_Ds, "ds", func(r *sys.PtraceRegs) uint64 { return r.Ds }, func(r *sys.PtraceRegs, v uint64) { r.Ds = v }},
	{Es, regnum.AMD64_Es, "es", func(r *sys.PtraceRegs) uint64 { return r.Es }, func(r *sys.PtraceRegs, v uint64) { r.Es = v }},
	{Fs, regnum.AMD64_Fs, "fs", func(r *sys.PtraceRegs) uint64 { return r.Fs }, func(r *sys.PtraceRegs, v uint64) { r.Fs = v }},
	{Gs, regnum.AMD64_Gs, "gs", func(r *sys.PtraceRegs) uint64 { return r.Gs }, func(r *sys.PtraceRegs, v uint64) { r.Gs = v }},
}

func descriptorFor(r Register) (*regDescriptor, error) {
	for i := range registerDescriptors {
		if registerDescriptors[i].reg == r {
			return &registerDescriptors[i], nil
		}
	}
	return nil, UnknownRegisterError
}

// RegisterByName returns the logical register with the given display name.
func RegisterByName(name string) (Register, error) {
	for i := range registerDescriptors {
		if registerDescriptors[i].name == name {
			return registerDescriptors[i].reg, nil
		}
	}
	return 0, UnknownRegisterError
}

// RegisterByDwarf returns the logical register that debug info refers to
// by the number n.
func RegisterByDwarf(n int) (Register, error) {
	if n < 0 {
		return 0, UnknownRegisterError
	}
	for i := range registerDescriptors {
		if registerDescriptors[i].dwarf == n {
			return registerDescriptors[i].reg, nil
		}
	}
	return 0, UnknownRegisterError
}

// String returns the display name of the register.
func (r Register) String() string {
	rd, err := descriptorFor(r)
	if err != nil {
		return "unknown"
	}
	return rd.name
}

// Registers is an interface over a full register snapshot of the tracee.
type Registers interface {
	PC() uint64
	SP() uint64
	Get(Register) (uint64, error)
	String() string
}

// Regs is a wrapper for sys.PtraceRegs.
type Regs struct {
	regs *sys.PtraceRegs
}

// PC returns the value of RIP register.
func (r *Regs) PC() uint64 {
	return r.regs.PC()
}

// SP returns the value of RSP register.
func (r *Regs) SP() uint64 {
	return r.regs.Rsp
}

// Get returns the snapshot's value for the given logical register.
func (r *Regs) Get(reg Register) (uint64, error) {
	rd, err := descriptorFor(reg)
	if err != nil {
		return 0, err
	}
	return rd.peek(r.regs), nil
}

// String enumerates every register in snapshot order with fixed-width,
// zero-padded hexadecimal values.
func (r *Regs) String() string {
	var buf bytes.Buffer
	for i := range registerDescriptors {
		rd := &registerDescriptors[i]
		fmt.Fprintf(&buf, "%8s = %#018x\n", rd.name, rd.peek(r.regs))
	}
	return buf.String()
}

func registers(p *Process) (Registers, error) {
	var (
		regs sys.PtraceRegs
		err  error
	)
	execOnPtraceThread(func() { err = PtraceGetRegs(p.Pid, &regs) })
	if err != nil {
		return nil, fmt.Errorf("could not get registers: %v", err)
	}
	return &Regs{&regs}, nil
}

func setRegister(p *Process, reg Register, val uint64) error {
	rd, err := descriptorFor(reg)
	if err != nil {
		return err
	}
	var regs sys.PtraceRegs
	execOnPtraceThread(func() { err = PtraceGetRegs(p.Pid, &regs) })
	if err != nil {
		return fmt.Errorf("could not get registers: %v", err)
	}
	rd.poke(&regs, val)
	execOnPtraceThread(func() { err = PtraceSetRegs(p.Pid, &regs) })
	if err != nil {
		return fmt.Errorf("could not set registers: %v", err)
	}
	return nil
}
