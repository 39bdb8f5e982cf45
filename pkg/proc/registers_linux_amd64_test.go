package proc

import (
	"errors"
	"strings"
	"testing"

	sys "golang.org/x/sys/unix"

	"github.com/Turtel216/cd-debugger/pkg/dwarf/regnum"
)

func TestRegisterByNameRoundTrip(t *testing.T) {
	for i := range registerDescriptors {
		rd := &registerDescriptors[i]
		r, err := RegisterByName(rd.name)
		if err != nil {
			t.Errorf("RegisterByName(%q): %v", rd.name, err)
			continue
		}
		if r != rd.reg {
			t.Errorf("RegisterByName(%q) = %v, want %v", rd.name, r, rd.reg)
		}
		if r.String() != rd.name {
			t.Errorf("String() = %q, want %q", r.String(), rd.name)
		}
	}

	if _, err := RegisterByName("xmm0"); err != UnknownRegisterError {
		t.Errorf("RegisterByName(xmm0) = %v, want UnknownRegisterError", err)
	}
}

func TestRegisterByDwarf(t *testing.T) {
	for _, tc := range []struct {
		num int
		reg Register
	}{
		{regnum.AMD64_Rax, Rax},
		{regnum.AMD64_Rdx, Rdx},
		{regnum.AMD64_Rsp, Rsp},
		{regnum.AMD64_R15, R15},
		{regnum.AMD64_Rflags, Rflags},
		{regnum.AMD64_Gs_base, GsBase},
	} {
		r, err := RegisterByDwarf(tc.num)
		if err != nil {
			t.Errorf("RegisterByDwarf(%d): %v", tc.num, err)
			continue
		}
		if r != tc.reg {
			t.Errorf("RegisterByDwarf(%d) = %v, want %v", tc.num, r, tc.reg)
		}
	}

	// rip and orig_rax carry no number, and negative numbers never match
	// a descriptor even though some descriptors store -1.
	if _, err := RegisterByDwarf(-1); err != UnknownRegisterError {
		t.Errorf("RegisterByDwarf(-1) = %v, want UnknownRegisterError", err)
	}
	if _, err := RegisterByDwarf(1000); err != UnknownRegisterError {
		t.Errorf("RegisterByDwarf(1000) = %v, want UnknownRegisterError", err)
	}
}

func TestGetDwarfRegisterUnknownNumber(t *testing.T) {
	p := New(0)
	_, err := p.GetDwarfRegister(1000)
	if !errors.Is(err, UnknownRegisterError) {
		t.Fatalf("err = %v, want UnknownRegisterError", err)
	}
	if !strings.Contains(err.Error(), "unknown1000") {
		t.Errorf("error %q does not name the unknown register number", err)
	}
}

func TestDescriptorAccessors(t *testing.T) {
	var regs sys.PtraceRegs
	for i := range registerDescriptors {
		rd := &registerDescriptors[i]
		val := uint64(0x1000 + i)
		rd.poke(&regs, val)
		if got := rd.peek(&regs); got != val {
			t.Errorf("%s: peek after poke = %#x, want %#x", rd.name, got, val)
		}
	}
	// Each descriptor must address a distinct snapshot slot.
	for i := range registerDescriptors {
		want := uint64(0x1000 + i)
		if got := registerDescriptors[i].peek(&regs); got != want {
			t.Errorf("%s: slot overwritten, got %#x want %#x", registerDescriptors[i].name, got, want)
		}
	}
}

func TestRegsString(t *testing.T) {
	regs := &Regs{&sys.PtraceRegs{Rip: 0x401000}}
	out := regs.String()
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != numRegisters {
		t.Fatalf("dump has %d lines, want %d", len(lines), numRegisters)
	}
	if !strings.Contains(out, "rip = 0x0000000000401000") {
		t.Errorf("dump missing padded rip value:\n%s", out)
	}
}
