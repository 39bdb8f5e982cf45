package proc_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Turtel216/cd-debugger/pkg/proc"
	protest "github.com/Turtel216/cd-debugger/pkg/proc/test"
)

func loadTestBinaryInfo(t *testing.T) *proc.BinaryInfo {
	fixture := protest.BuildFixture("testprog")
	bi, err := proc.LoadBinaryInfo(fixture.Path)
	if err != nil {
		t.Fatalf("LoadBinaryInfo: %v", err)
	}
	return bi
}

func TestFindFunctionByName(t *testing.T) {
	bi := loadTestBinaryInfo(t)
	defer bi.Close()

	addr, err := bi.FindFunctionByName("main")
	if err != nil {
		t.Fatalf("FindFunctionByName(main): %v", err)
	}
	if addr == 0 {
		t.Fatal("zero address for main")
	}

	fn, err := bi.FindFunction(addr)
	if err != nil {
		t.Fatalf("FindFunction(%#x): %v", addr, err)
	}
	if fn.Name != "main" {
		t.Errorf("FindFunction returned %q, want main", fn.Name)
	}
	if fn.Entry != addr || fn.End <= fn.Entry {
		t.Errorf("bad function range [%#x, %#x) for entry %#x", fn.Entry, fn.End, addr)
	}

	if _, err := bi.FindFunctionByName("nosuchfunction"); !errors.Is(err, proc.ErrNoFunction) {
		t.Errorf("expected ErrNoFunction, got %v", err)
	}
	if _, err := bi.FindFunction(0x1); !errors.Is(err, proc.ErrNoFunction) {
		t.Errorf("expected ErrNoFunction for bogus address, got %v", err)
	}
}

func TestFunctions(t *testing.T) {
	bi := loadTestBinaryInfo(t)
	defer bi.Close()

	all := bi.Functions("")
	for _, want := range []string{"increment", "loop", "main"} {
		found := false
		for _, name := range all {
			if name == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("function %q missing from index %v", want, all)
		}
	}
	if !sortedStrings(all) {
		t.Error("function list not sorted")
	}

	if incr := bi.Functions("incr"); len(incr) != 1 || incr[0] != "increment" {
		t.Errorf("Functions(incr) = %v, want [increment]", incr)
	}
	if none := bi.Functions("zzz"); len(none) != 0 {
		t.Errorf("Functions(zzz) = %v, want empty", none)
	}
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}

func TestLineToPCRoundTrip(t *testing.T) {
	bi := loadTestBinaryInfo(t)
	defer bi.Close()

	// Line 12 of testprog.c is the counter assignment inside the loop.
	addr, err := bi.LineToPC("testprog.c", 12)
	if err != nil {
		t.Fatalf("LineToPC: %v", err)
	}
	file, line, err := bi.PCToLine(addr)
	if err != nil {
		t.Fatalf("PCToLine(%#x): %v", addr, err)
	}
	if !strings.HasSuffix(file, "testprog.c") {
		t.Errorf("file = %q, want testprog.c suffix", file)
	}
	if line != 12 {
		t.Errorf("line = %d, want 12", line)
	}

	if _, err := bi.LineToPC("testprog.c", 9999); !errors.Is(err, proc.ErrNoLocation) {
		t.Errorf("expected ErrNoLocation, got %v", err)
	}
	if _, err := bi.LineToPC("nosuchfile.c", 12); !errors.Is(err, proc.ErrNoLocation) {
		t.Errorf("expected ErrNoLocation, got %v", err)
	}
}

func TestPCToLineFunctionEntry(t *testing.T) {
	bi := loadTestBinaryInfo(t)
	defer bi.Close()

	addr, err := bi.FindFunctionByName("loop")
	if err != nil {
		t.Fatalf("FindFunctionByName(loop): %v", err)
	}
	file, line, err := bi.PCToLine(addr)
	if err != nil {
		t.Fatalf("PCToLine: %v", err)
	}
	if !strings.HasSuffix(file, "testprog.c") {
		t.Errorf("file = %q, want testprog.c suffix", file)
	}
	if line == 0 {
		t.Error("zero line for function entry")
	}

	if _, _, err := bi.PCToLine(0x1); !errors.Is(err, proc.ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
}
