package proc

import "testing"

func TestPtraceLoggerReused(t *testing.T) {
	if ptraceLog() != ptraceLog() {
		t.Error("ptrace logger rebuilt between requests")
	}
}
