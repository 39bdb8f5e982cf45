package proc

import (
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	sys "golang.org/x/sys/unix"

	"github.com/Turtel216/cd-debugger/pkg/logflags"
)

var (
	ptraceLogger     *logrus.Entry
	ptraceLoggerOnce sync.Once
)

// ptraceLog returns the request trace logger. Built once, on first use,
// so logflags.Setup has run by then.
func ptraceLog() *logrus.Entry {
	ptraceLoggerOnce.Do(func() { ptraceLogger = logflags.PtraceLogger() })
	return ptraceLogger
}

// PtraceDetach calls ptrace(PTRACE_DETACH).
func PtraceDetach(tid, sig int) error {
	ptraceLog().Debugf("detach tid=%d sig=%d", tid, sig)
	_, _, err := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_DETACH, uintptr(tid), 1, uintptr(sig), 0, 0)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// PtraceCont executes ptrace(PTRACE_CONT).
func PtraceCont(tid, sig int) error {
	ptraceLog().Debugf("cont tid=%d sig=%d", tid, sig)
	return sys.PtraceCont(tid, sig)
}

// PtraceSingleStep executes ptrace(PTRACE_SINGLESTEP).
func PtraceSingleStep(tid int) error {
	ptraceLog().Debugf("singlestep tid=%d", tid)
	return sys.PtraceSingleStep(tid)
}

// PtraceGetRegs fetches the full register snapshot of the tracee.
func PtraceGetRegs(tid int, regs *sys.PtraceRegs) error {
	return sys.PtraceGetRegs(tid, regs)
}

// PtraceSetRegs writes back a full register snapshot to the tracee.
func PtraceSetRegs(tid int, regs *sys.PtraceRegs) error {
	return sys.PtraceSetRegs(tid, regs)
}

// PtracePeekData reads len(data) bytes from the tracee at addr.
func PtracePeekData(tid int, addr uintptr, data []byte) (int, error) {
	return sys.PtracePeekData(tid, addr, data)
}

// PtracePokeData writes data to the tracee at addr.
func PtracePokeData(tid int, addr uintptr, data []byte) (int, error) {
	return sys.PtracePokeData(tid, addr, data)
}
