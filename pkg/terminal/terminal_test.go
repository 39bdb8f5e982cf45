package terminal

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Turtel216/cd-debugger/pkg/proc"
	protest "github.com/Turtel216/cd-debugger/pkg/proc/test"
)

func TestMain(m *testing.M) {
	os.Exit(protest.RunTestsWithFixtures(m))
}

func continueToExit(t *testing.T, p *proc.Process) {
	t.Helper()
	var pe proc.ProcessExitedError
	if err := p.Continue(); !errors.As(err, &pe) {
		t.Fatalf("expected process exit, got %v", err)
	}
}

func TestRestartPreservesWorkingDir(t *testing.T) {
	fixture := protest.BuildFixture("testcwd")
	wd := t.TempDir()

	p, err := proc.Launch([]string{fixture.Path}, wd, proc.LaunchDisableASLR, "")
	if err != nil {
		t.Fatalf("Launch error: %v", err)
	}
	term := &Term{dbp: p, stdout: io.Discard}
	term.SetProcessArgs([]string{fixture.Path}, wd, proc.LaunchDisableASLR, "")
	defer func() { term.dbp.Detach(true) }()

	continueToExit(t, p)
	marker := filepath.Join(wd, "cwd_marker")
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("tracee did not run in %s: %v", wd, err)
	}
	if err := os.Remove(marker); err != nil {
		t.Fatal(err)
	}

	if err := term.Restart(term.processArgs); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	continueToExit(t, term.dbp)
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("restarted tracee did not run in the original working directory: %v", err)
	}
}
