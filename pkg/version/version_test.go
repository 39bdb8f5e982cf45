package version

import (
	"strings"
	"testing"
)

func TestVersionString(t *testing.T) {
	s := DebuggerVersion.String()
	if !strings.Contains(s, "Version: 0.3.0") {
		t.Errorf("version string %q missing version number", s)
	}
	if !strings.Contains(s, "Build:") {
		t.Errorf("version string %q missing build line", s)
	}
}

func TestBuildInfo(t *testing.T) {
	if !strings.HasPrefix(BuildInfo(), "go") {
		t.Errorf("BuildInfo() = %q, want a go toolchain version", BuildInfo())
	}
}
