// Package test provides utilities for building the tracee binaries used
// by the debugger tests.
package test

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// Fixture is a test binary.
type Fixture struct {
	// Name is the short name of the fixture.
	Name string
	// Path is the absolute path to the test binary.
	Path string
	// Source is the absolute path of the test binary source.
	Source string
}

// Fixtures is a map of Fixture.Name to Fixture.
var Fixtures = make(map[string]Fixture)

// FindFixturesDir walks up from the current directory until it finds the
// _fixtures directory.
func FindFixturesDir() string {
	parent := ".."
	fixturesDir := "_fixtures"
	for depth := 0; depth < 10; depth++ {
		if _, err := os.Stat(fixturesDir); err == nil {
			break
		}
		fixturesDir = filepath.Join(parent, fixturesDir)
	}
	return fixturesDir
}

// BuildFixture compiles the named fixture with debug information and no
// optimizations, caching the result for the remainder of the test run.
// The binary has a fixed load address.
func BuildFixture(name string) Fixture {
	return compileFixture(name, name, []string{"-no-pie"})
}

// BuildPIEFixture compiles the named fixture as a position independent
// executable, so it loads at a non-zero bias.
func BuildPIEFixture(name string) Fixture {
	return compileFixture(name+".pie", name, []string{"-pie", "-fPIE"})
}

func compileFixture(key, name string, extraFlags []string) Fixture {
	if f, ok := Fixtures[key]; ok {
		return f
	}

	fixturesDir := FindFixturesDir()
	source := filepath.Join(fixturesDir, name+".c")

	// Make a (good enough) random temporary file name
	r := make([]byte, 4)
	rand.Read(r)
	tmpfile := filepath.Join(os.TempDir(), fmt.Sprintf("%s.%s", key, hex.EncodeToString(r)))

	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	args := append([]string{"-g", "-O0"}, extraFlags...)
	args = append(args, "-o", tmpfile, source)
	cmd := exec.Command(cc, args...)
	cmd.Stderr = os.Stderr

	// Build the test binary
	if err := cmd.Run(); err != nil {
		fmt.Printf("Error compiling %s: %s\n", source, err)
		os.Exit(1)
	}

	absSource, _ := filepath.Abs(source)
	absSource = filepath.ToSlash(absSource)

	Fixtures[key] = Fixture{Name: key, Path: tmpfile, Source: absSource}
	return Fixtures[key]
}

// RunTestsWithFixtures runs the test methods and deletes any compiled
// fixture binaries before returning.
func RunTestsWithFixtures(m *testing.M) int {
	status := m.Run()

	for _, f := range Fixtures {
		os.Remove(f.Path)
	}
	return status
}
