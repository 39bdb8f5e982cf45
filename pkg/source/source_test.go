package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, lines int) string {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	path := filepath.Join(t.TempDir(), "prog.c")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))
	return path
}

func TestPrintMarksCurrentLine(t *testing.T) {
	path := writeTestFile(t, 10)
	var buf bytes.Buffer

	require.NoError(t, NewCache().Print(&buf, path, 5, 2))

	out := buf.String()
	assert.Contains(t, out, "=>   5:\tline 5")
	assert.Contains(t, out, "     3:\tline 3")
	assert.Contains(t, out, "     7:\tline 7")
	assert.NotContains(t, out, "line 2")
	assert.NotContains(t, out, "line 8")
}

func TestPrintClampsToStartOfFile(t *testing.T) {
	path := writeTestFile(t, 10)
	var buf bytes.Buffer

	require.NoError(t, NewCache().Print(&buf, path, 1, 5))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "=>   1:\tline 1"), "window must start at line 1: %q", out)
	assert.Contains(t, out, "line 6")
}

func TestPrintTruncatesAtEndOfFile(t *testing.T) {
	path := writeTestFile(t, 5)
	var buf bytes.Buffer

	require.NoError(t, NewCache().Print(&buf, path, 5, 3))

	out := buf.String()
	assert.Contains(t, out, "=>   5:\tline 5")
	assert.NotContains(t, out, "6:")
}

func TestPrintMissingFile(t *testing.T) {
	var buf bytes.Buffer
	err := NewCache().Print(&buf, filepath.Join(t.TempDir(), "nope.c"), 1, 2)
	assert.Error(t, err)
}

func TestLinesCached(t *testing.T) {
	path := writeTestFile(t, 3)
	c := NewCache()

	first, err := c.Lines(path)
	require.NoError(t, err)

	// Later reads come from the cache, not the file.
	require.NoError(t, os.Remove(path))
	second, err := c.Lines(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
