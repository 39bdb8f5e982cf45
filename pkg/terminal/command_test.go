package terminal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandAliases(t *testing.T) {
	cmds := DebugCommands()
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"break", "break"},
		{"b", "break"},
		{"si", "step-instruction"},
		{"c", "continue"},
		{"q", "exit"},
	} {
		found := ""
		for _, cmd := range cmds.cmds {
			if cmd.match(tc.input) {
				found = cmd.aliases[0]
				break
			}
		}
		assert.Equal(t, tc.want, found, "alias %q", tc.input)
	}
}

func TestCallUnknownCommand(t *testing.T) {
	term := &Term{stdout: new(bytes.Buffer)}
	err := DebugCommands().Call("definitely-not-a-command", term)
	assert.ErrorIs(t, err, errNoCmd)
}

func TestCallEmptyLineIsNoop(t *testing.T) {
	term := &Term{stdout: new(bytes.Buffer)}
	assert.NoError(t, DebugCommands().Call("", term))
	assert.NoError(t, DebugCommands().Call("   ", term))
}

func TestCallExit(t *testing.T) {
	term := &Term{stdout: new(bytes.Buffer)}
	err := DebugCommands().Call("quit", term)
	assert.IsType(t, ExitRequestError{}, err)
}

func TestHelpListsEveryCommand(t *testing.T) {
	buf := new(bytes.Buffer)
	term := &Term{stdout: buf}
	cmds := DebugCommands()

	require.NoError(t, cmds.Call("help", term))

	out := buf.String()
	for _, cmd := range cmds.cmds {
		assert.Contains(t, out, cmd.aliases[0])
	}
}

func TestMergeAliases(t *testing.T) {
	cmds := DebugCommands()
	cmds.Merge(map[string][]string{"break": {"stop-here"}})

	matched := false
	for _, cmd := range cmds.cmds {
		if cmd.match("stop-here") {
			matched = true
			assert.Equal(t, "break", cmd.aliases[0])
		}
	}
	assert.True(t, matched, "merged alias not registered")
}

func TestParseAddr(t *testing.T) {
	for _, tc := range []struct {
		input   string
		want    uint64
		wantErr bool
	}{
		{"0x401000", 0x401000, false},
		{"401000", 0x401000, false},
		{"0xDEADBEEF", 0xdeadbeef, false},
		{"zzz", 0, true},
		{"", 0, true},
	} {
		got, err := parseAddr(tc.input)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.input)
			continue
		}
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}
