package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CDB_CONFIG_PATH", dir)

	conf, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, configFile)); err != nil {
		t.Errorf("default config file not created: %v", err)
	}
	if got := conf.GetSourceListLineCount(); got != 5 {
		t.Errorf("GetSourceListLineCount() = %d, want default 5", got)
	}
	if !conf.GetDisableASLR() {
		t.Error("GetDisableASLR() = false, want default true")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("CDB_CONFIG_PATH", t.TempDir())

	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	lines := 9
	aslr := false
	saved := &Config{
		Aliases:             map[string][]string{"break": {"stop"}},
		SourceListLineCount: &lines,
		DisableASLR:         &aslr,
	}
	if err := SaveConfig(saved); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := loaded.GetSourceListLineCount(); got != 9 {
		t.Errorf("GetSourceListLineCount() = %d, want 9", got)
	}
	if loaded.GetDisableASLR() {
		t.Error("GetDisableASLR() = true, want false")
	}
	if got := loaded.Aliases["break"]; len(got) != 1 || got[0] != "stop" {
		t.Errorf("Aliases[break] = %v, want [stop]", got)
	}
}

func TestNegativeSourceListLineCount(t *testing.T) {
	n := -3
	conf := &Config{SourceListLineCount: &n}
	if got := conf.GetSourceListLineCount(); got != 5 {
		t.Errorf("GetSourceListLineCount() = %d, want fallback 5", got)
	}
}
