// Package config implements the persistent configuration of cd-debugger,
// loaded from a yaml file in the user's config directory.
package config

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir   string = ".cdb"
	configFile  string = "config.yml"
	historyFile string = ".cdb_history"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// Aliases maps command names to a list of additional aliases.
	Aliases map[string][]string `yaml:"aliases"`

	// SourceListLineCount is the number of lines of context shown
	// above and below the current line by the list command.
	SourceListLineCount *int `yaml:"source-list-line-count,omitempty"`

	// DisableASLR turns off address space layout randomization in the
	// tracee, so breakpoint addresses stay stable between runs.
	DisableASLR *bool `yaml:"disable-aslr,omitempty"`
}

// GetSourceListLineCount returns the configured context radius for source
// listings, defaulting to 5.
func (c *Config) GetSourceListLineCount() int {
	n := 5
	if c.SourceListLineCount != nil {
		n = *c.SourceListLineCount
	}
	if n < 0 {
		n = 5
	}
	return n
}

// GetDisableASLR returns whether the tracee should run with address space
// layout randomization disabled. Defaults to true for reproducible
// debugging sessions.
func (c *Config) GetDisableASLR() bool {
	if c.DisableASLR == nil {
		return true
	}
	return *c.DisableASLR
}

// LoadConfig attempts to populate a Config object from the config.yml file.
func LoadConfig() (*Config, error) {
	err := createConfigPath()
	if err != nil {
		return &Config{}, fmt.Errorf("could not create config directory: %v", err)
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return &Config{}, fmt.Errorf("unable to get config file path: %v", err)
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			return &Config{}, fmt.Errorf("error creating default config file: %v", err)
		}
	}
	defer f.Close()

	data, err := os.ReadFile(fullConfigFile)
	if err != nil {
		return &Config{}, fmt.Errorf("unable to read config data: %v", err)
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return &Config{}, fmt.Errorf("unable to decode config file: %v", err)
	}
	return &c, nil
}

// SaveConfig will marshal and save the config struct to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	err = writeDefaultConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	f.Seek(0, os.SEEK_SET)
	return f, nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for cd-debugger.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Provided aliases will be added to the default aliases for a given command.
aliases:
  # command: ["alias1", "alias2"]

# Number of lines of source code shown above and below the current line by
# the list command.
# source-list-line-count: 5

# Uncomment to leave address space layout randomization enabled in the
# tracee. By default it is disabled so that addresses are stable across
# restarts.
# disable-aslr: false
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(fname string) (string, error) {
	if configPath := os.Getenv("CDB_CONFIG_PATH"); configPath != "" {
		return path.Join(configPath, fname), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return path.Join(home, configDir, fname), nil
}

// HistoryFilePath returns the path to the file holding the REPL history.
func HistoryFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return path.Join(home, historyFile), nil
}
