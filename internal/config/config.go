package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// Config holds all configurable sitefocus settings.
type Config struct {
	ListenAddr    string `json:"listen_addr"`    // daemon HTTP bridge
	LogLevel      string `json:"log_level"`      // "debug" | "info" | "warn" | "error"
	Store         string `json:"store"`          // "json" | "sqlite" | "memory"
	DataDir       string `json:"data_dir"`       // override XDG data dir
	DefaultFormat string `json:"default_format"` // "markdown" | "json" | "yaml"
	OutputDir     string `json:"output_dir"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		ListenAddr:    "127.0.0.1:7717",
		LogLevel:      "info",
		Store:         "json",
		DefaultFormat: "markdown",
		OutputDir:     ".",
	}
}

// Dir returns the sitefocus config directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sitefocus"), nil
}

// GlobalPath returns the path of the global config file.
func GlobalPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GlobalExists reports whether a global config file is present on disk.
func GlobalExists() bool {
	p, err := GlobalPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// LoadGlobal reads ~/.config/sitefocus/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .sitefocusconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".sitefocusconfig", false)
}

// SaveGlobal writes cfg to the global config file.
func SaveGlobal(cfg Config) error {
	path, err := GlobalPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, append(data, '\n'))
}

// loadFile reads and parses a config file at path. Comments and trailing
// commas are allowed.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, layer := range []*Config{global, project} {
		if layer != nil {
			overlay(&result, layer)
		}
	}
	return result
}

func overlay(dst, src *Config) {
	set := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	set(&dst.ListenAddr, src.ListenAddr)
	set(&dst.LogLevel, src.LogLevel)
	set(&dst.Store, src.Store)
	set(&dst.DataDir, src.DataDir)
	set(&dst.DefaultFormat, src.DefaultFormat)
	set(&dst.OutputDir, src.OutputDir)
}

// ApplyEnv overrides cfg with SITEFOCUS_LOG_LEVEL and SITEFOCUS_ADDR.
func ApplyEnv(cfg Config) Config {
	if v := strings.TrimSpace(os.Getenv("SITEFOCUS_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("SITEFOCUS_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	return cfg
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// writeAtomic writes data to a temp file beside path and renames it into
// place, creating the parent directory if needed.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
