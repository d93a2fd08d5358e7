// Package config loads and persists uplink settings. Precedence, lowest
// to highest: built-in defaults, the global config file, the workspace
// config file, then UPLINK_* environment variables.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultBaudRate    = 115200
	DefaultBuildDir    = "build"
	DefaultPatternDir  = "patterns"
	DefaultConcurrency = 4
)

// Config holds all uplink configuration.
type Config struct {
	DefaultChip    string `json:"default_chip,omitempty"`
	SerialPort     string `json:"serial_port,omitempty"`
	SerialBaudRate int    `json:"serial_baud_rate,omitempty"`
	BuildDir       string `json:"build_dir,omitempty"`
	ProfileDir     string `json:"profile_dir,omitempty"`
	PatternDir     string `json:"pattern_dir,omitempty"`
	Concurrency    int    `json:"concurrency,omitempty"`
	SkipVerify     bool   `json:"skip_verify,omitempty"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		SerialBaudRate: DefaultBaudRate,
		BuildDir:       DefaultBuildDir,
		PatternDir:     DefaultPatternDir,
		Concurrency:    DefaultConcurrency,
	}
}

// Load reads and merges global and workspace configs, then applies
// environment overrides.
// Order: defaults → global (~/.config/uplink/config.json) →
// workspace (.uplink/config.json) → UPLINK_* variables.
func Load(workspaceRoot string) Config {
	cfg := Defaults()

	if home, err := os.UserHomeDir(); err == nil {
		globalPath := filepath.Join(home, ".config", "uplink", "config.json")
		mergeFromFile(&cfg, globalPath)
	}

	if workspaceRoot != "" {
		wsPath := filepath.Join(workspaceRoot, ".uplink", "config.json")
		mergeFromFile(&cfg, wsPath)
	}

	applyEnv(&cfg)
	return cfg
}

// Save writes the config to the workspace .uplink/config.json by
// default, or to the global config if global is true.
func Save(cfg Config, workspaceRoot string, global bool) error {
	var dir string
	if global {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(home, ".config", "uplink")
	} else {
		dir = filepath.Join(workspaceRoot, ".uplink")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

func mergeFromFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return
	}

	if fileCfg.DefaultChip != "" {
		cfg.DefaultChip = fileCfg.DefaultChip
	}
	if fileCfg.SerialPort != "" {
		cfg.SerialPort = fileCfg.SerialPort
	}
	if fileCfg.SerialBaudRate != 0 {
		cfg.SerialBaudRate = fileCfg.SerialBaudRate
	}
	if fileCfg.BuildDir != "" {
		cfg.BuildDir = fileCfg.BuildDir
	}
	if fileCfg.ProfileDir != "" {
		cfg.ProfileDir = fileCfg.ProfileDir
	}
	if fileCfg.PatternDir != "" {
		cfg.PatternDir = fileCfg.PatternDir
	}
	if fileCfg.Concurrency != 0 {
		cfg.Concurrency = fileCfg.Concurrency
	}
	if fileCfg.SkipVerify {
		cfg.SkipVerify = true
	}
}

// applyEnv overrides config fields from UPLINK_* variables. Values that
// do not parse are ignored.
func applyEnv(cfg *Config) {
	if v := os.Getenv("UPLINK_CHIP"); v != "" {
		cfg.DefaultChip = v
	}
	if v := os.Getenv("UPLINK_PORT"); v != "" {
		cfg.SerialPort = v
	}
	if v := os.Getenv("UPLINK_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SerialBaudRate = n
		}
	}
	if v := os.Getenv("UPLINK_BUILD_DIR"); v != "" {
		cfg.BuildDir = v
	}
	if v := os.Getenv("UPLINK_PROFILE_DIR"); v != "" {
		cfg.ProfileDir = v
	}
	if v := os.Getenv("UPLINK_PATTERN_DIR"); v != "" {
		cfg.PatternDir = v
	}
	if v := os.Getenv("UPLINK_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("UPLINK_SKIP_VERIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SkipVerify = b
		}
	}
}
