package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.SerialBaudRate != 115200 {
		t.Errorf("expected SerialBaudRate=115200, got=%d", cfg.SerialBaudRate)
	}
	if cfg.BuildDir != "build" {
		t.Errorf("expected BuildDir=build, got=%s", cfg.BuildDir)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("expected Concurrency=4, got=%d", cfg.Concurrency)
	}
	if cfg.SkipVerify {
		t.Error("verification must be on by default")
	}
}

func TestLoadMerge(t *testing.T) {
	tmp := t.TempDir()
	uplinkDir := filepath.Join(tmp, ".uplink")
	os.MkdirAll(uplinkDir, 0o755)
	os.WriteFile(filepath.Join(uplinkDir, "config.json"), []byte(`{
		"default_chip": "esp32:s2",
		"serial_baud_rate": 9600
	}`), 0o644)

	cfg := Load(tmp)

	if cfg.DefaultChip != "esp32:s2" {
		t.Errorf("expected default_chip from workspace, got=%s", cfg.DefaultChip)
	}
	if cfg.SerialBaudRate != 9600 {
		t.Errorf("expected baud rate 9600 from workspace, got=%d", cfg.SerialBaudRate)
	}
	// BuildDir should still be default since not overridden
	if cfg.BuildDir != "build" {
		t.Errorf("expected default BuildDir=build, got=%s", cfg.BuildDir)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	tmp := t.TempDir()
	uplinkDir := filepath.Join(tmp, ".uplink")
	os.MkdirAll(uplinkDir, 0o755)
	os.WriteFile(filepath.Join(uplinkDir, "config.json"),
		[]byte(`{"default_chip": "esp32", "concurrency": 2}`), 0o644)

	t.Setenv("UPLINK_CHIP", "atmega328p")
	t.Setenv("UPLINK_PORT", "/dev/ttyACM3")
	t.Setenv("UPLINK_CONCURRENCY", "8")
	t.Setenv("UPLINK_SKIP_VERIFY", "true")

	cfg := Load(tmp)
	if cfg.DefaultChip != "atmega328p" {
		t.Errorf("env chip did not win: %s", cfg.DefaultChip)
	}
	if cfg.SerialPort != "/dev/ttyACM3" {
		t.Errorf("env port did not apply: %s", cfg.SerialPort)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("env concurrency did not win: %d", cfg.Concurrency)
	}
	if !cfg.SkipVerify {
		t.Error("env skip_verify did not apply")
	}
}

func TestEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("UPLINK_BAUD", "fast")
	t.Setenv("UPLINK_CONCURRENCY", "-3")

	cfg := Defaults()
	applyEnv(&cfg)
	if cfg.SerialBaudRate != DefaultBaudRate {
		t.Errorf("unparseable baud changed config: %d", cfg.SerialBaudRate)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("negative concurrency changed config: %d", cfg.Concurrency)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmp := t.TempDir()
	cfg := Config{
		DefaultChip:    "stm32f1",
		BuildDir:       "mybuild",
		SerialBaudRate: 57600,
	}

	if err := Save(cfg, tmp, false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	path := filepath.Join(tmp, ".uplink", "config.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	loaded := Load(tmp)
	if loaded.DefaultChip != "stm32f1" {
		t.Errorf("expected DefaultChip=stm32f1, got=%s", loaded.DefaultChip)
	}
	if loaded.BuildDir != "mybuild" {
		t.Errorf("expected BuildDir=mybuild, got=%s", loaded.BuildDir)
	}
	if loaded.SerialBaudRate != 57600 {
		t.Errorf("expected SerialBaudRate=57600, got=%d", loaded.SerialBaudRate)
	}
}

func TestDetectWorkspace(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "proj")
	nested := filepath.Join(root, "patterns", "blinky")
	os.MkdirAll(filepath.Join(root, ".uplink"), 0o755)
	os.MkdirAll(nested, 0o755)

	ws := DetectWorkspace(nested)
	if !ws.Initialized {
		t.Fatal("marker directory not found walking up")
	}
	if ws.Root != root {
		t.Errorf("root = %s, want %s", ws.Root, root)
	}
}

func TestDetectWorkspaceFallsBackToStart(t *testing.T) {
	tmp := t.TempDir()
	ws := DetectWorkspace(tmp)
	if ws.Initialized {
		t.Error("bare directory reported as initialized")
	}
	if ws.Root != tmp {
		t.Errorf("root = %s, want start dir %s", ws.Root, tmp)
	}
}

func TestWorkspaceResolvesRelativeDirs(t *testing.T) {
	ws := Workspace{Root: "/work/proj"}
	cfg := Defaults()

	if got := ws.BuildDir(cfg); got != filepath.Join("/work/proj", "build") {
		t.Errorf("BuildDir = %s", got)
	}
	cfg.PatternDir = "/abs/patterns"
	if got := ws.PatternDir(cfg); got != "/abs/patterns" {
		t.Errorf("absolute PatternDir rewritten: %s", got)
	}
}
