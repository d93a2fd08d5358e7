package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultKnownChip(t *testing.T) {
	p := Default("esp32", "")
	if p.ChipName != "ESP32" || p.Manufacturer != "Espressif" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if p.FlashDefaults.BaudRate != 921600 {
		t.Errorf("BaudRate = %d, want 921600", p.FlashDefaults.BaudRate)
	}
	if !p.HasCapability("erase") {
		t.Error("esp32 should list erase capability")
	}
}

func TestDefaultVariantLookup(t *testing.T) {
	p := Default("esp32", "c3")
	if p.ChipName != "ESP32-C3" {
		t.Errorf("ChipName = %q, want ESP32-C3", p.ChipName)
	}
	if p.Architecture != "RISC-V" {
		t.Errorf("Architecture = %q, want RISC-V", p.Architecture)
	}
}

func TestDefaultUnknownVariantFallsBackToFamily(t *testing.T) {
	p := Default("esp32", "s99")
	if p.ChipName != "ESP32" {
		t.Errorf("ChipName = %q, want family default ESP32", p.ChipName)
	}
}

func TestDefaultUnknownChipNeverFails(t *testing.T) {
	p := Default("rp2040", "")
	if p.ChipID != "rp2040" {
		t.Errorf("ChipID = %q, want rp2040", p.ChipID)
	}
	if p.FlashDefaults.BaudRate == 0 {
		t.Error("generic profile should carry a usable baud rate")
	}
	if len(p.SupportedFormats) == 0 {
		t.Error("generic profile should list a format")
	}
}

func TestLoadWithoutDirReturnsDefault(t *testing.T) {
	p, err := Load("", "atmega328p", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.ChipName != "ATmega328P" {
		t.Errorf("ChipName = %q", p.ChipName)
	}
}

func TestLoadOverlaysDescriptorOnDefault(t *testing.T) {
	dir := t.TempDir()
	desc := `{"chip_id":"esp32","chip_name":"ESP32 DevKit","flash_options":{"default_baud_rate":460800}}`
	if err := os.WriteFile(filepath.Join(dir, "esp32.json"), []byte(desc), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(dir, "esp32", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.ChipName != "ESP32 DevKit" {
		t.Errorf("ChipName = %q, want overlay value", p.ChipName)
	}
	if p.FlashDefaults.BaudRate != 460800 {
		t.Errorf("BaudRate = %d, want overlay value 460800", p.FlashDefaults.BaudRate)
	}
	// Fields the descriptor omits keep their built-in values.
	if p.Manufacturer != "Espressif" {
		t.Errorf("Manufacturer = %q, want built-in Espressif", p.Manufacturer)
	}
	if p.FlashDefaults.FlashMode != "dio" {
		t.Errorf("FlashMode = %q, want built-in dio", p.FlashDefaults.FlashMode)
	}
}

func TestLoadPrefersVariantDescriptor(t *testing.T) {
	dir := t.TempDir()
	family := `{"chip_id":"esp32","chip_name":"family"}`
	variant := `{"chip_id":"esp32","chip_name":"variant"}`
	if err := os.WriteFile(filepath.Join(dir, "esp32.json"), []byte(family), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "esp32-c3.json"), []byte(variant), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(dir, "esp32", "c3")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.ChipName != "variant" {
		t.Errorf("ChipName = %q, want variant file to win", p.ChipName)
	}
}

func TestLoadMalformedDescriptorReturnsDefaultAndError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "esp32.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(dir, "esp32", "")
	var de *DescriptorError
	if !errors.As(err, &de) {
		t.Fatalf("expected DescriptorError, got %v", err)
	}
	if p.ChipName != "ESP32" {
		t.Errorf("fallback profile = %q, want built-in ESP32", p.ChipName)
	}
}

func TestLoadRejectsChipIDMismatch(t *testing.T) {
	dir := t.TempDir()
	desc := `{"chip_id":"stm32f1","chip_name":"wrong"}`
	if err := os.WriteFile(filepath.Join(dir, "esp32.json"), []byte(desc), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(dir, "esp32", "")
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	if p.ChipName != "ESP32" {
		t.Errorf("fallback profile = %q, want built-in ESP32", p.ChipName)
	}
}
