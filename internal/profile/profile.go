// Package profile holds chip target descriptions: identity, memory sizes,
// toolchain programs and flashing defaults. Built-in profiles cover every
// supported chip; JSON descriptor files can overlay them per deployment.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Toolchain names the external programs a chip's build and flash steps rely on.
type Toolchain struct {
	Compiler        string `json:"compiler"`
	Flasher         string `json:"flasher"`
	VersionRequired string `json:"version_required,omitempty"`
}

// FlashDefaults seed flash options when the caller leaves fields unset.
type FlashDefaults struct {
	BaudRate   int    `json:"default_baud_rate"`
	FlashMode  string `json:"flash_mode,omitempty"`
	FlashFreq  string `json:"flash_freq,omitempty"`
	FlashSize  string `json:"flash_size,omitempty"`
	Offset     string `json:"flash_offset,omitempty"`
	Programmer string `json:"programmer,omitempty"`
}

// Profile describes one chip target.
type Profile struct {
	ChipID           string        `json:"chip_id"`
	ChipVariant      string        `json:"chip_variant,omitempty"`
	ChipName         string        `json:"chip_name"`
	Manufacturer     string        `json:"manufacturer"`
	Architecture     string        `json:"architecture"`
	FlashSizeBytes   int64         `json:"flash_size_bytes"`
	RAMSizeBytes     int64         `json:"ram_size_bytes"`
	CPUFrequencyMHz  int           `json:"cpu_frequency_mhz"`
	SupportedFormats []string      `json:"supported_formats"`
	Toolchain        Toolchain     `json:"toolchain"`
	FlashDefaults    FlashDefaults `json:"flash_options"`
	Capabilities     []string      `json:"capabilities"`
}

// HasCapability reports whether the profile lists the named capability.
func (p Profile) HasCapability(name string) bool {
	for _, c := range p.Capabilities {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// DescriptorError reports a descriptor file whose content cannot be used.
type DescriptorError struct {
	Path   string
	Reason string
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("descriptor %s: %s", e.Path, e.Reason)
}

// Default returns the built-in profile for a chip, falling back from the
// exact variant to the chip family and finally to a minimal generic
// profile. It never fails.
func Default(chipID, variant string) Profile {
	if p, ok := builtin[key(chipID, variant)]; ok {
		return p
	}
	if p, ok := builtin[key(chipID, "")]; ok {
		return p
	}
	return Profile{
		ChipID:           strings.ToLower(chipID),
		ChipVariant:      strings.ToLower(variant),
		ChipName:         chipID,
		SupportedFormats: []string{"bin"},
		FlashDefaults:    FlashDefaults{BaudRate: 115200},
		Capabilities:     []string{"flash"},
	}
}

// Load overlays a JSON descriptor from dir on the built-in default.
// Search order: <chip>-<variant>.json, then <chip>.json. A missing file
// yields the default. On any error the returned profile is still the
// usable built-in default.
func Load(dir, chipID, variant string) (Profile, error) {
	p := Default(chipID, variant)
	if dir == "" {
		return p, nil
	}
	path, ok := findDescriptor(dir, chipID, variant)
	if !ok {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Default(chipID, variant), fmt.Errorf("read descriptor: %w", err)
	}
	// Decoding over the prefilled default keeps fields the file omits.
	if err := json.Unmarshal(raw, &p); err != nil {
		return Default(chipID, variant), &DescriptorError{Path: path, Reason: err.Error()}
	}
	if !strings.EqualFold(p.ChipID, chipID) {
		return Default(chipID, variant), &DescriptorError{
			Path:   path,
			Reason: fmt.Sprintf("chip_id %q does not match %q", p.ChipID, chipID),
		}
	}
	return p, nil
}

func findDescriptor(dir, chipID, variant string) (string, bool) {
	names := []string{key(chipID, "") + ".json"}
	if variant != "" {
		names = append([]string{strings.ToLower(chipID) + "-" + strings.ToLower(variant) + ".json"}, names...)
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func key(chipID, variant string) string {
	id := strings.ToLower(chipID)
	if variant == "" {
		return id
	}
	return id + ":" + strings.ToLower(variant)
}
