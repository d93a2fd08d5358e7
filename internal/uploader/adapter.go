// Package uploader implements the chip flashing adapters: a uniform
// detect/build/flash/verify contract with one implementation per
// microcontroller family, plus the registry that routes chips to them.
package uploader

import (
	"context"
	"time"

	"github.com/buckleypaul/uplink/internal/profile"
)

// DeviceInfo identifies a detected device on a serial port.
type DeviceInfo struct {
	Port        string
	ChipID      string
	ChipVariant string
	Description string
}

// BuildOptions tune firmware image generation.
type BuildOptions struct {
	// Format overrides the family's artifact format ("bin" or "hex").
	Format string
}

// BuildResult reports a firmware build. Success implies a non-empty
// FirmwarePath and a well-formed ArtifactHash.
type BuildResult struct {
	Success      bool
	FirmwarePath string
	ArtifactHash string
	Size         int64
	Duration     time.Duration
	Err          string
}

// FlashOptions tune a flash operation. Zero fields are filled from the
// chip profile's flash defaults.
type FlashOptions struct {
	BaudRate   int
	Programmer string
	Erase      bool
	Verify     bool
	Timeout    time.Duration
}

// FlashStatus classifies the outcome of a flash attempt. The zero value
// is FlashFailure.
type FlashStatus int

const (
	FlashFailure FlashStatus = iota
	FlashSuccess
	FlashTimeout
	FlashVerificationFailed
)

func (s FlashStatus) String() string {
	switch s {
	case FlashSuccess:
		return "success"
	case FlashTimeout:
		return "timeout"
	case FlashVerificationFailed:
		return "verification_failed"
	default:
		return "failure"
	}
}

// FlashResult reports a flash attempt. FlashVerificationFailed means the
// write itself succeeded and the post-flash verification did not.
type FlashResult struct {
	Status       FlashStatus
	Port         string
	BytesWritten int64
	Duration     time.Duration
	Output       string
	Err          string
}

// VerifyStatus classifies a verification. The zero value is
// VerifyFailure.
type VerifyStatus int

const (
	VerifyFailure VerifyStatus = iota
	VerifySuccess
	VerifyHashMismatch
)

func (s VerifyStatus) String() string {
	switch s {
	case VerifySuccess:
		return "success"
	case VerifyHashMismatch:
		return "hash_mismatch"
	default:
		return "failure"
	}
}

// VerifyResult reports a verification. VerifyHashMismatch requires both
// hashes to be known and differing; a value that could not be obtained at
// all yields VerifyFailure.
type VerifyResult struct {
	Status     VerifyStatus
	LocalHash  string
	DeviceHash string
	Detail     string
}

// Adapter is the uniform contract every chip family implements. The four
// operations never panic and never return Go errors; failures surface as
// result values.
type Adapter interface {
	ChipID() string
	ChipVariant() string

	// Profile never fails; unknown or malformed descriptors fall back
	// to built-in defaults.
	Profile() profile.Profile

	// Requirements names the external tools flashing needs.
	Requirements() []string

	// DetectDevice probes one port, or scans all enumerated ports when
	// port is empty. It is bounded to a few seconds per port.
	DetectDevice(ctx context.Context, port string) (DeviceInfo, bool)

	// BuildFirmware deterministically renders the pattern artifact into
	// this chip's firmware image at outputPath.
	BuildFirmware(ctx context.Context, pattern []byte, outputPath string, opts *BuildOptions) BuildResult

	// FlashFirmware writes the image to the device.
	FlashFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, opts *FlashOptions) FlashResult

	// VerifyFirmware checks the local image hash (against expectedHash
	// when given, without touching the device) and then the hash the
	// device reports over serial.
	VerifyFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, expectedHash string) VerifyResult
}
