package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/buckleypaul/uplink/internal/firmware"
	"github.com/buckleypaul/uplink/internal/profile"
	"github.com/buckleypaul/uplink/internal/toolchain"
	"github.com/buckleypaul/uplink/internal/verify"
)

// detectTimeout bounds a single port probe.
const detectTimeout = 5 * time.Second

// base carries the identity and collaborators common to every adapter.
type base struct {
	chipID  string
	variant string
	format  string // native artifact format: "bin" or "hex"
	settings
}

func newBase(chipID, variant, format string, opts []Option) base {
	return base{chipID: chipID, variant: variant, format: format, settings: newSettings(opts)}
}

func (b *base) ChipID() string      { return b.chipID }
func (b *base) ChipVariant() string { return b.variant }

// Profile loads the chip profile, falling back to built-in defaults when
// a descriptor is missing or malformed.
func (b *base) Profile() profile.Profile {
	p, err := profile.Load(b.profileDir, b.chipID, b.variant)
	if err != nil {
		b.log.Warn("descriptor rejected, using built-in profile",
			"chip", b.chipID, "variant", b.variant, "err", err)
	}
	return p
}

// buildImage renders the pattern artifact into the adapter's format and
// writes it to outputPath.
func (b *base) buildImage(ctx context.Context, pattern []byte, outputPath string, opts *BuildOptions) BuildResult {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return BuildResult{Err: "cancelled", Duration: time.Since(start)}
	}
	p, err := firmware.Parse(pattern)
	if err != nil {
		return BuildResult{Err: fmt.Sprintf("invalid pattern: %v", err), Duration: time.Since(start)}
	}

	format := b.format
	if opts != nil && opts.Format != "" {
		format = opts.Format
	}
	payload := p.Payload()
	var data []byte
	switch format {
	case "hex":
		data = []byte(firmware.IntelHex(payload))
	case "bin", "":
		data = payload
	default:
		return BuildResult{Err: fmt.Sprintf("unsupported format %q", format), Duration: time.Since(start)}
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return BuildResult{Err: fmt.Sprintf("create output dir: %v", err), Duration: time.Since(start)}
		}
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return BuildResult{Err: fmt.Sprintf("write image: %v", err), Duration: time.Since(start)}
	}
	b.log.Debug("firmware built", "chip", b.chipID, "path", outputPath, "bytes", len(data))
	return BuildResult{
		Success:      true,
		FirmwarePath: outputPath,
		ArtifactHash: verify.HashBytes(data),
		Size:         int64(len(data)),
		Duration:     time.Since(start),
	}
}

// verifyImage applies the two-step check: the artifact hash against
// expectedHash first (the device is not touched on a mismatch), then the
// hash the flashed device reports on its console.
func (b *base) verifyImage(ctx context.Context, firmwarePath string, dev DeviceInfo, expectedHash string) VerifyResult {
	local, err := verify.HashFile(firmwarePath)
	if err != nil {
		return VerifyResult{Status: VerifyFailure, Detail: err.Error()}
	}
	if expectedHash != "" {
		if !verify.ValidHash(expectedHash) {
			return VerifyResult{Status: VerifyFailure, LocalHash: local,
				Detail: fmt.Sprintf("malformed expected hash %q", expectedHash)}
		}
		if !verify.Equal(local, expectedHash) {
			return VerifyResult{Status: VerifyHashMismatch, LocalHash: local,
				Detail: "artifact hash differs from expected hash"}
		}
	}
	if dev.Port == "" {
		return VerifyResult{Status: VerifyFailure, LocalHash: local,
			Detail: "no device port to read back from"}
	}
	deviceHash, err := b.reader.ReadHash(ctx, dev.Port, verify.DefaultBaud)
	if err != nil {
		return VerifyResult{Status: VerifyFailure, LocalHash: local, Detail: err.Error()}
	}
	if !verify.Equal(local, deviceHash) {
		return VerifyResult{Status: VerifyHashMismatch, LocalHash: local, DeviceHash: deviceHash,
			Detail: "device hash differs from artifact hash"}
	}
	return VerifyResult{Status: VerifySuccess, LocalHash: local, DeviceHash: deviceHash}
}

// scanPorts probes each enumerated port in turn, releasing one before
// opening the next.
func (b *base) scanPorts(ctx context.Context, probe func(ctx context.Context, port string) (DeviceInfo, bool)) (DeviceInfo, bool) {
	ports, err := b.listPorts()
	if err != nil {
		b.log.Warn("port enumeration failed", "err", err)
		return DeviceInfo{}, false
	}
	for _, port := range ports {
		if ctx.Err() != nil {
			return DeviceInfo{}, false
		}
		if info, ok := probe(ctx, port); ok {
			return info, true
		}
	}
	return DeviceInfo{}, false
}

// flashOptions fills unset option fields from the chip profile.
func (b *base) flashOptions(opts *FlashOptions, defaultTimeout time.Duration) FlashOptions {
	var out FlashOptions
	if opts != nil {
		out = *opts
	}
	p := b.Profile()
	if out.BaudRate == 0 {
		out.BaudRate = p.FlashDefaults.BaudRate
	}
	if out.Programmer == "" {
		out.Programmer = p.FlashDefaults.Programmer
	}
	if out.Timeout == 0 {
		out.Timeout = defaultTimeout
	}
	return out
}

// finishFlash applies the optional post-flash verification. A good write
// whose verification fails becomes FlashVerificationFailed.
func (b *base) finishFlash(ctx context.Context, res FlashResult, firmwarePath string, dev DeviceInfo, opts FlashOptions) FlashResult {
	if res.Status != FlashSuccess || !opts.Verify {
		return res
	}
	v := b.verifyImage(ctx, firmwarePath, dev, "")
	if v.Status != VerifySuccess {
		res.Status = FlashVerificationFailed
		res.Err = v.Detail
	}
	return res
}

// flashOutcome maps a finished tool run onto a FlashResult.
func flashOutcome(res toolchain.Result, port string, bytesRe *regexp.Regexp, imageSize int64) FlashResult {
	out := FlashResult{Port: port, Duration: res.Duration, Output: res.Output}
	switch {
	case res.TimedOut:
		out.Status = FlashTimeout
		out.Err = fmt.Sprintf("timed out after %s", res.Duration.Round(time.Second))
	case res.Err != nil:
		out.Err = res.Err.Error()
	case res.ExitCode != 0:
		out.Err = fmt.Sprintf("exit code %d: %s", res.ExitCode, outputTail(res.Output, 2))
	default:
		out.Status = FlashSuccess
		out.BytesWritten = writtenBytes(bytesRe, res.Output, imageSize)
	}
	return out
}

func writtenBytes(re *regexp.Regexp, output string, fallback int64) int64 {
	if re != nil {
		if m := re.FindStringSubmatch(output); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return n
			}
		}
	}
	return fallback
}

func fileSize(path string) int64 {
	if fi, err := os.Stat(path); err == nil {
		return fi.Size()
	}
	return 0
}

// outputTail returns the last n non-blank lines of tool output.
func outputTail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	var keep []string
	for i := len(lines) - 1; i >= 0 && len(keep) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			keep = append([]string{line}, keep...)
		}
	}
	return strings.Join(keep, " | ")
}
