package uploader

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	avrdudeBin      = "avrdude"
	avrFlashTimeout = 120 * time.Second
)

var (
	avrSignatureRe = regexp.MustCompile(`Device signature = (0x[0-9a-fA-F]+)`)
	avrBytesRe     = regexp.MustCompile(`(\d+) bytes? of flash (?:written|verified)`)
)

// avrParts maps chip IDs to avrdude part names.
var avrParts = map[string]string{
	"atmega328p": "m328p",
	"atmega2560": "m2560",
	"atmega32u4": "m32u4",
	"attiny85":   "t85",
}

// baudFlagProgrammers lists the avrdude programmers that take an
// explicit -b baud.
var baudFlagProgrammers = map[string]bool{
	"arduino":  true,
	"stk500v1": true,
	"stk500v2": true,
}

// AVRAdapter drives avrdude-programmed AVR chips.
type AVRAdapter struct {
	base
	part     string
	probeTag string
}

func newAVR(chipID, probeTag string, opts []Option) *AVRAdapter {
	return &AVRAdapter{
		base:     newBase(chipID, "", "hex", opts),
		part:     avrParts[chipID],
		probeTag: probeTag,
	}
}

// NewATmega328P targets Arduino Uno class boards.
func NewATmega328P(opts ...Option) *AVRAdapter {
	return newAVR("atmega328p", "ATmega328P", opts)
}

// NewATmega2560 targets Arduino Mega class boards.
func NewATmega2560(opts ...Option) *AVRAdapter {
	return newAVR("atmega2560", "ATmega2560", opts)
}

func (a *AVRAdapter) Requirements() []string {
	return []string{avrdudeBin}
}

func (a *AVRAdapter) DetectDevice(ctx context.Context, port string) (DeviceInfo, bool) {
	if port == "" {
		return a.scanPorts(ctx, a.probe)
	}
	return a.probe(ctx, port)
}

// probe asks avrdude to read the device signature. Probing with this
// adapter's own part self-selects: a different chip answers with a
// signature mismatch and a nonzero exit.
func (a *AVRAdapter) probe(ctx context.Context, port string) (DeviceInfo, bool) {
	res := a.runner.Run(ctx, detectTimeout, avrdudeBin,
		"-p", a.part, "-c", "arduino", "-P", port, "-v")
	if !res.Ok() {
		return DeviceInfo{}, false
	}
	sig := avrSignatureRe.FindStringSubmatch(res.Output)
	if sig == nil && !strings.Contains(res.Output, a.probeTag) {
		return DeviceInfo{}, false
	}
	desc := a.probeTag
	if sig != nil {
		desc = a.probeTag + " (signature " + sig[1] + ")"
	}
	return DeviceInfo{Port: port, ChipID: a.chipID, Description: desc}, true
}

func (a *AVRAdapter) BuildFirmware(ctx context.Context, pattern []byte, outputPath string, opts *BuildOptions) BuildResult {
	return a.buildImage(ctx, pattern, outputPath, opts)
}

func (a *AVRAdapter) FlashFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, opts *FlashOptions) FlashResult {
	if dev.Port == "" {
		return FlashResult{Err: "no port specified"}
	}
	o := a.flashOptions(opts, avrFlashTimeout)
	if o.Programmer == "" {
		o.Programmer = "arduino"
	}

	args := []string{
		"-p", a.part,
		"-c", o.Programmer,
		"-U", "flash:w:" + firmwarePath + ":i",
		"-P", dev.Port,
	}
	if baudFlagProgrammers[o.Programmer] {
		args = append(args, "-b", strconv.Itoa(o.BaudRate))
	}
	if o.Erase {
		args = append(args, "-e")
	}
	args = append(args, "-v")

	res := a.runner.Run(ctx, o.Timeout, avrdudeBin, args...)
	out := flashOutcome(res, dev.Port, avrBytesRe, fileSize(firmwarePath))
	return a.finishFlash(ctx, out, firmwarePath, dev, o)
}

func (a *AVRAdapter) VerifyFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, expectedHash string) VerifyResult {
	return a.verifyImage(ctx, firmwarePath, dev, expectedHash)
}
