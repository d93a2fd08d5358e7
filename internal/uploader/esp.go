package uploader

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	esptoolBin      = "esptool.py"
	espFlashTimeout = 60 * time.Second
	espEraseTimeout = 30 * time.Second
)

var espWroteRe = regexp.MustCompile(`Wrote (\d+) bytes`)

// espVariant fixes the esptool parameters that differ between Espressif
// chips. Flashing tunables (offset, mode, frequency, size, baud) come
// from the chip profile so descriptors can override them.
type espVariant struct {
	chipID   string
	variant  string
	chipArg  string // esptool --chip value
	probeTag string // marker expected in esptool chip_id output
}

// ESPAdapter drives the esptool-based Espressif chips.
type ESPAdapter struct {
	base
	spec espVariant
}

func newESP(spec espVariant, opts []Option) *ESPAdapter {
	return &ESPAdapter{base: newBase(spec.chipID, spec.variant, "bin", opts), spec: spec}
}

// NewESP32 targets the original ESP32.
func NewESP32(opts ...Option) *ESPAdapter {
	return newESP(espVariant{chipID: "esp32", chipArg: "esp32", probeTag: "ESP32"}, opts)
}

// NewESP32S2 targets the ESP32-S2 variant.
func NewESP32S2(opts ...Option) *ESPAdapter {
	return newESP(espVariant{chipID: "esp32", variant: "s2", chipArg: "esp32s2", probeTag: "ESP32-S2"}, opts)
}

// NewESP32C3 targets the RISC-V ESP32-C3 variant.
func NewESP32C3(opts ...Option) *ESPAdapter {
	return newESP(espVariant{chipID: "esp32", variant: "c3", chipArg: "esp32c3", probeTag: "ESP32-C3"}, opts)
}

// NewESP8266 targets the ESP8266.
func NewESP8266(opts ...Option) *ESPAdapter {
	return newESP(espVariant{chipID: "esp8266", chipArg: "esp8266", probeTag: "ESP8266"}, opts)
}

func (a *ESPAdapter) Requirements() []string {
	return []string{esptoolBin}
}

func (a *ESPAdapter) DetectDevice(ctx context.Context, port string) (DeviceInfo, bool) {
	if port == "" {
		return a.scanPorts(ctx, a.probe)
	}
	return a.probe(ctx, port)
}

func (a *ESPAdapter) probe(ctx context.Context, port string) (DeviceInfo, bool) {
	res := a.runner.Run(ctx, detectTimeout, esptoolBin, "chip_id", "--port", port)
	if !res.Ok() || !strings.Contains(res.Output, a.spec.probeTag) {
		return DeviceInfo{}, false
	}
	return DeviceInfo{
		Port:        port,
		ChipID:      a.chipID,
		ChipVariant: a.variant,
		Description: chipLine(res.Output),
	}, true
}

func (a *ESPAdapter) BuildFirmware(ctx context.Context, pattern []byte, outputPath string, opts *BuildOptions) BuildResult {
	return a.buildImage(ctx, pattern, outputPath, opts)
}

func (a *ESPAdapter) FlashFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, opts *FlashOptions) FlashResult {
	if dev.Port == "" {
		return FlashResult{Err: "no port specified"}
	}
	o := a.flashOptions(opts, espFlashTimeout)
	p := a.Profile()

	if o.Erase {
		eres := a.runner.Run(ctx, espEraseTimeout, esptoolBin,
			"--chip", a.spec.chipArg, "--port", dev.Port, "erase_flash")
		if !eres.Ok() {
			out := flashOutcome(eres, dev.Port, nil, 0)
			out.Err = "erase: " + out.Err
			return out
		}
	}

	offset := p.FlashDefaults.Offset
	if offset == "" {
		offset = "0x0"
	}
	mode := p.FlashDefaults.FlashMode
	if mode == "" {
		mode = "dio"
	}
	freq := p.FlashDefaults.FlashFreq
	if freq == "" {
		freq = "40m"
	}
	size := p.FlashDefaults.FlashSize
	if size == "" {
		size = "4MB"
	}

	res := a.runner.Run(ctx, o.Timeout, esptoolBin,
		"--chip", a.spec.chipArg,
		"--port", dev.Port,
		"--baud", strconv.Itoa(o.BaudRate),
		"write_flash",
		"--flash_mode", mode,
		"--flash_freq", freq,
		"--flash_size", size,
		offset, firmwarePath)
	out := flashOutcome(res, dev.Port, espWroteRe, fileSize(firmwarePath))
	return a.finishFlash(ctx, out, firmwarePath, dev, o)
}

func (a *ESPAdapter) VerifyFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, expectedHash string) VerifyResult {
	return a.verifyImage(ctx, firmwarePath, dev, expectedHash)
}

// chipLine pulls the "Chip is ..." line out of esptool output.
func chipLine(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Chip is ") {
			return line
		}
	}
	return ""
}
