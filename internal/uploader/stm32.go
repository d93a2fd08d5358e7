package uploader

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	stm32flashBin     = "stm32flash"
	stflashBin        = "st-flash"
	stinfoBin         = "st-info"
	stm32FlashTimeout = 120 * time.Second
)

var stm32WroteRe = regexp.MustCompile(`(?i)wrote (\d+) bytes`)

// STM32Adapter flashes STM32F1 boards over the ROM serial bootloader
// (stm32flash) or an attached ST-LINK probe (st-flash).
type STM32Adapter struct {
	base
}

// NewSTM32F1 targets STM32F103 class boards.
func NewSTM32F1(opts ...Option) *STM32Adapter {
	return &STM32Adapter{base: newBase("stm32f1", "", "bin", opts)}
}

func (a *STM32Adapter) Requirements() []string {
	return []string{stm32flashBin, stflashBin}
}

// useSerial picks the flashing method the way the port looks: a serial
// device path means the ROM bootloader, anything else falls back to an
// ST-LINK probe when one of its tools is on PATH.
func (a *STM32Adapter) useSerial(port string) bool {
	if port == "" {
		return false
	}
	return strings.HasPrefix(port, "/dev/") || strings.HasPrefix(strings.ToUpper(port), "COM")
}

func (a *STM32Adapter) DetectDevice(ctx context.Context, port string) (DeviceInfo, bool) {
	if port != "" {
		return a.probeSerial(ctx, port)
	}
	if a.toolAvailable(stinfoBin) {
		return a.probeSTLink(ctx)
	}
	return a.scanPorts(ctx, func(ctx context.Context, p string) (DeviceInfo, bool) {
		return a.probeSerial(ctx, p)
	})
}

// probeSerial only answers when the chip sits in its ROM bootloader;
// anything else fails the handshake with a nonzero exit.
func (a *STM32Adapter) probeSerial(ctx context.Context, port string) (DeviceInfo, bool) {
	res := a.runner.Run(ctx, detectTimeout, stm32flashBin, port)
	if !res.Ok() || !strings.Contains(res.Output, "Version") {
		return DeviceInfo{}, false
	}
	desc := "STM32 serial bootloader"
	for _, line := range strings.Split(res.Output, "\n") {
		if strings.Contains(line, "Device ID") {
			desc = strings.TrimSpace(line)
			break
		}
	}
	return DeviceInfo{Port: port, ChipID: a.chipID, Description: desc}, true
}

func (a *STM32Adapter) probeSTLink(ctx context.Context) (DeviceInfo, bool) {
	res := a.runner.Run(ctx, detectTimeout, stinfoBin, "--probe")
	if !res.Ok() || !strings.Contains(res.Output, "Found 1 stlink") {
		return DeviceInfo{}, false
	}
	return DeviceInfo{ChipID: a.chipID, Description: "ST-LINK probe"}, true
}

func (a *STM32Adapter) BuildFirmware(ctx context.Context, pattern []byte, outputPath string, opts *BuildOptions) BuildResult {
	return a.buildImage(ctx, pattern, outputPath, opts)
}

func (a *STM32Adapter) FlashFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, opts *FlashOptions) FlashResult {
	o := a.flashOptions(opts, stm32FlashTimeout)
	addr := a.Profile().FlashDefaults.Offset
	if addr == "" {
		addr = "0x08000000"
	}

	switch {
	case a.useSerial(dev.Port):
		res := a.runner.Run(ctx, o.Timeout, stm32flashBin,
			"-b", strconv.Itoa(o.BaudRate),
			"-w", firmwarePath,
			"-v",
			"-g", addr,
			dev.Port)
		out := flashOutcome(res, dev.Port, stm32WroteRe, fileSize(firmwarePath))
		return a.finishFlash(ctx, out, firmwarePath, dev, o)
	case a.toolAvailable(stflashBin):
		res := a.runner.Run(ctx, o.Timeout, stflashBin, "write", firmwarePath, addr)
		out := flashOutcome(res, dev.Port, stm32WroteRe, fileSize(firmwarePath))
		return a.finishFlash(ctx, out, firmwarePath, dev, o)
	default:
		return FlashResult{Port: dev.Port, Err: "no flashing method: need a serial port or st-flash on PATH"}
	}
}

func (a *STM32Adapter) VerifyFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, expectedHash string) VerifyResult {
	return a.verifyImage(ctx, firmwarePath, dev, expectedHash)
}
