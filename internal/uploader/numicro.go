package uploader

import (
	"context"
	"time"
)

const (
	nulinkBin           = "nu-link"
	numicroFlashTimeout = 120 * time.Second
)

// NuMicroAdapter programs Nuvoton NuMicro chips through the Nu-Link
// command line host.
type NuMicroAdapter struct {
	base
}

// NewNuMicroM031 targets the NuMicro M031 series.
func NewNuMicroM031(opts ...Option) *NuMicroAdapter {
	return &NuMicroAdapter{base: newBase("numicro", "m031", "bin", opts)}
}

func (a *NuMicroAdapter) Requirements() []string {
	return []string{nulinkBin}
}

// DetectDevice reports nothing: the Nu-Link probe is not a serial port.
func (a *NuMicroAdapter) DetectDevice(ctx context.Context, port string) (DeviceInfo, bool) {
	return DeviceInfo{}, false
}

func (a *NuMicroAdapter) BuildFirmware(ctx context.Context, pattern []byte, outputPath string, opts *BuildOptions) BuildResult {
	return a.buildImage(ctx, pattern, outputPath, opts)
}

func (a *NuMicroAdapter) FlashFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, opts *FlashOptions) FlashResult {
	o := a.flashOptions(opts, numicroFlashTimeout)

	res := a.runner.Run(ctx, o.Timeout, nulinkBin, "program", firmwarePath)
	out := flashOutcome(res, dev.Port, nil, fileSize(firmwarePath))
	return a.finishFlash(ctx, out, firmwarePath, dev, o)
}

func (a *NuMicroAdapter) VerifyFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, expectedHash string) VerifyResult {
	return a.verifyImage(ctx, firmwarePath, dev, expectedHash)
}
