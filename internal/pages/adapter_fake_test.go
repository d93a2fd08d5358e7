package pages

import (
	"context"
	"sync"

	"github.com/buckleypaul/uplink/internal/profile"
	"github.com/buckleypaul/uplink/internal/uploader"
)

type buildCall struct {
	outputPath string
	patternLen int
}

type flashCall struct {
	path string
	dev  uploader.DeviceInfo
	opts uploader.FlashOptions
}

type verifyCall struct {
	path         string
	dev          uploader.DeviceInfo
	expectedHash string
}

// fakeAdapter satisfies uploader.Adapter with canned results and
// records every call. The mutex matters when the batch orchestrator
// drives it from worker goroutines.
type fakeAdapter struct {
	mu sync.Mutex

	chipID  string
	variant string
	prof    profile.Profile
	reqs    []string

	detectOK     bool
	detectInfo   uploader.DeviceInfo
	buildResult  uploader.BuildResult
	flashResult  uploader.FlashResult
	verifyResult uploader.VerifyResult

	detectCalls []string
	buildCalls  []buildCall
	flashCalls  []flashCall
	verifyCalls []verifyCall
}

func newFakeAdapter(chipID string) *fakeAdapter {
	return &fakeAdapter{
		chipID: chipID,
		prof:   profile.Default(chipID, ""),
		buildResult: uploader.BuildResult{
			Success:      true,
			FirmwarePath: "/tmp/" + chipID + ".bin",
			ArtifactHash: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			Size:         128,
		},
		flashResult:  uploader.FlashResult{Status: uploader.FlashSuccess, BytesWritten: 128},
		verifyResult: uploader.VerifyResult{Status: uploader.VerifySuccess},
	}
}

func (f *fakeAdapter) ChipID() string      { return f.chipID }
func (f *fakeAdapter) ChipVariant() string { return f.variant }

func (f *fakeAdapter) Profile() profile.Profile { return f.prof }

func (f *fakeAdapter) Requirements() []string { return f.reqs }

func (f *fakeAdapter) DetectDevice(ctx context.Context, port string) (uploader.DeviceInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detectCalls = append(f.detectCalls, port)
	return f.detectInfo, f.detectOK
}

func (f *fakeAdapter) BuildFirmware(ctx context.Context, pattern []byte, outputPath string, opts *uploader.BuildOptions) uploader.BuildResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buildCalls = append(f.buildCalls, buildCall{outputPath: outputPath, patternLen: len(pattern)})
	return f.buildResult
}

func (f *fakeAdapter) FlashFirmware(ctx context.Context, firmwarePath string, dev uploader.DeviceInfo, opts *uploader.FlashOptions) uploader.FlashResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := flashCall{path: firmwarePath, dev: dev}
	if opts != nil {
		call.opts = *opts
	}
	f.flashCalls = append(f.flashCalls, call)
	res := f.flashResult
	res.Port = dev.Port
	return res
}

func (f *fakeAdapter) VerifyFirmware(ctx context.Context, firmwarePath string, dev uploader.DeviceInfo, expectedHash string) uploader.VerifyResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls = append(f.verifyCalls, verifyCall{path: firmwarePath, dev: dev, expectedHash: expectedHash})
	return f.verifyResult
}

// fakeRegistry builds a registry holding just the given fakes.
func fakeRegistry(fakes ...*fakeAdapter) *uploader.Registry {
	reg := uploader.NewRegistry()
	for _, f := range fakes {
		reg.Register(f)
	}
	return reg
}
