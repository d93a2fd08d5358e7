package uploader

import (
	"log/slog"

	"github.com/buckleypaul/uplink/internal/serial"
	"github.com/buckleypaul/uplink/internal/toolchain"
	"github.com/buckleypaul/uplink/internal/verify"
)

// settings carries the injectable collaborators shared by all adapters.
type settings struct {
	runner        toolchain.Runner
	log           *slog.Logger
	profileDir    string
	listPorts     func() ([]string, error)
	reader        verify.DeviceReader
	toolAvailable func(string) bool
}

// Option configures an adapter or registry at construction time.
type Option func(*settings)

// WithRunner substitutes the subprocess runner.
func WithRunner(r toolchain.Runner) Option {
	return func(s *settings) { s.runner = r }
}

// WithLogger sets the logger adapters report through.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProfileDir points adapters at a directory of JSON chip descriptors.
func WithProfileDir(dir string) Option {
	return func(s *settings) { s.profileDir = dir }
}

// WithPortLister substitutes the port enumeration used by detection scans.
func WithPortLister(f func() ([]string, error)) Option {
	return func(s *settings) { s.listPorts = f }
}

// WithDeviceReader substitutes the serial hash readback used by verification.
func WithDeviceReader(r verify.DeviceReader) Option {
	return func(s *settings) { s.reader = r }
}

func newSettings(opts []Option) settings {
	s := settings{
		runner:        toolchain.NewExecRunner(nil),
		log:           slog.Default(),
		listPorts:     serial.Names,
		reader:        verify.NewDeviceReader(nil),
		toolAvailable: toolchain.Available,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
