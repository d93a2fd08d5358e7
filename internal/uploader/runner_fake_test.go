package uploader

import (
	"context"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/buckleypaul/uplink/internal/toolchain"
	"github.com/buckleypaul/uplink/internal/verify"
)

type runCall struct {
	name    string
	args    []string
	timeout time.Duration
}

func (c runCall) argv() string {
	return c.name + " " + strings.Join(c.args, " ")
}

type cannedResult struct {
	match string
	res   toolchain.Result
}

// fakeRunner records every invocation and replays canned results matched
// by argv substring, first stub wins. The zero default is a clean exit.
type fakeRunner struct {
	calls  []runCall
	canned []cannedResult
	def    toolchain.Result
}

func (f *fakeRunner) stub(match string, res toolchain.Result) *fakeRunner {
	f.canned = append(f.canned, cannedResult{match: match, res: res})
	return f
}

func (f *fakeRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) toolchain.Result {
	f.calls = append(f.calls, runCall{
		name:    name,
		args:    append([]string(nil), args...),
		timeout: timeout,
	})
	joined := name + " " + strings.Join(args, " ")
	for _, c := range f.canned {
		if strings.Contains(joined, c.match) {
			return c.res
		}
	}
	return f.def
}

func (f *fakeRunner) lastCall() runCall {
	if len(f.calls) == 0 {
		return runCall{}
	}
	return f.calls[len(f.calls)-1]
}

// scriptPort feeds canned console bytes to the verify reader.
type scriptPort struct {
	serial.Port
	data []byte
	off  int
}

func (p *scriptPort) Read(b []byte) (int, error) {
	if p.off >= len(p.data) {
		return 0, nil
	}
	n := copy(b, p.data[p.off:])
	p.off += n
	return n, nil
}

func (p *scriptPort) SetReadTimeout(time.Duration) error { return nil }
func (p *scriptPort) Close() error                       { return nil }

// deviceHashReader builds a DeviceReader whose device reports the given
// hash. opened tracks whether the port was ever touched.
func deviceHashReader(hash string, openErr error, opened *bool) verify.DeviceReader {
	r := verify.NewDeviceReader(nil)
	r.BootWait = 0
	r.ReadWindow = 100 * time.Millisecond
	r.OpenPort = func(string, *serial.Mode) (serial.Port, error) {
		if opened != nil {
			*opened = true
		}
		if openErr != nil {
			return nil, openErr
		}
		return &scriptPort{data: []byte("FIRMWARE_HASH:" + hash + "\n")}, nil
	}
	return r
}

func listerOf(ports ...string) func() ([]string, error) {
	return func() ([]string, error) { return ports, nil }
}

func toolchainFail(code int) toolchain.Result {
	return toolchain.Result{ExitCode: code, Output: "tool reported failure"}
}
