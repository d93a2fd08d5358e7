// Package toolchain executes external flashing and build tools. The
// Runner interface is the seam the uploader adapters run commands
// through; tests substitute fakes.
package toolchain

import (
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// maxCapture caps how much combined output a command may accumulate.
const maxCapture = 1 << 20

// Result bundles the combined output of a finished command.
type Result struct {
	Output    string
	ExitCode  int
	Duration  time.Duration
	TimedOut  bool
	Truncated bool
	Err       error
}

// Ok reports whether the command ran to completion with exit code zero.
func (r Result) Ok() bool {
	return r.Err == nil && !r.TimedOut && r.ExitCode == 0
}

// Runner executes external commands with a bounded lifetime.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) Result
}

// ExecRunner shells out via os/exec, merging stderr into stdout the way
// the tools' own consoles do.
type ExecRunner struct {
	Log *slog.Logger
}

// NewExecRunner returns a Runner backed by the host's PATH.
func NewExecRunner(log *slog.Logger) ExecRunner {
	if log == nil {
		log = slog.Default()
	}
	return ExecRunner{Log: log}
}

func (r ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) Result {
	start := time.Now()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	buf := &boundedBuffer{}
	cmd.Stdout = buf
	cmd.Stderr = buf

	err := cmd.Run()
	res := Result{
		Output:    buf.String(),
		Duration:  time.Since(start),
		TimedOut:  ctx.Err() == context.DeadlineExceeded,
		Truncated: buf.truncated,
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Err = err
		}
	}
	if r.Log != nil {
		r.Log.Debug("command finished",
			"cmd", name,
			"exit", res.ExitCode,
			"duration", res.Duration,
			"timed_out", res.TimedOut,
		)
	}
	return res
}

// boundedBuffer keeps the first maxCapture bytes and drops the rest.
type boundedBuffer struct {
	buf       []byte
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	room := maxCapture - len(b.buf)
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf = append(b.buf, p[:room]...)
		b.truncated = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *boundedBuffer) String() string { return string(b.buf) }
