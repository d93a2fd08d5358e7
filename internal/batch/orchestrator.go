// Package batch drives firmware uploads across many devices at once.
// Jobs run on a bounded worker pool, firmware is built once per chip
// target, and every run ends in a full report even when jobs fail or
// the batch is cancelled.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/buckleypaul/uplink/internal/uploader"
	"github.com/buckleypaul/uplink/internal/verify"
)

// DefaultConcurrency bounds simultaneous uploads. Flashing saturates
// host USB bandwidth quickly, so the pool stays small.
const DefaultConcurrency = 4

const defaultCacheSize = 32

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency sets the worker pool size.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.workers = n }
}

// WithBuildDir sets the directory firmware artifacts are written to.
func WithBuildDir(dir string) Option {
	return func(o *Orchestrator) { o.buildDir = dir }
}

// WithLogger routes orchestrator logging.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithProgress registers a callback invoked on every job state change.
// The callback runs on worker goroutines and must not block for long.
func WithProgress(fn func(Event)) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

// WithCacheSize bounds the built-artifact cache.
func WithCacheSize(n int) Option {
	return func(o *Orchestrator) { o.cacheSize = n }
}

// Orchestrator fans flash jobs out over a bounded worker pool. Built
// firmware is shared between jobs targeting the same chip and kept in
// an LRU cache across runs, keyed by chip and pattern hash.
type Orchestrator struct {
	registry  *uploader.Registry
	buildDir  string
	workers   int
	cacheSize int
	log       *slog.Logger
	progress  func(Event)

	cache *lru.Cache[string, uploader.BuildResult]

	mu         sync.Mutex
	buildLocks map[string]*sync.Mutex
}

// New wires an orchestrator around a registry.
func New(registry *uploader.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:   registry,
		workers:    DefaultConcurrency,
		cacheSize:  defaultCacheSize,
		log:        slog.Default(),
		buildLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.cacheSize < 1 {
		o.cacheSize = 1
	}
	if o.buildDir == "" {
		o.buildDir = filepath.Join(os.TempDir(), "uplink-build")
	}
	o.cache, _ = lru.New[string, uploader.BuildResult](o.cacheSize)
	return o
}

// Run flashes the pattern to every job's device and returns the full
// report. One job's failure never aborts its siblings; cancellation
// marks the jobs that had not finished as failed with reason
// "cancelled". Results come back in submission order.
func (o *Orchestrator) Run(ctx context.Context, pattern []byte, jobs []Job) Report {
	start := time.Now()
	report := Report{Total: len(jobs), Results: make([]Result, len(jobs))}
	if len(jobs) == 0 {
		report.Duration = time.Since(start)
		return report
	}

	patternHash := verify.HashBytes(pattern)
	tracker := &progressTracker{emit: o.progress, total: len(jobs)}

	type indexed struct {
		idx int
		job Job
	}
	in := make(chan indexed, len(jobs))
	for i, j := range jobs {
		in <- indexed{idx: i, job: j}
	}
	close(in)

	workers := o.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for ij := range in {
				report.Results[ij.idx] = o.runJob(ctx, pattern, patternHash, ij.job, tracker)
			}
		}()
	}
	wg.Wait()

	for _, r := range report.Results {
		if r.State == StateDone {
			report.Succeeded++
			report.TotalBytes += r.Flash.BytesWritten
		} else {
			report.Failed++
		}
	}
	report.Duration = time.Since(start)
	o.log.Info("batch finished",
		"jobs", report.Total, "succeeded", report.Succeeded, "failed", report.Failed,
		"duration", report.Duration.Round(time.Millisecond))
	return report
}

// runJob walks one job through build, flash and verify. Every exit
// path yields a terminal result; nothing propagates to sibling jobs.
func (o *Orchestrator) runJob(ctx context.Context, pattern []byte, patternHash string, job Job, tr *progressTracker) Result {
	start := time.Now()
	res := Result{Job: job, State: StatePending}
	finish := func(st State, msg string) Result {
		res.State = st
		if st == StateFailed {
			res.Err = msg
		}
		res.Duration = time.Since(start)
		tr.send(job, st, msg)
		return res
	}

	ad, ok := o.registry.Get(job.ChipID, job.ChipVariant)
	if !ok {
		return finish(StateFailed, fmt.Sprintf("no adapter for chip %q", uploader.Key(job.ChipID, job.ChipVariant)))
	}

	if ctx.Err() != nil {
		return finish(StateFailed, "cancelled")
	}
	tr.send(job, StateBuilding, "")
	res.Build = o.buildFor(ctx, ad, pattern, patternHash)
	if !res.Build.Success {
		return finish(StateFailed, "build: "+res.Build.Err)
	}

	opts, wantVerify := splitVerify(job.Options)

	if ctx.Err() != nil {
		return finish(StateFailed, "cancelled")
	}
	tr.send(job, StateFlashing, "")
	dev := uploader.DeviceInfo{Port: job.Port, ChipID: ad.ChipID(), ChipVariant: ad.ChipVariant()}
	res.Flash = ad.FlashFirmware(ctx, res.Build.FirmwarePath, dev, opts)
	if res.Flash.Status != uploader.FlashSuccess {
		msg := res.Flash.Err
		if msg == "" {
			msg = res.Flash.Status.String()
		}
		return finish(StateFailed, "flash: "+msg)
	}

	if wantVerify {
		if ctx.Err() != nil {
			return finish(StateFailed, "cancelled")
		}
		tr.send(job, StateVerifying, "")
		res.Verify = ad.VerifyFirmware(ctx, res.Build.FirmwarePath, dev, res.Build.ArtifactHash)
		if res.Verify.Status != uploader.VerifySuccess {
			return finish(StateFailed, "verify: "+res.Verify.Detail)
		}
	}
	return finish(StateDone, fmt.Sprintf("wrote %d bytes", res.Flash.BytesWritten))
}

// buildFor returns the firmware artifact for the adapter's chip,
// building it at most once per chip and pattern. The first caller
// builds under a key-scoped lock; later callers reuse the cached
// artifact. Flash and verify phases are never serialized by this lock.
func (o *Orchestrator) buildFor(ctx context.Context, ad uploader.Adapter, pattern []byte, patternHash string) uploader.BuildResult {
	chip := uploader.Key(ad.ChipID(), ad.ChipVariant())
	key := chip + ":" + patternHash

	lock := o.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if cached, ok := o.cache.Get(key); ok {
		if _, err := os.Stat(cached.FirmwarePath); err == nil {
			o.log.Debug("reusing cached firmware", "chip", chip, "path", cached.FirmwarePath)
			return cached
		}
		o.cache.Remove(key)
	}

	out := filepath.Join(o.buildDir, artifactName(ad, chip, patternHash))
	built := ad.BuildFirmware(ctx, pattern, out, nil)
	if built.Success {
		o.cache.Add(key, built)
	}
	return built
}

func (o *Orchestrator) lockFor(key string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.buildLocks[key]
	if !ok {
		l = &sync.Mutex{}
		o.buildLocks[key] = l
	}
	return l
}

// artifactName derives a stable file name from the chip and pattern,
// with the chip profile's first supported format as the extension.
func artifactName(ad uploader.Adapter, chip, patternHash string) string {
	ext := "bin"
	if formats := ad.Profile().SupportedFormats; len(formats) > 0 {
		ext = formats[0]
	}
	tag := strings.ReplaceAll(chip, ":", "-")
	return fmt.Sprintf("%s-%s.%s", tag, patternHash[:12], ext)
}

// splitVerify strips the verify flag out of the flash options. The
// orchestrator drives verification as its own phase, so the adapter
// must not verify a second time inside the flash call.
func splitVerify(opts *uploader.FlashOptions) (*uploader.FlashOptions, bool) {
	if opts == nil {
		return nil, false
	}
	c := *opts
	want := c.Verify
	c.Verify = false
	return &c, want
}

// progressTracker serializes event emission and counts finished jobs.
type progressTracker struct {
	emit  func(Event)
	total int

	mu        sync.Mutex
	completed int
}

func (t *progressTracker) send(job Job, st State, msg string) {
	t.mu.Lock()
	if st.Terminal() {
		t.completed++
	}
	ev := Event{
		JobID:     job.ID,
		Port:      job.Port,
		State:     st,
		Message:   msg,
		Completed: t.completed,
		Total:     t.total,
	}
	emit := t.emit
	t.mu.Unlock()
	if emit != nil {
		emit(ev)
	}
}
