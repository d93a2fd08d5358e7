package batch

import (
	"time"

	"github.com/buckleypaul/uplink/internal/uploader"
)

// State tracks a job through its lifecycle. Transitions only move
// forward: pending, building, flashing, verifying, then done or failed.
type State int

const (
	StatePending State = iota
	StateBuilding
	StateFlashing
	StateVerifying
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateBuilding:
		return "building"
	case StateFlashing:
		return "flashing"
	case StateVerifying:
		return "verifying"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the state ends a job.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Job names one device to flash.
type Job struct {
	ID          string
	Port        string
	ChipID      string
	ChipVariant string
	Options     *uploader.FlashOptions
}

// Result is the terminal record of one job. The phase results that did
// not run stay zero.
type Result struct {
	Job      Job
	State    State
	Build    uploader.BuildResult
	Flash    uploader.FlashResult
	Verify   uploader.VerifyResult
	Err      string
	Duration time.Duration
}

// Report aggregates a finished batch. Results holds one entry per
// submitted job, in submission order, failures included.
type Report struct {
	Results    []Result
	Total      int
	Succeeded  int
	Failed     int
	TotalBytes int64
	Duration   time.Duration
}

// SuccessRate is the fraction of jobs that reached done, 0 through 1.
func (r Report) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Total)
}

// Errors collects the failure messages, one line per failed job.
func (r Report) Errors() []string {
	var out []string
	for _, res := range r.Results {
		if res.State != StateFailed {
			continue
		}
		msg := res.Err
		if msg == "" {
			msg = "failed"
		}
		out = append(out, res.Job.ID+": "+msg)
	}
	return out
}

// Event reports one job state change while a batch runs. Completed
// counts jobs that have reached a terminal state so far.
type Event struct {
	JobID     string
	Port      string
	State     State
	Message   string
	Completed int
	Total     int
}
