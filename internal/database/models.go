package database

import "time"

// Run modes.
const (
	ModeSingle = "single"
	ModeAll    = "all"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one invocation of the generator.
type Run struct {
	ID          string
	Mode        string // "single" or "all"
	Dev         bool
	RecordID    *string
	Status      string
	Error       *string
	RecordCount int
	ImageCount  int
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunOutcome is what FinishRun records.
type RunOutcome struct {
	Err         error
	RecordCount int
	ImageCount  int
}

// Report is one client bundle written by a run.
type Report struct {
	ID             int64
	RunID          string
	Client         string
	Slug           string
	Path           string
	AuditCount     int
	OverallAverage float64
	ImageCount     int
	GeneratedAt    time.Time
}

// Stats holds aggregate history statistics.
type Stats struct {
	TotalRuns     int
	FailedRuns    int
	DevRuns       int
	TotalReports  int
	Clients       int
	ImagesWritten int
	LastRunAt     *time.Time
}
