package ledger

import "time"

// Status represents the recorded outcome of a document within a run.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Record is one document's row within a run.
type Record struct {
	RunID        string
	DocumentID   string
	Source       string
	Status       Status
	Attempts     int
	OutputPath   string
	ErrorMessage string
	UpdatedAt    time.Time
}

// Run summarizes a single orchestrator invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Succeeded  int
	Failed     int
	Skipped    int
}
