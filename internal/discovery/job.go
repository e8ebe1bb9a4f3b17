package discovery

import "time"

// Status is the state of a project's discovery job.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is a snapshot of a project's discovery job.
type Job struct {
	ProjectID    string    `json:"project_id"`
	Status       Status    `json:"status"`
	RunID        string    `json:"run_id,omitempty"`
	Force        bool      `json:"force,omitempty"`
	StartedAt    time.Time `json:"started_at,omitzero"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
	FeatureCount int       `json:"feature_count"`
	Error        string    `json:"error,omitempty"`
}

// EnqueueStatus is what Enqueue did.
type EnqueueStatus string

const (
	EnqueueStarted        EnqueueStatus = "started"
	EnqueueAlreadyRunning EnqueueStatus = "already_running"
	EnqueueSkipped        EnqueueStatus = "skipped"
)

// EnqueueResult pairs the enqueue decision with the job it refers to.
type EnqueueResult struct {
	Status EnqueueStatus `json:"status"`
	Job    Job           `json:"job"`
}
