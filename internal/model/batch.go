package model

import "time"

// ProviderState tracks a record's position in the per-provider state machine.
type ProviderState string

const (
	StatePending      ProviderState = "pending"
	StateValidation   ProviderState = "validation"
	StateEnrichment   ProviderState = "enrichment"
	StateQA           ProviderState = "qa"
	StateCorrection   ProviderState = "correction"
	StateManualReview ProviderState = "manual_review"
	StateCompleted    ProviderState = "completed"
	StateFailed       ProviderState = "failed"
)

// OutcomeStatus is the terminal disposition of one provider in a batch.
// PersistFailed means the record was scored but the store write failed, so
// the result must not be treated as final.
type OutcomeStatus string

const (
	OutcomeAutoResolve   OutcomeStatus = "auto_resolve"
	OutcomeManualReview  OutcomeStatus = "manual_review"
	OutcomeFailed        OutcomeStatus = "failed"
	OutcomePersistFailed OutcomeStatus = "persist_failed"

	// OutcomePending marks rows imported ahead of a pipeline run.
	OutcomePending OutcomeStatus = "pending"
)

// ProviderOutcome is the per-provider line item in a BatchResult.
type ProviderOutcome struct {
	ProviderID  string        `json:"provider_id"`
	Status      OutcomeStatus `json:"action"`
	Confidence  int           `json:"confidence"`
	Risk        int           `json:"risk"`
	Corrections int           `json:"corrections"`
	Error       string        `json:"error,omitempty"`
}

// BatchResult aggregates one orchestrator batch run.
type BatchResult struct {
	JobID          string            `json:"job_id"`
	Total          int               `json:"total"`
	AutoResolved   int               `json:"auto_resolved"`
	ManualReview   int               `json:"manual_review"`
	Errors         int               `json:"errors"`
	PersistFailed  int               `json:"persist_failed"`
	ProcessingTime float64           `json:"processing_time"`
	Providers      []ProviderOutcome `json:"providers"`
}

// JobStatus is the persisted lifecycle state of a batch job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
)

// Job is the persisted batch bookkeeping row. Created at batch start,
// updated once at completion, never deleted.
type Job struct {
	JobID       string       `json:"job_id"`
	BatchSize   int          `json:"batch_size"`
	Status      JobStatus    `json:"status"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Metrics     *BatchResult `json:"metrics,omitempty"`
}

// QueueItem is one provider awaiting manual review. Priority carries the
// provider's risk score so reviewers see the riskiest records first.
type QueueItem struct {
	ID         int64     `json:"id"`
	ProviderID string    `json:"provider_id"`
	Priority   int       `json:"priority"`
	Status     string    `json:"status"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueueStatusPending marks an unclaimed review item.
const QueueStatusPending = "pending"

// ProviderRow is the persisted provider record plus pipeline disposition.
type ProviderRow struct {
	Record    ProviderRecord `json:"record"`
	Status    OutcomeStatus  `json:"status"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SummaryReport is the derived per-job report exposed to the presentation
// layer.
type SummaryReport struct {
	JobID              string  `json:"job_id"`
	TotalProviders     int     `json:"total_providers"`
	AutoResolved       int     `json:"auto_resolved"`
	ManualReview       int     `json:"manual_review"`
	Errors             int     `json:"errors"`
	SuccessRate        float64 `json:"success_rate"`
	ProcessingTime     float64 `json:"processing_time"`
	AvgTimePerProvider float64 `json:"avg_time_per_provider"`
}

// Stats is the system-wide snapshot served by the stats endpoint.
type Stats struct {
	TotalProviders  int     `json:"total_providers"`
	AutoResolved    int     `json:"auto_resolved"`
	ManualReview    int     `json:"manual_review"`
	TotalJobs       int     `json:"total_jobs"`
	AutoResolveRate float64 `json:"auto_resolve_rate"`
}
