package models

import (
	"time"

	"github.com/google/uuid"
)

// RunTrigger tells what started a generation run
type RunTrigger string

const (
	RunTriggerManual   RunTrigger = "manual"
	RunTriggerSchedule RunTrigger = "schedule"
)

// RunStatus represents the status of a generation run
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusInProgress RunStatus = "in-progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// GenerationRun records one pass of the confirmation pipeline over the calendar
type GenerationRun struct {
	ID              string     `json:"id"`
	Trigger         RunTrigger `json:"trigger"`
	Status          RunStatus  `json:"status"`
	ErrorMessage    *string    `json:"error_message"`
	EventsScanned   int        `json:"events_scanned"`
	PairsEvaluated  int        `json:"pairs_evaluated"`
	PairsSkipped    int        `json:"pairs_skipped"`
	PairsExcluded   int        `json:"pairs_excluded"`
	ItemsUpserted   int        `json:"items_upserted"`
	ContactsCreated int        `json:"contacts_created"`
	WorkerID        *string    `json:"worker_id"`
	StartedAt       *time.Time `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewGenerationRun creates a new pending GenerationRun with a generated UUID
func NewGenerationRun(trigger RunTrigger) *GenerationRun {
	now := time.Now()
	return &GenerationRun{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		Status:    RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsPending checks if the run is waiting for a worker
func (r *GenerationRun) IsPending() bool {
	return r.Status == RunStatusPending
}

// IsCompleted checks if the run finished successfully
func (r *GenerationRun) IsCompleted() bool {
	return r.Status == RunStatusCompleted
}

// IsFailed checks if the run failed
func (r *GenerationRun) IsFailed() bool {
	return r.Status == RunStatusFailed
}

// MarkStarted marks the run as started
func (r *GenerationRun) MarkStarted() {
	now := time.Now()
	r.Status = RunStatusInProgress
	r.StartedAt = &now
	r.UpdatedAt = now
}

// MarkCompleted marks the run as completed
func (r *GenerationRun) MarkCompleted() {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkFailed marks the run as failed with the given error message
func (r *GenerationRun) MarkFailed(message string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.ErrorMessage = &message
	r.CompletedAt = &now
	r.UpdatedAt = now
}
