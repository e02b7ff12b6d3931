// Package models defines the data structures used throughout sc2fix
package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal result of processing one replay file
type Outcome string

const (
	// OutcomeFixed the signature was patched and a -FIXED copy written
	OutcomeFixed Outcome = "fixed"

	// OutcomeAlreadyFixed the file name carries the -FIXED marker; nothing written
	OutcomeAlreadyFixed Outcome = "already_fixed"

	// OutcomePatternNotFound the replay does not contain the known corruption
	OutcomePatternNotFound Outcome = "pattern_not_found"

	// OutcomeInvalidFormat the file is not a replay
	OutcomeInvalidFormat Outcome = "invalid_format"

	// OutcomeIOFailure reading or writing failed
	OutcomeIOFailure Outcome = "io_failure"

	// OutcomeCancelled the task was withdrawn before writing
	OutcomeCancelled Outcome = "cancelled"
)

// IsFailure reports whether the outcome counts as a processing failure.
func (o Outcome) IsFailure() bool {
	return o == OutcomeIOFailure || o == OutcomeInvalidFormat
}

// String returns the string representation of the outcome
func (o Outcome) String() string {
	return string(o)
}

// Source identifies which entry point produced a record
type Source string

const (
	// SourceWatch records produced by a directory watcher task
	SourceWatch Source = "watch"

	// SourceBatch records produced by fix/fix --all
	SourceBatch Source = "batch"

	// SourceSweep records produced by the scheduled sweep
	SourceSweep Source = "sweep"
)

// TaskState is the lifecycle state of a per-file fix task
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskDelayed   TaskState = "delayed"
	TaskRunning   TaskState = "running"
	TaskDone      TaskState = "done"
	TaskCancelled TaskState = "cancelled"
	TaskFailed    TaskState = "failed"
)

// IsTerminal reports whether no further transition can happen
func (s TaskState) IsTerminal() bool {
	return s == TaskDone || s == TaskCancelled || s == TaskFailed
}

// FixRecord is the persisted outcome of one file
type FixRecord struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	OutputPath string    `json:"output_path,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Source     Source    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewFixRecord creates a record stamped with a fresh ID and the current time
func NewFixRecord(source Source, path string, outcome Outcome) *FixRecord {
	return &FixRecord{
		ID:        uuid.NewString(),
		Path:      path,
		Outcome:   outcome,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// WithError attaches err's text to the record
func (r *FixRecord) WithError(err error) *FixRecord {
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
