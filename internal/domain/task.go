package domain

import "time"

type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is absorbing: once a task reaches a
// terminal status it never changes again.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Result is the payload of a completed assessment. Note is non-empty only
// when the payload was produced by the simulated backend.
type Result struct {
	Summary   string             `json:"summary"`
	Metrics   map[string]float64 `json:"metrics"`
	Files     []string           `json:"files"`
	Timestamp time.Time          `json:"timestamp"`
	Note      string             `json:"note,omitempty"`
}

// Task is the state record of one submitted assessment. Records are always
// passed by value outside the registry; Revision increases on every
// mutation and lets pollers detect "new since last observed".
type Task struct {
	ID       string
	Status   TaskStatus
	Progress float64 // 0.0 .. 1.0, non-decreasing
	Message  string
	Result   *Result
	Error    string
	Revision uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}
