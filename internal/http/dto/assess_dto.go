package dto

import (
	"time"

	"assessment-backend/internal/domain"
)

type StartAssessmentRequest struct {
	Files          []string `json:"files"`
	Features       []string `json:"features"`
	Weighted       bool     `json:"weighted"`
	DefFile        string   `json:"def_file"`
	MergeEpistemic bool     `json:"merge_epistemic"`
	SplitByUse     bool     `json:"split_by_use"`
	OnlyEpistemic  bool     `json:"only_epistemic"`
}

type StartAssessmentResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ProgressResponse is the snapshot shape shared by the progress and status
// endpoints. Result and Error are null unless the task is terminal.
type ProgressResponse struct {
	TaskID    string         `json:"task_id"`
	Status    string         `json:"status"`
	Progress  float64        `json:"progress"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	Revision  uint64         `json:"revision"`
	TimedOut  bool           `json:"timed_out"`
	Result    *domain.Result `json:"result"`
	Error     *string        `json:"error"`
}

type ResultResponse struct {
	Status    string         `json:"status"`
	Result    *domain.Result `json:"result"`
	Timestamp string         `json:"timestamp"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

func FromTask(t domain.Task, timedOut bool) ProgressResponse {
	resp := ProgressResponse{
		TaskID:    t.ID,
		Status:    string(t.Status),
		Progress:  t.Progress,
		Message:   t.Message,
		Timestamp: t.UpdatedAt.Format(time.RFC3339Nano),
		Revision:  t.Revision,
		TimedOut:  timedOut,
		Result:    t.Result,
	}
	if t.Error != "" {
		resp.Error = &t.Error
	}
	return resp
}
