package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"assessment-backend/internal/domain"
	"assessment-backend/internal/http/dto"
	"assessment-backend/internal/service"
	"assessment-backend/internal/workerpool"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	minPollTimeout     = 1 * time.Second
	maxPollTimeout     = 60 * time.Second
	defaultPollTimeout = 30 * time.Second
)

type AssessmentService interface {
	StartAssessment(files []string, opts service.StartOptions) (domain.Task, error)
	GetStatus(id string) (domain.Task, error)
	PollProgress(ctx context.Context, id string, baseline uint64, timeout time.Duration) (domain.Task, bool, error)
	GetResult(id string) (domain.Task, error)
}

type AssessmentHandler struct {
	svc AssessmentService
	log *zap.Logger
}

func New(svc AssessmentService, log *zap.Logger) *AssessmentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AssessmentHandler{svc: svc, log: log}
}

// POST /api/assess/start
func (h *AssessmentHandler) Start(c *gin.Context) {
	var req dto.StartAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	task, err := h.svc.StartAssessment(req.Files, service.StartOptions{
		Features:       req.Features,
		Weighted:       req.Weighted,
		DefFile:        req.DefFile,
		MergeEpistemic: req.MergeEpistemic,
		SplitByUse:     req.SplitByUse,
		OnlyEpistemic:  req.OnlyEpistemic,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, workerpool.ErrPoolFull), errors.Is(err, workerpool.ErrPoolClosed):
			c.JSON(http.StatusServiceUnavailable, dto.FromTask(task, false))
		default:
			h.log.Error("start assessment failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusAccepted, dto.StartAssessmentResponse{
		TaskID:  task.ID,
		Status:  string(task.Status),
		Message: "Assessment task started",
	})
}

// GET /api/assess/progress/:task_id
//
// Long poll: waits until the task's revision passes the caller's `since`
// baseline or the (clamped) timeout elapses. Both outcomes are 200; the
// timeout case just carries the unchanged snapshot with timed_out=true.
func (h *AssessmentHandler) Progress(c *gin.Context) {
	id := c.Param("task_id")
	timeout := clampTimeout(c.Query("timeout"))
	baseline, _ := strconv.ParseUint(c.Query("since"), 10, 64)

	task, timedOut, err := h.svc.PollProgress(c.Request.Context(), id, baseline, timeout)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: service.ErrNotFound.Error()})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// poller went away; there is nobody to answer
			c.Abort()
		default:
			h.log.Error("poll failed", zap.String("task_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.FromTask(task, timedOut))
}

// GET /api/assess/status/:task_id
func (h *AssessmentHandler) Status(c *gin.Context) {
	task, err := h.svc.GetStatus(c.Param("task_id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: service.ErrNotFound.Error()})
			return
		}
		h.log.Error("status failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, dto.FromTask(task, false))
}

// GET /api/assess/result/:task_id
func (h *AssessmentHandler) Result(c *gin.Context) {
	task, err := h.svc.GetResult(c.Param("task_id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: service.ErrNotFound.Error()})
		case errors.Is(err, service.ErrNotReady):
			c.JSON(http.StatusConflict, dto.ErrorResponse{
				Error:  service.ErrNotReady.Error(),
				Status: string(task.Status),
			})
		default:
			h.log.Error("result failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
		}
		return
	}

	if task.Status == domain.StatusFailed {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:  task.Error,
			Status: string(task.Status),
		})
		return
	}

	c.JSON(http.StatusOK, dto.ResultResponse{
		Status:    string(task.Status),
		Result:    task.Result,
		Timestamp: task.UpdatedAt.Format(time.RFC3339Nano),
	})
}

func clampTimeout(raw string) time.Duration {
	if raw == "" {
		return defaultPollTimeout
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return defaultPollTimeout
	}
	d := time.Duration(secs) * time.Second
	if d < minPollTimeout {
		return minPollTimeout
	}
	if d > maxPollTimeout {
		return maxPollTimeout
	}
	return d
}
