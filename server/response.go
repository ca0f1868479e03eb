package server

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skillsenselab/parakeet/errors"
	"github.com/skillsenselab/parakeet/task"
)

// taskResponse is the wire shape of one task.
type taskResponse struct {
	TaskID      string       `json:"task_id"`
	Status      task.Status  `json:"status"`
	Result      *task.Result `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// listResponse is the wire shape of a task listing.
type listResponse struct {
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Tasks  []taskResponse `json:"tasks"`
}

func toTaskResponse(t *task.Task) taskResponse {
	resp := taskResponse{
		TaskID:    t.ID,
		Status:    t.Status,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
	}
	if t.Status == task.StatusCompleted {
		resp.Result = t.Result
	}
	if t.Status.Terminal() {
		resp.CompletedAt = t.EndTime
	}
	return resp
}

// RespondWithError inspects err: if it is an *apperrors.AppError the status
// and structured body are derived automatically; otherwise a generic 500 is
// sent.
func RespondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	c.JSON(http.StatusInternalServerError, apperrors.Internal(err).ToResponse())
}
