package server

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skillsenselab/parakeet/errors"
	"github.com/skillsenselab/parakeet/logger"
	"github.com/skillsenselab/parakeet/task"
	"github.com/skillsenselab/parakeet/util"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Handlers binds the task API routes to the task service.
type Handlers struct {
	svc         *task.Service
	maxBodySize string
	maxBytes    int64
	log         *logger.Logger
}

// NewHandlers creates the task API handlers. maxBodySize mirrors the server's
// body limit so oversized uploads get a clean 413.
func NewHandlers(svc *task.Service, maxBodySize string, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Handlers{
		svc:         svc,
		maxBodySize: maxBodySize,
		maxBytes:    util.ParseSize(maxBodySize, 0),
		log:         log.WithComponent("api"),
	}
}

// Register mounts all task API routes.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/healthz", h.healthz)

	tasks := r.Group("/tasks")
	tasks.POST("/submit", h.submit)
	tasks.GET("/", h.list)
	tasks.GET("/:id", h.get)
	tasks.DELETE("/:id", h.remove)
}

// submitForm carries the caller options of a submission.
type submitForm struct {
	IncludeTimestamps  bool   `form:"include_timestamps"`
	IncludeDiarization bool   `form:"include_diarization"`
	MinSpeakers        int    `form:"min_speakers" binding:"omitempty,min=1,max=20"`
	MaxSpeakers        int    `form:"max_speakers" binding:"omitempty,min=1,max=20"`
	Language           string `form:"language" binding:"omitempty,min=2,max=8"`
}

func (h *Handlers) submit(c *gin.Context) {
	if h.maxBytes > 0 && c.Request.ContentLength > h.maxBytes {
		RespondWithError(c, apperrors.PayloadTooLarge(h.maxBodySize))
		return
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			RespondWithError(c, apperrors.PayloadTooLarge(h.maxBodySize))
			return
		}
		RespondWithError(c, apperrors.InvalidInput("", "malformed multipart form"))
		return
	}

	var form submitForm
	if err := c.ShouldBind(&form); err != nil {
		RespondWithError(c, apperrors.InvalidInput("", err.Error()))
		return
	}
	if form.MaxSpeakers > 0 && form.MinSpeakers > form.MaxSpeakers {
		RespondWithError(c, apperrors.InvalidInput("min_speakers", "min_speakers exceeds max_speakers"))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondWithError(c, apperrors.MissingField("file"))
		return
	}
	defer file.Close()

	created, err := h.svc.Submit(c.Request.Context(), file, header.Filename, task.Params{
		IncludeTimestamps:  form.IncludeTimestamps,
		IncludeDiarization: form.IncludeDiarization,
		MinSpeakers:        form.MinSpeakers,
		MaxSpeakers:        form.MaxSpeakers,
		Language:           form.Language,
	})
	if err != nil {
		RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(created))
}

func (h *Handlers) get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(t))
}

func (h *Handlers) list(c *gin.Context) {
	limit := intQuery(c, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	status := task.Status(c.Query("status_filter"))
	if status != "" && !status.Valid() {
		RespondWithError(c, apperrors.InvalidInput("status_filter", "unknown status"))
		return
	}

	tasks, total, err := h.svc.List(c.Request.Context(), limit, offset, status)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	resp := listResponse{
		Total:  total,
		Limit:  limit,
		Offset: offset,
		Tasks:  make([]taskResponse, len(tasks)),
	}
	for i := range tasks {
		resp.Tasks[i] = toTaskResponse(&tasks[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

func (h *Handlers) healthz(c *gin.Context) {
	gate := h.svc.Gate()
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"tasks_in_flight": gate.InUse(),
		"slots_available": gate.Available(),
	})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
