package calls

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"callqa-backend/internal/shared/server/middleware"
	"callqa-backend/internal/shared/server/respond"
	"callqa-backend/internal/shared/storage/object"
	"callqa-backend/internal/shared/util"
)

const presignTTL = time.Hour

// Handler wires HTTP handlers to the calls service and repo.
type Handler struct {
	Svc         *Service
	Repo        Repo
	Store       object.Store
	InputBucket string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, repo Repo, store object.Store, inputBucket string) *Handler {
	return &Handler{Svc: svc, Repo: repo, Store: store, InputBucket: inputBucket}
}

// RegisterRoutes attaches call routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/calls/upload-url", h.createUploadURL)
	rg.POST("/calls/:id/analyze", h.analyzeCall)
	rg.POST("/calls/process-pending", middleware.RequireManager(), h.processPending)
	rg.GET("/calls", h.listCalls)
	rg.GET("/calls/export", h.exportCalls)
	rg.GET("/calls/:id", h.getCall)
	rg.GET("/calls/:id/report", h.getCallReport)
}

type uploadRequest struct {
	Filename     string   `json:"filename" binding:"required"`
	ContentType  string   `json:"content_type"`
	ProjectID    *int64   `json:"project_id"`
	AgentName    *string  `json:"agent_name"`
	CustomerName *string  `json:"customer_name"`
	CallDuration *float64 `json:"call_duration"`
}

func (h *Handler) createUploadURL(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "filename is required", nil)
		return
	}

	filename, err := util.SanitizeFileName(req.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid filename", nil)
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	projectSegment := "0"
	if req.ProjectID != nil {
		projectSegment = strconv.FormatInt(*req.ProjectID, 10)
	}
	storageKey := "uploads/" + projectSegment + "/" + uuid.NewString() + "_" + filename

	uploadURL, err := h.Store.PresignPut(c.Request.Context(), h.InputBucket, storageKey, contentType, presignTTL)
	if err != nil {
		if errors.Is(err, object.ErrPresignUnsupported) {
			respond.Error(c, http.StatusNotImplemented, "not_supported", "direct upload is not supported by the configured storage backend", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create upload URL", nil)
		return
	}

	call, err := h.Repo.Create(c.Request.Context(), Call{
		ProjectID:    req.ProjectID,
		Filename:     filename,
		StorageKey:   storageKey,
		Status:       StatusUploaded,
		AgentName:    req.AgentName,
		CustomerName: req.CustomerName,
		CallDuration: req.CallDuration,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create call record", nil)
		return
	}

	respond.Created(c, gin.H{
		"uploadUrl":  uploadURL,
		"storageKey": storageKey,
		"callId":     call.ID,
	})
}

func (h *Handler) analyzeCall(c *gin.Context) {
	callID, ok := parseID(c)
	if !ok {
		return
	}
	model := c.Query("model")

	if err := h.Svc.TriggerAnalysis(c.Request.Context(), callID, model); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "call not found", nil)
		case errors.Is(err, ErrNotClaimable):
			respond.Error(c, http.StatusConflict, "conflict", "call is already being processed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		}
		return
	}

	respond.Accepted(c, gin.H{
		"message": "Analysis started",
		"callId":  callID,
	})
}

func (h *Handler) processPending(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	claimed, err := h.Svc.ClaimAndProcessPending(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process pending calls", nil)
		return
	}

	respond.Accepted(c, gin.H{
		"message":     "Pending call processing started",
		"callsQueued": claimed,
	})
}

func (h *Handler) listCalls(c *gin.Context) {
	filter, ok := filterFromQuery(c)
	if !ok {
		return
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	out, err := h.Repo.List(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list calls", nil)
		return
	}
	if out == nil {
		out = []Call{}
	}
	respond.OK(c, out)
}

func (h *Handler) getCall(c *gin.Context) {
	callID, ok := parseID(c)
	if !ok {
		return
	}

	call, err := h.Repo.GetByID(c.Request.Context(), callID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "call not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch call", nil)
		return
	}
	respond.OK(c, call)
}

func (h *Handler) getCallReport(c *gin.Context) {
	callID, ok := parseID(c)
	if !ok {
		return
	}

	report, err := h.Repo.GetLatestReport(c.Request.Context(), callID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch report", nil)
		return
	}
	respond.OK(c, report)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "call id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func filterFromQuery(c *gin.Context) (ListFilter, bool) {
	var filter ListFilter

	if v := c.Query("project_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "project_id must be an integer", nil)
			return ListFilter{}, false
		}
		filter.ProjectID = &id
	}
	filter.Status = c.Query("status")
	filter.Agent = c.Query("agent")
	filter.Search = c.Query("q")

	if v := c.Query("start_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "start_date must be RFC 3339 or YYYY-MM-DD", nil)
			return ListFilter{}, false
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "end_date must be RFC 3339 or YYYY-MM-DD", nil)
			return ListFilter{}, false
		}
		filter.EndDate = &t
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Offset = parsed
		}
	}
	return filter, true
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
