package projects

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"callqa-backend/internal/shared/server/middleware"
	"callqa-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the projects repo.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches project routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/projects", h.listProjects)
	rg.POST("/projects", middleware.RequireManager(), h.createProject)
	rg.GET("/projects/:id", h.getProject)
	rg.PUT("/projects/:id", middleware.RequireManager(), h.updateProject)
}

type projectRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (h *Handler) listProjects(c *gin.Context) {
	var companyID *int64
	if !middleware.IsAdmin(c) {
		id := middleware.CompanyIDFromContext(c)
		companyID = &id
	}

	out, err := h.Repo.List(c.Request.Context(), companyID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list projects", nil)
		return
	}
	if out == nil {
		out = []Project{}
	}
	respond.OK(c, out)
}

func (h *Handler) createProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "name is required", nil)
		return
	}

	var companyID *int64
	if id := middleware.CompanyIDFromContext(c); id != 0 {
		companyID = &id
	}

	project, err := h.Repo.Create(c.Request.Context(), Project{
		Name:        req.Name,
		Description: req.Description,
		CompanyID:   companyID,
		IsActive:    true,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create project", nil)
		return
	}
	respond.Created(c, project)
}

func (h *Handler) getProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	project, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "project not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch project", nil)
		return
	}
	respond.OK(c, project)
}

func (h *Handler) updateProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "name is required", nil)
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	project, err := h.Repo.Update(c.Request.Context(), Project{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    isActive,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "project not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update project", nil)
		return
	}
	respond.OK(c, project)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "project id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
