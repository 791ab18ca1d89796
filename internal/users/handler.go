package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"callqa-backend/internal/shared/auth"
	"callqa-backend/internal/shared/server/middleware"
	"callqa-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the users repo.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterPublicRoutes attaches unauthenticated auth routes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.login)
}

// RegisterRoutes attaches authenticated user routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/me", h.me)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "email and password are required", nil)
		return
	}

	user, err := h.Repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "login failed", nil)
		return
	}
	if !user.IsActive || !auth.CheckPassword(user.HashedPassword, req.Password) {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
		return
	}

	var companyID int64
	if user.CompanyID != nil {
		companyID = *user.CompanyID
	}
	token, err := auth.SignToken(user.ID, user.Email, user.Role, companyID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "login failed", nil)
		return
	}

	respond.OK(c, gin.H{
		"accessToken": token,
		"tokenType":   "bearer",
		"user":        user,
	})
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == 0 {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	user, err := h.Repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch user", nil)
		return
	}
	respond.OK(c, user)
}
