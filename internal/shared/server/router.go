package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"callqa-backend/internal/calls"
	"callqa-backend/internal/dashboard"
	"callqa-backend/internal/projects"
	"callqa-backend/internal/services/health"
	"callqa-backend/internal/shared/config"
	"callqa-backend/internal/shared/metrics"
	"callqa-backend/internal/shared/server/middleware"
	"callqa-backend/internal/shared/server/respond"
	"callqa-backend/internal/users"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config           config.Config
	Health           *health.Service
	UsersHandler     *users.Handler
	CallsHandler     *calls.Handler
	ProjectsHandler  *projects.Handler
	DashboardHandler *dashboard.Handler

	// SeedDemo, when set, is exposed on a dev-only endpoint.
	SeedDemo func(ctx context.Context) error
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.OK(c, deps.Health.Status())
	})
	deps.UsersHandler.RegisterPublicRoutes(api)

	if deps.SeedDemo != nil {
		api.POST("/dev/seed-demo", func(c *gin.Context) {
			if err := deps.SeedDemo(c.Request.Context()); err != nil {
				respond.Error(c, http.StatusInternalServerError, "internal_error", "demo seed failed", nil)
				return
			}
			respond.OK(c, gin.H{"message": "Demo data seeded"})
		})
	}

	authed := api.Group("")
	authed.Use(middleware.Auth())
	deps.UsersHandler.RegisterRoutes(authed)
	deps.CallsHandler.RegisterRoutes(authed)
	deps.ProjectsHandler.RegisterRoutes(authed)
	deps.DashboardHandler.RegisterRoutes(authed)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
