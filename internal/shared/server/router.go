package server

import (
	"github.com/gin-gonic/gin"

	"resume-builder/internal/ai"
	googleauth "resume-builder/internal/auth"
	"resume-builder/internal/resumes"
	"resume-builder/internal/services/health"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/users"
)

// RouterDeps carries the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config        config.Config
	Verifier      middleware.TokenVerifier
	UserHandler   *users.Handler
	ResumeHandler *resumes.Handler
	AIHandler     *ai.Handler
	GoogleAuth    *googleauth.GoogleService
	Health        *health.Service
	// Media serves stored images when the local image origin is in use.
	Media gin.HandlerFunc
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsDevLike() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logging(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())
	if deps.Media != nil {
		r.GET("/media/*key", deps.Media)
	}

	api := r.Group("/api")
	if deps.Health != nil {
		deps.Health.RegisterRoutes(api)
	}
	auth := middleware.Auth(deps.Verifier)

	usersGroup := api.Group("/users")
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterPublicRoutes(usersGroup)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(usersGroup)
	}
	privateUsers := usersGroup.Group("", auth)
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(privateUsers)
	}

	if deps.ResumeHandler != nil {
		deps.ResumeHandler.RegisterListRoute(privateUsers)
		resumesGroup := api.Group("/resumes")
		deps.ResumeHandler.RegisterPublicRoutes(resumesGroup)
		deps.ResumeHandler.RegisterRoutes(resumesGroup.Group("", auth))
	}

	if deps.AIHandler != nil {
		deps.AIHandler.RegisterRoutes(api.Group("/ai", auth))
	}
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
