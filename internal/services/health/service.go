package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
)

const (
	StatusOK       = "ok"
	StatusDown     = "down"
	StatusMemory   = "memory"
	StatusDisabled = "disabled"

	checkTimeout = 2 * time.Second
)

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	// DB is nil when the in-memory store is in use.
	DB Pinger
	// Cache is nil when the public cache is disabled.
	Cache Pinger
}

// NewService constructs a new health service.
func NewService(db, cache Pinger) *Service {
	return &Service{DB: db, Cache: cache}
}

// Report is the health payload. A degraded cache does not fail the check.
type Report struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// Status runs every check.
func (s *Service) Status(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	report := Report{Database: StatusMemory, Cache: StatusDisabled}
	if s.DB != nil {
		report.Database = check(ctx, "database", s.DB)
	}
	if s.Cache != nil {
		report.Cache = check(ctx, "cache", s.Cache)
	}
	report.OK = report.Database != StatusDown
	return report
}

func check(ctx context.Context, name string, p Pinger) string {
	if err := p.Ping(ctx); err != nil {
		telemetry.Warn("health.check.failed", map[string]any{"dependency": name, "error": err})
		return StatusDown
	}
	return StatusOK
}

// RegisterRoutes attaches GET /health.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		report := s.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
}
