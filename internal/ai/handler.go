package ai

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/extract"
	"resume-builder/internal/llm"
	"resume-builder/internal/resumes"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
)

const (
	maxUploadSize = 10 << 20 // 10MB
	maxFileSize   = 5 << 20
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches AI routes. The group must use the auth middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/enhance-pro-sum", h.enhanceSummary)
	rg.POST("/enhance-job-desc", h.enhanceJob)
	rg.POST("/upload-resume", h.uploadResume)
}

type enhanceRequest struct {
	UserContent string `json:"userContent" binding:"required"`
}

func (h *Handler) enhanceSummary(c *gin.Context) {
	var req enhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing required fields", respond.ValidationDetails(err))
		return
	}
	out, err := h.Svc.EnhanceSummary(c.Request.Context(), middleware.UserIDFromContext(c), req.UserContent)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "enhancedContent": out})
}

func (h *Handler) enhanceJob(c *gin.Context) {
	var req enhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing required fields", respond.ValidationDetails(err))
		return
	}
	out, err := h.Svc.EnhanceJobDescription(c.Request.Context(), middleware.UserIDFromContext(c), req.UserContent)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "enhancedContent": out})
}

// uploadResume accepts either a resumeText field or a resume file (PDF, DOCX or text).
func (h *Handler) uploadResume(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	title := strings.TrimSpace(c.PostForm("title"))
	text := c.PostForm("resumeText")
	if strings.TrimSpace(text) == "" {
		extracted, err := readResumeFile(c)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		text = extracted
	}
	if strings.TrimSpace(text) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing required fields", nil)
		return
	}

	resume, err := h.Svc.ImportResume(c.Request.Context(), middleware.UserIDFromContext(c), title, text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.ResumeIDKey, resume.ID)
	respond.Created(c, gin.H{"success": true, "resumeId": resume.ID})
}

func readResumeFile(c *gin.Context) (string, error) {
	fileHeader, err := c.FormFile("resume")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", errors.New("unable to read resume file")
	}
	if fileHeader.Size > maxFileSize {
		return "", errors.New("resume file exceeds 5MB")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return "", errors.New("unable to read resume file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return "", errors.New("unable to read resume file")
	}
	text, err := extract.Text(c.Request.Context(), data, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupported) {
			return "", errors.New("resume must be a PDF, DOCX or text file")
		}
		return "", errors.New("unable to extract text from resume")
	}
	return text, nil
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, resumes.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "ai_unavailable", "AI assistance is not configured", nil)
	case errors.Is(err, ErrUpstream):
		respond.Error(c, http.StatusBadGateway, "upstream_error", "AI provider failed", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
	}
}
