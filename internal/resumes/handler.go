package resumes

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/imaging"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
)

const (
	maxUploadSize = 10 << 20 // 10MB
	maxImageSize  = 5 << 20
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches owner-only resume routes. The group must use the auth middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/create", h.create)
	rg.PUT("/update", h.update)
	rg.DELETE("/delete/:resumeId", h.remove)
	rg.GET("/get/:resumeId", h.getPrivate)
}

// RegisterPublicRoutes attaches the anonymous read.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/public/:resumeId", h.getPublic)
}

// RegisterListRoute attaches the owner's resume listing, served under the users group.
func (h *Handler) RegisterListRoute(rg *gin.RouterGroup) {
	rg.GET("/resumes", h.list)
}

type createRequest struct {
	Title string `json:"title" binding:"max=200"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", respond.ValidationDetails(err))
			return
		}
	}
	resume, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.ResumeIDKey, resume.ID)
	respond.Created(c, gin.H{
		"success": true,
		"message": "Resume created successfully",
		"resume":  toResponse(resume),
	})
}

func (h *Handler) update(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	resumeID := strings.TrimSpace(c.PostForm("resumeId"))
	c.Set(middleware.ResumeIDKey, resumeID)
	if resumeID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resumeId is required", nil)
		return
	}

	image, err := readImage(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	resume, err := h.Svc.Update(c.Request.Context(), UpdateInput{
		OwnerID:          middleware.UserIDFromContext(c),
		ResumeID:         resumeID,
		Data:             c.PostForm("resumeData"),
		Image:            image,
		RemoveBackground: imaging.ParseRemoveBackground(c.PostForm("removeBackground")),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"success": true,
		"message": "Saved successfully",
		"resume":  toResponse(resume),
	})
}

// readImage returns the optional image part, or nil when the request carries none.
func readImage(c *gin.Context) (*ImageUpload, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, errors.New("unable to read image")
	}
	if fileHeader.Size > maxImageSize {
		return nil, errors.New("image exceeds 5MB")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, errors.New("unable to read image")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return nil, errors.New("unable to read image")
	}
	if len(data) == 0 {
		return nil, nil
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errors.New("image must be an image file")
	}
	return &ImageUpload{Data: data, ContentType: contentType}, nil
}

func (h *Handler) remove(c *gin.Context) {
	resumeID := c.Param("resumeId")
	c.Set(middleware.ResumeIDKey, resumeID)
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), resumeID); err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "message": "Resume deleted successfully"})
}

func (h *Handler) getPrivate(c *gin.Context) {
	resumeID := c.Param("resumeId")
	c.Set(middleware.ResumeIDKey, resumeID)
	resume, err := h.Svc.GetPrivate(c.Request.Context(), middleware.UserIDFromContext(c), resumeID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "resume": toPrivateResponse(resume)})
}

func (h *Handler) getPublic(c *gin.Context) {
	resumeID := c.Param("resumeId")
	c.Set(middleware.ResumeIDKey, resumeID)
	resume, err := h.Svc.GetPublic(c.Request.Context(), resumeID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "resume": toResponse(resume)})
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "resumes": toListResponse(list)})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFoundOrUnauthorized):
		respond.Error(c, http.StatusNotFound, "not_found", "Resume not found or unauthorized", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Public resume not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrUpstream):
		respond.Error(c, http.StatusBadGateway, "upstream_error", "Image processing failed", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
	}
}
