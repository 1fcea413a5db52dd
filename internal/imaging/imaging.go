// Package imaging defines the profile-image transformation contract used by resume updates.
package imaging

import (
	"context"
	"strings"
)

const (
	basePipeline       = "w-300,h-300,fo-face"
	backgroundRemoval  = "e-bgremove"
	DefaultFolder      = "user-resumes"
	defaultContentType = "application/octet-stream"
)

// Request is one image submitted for transformation.
type Request struct {
	Data        []byte
	FileName    string
	Folder      string
	Pipeline    string
	ContentType string
}

// Transformer stores an image, applies Pipeline and returns a durable URL to the result.
type Transformer interface {
	Transform(ctx context.Context, req Request) (string, error)
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc func(ctx context.Context, req Request) (string, error)

func (f TransformerFunc) Transform(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Pipeline returns the square face-centred crop, with background removal when requested.
func Pipeline(removeBackground bool) string {
	if removeBackground {
		return basePipeline + "," + backgroundRemoval
	}
	return basePipeline
}

// ParseRemoveBackground is true only for the exact form value "true".
func ParseRemoveBackground(raw string) bool {
	return raw == "true"
}

// FileNameFor names the stored image for a resume.
func FileNameFor(resumeID string) string {
	return "resume_" + resumeID + ".png"
}

// ContentTypeOr returns ct, or a generic binary type when ct is blank.
func ContentTypeOr(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return defaultContentType
	}
	return ct
}
