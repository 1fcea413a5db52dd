package origin

import (
	"bytes"
	"errors"
	"image"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	imgproc "github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/storage/object"
	"resume-builder/internal/shared/telemetry"
)

const (
	maxMediaBytes     = 10 << 20
	maxTransformPixel = 2000
)

// transform is the subset of the tr parameter applied locally.
type transform struct {
	Width     int
	Height    int
	Anchor    imgproc.Anchor
	Unapplied []string
}

func (t transform) resizes() bool {
	return t.Width > 0 || t.Height > 0
}

// parseTransform reads comma separated ImageKit-style steps. fo-face has no detector here
// and falls back to a centre crop; other unknown steps are reported as unapplied.
func parseTransform(raw string) transform {
	t := transform{Anchor: imgproc.Center}
	for _, step := range strings.Split(raw, ",") {
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}
		name, value, _ := strings.Cut(step, "-")
		switch name {
		case "w", "h":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 || n > maxTransformPixel {
				t.Unapplied = append(t.Unapplied, step)
				continue
			}
			if name == "w" {
				t.Width = n
			} else {
				t.Height = n
			}
		case "fo":
			switch value {
			case "top":
				t.Anchor = imgproc.Top
			case "bottom":
				t.Anchor = imgproc.Bottom
			case "left":
				t.Anchor = imgproc.Left
			case "right":
				t.Anchor = imgproc.Right
			case "center", "face", "auto":
				t.Anchor = imgproc.Center
			default:
				t.Unapplied = append(t.Unapplied, step)
			}
		default:
			t.Unapplied = append(t.Unapplied, step)
		}
	}
	return t
}

// apply resizes img. Both dimensions give a cropped fill, one keeps the aspect ratio.
func (t transform) apply(img image.Image) image.Image {
	if t.Width > 0 && t.Height > 0 {
		return imgproc.Fill(img, t.Width, t.Height, t.Anchor, imgproc.Lanczos)
	}
	return imgproc.Resize(img, t.Width, t.Height, imgproc.Lanczos)
}

func formatFor(contentType string) (imgproc.Format, bool) {
	switch contentType {
	case "image/png":
		return imgproc.PNG, true
	case "image/jpeg":
		return imgproc.JPEG, true
	case "image/gif":
		return imgproc.GIF, true
	case "image/bmp":
		return imgproc.BMP, true
	}
	return 0, false
}

// MediaHandler serves stored images for the local origin, applying the tr query parameter.
// Register it as GET <prefix>/*key.
func MediaHandler(store object.ObjectStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		if key == "" {
			respond.Error(c, http.StatusNotFound, "not_found", "Image not found", nil)
			return
		}
		rc, err := store.Open(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				respond.Error(c, http.StatusNotFound, "not_found", "Image not found", nil)
				return
			}
			respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid image key", nil)
			return
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxMediaBytes+1))
		rc.Close()
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to read image", nil)
			return
		}
		if len(data) > maxMediaBytes {
			respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "Image too large", nil)
			return
		}

		contentType := http.DetectContentType(data)
		tr := parseTransform(c.Query("tr"))
		if tr.resizes() {
			format, ok := formatFor(contentType)
			if !ok {
				respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media", "Stored file is not a supported image", nil)
				return
			}
			img, err := imgproc.Decode(bytes.NewReader(data), imgproc.AutoOrientation(true))
			if err != nil {
				respond.Error(c, http.StatusUnprocessableEntity, "invalid_image", "Stored image could not be decoded", nil)
				return
			}
			var buf bytes.Buffer
			if err := imgproc.Encode(&buf, tr.apply(img), format); err != nil {
				respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to encode image", nil)
				return
			}
			data = buf.Bytes()
		}
		if len(tr.Unapplied) > 0 {
			unapplied := strings.Join(tr.Unapplied, ",")
			c.Header("X-Image-Unapplied", unapplied)
			telemetry.Warn("media.transform.unapplied", map[string]any{"key": key, "steps": unapplied})
		}

		c.Header("Cache-Control", "public, max-age=300")
		c.Data(http.StatusOK, contentType, data)
	}
}
