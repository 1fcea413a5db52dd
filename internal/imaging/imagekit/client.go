// Package imagekit uploads images to the ImageKit upload API with a pre-transformation.
package imagekit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"resume-builder/internal/imaging"
	"resume-builder/internal/shared/util"
)

const DefaultUploadURL = "https://upload.imagekit.io/api/v1/files/upload"

// Client implements imaging.Transformer against ImageKit.
type Client struct {
	PrivateKey string
	UploadURL  string
	HTTPClient *http.Client
}

// New builds a client. An empty uploadURL selects the public endpoint.
func New(privateKey, uploadURL string) (*Client, error) {
	if strings.TrimSpace(privateKey) == "" {
		return nil, errors.New("imagekit private key is required")
	}
	if strings.TrimSpace(uploadURL) == "" {
		uploadURL = DefaultUploadURL
	}
	return &Client{
		PrivateKey: privateKey,
		UploadURL:  uploadURL,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type uploadResponse struct {
	URL     string `json:"url"`
	FileID  string `json:"fileId"`
	Message string `json:"message"`
}

// Transform uploads the image and returns the URL ImageKit assigns to it.
func (c *Client) Transform(ctx context.Context, req imaging.Request) (string, error) {
	fileName, err := util.SanitizeFileName(req.FileName)
	if err != nil {
		return "", err
	}
	transformation, err := json.Marshal(map[string]string{"pre": req.Pipeline})
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(req.Data); err != nil {
		return "", err
	}
	fields := map[string]string{
		"fileName":          fileName,
		"folder":            req.Folder,
		"useUniqueFileName": "false",
		"transformation":    string(transformation),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadURL, &body)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	httpReq.SetBasicAuth(c.PrivateKey, "")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("imagekit upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("imagekit read response: %w", err)
	}
	var out uploadResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(out.Message)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("imagekit upload status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("imagekit decode response: %w", decodeErr)
	}
	if strings.TrimSpace(out.URL) == "" {
		return "", errors.New("imagekit upload returned no url")
	}
	return out.URL, nil
}

var _ imaging.Transformer = (*Client)(nil)
