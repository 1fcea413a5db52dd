// Package origin stores images in the object store and serves them behind a URL endpoint
// that applies transformations from the tr query parameter.
package origin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"resume-builder/internal/imaging"
	"resume-builder/internal/shared/storage/object"
	"resume-builder/internal/shared/util"
)

// Transformer implements imaging.Transformer on top of an ObjectStore.
type Transformer struct {
	Store    object.ObjectStore
	Endpoint string
}

// New builds a Transformer publishing URLs under endpoint.
func New(store object.ObjectStore, endpoint string) (*Transformer, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("image url endpoint is required")
	}
	return &Transformer{Store: store, Endpoint: endpoint}, nil
}

// Transform writes the original bytes to <folder>/<fileName> and returns the transformation URL.
func (t *Transformer) Transform(ctx context.Context, req imaging.Request) (string, error) {
	fileName, err := util.SanitizeFileName(req.FileName)
	if err != nil {
		return "", err
	}
	key := fileName
	if folder := strings.Trim(req.Folder, "/"); folder != "" {
		key = path.Join(folder, fileName)
	}
	if _, err := t.Store.SaveWithKey(ctx, key, imaging.ContentTypeOr(req.ContentType), bytes.NewReader(req.Data)); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	out := t.Endpoint + "/" + key
	if req.Pipeline != "" {
		out += "?tr=" + url.QueryEscape(req.Pipeline)
	}
	return out, nil
}

var _ imaging.Transformer = (*Transformer)(nil)
