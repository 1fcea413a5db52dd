package resumes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	personalInfoKey = "personal_info"
	imageKey        = "image"
)

// bookkeepingKeys never reach the store from a client patch.
var bookkeepingKeys = []string{"_id", "id", "userId", "user_id", "createdAt", "updatedAt", "__v", "version"}

// Patch is a top-level replace: each key in Content overwrites the stored key of the same name.
type Patch struct {
	Title   *string
	Public  *bool
	Content Content
}

// Empty reports whether applying p would change nothing but the version.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Public == nil && len(p.Content) == 0
}

// ParseDocument decodes the resumeData form value. It must be a JSON object.
func ParseDocument(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: resumeData is required", ErrInvalidInput)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: resumeData must be a JSON object", ErrInvalidInput)
	}
	if doc == nil || dec.More() {
		return nil, fmt.Errorf("%w: resumeData must be a JSON object", ErrInvalidInput)
	}
	return doc, nil
}

// InjectImage sets personal_info.image to url, keeping every sibling field of personal_info.
// doc is modified in place; the personal_info map is copied first so callers sharing it are unaffected.
func InjectImage(doc map[string]any, url string) error {
	info := map[string]any{}
	switch existing := doc[personalInfoKey].(type) {
	case nil:
	case map[string]any:
		for k, v := range existing {
			info[k] = v
		}
	default:
		return fmt.Errorf("%w: personal_info must be an object", ErrInvalidInput)
	}
	info[imageKey] = url
	doc[personalInfoKey] = info
	return nil
}

// BuildPatch lifts title and public into their columns and drops bookkeeping keys.
func BuildPatch(doc map[string]any) (Patch, error) {
	var p Patch
	content := make(Content, len(doc))
	for k, v := range doc {
		content[k] = v
	}
	for _, k := range bookkeepingKeys {
		delete(content, k)
	}

	if raw, ok := content["title"]; ok {
		delete(content, "title")
		title, isString := raw.(string)
		if !isString {
			return Patch{}, fmt.Errorf("%w: title must be a string", ErrInvalidInput)
		}
		title, err := normalizeTitle(title, false)
		if err != nil {
			return Patch{}, err
		}
		p.Title = &title
	}
	if raw, ok := content["public"]; ok {
		delete(content, "public")
		public, isBool := raw.(bool)
		if !isBool {
			return Patch{}, fmt.Errorf("%w: public must be a boolean", ErrInvalidInput)
		}
		p.Public = &public
	}
	p.Content = content
	return p, nil
}

// sanitizeContent strips keys that live in their own columns.
func sanitizeContent(c Content) Content {
	out := c.Clone()
	for _, k := range bookkeepingKeys {
		delete(out, k)
	}
	delete(out, "title")
	delete(out, "public")
	return out
}

// normalizeTitle trims title. Blank titles default when allowDefault is set and are rejected otherwise.
func normalizeTitle(title string, allowDefault bool) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		if allowDefault {
			return DefaultTitle, nil
		}
		return "", fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, maxTitleLength)
	}
	return title, nil
}

// apply writes p onto r in memory, mirroring the store's conditional update.
func (p Patch) apply(r *Resume) {
	if r.Content == nil {
		r.Content = Content{}
	}
	for k, v := range p.Content {
		r.Content[k] = v
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Public != nil {
		r.Public = *p.Public
	}
}
