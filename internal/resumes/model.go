package resumes

import (
	"encoding/json"
	"time"
)

const (
	DefaultTitle   = "Untitled Resume"
	maxTitleLength = 200
)

// Content is the free-form resume document. Only personal_info.image is known to the backend.
type Content map[string]any

// Resume is a user-owned resume record.
type Resume struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Public    bool      `json:"public"`
	Content   Content   `json:"content"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultContent is the document a new resume starts with.
func DefaultContent() Content {
	return Content{
		"template":             "classic",
		"accent_color":         "#3B82F6",
		"professional_summary": "",
		"personal_info":        map[string]any{},
		"skills":               []any{},
		"experience":           []any{},
		"education":            []any{},
		"project":              []any{},
	}
}

// Clone returns a deep copy of c.
func (c Content) Clone() Content {
	if c == nil {
		return Content{}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return Content{}
	}
	var out Content
	if err := json.Unmarshal(raw, &out); err != nil {
		return Content{}
	}
	return out
}

func (r Resume) clone() Resume {
	r.Content = r.Content.Clone()
	return r
}
