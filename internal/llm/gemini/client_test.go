package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), " ", ""); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Blob{MIMEType: "image/png"}, genai.Text(`1}`)}},
		}},
	}
	got, err := extractText(resp)
	if err != nil {
		t.Fatalf("extractText: %v", err)
	}
	if got != `{"a":1}` {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractTextErrors(t *testing.T) {
	tests := map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"no content":    {Candidates: []*genai.Candidate{{}}},
		"no text":       {Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Blob{}}}}}},
	}
	for name, resp := range tests {
		if _, err := extractText(resp); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
