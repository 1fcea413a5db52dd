// Package ai serves the writing-assistance and resume-import endpoints.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"resume-builder/internal/llm"
	"resume-builder/internal/resumes"
	"resume-builder/internal/shared/telemetry"
)

const (
	defaultTimeout     = 60 * time.Second
	maxEnhanceRunes    = 5000
	maxResumeRunes     = 50000
	defaultImportTitle = "Imported Resume"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUpstream     = errors.New("ai provider failed")
)

// ResumeCreator stores an imported resume for its owner.
type ResumeCreator interface {
	CreateWithContent(ctx context.Context, ownerID, title string, content resumes.Content) (resumes.Resume, error)
}

// Service wraps an llm.Client with the prompts used by the builder.
type Service struct {
	LLM     llm.Client
	Resumes ResumeCreator
	Timeout time.Duration
}

func NewService(client llm.Client, creator ResumeCreator) *Service {
	if client == nil {
		client = llm.Unconfigured{}
	}
	return &Service{LLM: client, Resumes: creator, Timeout: defaultTimeout}
}

// EnhanceSummary rewrites a professional summary.
func (s *Service) EnhanceSummary(ctx context.Context, userID, text string) (string, error) {
	return s.enhance(ctx, userID, "enhance_summary", llm.EnhanceSummaryPrompt(), text)
}

// EnhanceJobDescription rewrites one experience entry's description.
func (s *Service) EnhanceJobDescription(ctx context.Context, userID, text string) (string, error) {
	return s.enhance(ctx, userID, "enhance_job", llm.EnhanceJobPrompt(), text)
}

func (s *Service) enhance(ctx context.Context, userID, op, system, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: userContent is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > maxEnhanceRunes {
		return "", fmt.Errorf("%w: userContent must be at most %d characters", ErrInvalidInput, maxEnhanceRunes)
	}
	out, err := s.complete(ctx, userID, op, llm.Prompt{System: system, User: text})
	if err != nil {
		return "", err
	}
	return out, nil
}

// ImportResume structures raw resume text into resume content and stores it for ownerID.
func (s *Service) ImportResume(ctx context.Context, ownerID, title, resumeText string) (resumes.Resume, error) {
	if s.Resumes == nil {
		return resumes.Resume{}, errors.New("resume store not configured")
	}
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return resumes.Resume{}, fmt.Errorf("%w: resume text is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(resumeText) > maxResumeRunes {
		return resumes.Resume{}, fmt.Errorf("%w: resume text is too long", ErrInvalidInput)
	}
	if strings.TrimSpace(title) == "" {
		title = defaultImportTitle
	}

	raw, err := s.complete(ctx, ownerID, "import_resume", llm.Prompt{
		System: llm.ImportResumePrompt(),
		User:   resumeText,
		JSON:   true,
	})
	if err != nil {
		return resumes.Resume{}, err
	}
	var content resumes.Content
	if err := json.Unmarshal([]byte(llm.CleanJSON(raw)), &content); err != nil || content == nil {
		telemetry.Error("llm.failed", map[string]any{"op": "import_resume", "user_id": ownerID, "error": "invalid json"})
		return resumes.Resume{}, fmt.Errorf("%w: model returned invalid resume json", ErrUpstream)
	}
	return s.Resumes.CreateWithContent(ctx, ownerID, title, content)
}

func (s *Service) complete(ctx context.Context, userID, op string, p llm.Prompt) (string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := s.LLM.Complete(ctx, p)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return "", err
		}
		telemetry.Error("llm.failed", map[string]any{"op": op, "user_id": userID, "error": err})
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUpstream)
	}
	return out, nil
}
