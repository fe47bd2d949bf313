package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/resumecheck/resumecheck/internal/logger"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed summarize.md
var summarizePromptTemplate string

const defaultMaxLogLength = 200

// Summarizer condenses a job posting to the applicant-relevant text using
// Gemini.
type Summarizer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewSummarizer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Summarizer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Summarizer{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

func (s *Summarizer) Summarize(ctx context.Context, jobPost string) (string, error) {
	if strings.TrimSpace(jobPost) == "" {
		return "", errors.New("job post text is required")
	}

	prompt := strings.ReplaceAll(summarizePromptTemplate, "{{JOB_POST}}", jobPost)

	s.logger.Debug("gemini summarize request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.Truncate(prompt, s.maxLogLen)),
	)

	summary, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize job post: %w", err)
	}

	s.logger.Debug("gemini summarize response",
		zap.Int("response_length", utf8.RuneCountInString(summary)),
		zap.String("response_preview", logger.Truncate(summary, s.maxLogLen)),
	)

	return strings.TrimSpace(summary), nil
}
