package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/resumecheck/resumecheck/internal/check"
	"github.com/resumecheck/resumecheck/internal/logger"
)

//go:embed extract.md
var extractPromptTemplate string

// Extractor derives a weighted qualifications list from job posting text
// using Gemini. Entries the model returns with an empty name or an invalid
// weight are dropped, never surfaced as errors.
type Extractor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewExtractor(generator contentGenerator, log *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Extractor{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

func (e *Extractor) Extract(ctx context.Context, jobPost string) ([]check.Qualification, error) {
	if strings.TrimSpace(jobPost) == "" {
		return nil, errors.New("job post text is required")
	}

	prompt := strings.ReplaceAll(extractPromptTemplate, "{{JOB_POST}}", jobPost)

	e.logger.Debug("gemini extract request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.Truncate(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract qualifications: %w", err)
	}

	e.logger.Debug("gemini extract response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.Truncate(raw, e.maxLogLen)),
	)

	entries, err := parseQualifications(raw)
	if err != nil {
		return nil, err
	}

	kept, dropped := check.FilterQualifications(entries)
	if dropped > 0 {
		e.logger.Warn("dropped malformed qualification entries",
			zap.Int("dropped", dropped),
			zap.Int("kept", len(kept)),
		)
	}

	return kept, nil
}

func parseQualifications(raw string) ([]check.RawQualification, error) {
	cleaned := extractJSON(raw)

	var entries []check.RawQualification
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		return nil, fmt.Errorf("parse qualifications response: %w", err)
	}

	return entries, nil
}
