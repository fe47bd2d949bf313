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

//go:embed score.md
var scorePromptTemplate string

// Scorer evaluates a resume against a qualifications list using Gemini and
// turns the response into a structured analysis: a per-qualification score
// CSV, a weighted 0-100 score and a narrative with suggestions.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewScorer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) Score(ctx context.Context, resumeText string, qualifications []check.Qualification) (*check.Analysis, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, errors.New("resume text is required")
	}

	qualsJSON, err := json.Marshal(qualifications)
	if err != nil {
		return nil, fmt.Errorf("marshal qualifications: %w", err)
	}

	prompt := strings.ReplaceAll(scorePromptTemplate, "{{QUALIFICATIONS_JSON}}", string(qualsJSON))
	prompt = strings.ReplaceAll(prompt, "{{RESUME_TEXT}}", resumeText)

	s.logger.Debug("gemini score request",
		zap.Int("qualifications", len(qualifications)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.Truncate(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("score resume: %w", err)
	}

	s.logger.Debug("gemini score response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.Truncate(raw, s.maxLogLen)),
	)

	return parseAnalysis(raw), nil
}

// parseAnalysis splits the model response into the score CSV block and the
// narrative. A response without a fenced csv block is treated as narrative
// only; the weighted score then degenerates to 0.
func parseAnalysis(raw string) *check.Analysis {
	scoreCSV, narrative, found := extractFencedBlock(raw, "csv")
	if !found {
		narrative = strings.TrimSpace(raw)
	}

	return &check.Analysis{
		Score:     check.WeightedScore(scoreCSV),
		ScoreCSV:  scoreCSV,
		Narrative: narrative,
	}
}
