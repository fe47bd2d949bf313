package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resumecheck/resumecheck/internal/check"
)

type stubGenerator struct {
	response string
	err      error
	prompt   string
	calls    int
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.prompt = prompt
	return s.response, s.err
}

func TestExtractorParsesResponse(t *testing.T) {
	gen := &stubGenerator{
		response: `[{"qualification": "Go", "weight": 9}, {"qualification": "SQL", "weight": 6}]`,
	}

	extractor := NewExtractor(gen, zap.NewNop(), 0)
	quals, err := extractor.Extract(context.Background(), "we need a Go developer")
	require.NoError(t, err)

	assert.Equal(t, []check.Qualification{
		{Name: "Go", Weight: 9},
		{Name: "SQL", Weight: 6},
	}, quals)
	assert.Contains(t, gen.prompt, "we need a Go developer")
}

func TestExtractorStripsCodeFences(t *testing.T) {
	gen := &stubGenerator{
		response: "```json\n[{\"qualification\": \"Kubernetes\", \"weight\": 7}]\n```",
	}

	extractor := NewExtractor(gen, zap.NewNop(), 0)
	quals, err := extractor.Extract(context.Background(), "posting")
	require.NoError(t, err)

	require.Len(t, quals, 1)
	assert.Equal(t, "Kubernetes", quals[0].Name)
}

func TestExtractorDropsMalformedEntries(t *testing.T) {
	gen := &stubGenerator{
		response: `[
			{"qualification": "Go", "weight": 9},
			{"qualification": "", "weight": 5},
			{"qualification": "Vibes", "weight": "immeasurable"},
			{"qualification": "SQL", "weight": 11}
		]`,
	}

	extractor := NewExtractor(gen, zap.NewNop(), 0)
	quals, err := extractor.Extract(context.Background(), "posting")
	require.NoError(t, err)

	require.Len(t, quals, 1)
	assert.Equal(t, check.Qualification{Name: "Go", Weight: 9}, quals[0])
}

func TestExtractorEmptyList(t *testing.T) {
	gen := &stubGenerator{response: "[]"}

	extractor := NewExtractor(gen, zap.NewNop(), 0)
	quals, err := extractor.Extract(context.Background(), "posting")
	require.NoError(t, err)
	assert.Empty(t, quals)
}

func TestExtractorErrors(t *testing.T) {
	t.Run("empty job post", func(t *testing.T) {
		extractor := NewExtractor(&stubGenerator{}, zap.NewNop(), 0)
		_, err := extractor.Extract(context.Background(), "   ")
		assert.Error(t, err)
	})

	t.Run("generator failure", func(t *testing.T) {
		gen := &stubGenerator{err: errors.New("quota exceeded")}
		extractor := NewExtractor(gen, zap.NewNop(), 0)
		_, err := extractor.Extract(context.Background(), "posting")
		assert.ErrorContains(t, err, "quota exceeded")
	})

	t.Run("unparsable response", func(t *testing.T) {
		gen := &stubGenerator{response: "sorry, I cannot help with that"}
		extractor := NewExtractor(gen, zap.NewNop(), 0)
		_, err := extractor.Extract(context.Background(), "posting")
		assert.ErrorContains(t, err, "parse qualifications response")
	})
}
