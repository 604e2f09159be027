package summarize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/paperfeed/internal/logger"
)

// replyBackend returns a fixed reply and records the prompt.
type replyBackend struct {
	reply  string
	err    error
	prompt Prompt
}

func (b *replyBackend) Complete(_ context.Context, p Prompt) (string, error) {
	b.prompt = p
	return b.reply, b.err
}

func (b *replyBackend) ContextWindow() int { return 4096 }
func (b *replyBackend) Name() string       { return "reply" }

func TestExtractAffiliations(t *testing.T) {
	b := &replyBackend{reply: "Sure! Here they are:\n```json\n[\"MIT\", \"Fred Hutch\"]\n```"}
	got, err := NewAffiliationExtractor(b, time.Second).ExtractAffiliations(context.Background(), "Ada (MIT)")

	require.NoError(t, err)
	assert.Equal(t, []string{"MIT", "Fred Hutch"}, got)
	assert.Contains(t, b.prompt.User, "Ada (MIT)")
	assert.Contains(t, b.prompt.System, "JSON array")
}

func TestExtractAffiliations_EmptyList(t *testing.T) {
	b := &replyBackend{reply: "[]"}
	got, err := NewAffiliationExtractor(b, 0).ExtractAffiliations(context.Background(), "Ada")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractAffiliations_Errors(t *testing.T) {
	tests := []struct {
		name    string
		backend *replyBackend
		wantErr string
	}{
		{"backend", &replyBackend{err: errors.New("down")}, "reply: down"},
		{"no list", &replyBackend{reply: "I cannot tell."}, "no affiliation list"},
		{"not strings", &replyBackend{reply: "[1, 2]"}, "parsing affiliation list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAffiliationExtractor(tt.backend, time.Second).ExtractAffiliations(context.Background(), "Ada")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSummarizer_AffiliationExtractorSharesBackend(t *testing.T) {
	b := &replyBackend{reply: `["Inria"]`}
	s := NewSummarizer(b, time.Second, logger.Nop())

	got, err := s.AffiliationExtractor().ExtractAffiliations(context.Background(), "Eve")
	require.NoError(t, err)
	assert.Equal(t, []string{"Inria"}, got)
}
