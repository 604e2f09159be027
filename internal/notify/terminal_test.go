package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/paperfeed/internal/digest"
)

func TestTerminalSink_PlainWhenNotTTY(t *testing.T) {
	var buf bytes.Buffer
	s := NewTerminalSink(&buf)

	require.NoError(t, s.Send(context.Background(), testDigest()))
	out := buf.String()
	assert.Contains(t, out, "📚 Daily arXiv 2026-03-02\n")
	assert.Contains(t, out, "1. Attention <Is> All")
	assert.Contains(t, out, "Relevance 7.0 ⭐⭐½")
	assert.Contains(t, out, "TLDR: "+noSummary)
	assert.NotContains(t, out, "\x1b[")
}

func TestTerminalText_Empty(t *testing.T) {
	out := TerminalText(&digest.Digest{Date: testDate}, false)
	assert.Contains(t, out, emptyMessage)
}

func TestTerminalSink_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewTerminalSink(&bytes.Buffer{}).Send(ctx, testDigest()))
}
