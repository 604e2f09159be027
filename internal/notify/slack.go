package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/matsen/paperfeed/internal/digest"
	"github.com/matsen/paperfeed/internal/httputil"
)

// SlackSink posts the digest to a Slack incoming webhook as mrkdwn text.
type SlackSink struct {
	WebhookURL string
	retryer    *httputil.Retryer
}

// NewSlackSink creates a sink for a Slack incoming webhook.
func NewSlackSink(webhookURL string) *SlackSink {
	return &SlackSink{
		WebhookURL: webhookURL,
		retryer:    httputil.NewRetryer(&http.Client{Timeout: 30 * time.Second}, nil, 2),
	}
}

// WithRetryer replaces the HTTP retryer.
func (s *SlackSink) WithRetryer(r *httputil.Retryer) *SlackSink {
	s.retryer = r
	return s
}

func (s *SlackSink) Name() string { return "slack" }

// Send posts the digest. Slack answers a plain "ok", so only the status is checked.
func (s *SlackSink) Send(ctx context.Context, d *digest.Digest) error {
	payload := map[string]string{"text": SlackText(d)}
	if err := s.retryer.PostJSON(ctx, s.WebhookURL, nil, payload, nil, "slack"); err != nil {
		return fmt.Errorf("posting to Slack: %w", err)
	}
	return nil
}

// SlackText renders d as Slack mrkdwn.
func SlackText(d *digest.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", Title(d))
	if d.Empty() {
		b.WriteString(emptyMessage + "\n")
		return b.String()
	}
	b.WriteString(introLine(len(d.Entries)) + "\n")

	for i, e := range d.Entries {
		fmt.Fprintf(&b, "\n*%d. <%s|%s>*\n", i+1, e.AbsURL(), slackEscape(e.Title))
		fmt.Fprintf(&b, "%s\n_%s_\n", slackEscape(digest.FormatAuthors(e.Authors)), slackEscape(digest.FormatAffiliations(e.Affiliations)))
		if stars := e.Stars(); stars != "" {
			fmt.Fprintf(&b, "Relevance: %s\n", stars)
		}
		fmt.Fprintf(&b, "> %s\n", slackEscape(tldrText(e)))

		links := []string{fmt.Sprintf("<%s|PDF>", e.PDFURL)}
		if e.CodeURL != "" {
			links = append(links, fmt.Sprintf("<%s|Code>", e.CodeURL))
		}
		b.WriteString(strings.Join(links, " · ") + "\n")
	}
	return b.String()
}

var slackReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func slackEscape(s string) string { return slackReplacer.Replace(s) }
