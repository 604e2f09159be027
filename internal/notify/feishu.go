package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/matsen/paperfeed/internal/digest"
	"github.com/matsen/paperfeed/internal/httputil"
)

// FeishuSink posts the digest to a Feishu (Lark) custom bot as an
// interactive card.
type FeishuSink struct {
	WebhookURL string
	Secret     string // Optional signing secret

	now     func() time.Time
	retryer *httputil.Retryer
}

// NewFeishuSink creates a sink for a custom bot webhook.
func NewFeishuSink(webhookURL, secret string) *FeishuSink {
	return &FeishuSink{
		WebhookURL: webhookURL,
		Secret:     secret,
		now:        time.Now,
		retryer:    httputil.NewRetryer(&http.Client{Timeout: 30 * time.Second}, nil, 2),
	}
}

// WithRetryer replaces the HTTP retryer.
func (s *FeishuSink) WithRetryer(r *httputil.Retryer) *FeishuSink {
	s.retryer = r
	return s
}

func (s *FeishuSink) Name() string { return "feishu" }

type feishuResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Send posts the card and checks the bot's response code.
func (s *FeishuSink) Send(ctx context.Context, d *digest.Digest) error {
	payload := map[string]any{
		"msg_type": "interactive",
		"card":     FeishuCard(d),
	}
	if s.Secret != "" {
		ts := s.now().Unix()
		payload["timestamp"] = strconv.FormatInt(ts, 10)
		payload["sign"] = feishuSign(ts, s.Secret)
	}

	var resp feishuResponse
	if err := s.retryer.PostJSON(ctx, s.WebhookURL, nil, payload, &resp, "feishu"); err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("feishu rejected message: code %d: %s", resp.Code, resp.Msg)
	}
	return nil
}

// feishuSign computes the custom bot signature: HMAC-SHA256 keyed with
// "timestamp\nsecret" over an empty message, base64 encoded.
func feishuSign(ts int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(strconv.FormatInt(ts, 10)+"\n"+secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type cardElement map[string]any

// FeishuCard builds a schema 2.0 interactive card for d.
func FeishuCard(d *digest.Digest) map[string]any {
	var elements []cardElement
	if d.Empty() {
		elements = append(elements, markdown(emptyMessage))
	} else {
		elements = append(elements, markdown(introLine(len(d.Entries))), cardElement{"tag": "hr"})
		for i, e := range d.Entries {
			elements = append(elements, paperElements(i+1, e)...)
		}
	}

	return map[string]any{
		"schema": "2.0",
		"config": map[string]any{"wide_screen_mode": true},
		"header": map[string]any{
			"title":    map[string]any{"tag": "plain_text", "content": Title(d)},
			"template": "blue",
		},
		"body": map[string]any{"elements": elements},
	}
}

func paperElements(n int, e digest.Entry) []cardElement {
	out := []cardElement{
		markdown(fmt.Sprintf("**%d. %s**", n, e.Title)),
		markdown(fmt.Sprintf("👤 %s\n🏛️ *%s*", digest.FormatAuthors(e.Authors), digest.FormatAffiliations(e.Affiliations))),
	}
	if stars := e.Stars(); stars != "" {
		out = append(out, markdown("**Relevance:** "+stars))
	}
	out = append(out,
		markdown("📝 **TLDR:** "+tldrText(e)),
		markdown(fmt.Sprintf("🔗 arXiv: [%s](%s)", e.ID, e.AbsURL())),
	)

	buttons := []cardElement{button("PDF", e.PDFURL, "primary")}
	if e.CodeURL != "" {
		buttons = append(buttons, button("Code", e.CodeURL, "default"))
	}
	columns := make([]cardElement, len(buttons))
	for i, b := range buttons {
		columns[i] = cardElement{"tag": "column", "width": "auto", "elements": []cardElement{b}}
	}
	out = append(out,
		cardElement{"tag": "column_set", "columns": columns},
		cardElement{"tag": "hr"},
	)
	return out
}

func markdown(content string) cardElement {
	return cardElement{"tag": "markdown", "content": content}
}

func button(label, url, kind string) cardElement {
	return cardElement{
		"tag":       "button",
		"text":      map[string]any{"tag": "plain_text", "content": label},
		"type":      kind,
		"behaviors": []map[string]any{{"type": "open_url", "default_url": url}},
	}
}
