package notify

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/matsen/paperfeed/internal/digest"
)

// DefaultEmailTimeout bounds the SMTP conversation.
const DefaultEmailTimeout = 30 * time.Second

// EmailSink sends the digest as an HTML email. The connection upgrades to
// STARTTLS when the server offers it.
type EmailSink struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Timeout  time.Duration

	now  func() time.Time
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewEmailSink creates an SMTP sink.
func NewEmailSink(host string, port int, username, password, from string, to []string) *EmailSink {
	s := &EmailSink{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		To:       to,
		Timeout:  DefaultEmailTimeout,
		now:      time.Now,
	}
	s.send = s.dialAndSend
	return s
}

func (s *EmailSink) Name() string { return "email" }

// Send renders and delivers the message. Cancelling ctx aborts the SMTP
// conversation.
func (s *EmailSink) Send(ctx context.Context, d *digest.Digest) error {
	if len(s.To) == 0 {
		return fmt.Errorf("email: no recipients")
	}

	msg, err := s.message(d)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("sending email via %s:%d: %w", s.Host, s.Port, err)
	}
	return nil
}

func (s *EmailSink) client() (*mail.Client, error) {
	opts := []mail.Option{mail.WithTLSPortPolicy(mail.TLSOpportunistic)}
	if s.Port > 0 {
		opts = append(opts, mail.WithPort(s.Port))
	}
	if s.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.Timeout))
	}
	if s.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.Username),
			mail.WithPassword(s.Password),
		)
	}
	c, err := mail.NewClient(s.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("configuring smtp client: %w", err)
	}
	return c, nil
}

func (s *EmailSink) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, msg)
}

func (s *EmailSink) message(d *digest.Digest) (*mail.Msg, error) {
	body, err := EmailHTML(d)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(s.From); err != nil {
		return nil, fmt.Errorf("email from %q: %w", s.From, err)
	}
	if err := msg.To(s.To...); err != nil {
		return nil, fmt.Errorf("email recipients: %w", err)
	}
	msg.Subject(Title(d))
	msg.SetDateWithValue(s.now())
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto;">
<h2>{{.Title}}</h2>
{{if .Empty}}<p>{{.EmptyMessage}}</p>{{else}}<p>{{.Intro}}</p>
{{range .Papers}}<div style="border: 1px solid #ddd; border-radius: 8px; padding: 12px; margin: 12px 0;">
<h3 style="margin: 0 0 8px 0;">{{.N}}. <a href="{{.AbsURL}}">{{.Title}}</a></h3>
<p style="margin: 4px 0; color: #555;">{{.Authors}}<br><i>{{.Affiliations}}</i></p>
{{if .Stars}}<p style="margin: 4px 0;">Relevance: {{.Stars}}</p>{{end}}
<p style="margin: 8px 0;"><b>TLDR:</b> {{.TLDR}}</p>
<p style="margin: 4px 0;"><a href="{{.PDFURL}}">PDF</a>{{if .CodeURL}} · <a href="{{.CodeURL}}">Code</a>{{end}}</p>
</div>
{{end}}{{end}}</body></html>
`))

type emailPaper struct {
	N                    int
	Title, Authors       string
	Affiliations, Stars  string
	TLDR, AbsURL, PDFURL string
	CodeURL              string
}

// EmailHTML renders d as an HTML document.
func EmailHTML(d *digest.Digest) (string, error) {
	data := struct {
		Title, Intro, EmptyMessage string
		Empty                      bool
		Papers                     []emailPaper
	}{
		Title:        Title(d),
		Intro:        introLine(len(d.Entries)),
		EmptyMessage: emptyMessage,
		Empty:        d.Empty(),
	}
	for i, e := range d.Entries {
		data.Papers = append(data.Papers, emailPaper{
			N:            i + 1,
			Title:        e.Title,
			Authors:      digest.FormatAuthors(e.Authors),
			Affiliations: digest.FormatAffiliations(e.Affiliations),
			Stars:        e.Stars(),
			TLDR:         tldrText(e),
			AbsURL:       e.AbsURL(),
			PDFURL:       e.PDFURL,
			CodeURL:      e.CodeURL,
		})
	}

	var b strings.Builder
	if err := emailTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering email: %w", err)
	}
	return b.String(), nil
}
