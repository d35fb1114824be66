package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"

	"github.com/ndavydov/account-service/internal/core/domain"
)

const verificationTemplate = `<html>
<body>
<p>Hi {{.Name}},</p>
<p>Welcome! Please confirm your email address by clicking the link below:</p>
<p><a href="{{.Link}}">Verify my email</a></p>
<p>The link expires in {{.TTL}}. If you did not create an account, you can ignore this message.</p>
</body>
</html>`

const passwordResetTemplate = `<html>
<body>
<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. Click the link below to choose a new one:</p>
<p><a href="{{.Link}}">Reset my password</a></p>
<p>The link expires in {{.TTL}} and can be used once. If you did not request this, you can ignore this message.</p>
</body>
</html>`

// Renderer builds the subject and HTML body for queued email jobs. Action
// links embed the raw token as a query parameter on the configured frontend
// URLs.
type Renderer struct {
	verifyURL  string
	resetURL   string
	verifyTTL  string
	resetTTL   string
	verifyTmpl *template.Template
	resetTmpl  *template.Template
}

// NewRenderer parses the built-in templates against the configured URLs.
func NewRenderer(verifyURL, resetURL, verifyTTL, resetTTL string) (*Renderer, error) {
	verifyTmpl, err := template.New("verification").Parse(verificationTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse verification template: %w", err)
	}
	resetTmpl, err := template.New("password_reset").Parse(passwordResetTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse password reset template: %w", err)
	}
	return &Renderer{
		verifyURL:  verifyURL,
		resetURL:   resetURL,
		verifyTTL:  verifyTTL,
		resetTTL:   resetTTL,
		verifyTmpl: verifyTmpl,
		resetTmpl:  resetTmpl,
	}, nil
}

// Render produces the subject and body for the given job.
func (r *Renderer) Render(job domain.EmailJob) (string, string, error) {
	var (
		tmpl    *template.Template
		subject string
		base    string
		ttl     string
	)

	switch job.Kind {
	case domain.EmailJobVerification:
		tmpl, subject, base, ttl = r.verifyTmpl, "Verify your email address", r.verifyURL, r.verifyTTL
	case domain.EmailJobPasswordReset:
		tmpl, subject, base, ttl = r.resetTmpl, "Reset your password", r.resetURL, r.resetTTL
	default:
		return "", "", fmt.Errorf("unknown email job kind %q", job.Kind)
	}

	link := fmt.Sprintf("%s?token=%s", base, url.QueryEscape(job.Token))

	name := job.Name
	if name == "" {
		name = "there"
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, map[string]string{
		"Name": name,
		"Link": link,
		"TTL":  ttl,
	})
	if err != nil {
		return "", "", fmt.Errorf("render %s template: %w", job.Kind, err)
	}

	return subject, buf.String(), nil
}
