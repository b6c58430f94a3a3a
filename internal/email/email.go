// Package email sends transactional mail through Resend. Only one message
// exists today: the confirmation sent after an account has been deleted.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"log"

	"github.com/resend/resend-go/v3"
)

// deletionTemplate is embedded rather than loaded from disk so the binary
// stays self-contained.
var deletionTemplate = template.Must(template.New("deletion").Parse(`
<div style="font-family: sans-serif; max-width: 600px;">
  <h2>Your {{.AppName}} account has been deleted</h2>
  <p>Hi{{if .FirstName}} {{.FirstName}}{{end}},</p>
  <p>Your account and all associated data have been permanently removed from
  our systems on {{.DeletedAt}}.</p>
  {{if .Exported}}<p>A copy of your data was exported before deletion.</p>{{end}}
  <p>If you did not request this, contact support immediately at
  <a href="mailto:support@myaibookkeeper.com">support@myaibookkeeper.com</a>.</p>
  <p>&mdash; The {{.AppName}} team</p>
</div>
`))

type deletionData struct {
	AppName   string
	FirstName string
	DeletedAt string
	Exported  bool
}

// Service sends account lifecycle emails
type Service struct {
	apiKey  string
	from    string
	enabled bool
}

// NewService creates an email service. With an empty API key or enabled set
// to false the service logs instead of sending, which keeps deletion flows
// working in development.
func NewService(apiKey, from string, enabled bool) *Service {
	return &Service{apiKey: apiKey, from: from, enabled: enabled}
}

// SendDeletionConfirmation emails the (former) user that their account is
// gone. Failures are the caller's to log; deletion never depends on this.
func (s *Service) SendDeletionConfirmation(toEmail, firstName, deletedAt string, exported bool) error {
	data := deletionData{
		AppName:   "My AI Bookkeeper",
		FirstName: firstName,
		DeletedAt: deletedAt,
		Exported:  exported,
	}

	var body bytes.Buffer
	if err := deletionTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render deletion email: %w", err)
	}

	if !s.enabled || s.apiKey == "" {
		log.Printf("[EMAIL] Sending disabled, would have sent deletion confirmation to %s", toEmail)
		return nil
	}

	client := resend.NewClient(s.apiKey)
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Your My AI Bookkeeper account has been deleted",
		Html:    body.String(),
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send deletion confirmation: %w", err)
	}

	log.Printf("[EMAIL] Sent deletion confirmation to %s. ID: %s", toEmail, sent.Id)
	return nil
}
