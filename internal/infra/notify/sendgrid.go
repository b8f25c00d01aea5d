package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"stayride/internal/app/policies"
)

// SendGridNotifier delivers templates through the SendGrid dynamic template
// API. The recipient parameter is the user's email address; resolving guest
// and host ids to addresses belongs to the caller's directory.
type SendGridNotifier struct {
	APIKey    string
	FromEmail string
	FromName  string
	// Templates maps internal template names to SendGrid template ids.
	// Unmapped names fall back to a plain-text email.
	Templates map[string]string
}

func (n *SendGridNotifier) Send(ctx context.Context, to, template string, data any) error {
	if n.APIKey == "" {
		return fmt.Errorf("notify: sendgrid api key not configured")
	}
	from := mail.NewEmail(n.FromName, n.FromEmail)
	recipient := mail.NewEmail("", to)

	var message *mail.SGMailV3
	if templateID, ok := n.Templates[template]; ok {
		message = mail.NewV3Mail()
		message.SetFrom(from)
		message.SetTemplateID(templateID)
		personalization := mail.NewPersonalization()
		personalization.AddTos(recipient)
		if fields, ok := data.(map[string]any); ok {
			for key, value := range fields {
				personalization.SetDynamicTemplateData(key, value)
			}
		}
		message.AddPersonalizations(personalization)
	} else {
		body := fmt.Sprintf("%s: %v", template, data)
		message = mail.NewSingleEmail(from, template, recipient, body, "")
	}

	client := sendgrid.NewSendClient(n.APIKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("notify: send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("notify: sendgrid status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

var _ policies.Notifier = (*SendGridNotifier)(nil)
