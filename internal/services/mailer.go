package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// InvoiceEmail is one invoice delivered to a customer
type InvoiceEmail struct {
	ToEmail        string
	ToName         string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// Mailer delivers invoice emails
type Mailer interface {
	SendInvoice(ctx context.Context, email InvoiceEmail) error
}

// BrevoMailer sends transactional email through Brevo
type BrevoMailer struct {
	client    *brevo.APIClient
	fromEmail string
	fromName  string
}

// NewBrevoMailer returns nil when apiKey is empty; callers treat a nil Mailer as disabled
func NewBrevoMailer(apiKey, fromEmail, fromName string) Mailer {
	if apiKey == "" || fromEmail == "" {
		return nil
	}
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	return &BrevoMailer{
		client:    brevo.NewAPIClient(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// SendInvoice sends the invoice text as the body and as an attachment
func (m *BrevoMailer) SendInvoice(ctx context.Context, email InvoiceEmail) error {
	msg := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  m.fromName,
			Email: m.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: email.ToEmail, Name: email.ToName},
		},
		Subject:     email.Subject,
		TextContent: email.Body,
		HtmlContent: "<pre>" + html.EscapeString(email.Body) + "</pre>",
		Tags:        []string{"invoice"},
	}
	if len(email.Attachment) > 0 {
		msg.Attachment = []brevo.SendSmtpEmailAttachment{
			{Name: email.AttachmentName, Content: base64.StdEncoding.EncodeToString(email.Attachment)},
		}
	}

	_, resp, err := m.client.TransactionalEmailsApi.SendTransacEmail(ctx, msg)
	if err != nil {
		return fmt.Errorf("brevo send failed: %w", err)
	}
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return fmt.Errorf("brevo returned status %d", resp.StatusCode)
	}
	return nil
}
