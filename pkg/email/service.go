package email

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Result captures what the provider reported for one accepted message.
type Result struct {
	MessageID  string
	StatusCode int
}

// Sender delivers a single marketing email.
type Sender interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlBody, plainTextBody string) (*Result, error)
}

// Service handles email sending via SendGrid. Without an API key it runs in
// console-only mode so development machines never reach the real provider.
type Service struct {
	fromEmail   string
	fromName    string
	sendGridKey string
	useSendGrid bool
}

var _ Sender = (*Service)(nil)

// NewService creates a new email service.
// If sendGridAPIKey is provided, emails will be sent via SendGrid.
// Otherwise, emails will be logged to console (development mode).
func NewService(fromEmail, fromName, sendGridAPIKey string) *Service {
	useSendGrid := sendGridAPIKey != ""
	if useSendGrid {
		log.Printf("✅ Email service initialized with SendGrid")
	} else {
		log.Printf("⚠️  Email service in console-only mode (set SENDGRID_API_KEY for production)")
	}

	return &Service{
		fromEmail:   fromEmail,
		fromName:    fromName,
		sendGridKey: sendGridAPIKey,
		useSendGrid: useSendGrid,
	}
}

// Send delivers one email with custom subject and body content.
func (s *Service) Send(ctx context.Context, toEmail, toName, subject, htmlBody, plainTextBody string) (*Result, error) {
	if !s.useSendGrid {
		return s.logEmailToConsole(toEmail, toName, subject)
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	if plainTextBody == "" {
		plainTextBody = htmlBody
	}
	message := mail.NewSingleEmail(from, subject, to, plainTextBody, htmlBody)

	client := sendgrid.NewSendClient(s.sendGridKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		return nil, fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}

	res := &Result{StatusCode: response.StatusCode}
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		res.MessageID = ids[0]
	}
	return res, nil
}

// logEmailToConsole logs email details to console (development mode).
func (s *Service) logEmailToConsole(toEmail, toName, subject string) (*Result, error) {
	log.Printf("📧 [EMAIL] %s", subject)
	log.Printf("   To: %s <%s>", toName, toEmail)
	log.Printf("   From: %s <%s>", s.fromName, s.fromEmail)
	log.Printf("   ⚠️  Email NOT sent (development mode)")
	return &Result{MessageID: "console", StatusCode: 202}, nil
}
