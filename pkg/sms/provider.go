package sms

import (
	"context"
	"log"
	"time"
)

// Provider defines the interface for SMS delivery providers (Twilio, etc.)
type Provider interface {
	SendSMS(ctx context.Context, to, from, body, mediaURL string) (*Result, error)
}

// Result holds the result of sending an SMS.
type Result struct {
	SID         string
	Status      string
	DateCreated time.Time
}

// ConsoleProvider logs messages instead of sending them. Used when Twilio
// credentials are absent (development mode).
type ConsoleProvider struct{}

var _ Provider = (*ConsoleProvider)(nil)

// SendSMS logs the message to console.
func (ConsoleProvider) SendSMS(ctx context.Context, to, from, body, mediaURL string) (*Result, error) {
	log.Printf("📱 [SMS] To: %s From: %s", to, from)
	log.Printf("   Body: %s", body)
	if mediaURL != "" {
		log.Printf("   Media: %s", mediaURL)
	}
	log.Printf("   ⚠️  SMS NOT sent (development mode)")
	return &Result{SID: "console", Status: "queued", DateCreated: time.Now()}, nil
}
