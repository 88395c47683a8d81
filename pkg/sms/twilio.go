package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioProvider sends messages through the Twilio Messages API.
type TwilioProvider struct {
	accountSID string
	authToken  string
	baseURL    string
	client     *http.Client
}

var _ Provider = (*TwilioProvider)(nil)

// NewTwilioProvider creates a Twilio-backed provider.
func NewTwilioProvider(accountSID, authToken string) *TwilioProvider {
	return &TwilioProvider{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    twilioAPIBase,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type twilioMessageResponse struct {
	SID         string `json:"sid"`
	Status      string `json:"status"`
	DateCreated string `json:"date_created"`
	ErrorCode   *int   `json:"error_code"`
	Message     string `json:"message"` // set on API error payloads
}

// SendSMS posts one message to the Twilio Messages endpoint. A non-empty
// mediaURL upgrades the message to MMS.
func (t *TwilioProvider) SendSMS(ctx context.Context, to, from, body, mediaURL string) (*Result, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)
	if mediaURL != "" {
		form.Set("MediaUrl", mediaURL)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build twilio request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call twilio: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read twilio response: %w", err)
	}

	var msg twilioMessageResponse
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode twilio response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if msg.Message != "" {
			return nil, fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, msg.Message)
		}
		return nil, fmt.Errorf("twilio returned status %d", resp.StatusCode)
	}

	created, _ := time.Parse(time.RFC1123Z, msg.DateCreated)
	return &Result{SID: msg.SID, Status: msg.Status, DateCreated: created}, nil
}
