package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// twilioMessages is the slice of the Twilio REST API used here.
type twilioMessages interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

// TwilioSMS sends text messages through Twilio.
type TwilioSMS struct {
	api  twilioMessages
	from string
}

// NewTwilioSMS creates a Twilio SMS channel.
func NewTwilioSMS(accountSID, authToken, fromNumber string) *TwilioSMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSMS{api: client.Api, from: fromNumber}
}

func (t *TwilioSMS) SendSMS(ctx context.Context, to, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &api.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(message)

	if _, err := t.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send to %s: %w", to, err)
	}
	return nil
}

// WebhookSMS posts text messages as JSON to an HTTP relay.
type WebhookSMS struct {
	url    string
	token  string
	sender string
	client *http.Client
}

// NewWebhookSMS creates an HTTP relay SMS channel.
func NewWebhookSMS(url, token, sender string) *WebhookSMS {
	return &WebhookSMS{
		url:    url,
		token:  token,
		sender: sender,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookSMSPayload struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

func (w *WebhookSMS) SendSMS(ctx context.Context, to, message string) error {
	body, err := json.Marshal(webhookSMSPayload{To: to, From: w.sender, Message: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
