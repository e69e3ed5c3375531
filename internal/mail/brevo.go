package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"authcore.org/internal/auth"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoSender delivers mail through the Brevo transactional API.
type BrevoSender struct {
	apiKey   string
	domain   string
	fromName string
	endpoint string
	client   *http.Client
}

// NewBrevoSender constructs the sender. The domain is appended to the
// local part of each message's From field.
func NewBrevoSender(apiKey, domain, fromName string) *BrevoSender {
	return &BrevoSender{
		apiKey:   apiKey,
		domain:   domain,
		fromName: fromName,
		endpoint: brevoEndpoint,
		client:   newHTTPClient(),
	}
}

type brevoParty struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoPayload struct {
	Sender      brevoParty   `json:"sender"`
	To          []brevoParty `json:"to"`
	ReplyTo     brevoParty   `json:"replyTo"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
	TextContent string       `json:"textContent,omitempty"`
}

func (s *BrevoSender) Send(ctx context.Context, msg auth.Message) error {
	from := brevoParty{Email: fmt.Sprintf("%s@%s", msg.From, s.domain), Name: s.fromName}
	payload := brevoPayload{
		Sender:      from,
		ReplyTo:     from,
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	}
	for _, r := range msg.To {
		payload.To = append(payload.To, brevoParty{Email: r.Email, Name: r.Name})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode brevo payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build brevo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send via brevo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brevo send failed: http %d: %s", resp.StatusCode, detail)
	}
	return nil
}
