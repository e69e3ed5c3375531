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

const mailerSendEndpoint = "https://api.mailersend.com/v1/email"

// MailerSendSender delivers mail through the MailerSend API.
type MailerSendSender struct {
	apiKey   string
	domain   string
	fromName string
	endpoint string
	client   *http.Client
}

func NewMailerSendSender(apiKey, domain, fromName string) *MailerSendSender {
	return &MailerSendSender{
		apiKey:   apiKey,
		domain:   domain,
		fromName: fromName,
		endpoint: mailerSendEndpoint,
		client:   newHTTPClient(),
	}
}

type mailerSendParty struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailerSendPayload struct {
	From    mailerSendParty   `json:"from"`
	To      []mailerSendParty `json:"to"`
	ReplyTo mailerSendParty   `json:"reply_to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html"`
	Text    string            `json:"text,omitempty"`
}

func (s *MailerSendSender) Send(ctx context.Context, msg auth.Message) error {
	from := mailerSendParty{Email: fmt.Sprintf("%s@%s", msg.From, s.domain), Name: s.fromName}
	payload := mailerSendPayload{
		From:    from,
		ReplyTo: from,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	for _, r := range msg.To {
		payload.To = append(payload.To, mailerSendParty{Email: r.Email, Name: r.Name})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode mailersend payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mailersend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send via mailersend: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mailersend send failed: http %d: %s", resp.StatusCode, detail)
	}
	return nil
}
