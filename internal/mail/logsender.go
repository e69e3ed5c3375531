package mail

import (
	"context"
	"time"

	"authcore.org/internal/auth"
	"authcore.org/internal/obs"
)

// LogSender writes outbound mail to the service log instead of delivering
// it. Default in development, where verification codes and reset links
// are read off the log.
type LogSender struct{}

func NewLogSender() LogSender { return LogSender{} }

func (LogSender) Send(ctx context.Context, msg auth.Message) error {
	recipients := make([]string, 0, len(msg.To))
	for _, r := range msg.To {
		recipients = append(recipients, r.Email)
	}
	obs.LogRequest(map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"level":   "info",
		"msg":     "mail.send",
		"from":    msg.From,
		"to":      recipients,
		"subject": msg.Subject,
		"body":    msg.Text,
	})
	return nil
}
