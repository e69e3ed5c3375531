package auth

import "context"

// Recipient is one addressee of an outbound message.
type Recipient struct {
	Name  string
	Email string
}

// Message is a transactional email. From is the local part only; the
// delivering adapter appends its configured sender domain.
type Message struct {
	From    string
	To      []Recipient
	Subject string
	HTML    string
	Text    string
}

// Notifier delivers verification codes and reset links. Failures propagate
// as operation failures; nothing is dropped silently.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
