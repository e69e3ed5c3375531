// Package mail delivers transactional email through a configurable
// provider.
package mail

import (
	"fmt"
	"net/http"
	"time"

	"authcore.org/internal/auth"
)

// Provider names supported by New.
const (
	ProviderBrevo      = "brevo"
	ProviderMailerSend = "mailersend"
	ProviderLog        = "log"
)

const httpTimeout = 10 * time.Second

// Config selects and configures the delivery provider. Domain is the
// sender domain appended to the local part carried by each message.
type Config struct {
	Provider string
	APIKey   string
	Domain   string
	FromName string
}

// New builds the notifier for the configured provider. The log provider
// needs no credentials and is the development default.
func New(cfg Config) (auth.Notifier, error) {
	switch cfg.Provider {
	case ProviderLog, "":
		return NewLogSender(), nil
	case ProviderBrevo:
		if cfg.APIKey == "" || cfg.Domain == "" {
			return nil, fmt.Errorf("mail: brevo requires an api key and sender domain")
		}
		return NewBrevoSender(cfg.APIKey, cfg.Domain, cfg.FromName), nil
	case ProviderMailerSend:
		if cfg.APIKey == "" || cfg.Domain == "" {
			return nil, fmt.Errorf("mail: mailersend requires an api key and sender domain")
		}
		return NewMailerSendSender(cfg.APIKey, cfg.Domain, cfg.FromName), nil
	default:
		return nil, fmt.Errorf("mail: unsupported provider %q", cfg.Provider)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}
