package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/config"
)

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Channel delivers messages to an external provider.
type Channel interface {
	// Configured reports whether the channel holds the credential it needs to send.
	Configured() bool
	Send(ctx context.Context, msg Message) error
}

// SendError is a provider rejection for a single message.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("email provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("email provider returned status %d: %s", e.StatusCode, body)
}

type resendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// ResendChannel sends email through the Resend HTTP API.
type ResendChannel struct {
	httpClient *resty.Client
	apiKey     string
	from       string
	logger     *zap.Logger
}

// NewResendChannel builds the channel from configuration. A missing API key yields an
// unconfigured channel rather than an error.
func NewResendChannel(cfg config.NotificationConfig, logger *zap.Logger) *ResendChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.EmailAPIURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.EmailAPIKey != "" {
		client.SetAuthToken(cfg.EmailAPIKey)
	}

	return &ResendChannel{
		httpClient: client,
		apiKey:     cfg.EmailAPIKey,
		from:       cfg.EmailFrom,
		logger:     logger,
	}
}

// Configured reports whether an API key is set.
func (c *ResendChannel) Configured() bool {
	return c.apiKey != ""
}

// Send posts one email.
func (c *ResendChannel) Send(ctx context.Context, msg Message) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(resendEmailRequest{
			From:    c.from,
			To:      []string{msg.To},
			Subject: msg.Subject,
			HTML:    msg.HTML,
		}).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn("email provider rejected message",
			zap.String("to", msg.To),
			zap.Int("status_code", resp.StatusCode()))
		return &SendError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
