package relay

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/selimacar/crm-notifier/pkg/logger"
)

// Client posts fire-and-forget notifications to an email or SMS relay
// endpoint. No delivery state is tracked for these channels; a non-202
// response is simply an error for the caller's retry bookkeeping.
type Client struct {
	httpClient *resty.Client
	relayURL   string
}

type payload struct {
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Content string `json:"content"`
}

func NewClient(relayURL, authKey string, timeout time.Duration) *Client {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-crm-auth-key", authKey)

	return &Client{
		httpClient: client,
		relayURL:   relayURL,
	}
}

func (c *Client) Send(ctx context.Context, to, subject, content string) error {
	if c.relayURL == "" {
		return fmt.Errorf("relay URL is not configured")
	}

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload{To: to, Subject: subject, Content: content}).
		Post(c.relayURL)

	duration := time.Since(startTime)

	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	logger.Infof("Relay request to %s completed in %v (status: %d)", c.relayURL, duration, resp.StatusCode())

	if resp.StatusCode() != http.StatusAccepted {
		return fmt.Errorf("unexpected status code: %d (expected 202), body: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

func (c *Client) GetURL() string {
	return c.relayURL
}
