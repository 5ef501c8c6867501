// Package mailer sends transactional email through the Resend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// ErrDisabled is returned by Send when no API key is configured.
var ErrDisabled = errors.New("mailer disabled")

// Config holds Resend settings.
type Config struct {
	APIKey      string
	APIURL      string
	FromAddress string
	FromName    string
}

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Client posts messages to Resend, retrying 429s and 5xx responses.
type Client struct {
	cfg    Config
	http   *retryablehttp.Client
	logger *zap.Logger
}

// New creates a Resend client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := retryablehttp.NewClient()
	hc.RetryMax = 3
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 5 * time.Second
	hc.HTTPClient.Timeout = 15 * time.Second
	hc.Logger = nil
	return &Client{cfg: cfg, http: hc, logger: logger}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != "" && c.cfg.APIKey != "your_resend_api_key_here"
}

func (c *Client) from() string {
	if c.cfg.FromName == "" {
		return c.cfg.FromAddress
	}
	return fmt.Sprintf("%s <%s>", c.cfg.FromName, c.cfg.FromAddress)
}

// Send delivers msg and returns the provider message ID.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	body, err := json.Marshal(sendRequest{From: c.from(), To: []string{msg.To}, Subject: msg.Subject, HTML: msg.HTML})
	if err != nil {
		return "", fmt.Errorf("marshal email: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out sendResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode >= 300 {
		if out.Message == "" {
			out.Message = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("resend status %d: %s", resp.StatusCode, out.Message)
	}
	c.logger.Debug("email sent", zap.String("to", msg.To), zap.String("id", out.ID))
	return out.ID, nil
}
