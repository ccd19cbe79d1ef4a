// Package slack posts ticket alerts to a team channel webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-orchestrator/internal/config"
)

// Notification carries the ticket fields rendered into the channel message.
type Notification struct {
	CustomerName  string
	CustomerEmail string
	IssueType     string
	TrackerKey    string
	TicketID      int64
	Description   string
	Product       string
}

// Client posts formatted messages to a fixed webhook endpoint.
type Client struct {
	webhookURL string
	http       *http.Client
	log        *zap.Logger
}

// NewClient builds a webhook client.
func NewClient(cfg config.SlackConfig, logger *zap.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		http:       &http.Client{Timeout: cfg.Timeout()},
		log:        logger,
	}
}

// Send posts one message. Only an HTTP 200 counts as delivered; every other
// outcome is returned as an error for the caller to report, never panicked
// or retried here.
func (c *Client) Send(ctx context.Context, n Notification) error {
	if strings.TrimSpace(c.webhookURL) == "" {
		return fmt.Errorf("slack: webhook URL not configured")
	}

	payload := map[string]string{"text": formatMessage(n)}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("slack: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("webhook post failed", zap.Error(err))
		return fmt.Errorf("slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		c.log.Error("webhook rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("body", strings.TrimSpace(string(detail))))
		return fmt.Errorf("slack: status %d", resp.StatusCode)
	}
	return nil
}

func formatMessage(n Notification) string {
	return fmt.Sprintf(
		":rotating_light: *New Support Ticket Created*\n\n"+
			"*Customer:* %s  \n"+
			"*Email:* `%s`  \n"+
			"*Issue Type:* `%s`  \n"+
			"*Product:* `%s`  \n"+
			"*Ticket ID:* `%d`  \n"+
			"*Tracker Issue:* `%s`\n\n"+
			"*Description:*\n%s\n\n"+
			"Please review and take appropriate action.",
		n.CustomerName, n.CustomerEmail, n.IssueType, n.Product, n.TicketID, n.TrackerKey, n.Description)
}
