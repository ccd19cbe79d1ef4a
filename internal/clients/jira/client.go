// Package jira opens tracking issues for tickets. The client never returns
// a Go error: every failure mode is folded into a tagged IssueResult whose
// Key always carries a usable value for downstream steps.
package jira

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

// Outcome tags how issue creation ended.
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeConfigMissing   Outcome = "config_missing"
	OutcomeRejected        Outcome = "rejected"
	OutcomeTransportFailed Outcome = "transport_failed"
)

// Sentinel keys stored when creation did not yield a real issue.
const (
	sentinelConfigError     = "JIRA-CONFIG-ERROR"
	sentinelUnknownKey      = "JIRA-UNKNOWN"
	sentinelErrorPrefix     = "JIRA-ERROR-"
	sentinelExceptionPrefix = "JIRA-EXCEPTION: "
)

// IssueInput carries the ticket fields embedded in the issue body.
type IssueInput struct {
	Description   string
	IssueType     string
	TicketID      int64
	Product       string
	CustomerEmail string
}

// IssueResult is the tagged outcome of a creation attempt. Key is always
// non-empty: the created issue key on success, a sentinel otherwise.
type IssueResult struct {
	Key     string
	Outcome Outcome
	Detail  string
}

// Created reports whether a real issue was opened.
func (r IssueResult) Created() bool {
	return r.Outcome == OutcomeCreated
}

// Client talks to the issue tracker's REST API with basic auth.
type Client struct {
	baseURL    string
	userEmail  string
	apiToken   string
	projectKey string
	http       *http.Client
	log        *zap.Logger
}

// NewClient builds a client; missing credentials are tolerated and reported
// per call as OutcomeConfigMissing.
func NewClient(cfg config.JiraConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userEmail:  cfg.UserEmail,
		apiToken:   cfg.APIToken,
		projectKey: cfg.ProjectKey,
		http:       &http.Client{Timeout: cfg.Timeout()},
		log:        logger,
	}
}

// CreateIssue opens a tracking issue and returns its key, or a sentinel.
func (c *Client) CreateIssue(ctx context.Context, in IssueInput) IssueResult {
	if c.baseURL == "" || c.userEmail == "" || c.apiToken == "" {
		c.log.Error("issue tracker not configured; returning sentinel key")
		return IssueResult{
			Key:     sentinelConfigError,
			Outcome: OutcomeConfigMissing,
			Detail:  "missing base URL, user email or API token",
		}
	}

	payload := c.issuePayload(in)
	body, err := json.Marshal(payload)
	if err != nil {
		return IssueResult{
			Key:     sentinelExceptionPrefix + err.Error(),
			Outcome: OutcomeTransportFailed,
			Detail:  err.Error(),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/api/3/issue", bytes.NewReader(body))
	if err != nil {
		return IssueResult{
			Key:     sentinelExceptionPrefix + err.Error(),
			Outcome: OutcomeTransportFailed,
			Detail:  err.Error(),
		}
	}
	req.SetBasicAuth(c.userEmail, c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("issue tracker request failed", zap.Error(err))
		return IssueResult{
			Key:     sentinelExceptionPrefix + err.Error(),
			Outcome: OutcomeTransportFailed,
			Detail:  err.Error(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(resp.Body)
		c.log.Error("issue creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", strings.TrimSpace(string(detail))))
		return IssueResult{
			Key:     fmt.Sprintf("%s%d", sentinelErrorPrefix, resp.StatusCode),
			Outcome: OutcomeRejected,
			Detail:  strings.TrimSpace(string(detail)),
		}
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.Key == "" {
		return IssueResult{Key: sentinelUnknownKey, Outcome: OutcomeCreated}
	}
	c.log.Info("issue created", zap.String("key", created.Key), zap.Int64("ticket_id", in.TicketID))
	return IssueResult{Key: created.Key, Outcome: OutcomeCreated}
}

func (c *Client) issuePayload(in IssueInput) map[string]any {
	summary := fmt.Sprintf("[%s] Issue with %s - Ticket #%d", in.IssueType, in.Product, in.TicketID)
	return map[string]any{
		"fields": map[string]any{
			"project": map[string]any{"key": c.projectKey},
			"summary": summary,
			"description": map[string]any{
				"type":    "doc",
				"version": 1,
				"content": []any{
					map[string]any{
						"type": "paragraph",
						"content": []any{
							docText(fmt.Sprintf("Customer Email: %s\n", in.CustomerEmail)),
							docText(fmt.Sprintf("Issue Type: %s\n", in.IssueType)),
							docText(fmt.Sprintf("Product: %s\n", in.Product)),
							docText(fmt.Sprintf("Ticket ID: %d\n\n", in.TicketID)),
							docText(fmt.Sprintf("Description:\n%s", in.Description)),
						},
					},
				},
			},
			"issuetype": map[string]any{"name": "Task"},
			"labels":    []string{"automated", "customer-support"},
		},
	}
}

func docText(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}
