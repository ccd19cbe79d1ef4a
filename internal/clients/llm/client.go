// Package llm wraps the chat-completion endpoint used for ticket
// classification and reply drafting.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"go.uber.org/zap"

	"github.com/spec-kit/support-orchestrator/internal/config"
	"github.com/spec-kit/support-orchestrator/internal/retry"
)

// Categories is the fixed label set classifications are normalized against.
// "Other" doubles as the fallback for outages and unparseable output.
var Categories = []string{
	"Billing", "Technical", "Refund", "Account", "Shipping", "Login",
	"Feature Request", "Bug Report", "Complaint", "Other",
}

// FallbackLabel is returned whenever classification cannot produce a label
// from the fixed set.
const FallbackLabel = "Other"

// DraftInput carries the ticket fields the drafting prompt references.
type DraftInput struct {
	CustomerName string
	IssueType    string
	Product      string
	TrackerKey   string
}

// Client calls a chat-completion endpoint for classification and drafting.
type Client struct {
	api    openai.Client
	model  string
	cfg    config.LLMConfig
	policy retry.Policy
	log    *zap.Logger
}

// NewClient builds a client for the configured endpoint.
func NewClient(cfg config.LLMConfig, policy retry.Policy, logger *zap.Logger) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:    openai.NewClient(opts...),
		model:  cfg.Model,
		cfg:    cfg,
		policy: policy,
		log:    logger,
	}
}

// Classify maps a free-text description to a label from Categories. It never
// returns an error: transport failures, exhausted retries and unparseable
// responses all resolve to FallbackLabel.
func (c *Client) Classify(ctx context.Context, description string) string {
	prompt := fmt.Sprintf(
		"You're a professional support ticket classifier. Given the customer message below, "+
			"respond with ONLY the most relevant category label, just one or two words, "+
			"from the following industry-standard types:\n%s.\n\n"+
			"Customer message:\n%s\n\n"+
			"Respond ONLY with the best matching label, no explanation, no quotes, no punctuation.",
		strings.Join(Categories, ", "), description)

	var raw string
	err := c.policy.Do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.ClassifyTimeout())
		defer cancel()

		resp, err := c.api.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
			Model: shared.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage("You classify support queries into clean, standard labels."),
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(0),
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("llm: empty completion")
		}
		raw = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		c.log.Warn("classification failed, using fallback label", zap.Error(err))
		return FallbackLabel
	}

	label := NormalizeLabel(raw)
	c.log.Info("classified ticket description",
		zap.String("raw", firstLine(raw)),
		zap.String("label", label))
	return label
}

// Draft asks for a short professional reply email. Unlike Classify it is not
// retried and reports failure to the caller.
func (c *Client) Draft(ctx context.Context, in DraftInput) (string, error) {
	firstName := firstToken(in.CustomerName, "Customer")
	prompt := fmt.Sprintf(
		"Write a short and professional email reply to a customer named %s who is facing a '%s' issue "+
			"related to their '%s'. Inform them that a support ticket with ID '%s' has been created "+
			"and the team will get back within 24 hours. Use a helpful and courteous tone. "+
			"Sign the email as 'AI-Orchestrator'.",
		firstName, in.IssueType, in.Product, in.TrackerKey)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.DraftTimeout())
	defer cancel()

	resp, err := c.api.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a helpful AI assistant."),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", fmt.Errorf("llm draft: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm draft: empty completion")
	}
	body := strings.TrimSpace(resp.Choices[0].Message.Content)
	if body == "" {
		return "", errors.New("llm draft: blank body")
	}
	return body, nil
}

// NormalizeLabel maps raw model output onto the fixed category set. The
// first category whose name appears in the output wins; anything else is
// FallbackLabel.
func NormalizeLabel(raw string) string {
	lowered := strings.ToLower(firstLine(raw))
	for _, label := range Categories {
		if strings.Contains(lowered, strings.ToLower(label)) {
			return label
		}
	}
	return FallbackLabel
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

func firstToken(s, fallback string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return fallback
	}
	return fields[0]
}
