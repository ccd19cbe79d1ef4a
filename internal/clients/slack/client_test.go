package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-orchestrator/internal/config"
)

func TestSendPostsFormattedMessage(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(config.SlackConfig{WebhookURL: srv.URL, TimeoutSeconds: 2}, zap.NewNop())
	err := client.Send(context.Background(), Notification{
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		IssueType:     "Technical",
		TrackerKey:    "CUS-9",
		TicketID:      9,
		Description:   "My ToasterX keeps tripping the breaker",
		Product:       "ToasterX",
	})
	require.NoError(t, err)

	text := payload["text"]
	assert.Contains(t, text, "New Support Ticket Created")
	assert.Contains(t, text, "Ada Lovelace")
	assert.Contains(t, text, "`ada@example.com`")
	assert.Contains(t, text, "`CUS-9`")
	assert.Contains(t, text, "My ToasterX keeps tripping the breaker")
}

func TestSendTreatsNon200AsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "channel_not_found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(config.SlackConfig{WebhookURL: srv.URL, TimeoutSeconds: 2}, zap.NewNop())
	err := client.Send(context.Background(), Notification{TicketID: 1})
	assert.ErrorContains(t, err, "status 404")
}

func TestSendRequiresWebhookURL(t *testing.T) {
	client := NewClient(config.SlackConfig{}, zap.NewNop())
	err := client.Send(context.Background(), Notification{TicketID: 1})
	assert.ErrorContains(t, err, "not configured")
}
