package delivery

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookflow/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopChannel struct{}

func (noopChannel) Execute(ctx context.Context, payload Payload) error { return nil }

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()
	registry.Register("send_email", noopChannel{})

	channel, ok := registry.Get("send_email")
	assert.True(t, ok)
	assert.NotNil(t, channel)

	_, ok = registry.Get("unknown")
	assert.False(t, ok)
}

func TestWebhookChannelSignsRequest(t *testing.T) {
	var gotSignature string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewWebhookChannel(config.WebhookConfig{Secret: "s3cret", TimeoutSeconds: 5})
	err := channel.Execute(context.Background(), Payload{
		To:      server.URL,
		Content: `{"event":"booking_created"}`,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"event":"booking_created"}`, string(gotBody))
	assert.Equal(t, Sign(gotBody, "s3cret"), gotSignature)
}

func TestWebhookChannelNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	channel := NewWebhookChannel(config.WebhookConfig{Secret: "s3cret"})
	err := channel.Execute(context.Background(), Payload{To: server.URL, Content: "{}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSMSChannelPostsGateway(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewSMSChannel(config.SMSConfig{
		GatewayURL: server.URL,
		APIKey:     "api-key",
		Sender:     "BookFlow",
	})
	err := channel.Execute(context.Background(), Payload{To: "+15550001111", Content: "提醒"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer api-key", gotAuth)
}

func TestSMSChannelRequiresRecipient(t *testing.T) {
	channel := NewSMSChannel(config.SMSConfig{GatewayURL: "http://localhost:1"})
	err := channel.Execute(context.Background(), Payload{Content: "hi"})
	require.Error(t, err)
}
