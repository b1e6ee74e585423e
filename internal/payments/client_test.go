package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		var req intentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(1250), req.Amount)
		assert.Equal(t, "eur", req.Currency)
		assert.NotEmpty(t, req.Reference)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(intentResponse{ClientSecret: "pi_secret_abc"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-api-key")

	secret, err := client.CreateIntent(context.Background(), 1250, "eur")
	require.NoError(t, err)
	assert.Equal(t, "pi_secret_abc", secret)
}

func TestCreateIntentValidation(t *testing.T) {
	client := NewClient("http://unreachable.invalid", "key")

	_, err := client.CreateIntent(context.Background(), 0, "usd")
	assert.Error(t, err)

	_, err = client.CreateIntent(context.Background(), -5, "usd")
	assert.Error(t, err)
}

func TestCreateIntentDefaultsCurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req intentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "usd", req.Currency)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(intentResponse{ClientSecret: "pi_secret_usd"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")

	secret, err := client.CreateIntent(context.Background(), 100, "")
	require.NoError(t, err)
	assert.Equal(t, "pi_secret_usd", secret)
}

func TestCreateIntentProcessorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")

	_, err := client.CreateIntent(context.Background(), 100, "usd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestCreateIntentMissingSecret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")

	_, err := client.CreateIntent(context.Background(), 100, "usd")
	assert.Error(t, err)
}

func TestCreateIntentBreakerOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")

	// Three consecutive failures trip the breaker.
	for i := 0; i < 3; i++ {
		_, err := client.CreateIntent(context.Background(), 100, "usd")
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	// Once open, calls fail fast without reaching the processor.
	_, err := client.CreateIntent(context.Background(), 100, "usd")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
