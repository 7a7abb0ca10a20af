package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "WKN1", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"symbol": "WKN1",
			"currency": "EUR",
			"datetime": "2024-01-05",
			"close": "12.50"
		}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, "test-key")

	quote, err := client.GetQuote(context.Background(), "WKN1")
	require.NoError(t, err)
	assert.Equal(t, "WKN1", quote.InstrumentID)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "EUR", quote.Currency)
}

func TestGetQuote_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "error", "message": "symbol not found"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, "test-key")

	_, err := client.GetQuote(context.Background(), "UNKNOWN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol not found")
}

func TestGetQuote_NoPriceData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol": "WKN1", "close": ""}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, "test-key")

	_, err := client.GetQuote(context.Background(), "WKN1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no price data")
}

func TestGetQuote_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, "test-key")

	_, err := client.GetQuote(context.Background(), "WKN1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
