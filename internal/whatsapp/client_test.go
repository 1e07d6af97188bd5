package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingbackhq/pingbacker/internal/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(nil, config.WhatsAppConfig{
		GraphBaseURL: baseURL,
		APIVersion:   "v18.0",
	})
}

func TestSendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.SendText(context.Background(), "tok", "555", "+111", "hello")
	require.NoError(t, err)

	assert.Equal(t, "/v18.0/555/messages", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "+111", gotBody["to"])
	assert.Equal(t, "text", gotBody["type"])
	assert.Equal(t, map[string]any{"body": "hello"}, gotBody["text"])
}

func TestSendTextTrimsCredentialAndText(t *testing.T) {
	// Tokens pasted into provisioning tools routinely carry a trailing
	// newline; the Graph API rejects them.
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.SendText(context.Background(), "tok\n", " 555 ", "+111\n", "  hello \n")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "+111", gotBody["to"])
	assert.Equal(t, map[string]any{"body": "hello"}, gotBody["text"])
}

func TestSendTextDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.SendText(context.Background(), "bad", "555", "+111", "hello")
	require.Error(t, err)

	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, http.StatusUnauthorized, deliveryErr.StatusCode)
	assert.Contains(t, deliveryErr.Body, "Invalid OAuth access token")
}

func TestSendTextValidation(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	assert.Error(t, client.SendText(context.Background(), "", "555", "+111", "x"))
	assert.Error(t, client.SendText(context.Background(), "tok", "", "+111", "x"))
	assert.Error(t, client.SendText(context.Background(), "tok", "555", "", "x"))
}
