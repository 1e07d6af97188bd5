// Package whatsapp speaks the Meta WhatsApp Business wire formats: the
// inbound webhook payload and the outbound Graph API send call.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pingbackhq/pingbacker/internal/config"
)

const responseBodyLimit = 8 << 10

// DeliveryError is a non-2xx response from the Graph API.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("whatsapp delivery failed: status %d: %s", e.StatusCode, e.Body)
}

// Client sends text messages through the Graph API.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Graph API client from the [whatsapp] config section.
func NewClient(log *slog.Logger, cfg config.WhatsAppConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	baseURL := strings.TrimSpace(cfg.GraphBaseURL)
	if baseURL == "" {
		baseURL = config.DefaultGraphBaseURL
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = config.DefaultGraphVersion
	}
	timeout := time.Duration(cfg.SendTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultSendTimeout) * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.With(slog.String("service", "whatsapp")),
	}
}

type sendTextRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText delivers one text message on behalf of a tenant's business
// number. Token, recipient and text are trimmed first: credentials pasted
// into provisioning tools routinely carry trailing newlines, and the Graph
// API rejects them.
func (c *Client) SendText(ctx context.Context, token, phoneNumberID, to, text string) error {
	token = strings.TrimSpace(token)
	phoneNumberID = strings.TrimSpace(phoneNumberID)
	to = strings.TrimSpace(to)
	text = strings.TrimSpace(text)
	if token == "" || phoneNumberID == "" || to == "" {
		return fmt.Errorf("token, phone number id and recipient are required")
	}

	payload, err := json.Marshal(sendTextRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return nil
}
