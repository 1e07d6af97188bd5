package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pingbackhq/pingbacker/internal/whatsapp"
)

const webhookMaxBodyBytes int64 = 1 << 20 // 1 MiB

type eventProcessor interface {
	ProcessEvent(ctx context.Context, event whatsapp.Event)
}

// WebhookHandler receives Meta webhook verification and event deliveries.
type WebhookHandler struct {
	logger      *slog.Logger
	pipeline    eventProcessor
	verifyToken string
}

// NewWebhookHandler creates the public webhook handler.
func NewWebhookHandler(log *slog.Logger, pipeline eventProcessor, verifyToken string) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		logger:      log.With(slog.String("handler", "webhook")),
		pipeline:    pipeline,
		verifyToken: strings.TrimSpace(verifyToken),
	}
}

// Register registers webhook routes.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET("/webhook", h.Verify)
	e.POST("/webhook", h.Receive)
}

// Verify answers Meta's subscription handshake: echo hub.challenge as plain
// text when the mode is "subscribe" and the token matches, 403 otherwise.
func (h *WebhookHandler) Verify(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" && token == h.verifyToken {
		return c.String(http.StatusOK, challenge)
	}
	h.logger.Warn("webhook verification rejected", slog.String("mode", mode))
	return echo.NewHTTPError(http.StatusForbidden, "verification failed")
}

// Receive parses one webhook delivery and hands it to the pipeline. The
// delivery is acknowledged as soon as parsing succeeds; unit-level failures
// never surface here, otherwise the provider would retry a batch whose
// siblings already went through.
func (h *WebhookHandler) Receive(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, webhookMaxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(payload)) > webhookMaxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("payload too large: max %d bytes", webhookMaxBodyBytes))
	}

	var event whatsapp.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid webhook payload: %v", err))
	}

	h.pipeline.ProcessEvent(c.Request().Context(), event)

	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}
