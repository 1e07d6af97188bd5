package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pingbackhq/pingbacker/internal/auth"
)

// AuthHandler exchanges the configured admin secret for a short-lived JWT
// covering the /api surface.
type AuthHandler struct {
	logger      *slog.Logger
	adminSecret string
	jwtSecret   string
	expiresIn   time.Duration
}

func NewAuthHandler(log *slog.Logger, adminSecret, jwtSecret string, expiresIn time.Duration) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	if expiresIn <= 0 {
		expiresIn = 24 * time.Hour
	}
	return &AuthHandler{
		logger:      log.With(slog.String("handler", "auth")),
		adminSecret: strings.TrimSpace(adminSecret),
		jwtSecret:   strings.TrimSpace(jwtSecret),
		expiresIn:   expiresIn,
	}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	e.POST("/auth/token", h.Token)
}

type tokenRequest struct {
	Secret string `json:"secret"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) Token(c echo.Context) error {
	if h.adminSecret == "" || h.jwtSecret == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "admin auth is not configured")
	}

	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(req.Secret)), []byte(h.adminSecret)) != 1 {
		h.logger.Warn("admin token request rejected")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid secret")
	}

	token, expiresAt, err := auth.GenerateToken("admin", h.jwtSecret, h.expiresIn)
	if err != nil {
		h.logger.Error("token generation failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "token generation failed")
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token, ExpiresAt: expiresAt})
}
