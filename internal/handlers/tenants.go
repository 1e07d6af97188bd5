package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pingbackhq/pingbacker/internal/tenant"
)

// TenantHandler is the admin provisioning surface. It sits behind JWT auth;
// the ingestion core itself only ever reads tenants.
type TenantHandler struct {
	logger   *slog.Logger
	service  *tenant.Service
	validate *validator.Validate
}

func NewTenantHandler(log *slog.Logger, service *tenant.Service) *TenantHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TenantHandler{
		logger:   log.With(slog.String("handler", "tenants")),
		service:  service,
		validate: validator.New(),
	}
}

func (h *TenantHandler) Register(e *echo.Echo) {
	e.POST("/api/tenants", h.Create)
	e.GET("/api/tenants", h.List)
}

func (h *TenantHandler) Create(c echo.Context) error {
	var input tenant.CreateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := h.service.Create(c.Request().Context(), input)
	if err != nil {
		if errors.Is(err, tenant.ErrRoutingKeyTaken) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		h.logger.Error("create tenant failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "create tenant failed")
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *TenantHandler) List(c echo.Context) error {
	tenants, err := h.service.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list tenants failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "list tenants failed")
	}
	if tenants == nil {
		tenants = []tenant.Tenant{}
	}
	return c.JSON(http.StatusOK, tenants)
}
