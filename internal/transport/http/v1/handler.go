// Package v1 provides the gateway's JSON API handlers.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rr-brian/rts-ai/internal/apperr"
	"github.com/rr-brian/rts-ai/internal/service"
	"github.com/rr-brian/rts-ai/internal/transport/http/middleware"
)

// Handler handles API requests.
type Handler struct {
	service *service.Service
	limiter *middleware.RateLimiter
}

// NewHandler creates a new handler. A nil limiter leaves the completion
// proxy unthrottled.
func NewHandler(service *service.Service, limiter *middleware.RateLimiter) *Handler {
	return &Handler{
		service: service,
		limiter: limiter,
	}
}

// RegisterRoutes registers the fixed API routes on the /api group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/config", h.Config)

	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, h.limiter.Middleware())
	}
	g.POST("/azure-openai", h.CompletionProxy, mw...)
}

// Health returns liveness and the capability report.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Health())
}

// Config returns the sanitized runtime configuration.
func (h *Handler) Config(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, h.service.PublicConfig())
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func bindJSON(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.ClientInput("Invalid JSON body")
	}
	return nil
}
