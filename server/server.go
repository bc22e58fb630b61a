// Package server exposes the chat loop and record validation over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tbxark/formpilot/agent"
	"github.com/tbxark/formpilot/metrics"
)

type Handler struct {
	chat *agent.Chat
}

func NewHandler(chat *agent.Chat) *Handler {
	return &Handler{chat: chat}
}

// New builds the echo instance with every route registered. gatherer may be
// nil, in which case /metrics is not served.
func New(chat *agent.Chat, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	SetupRoutes(e, NewHandler(chat), gatherer)
	return e
}

func SetupRoutes(e *echo.Echo, h *Handler, gatherer prometheus.Gatherer) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	}

	api := e.Group("/api")
	{
		api.POST("/chat", h.Chat)
		api.POST("/validate", h.Validate)
		api.POST("/sessions/:sessionId/prefill", h.Prefill)
		api.DELETE("/sessions/:sessionId", h.ResetSession)
	}
}
