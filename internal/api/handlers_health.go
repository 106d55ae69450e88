// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version    string
	backendURL string
	hub        *Hub
}

// NewHealthHandler creates a new health handler. hub may be nil.
func NewHealthHandler(version, backendURL string, hub *Hub) HealthHandler {
	return &HealthHandlerImpl{
		version:    version,
		backendURL: backendURL,
		hub:        hub,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	clients := 0
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"version":     h.version,
		"backend":     h.backendURL,
		"liveClients": clients,
	})
}
