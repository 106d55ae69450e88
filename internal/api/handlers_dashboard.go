// handlers_dashboard.go - Dashboard state, history and statistics handlers
package api

import (
	"bytes"
	"net/http"

	"github.com/anugulalokeshreddy-code/deepfake/internal/dashboard"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// DashboardHandlerImpl implements the DashboardHandler interface
type DashboardHandlerImpl struct {
	dash *dashboard.Dashboard
}

// NewDashboardHandler creates a new dashboard handler instance
func NewDashboardHandler(dash *dashboard.Dashboard) DashboardHandler {
	return &DashboardHandlerImpl{dash: dash}
}

// HandleState returns the current dashboard view
func (h *DashboardHandlerImpl) HandleState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dash.View())
}

// HandleSwitchTab activates a tab, refreshing its data where the tab has any
func (h *DashboardHandlerImpl) HandleSwitchTab(c echo.Context) error {
	if err := h.dash.SwitchTab(c.Request().Context(), c.Param("name")); err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, h.dash.View())
}

// HandleRefreshHistory re-fetches the first history page
func (h *DashboardHandlerImpl) HandleRefreshHistory(c echo.Context) error {
	if err := h.dash.RefreshHistory(c.Request().Context()); err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, h.dash.View().History)
}

// HandleRefreshStats re-fetches statistics
func (h *DashboardHandlerImpl) HandleRefreshStats(c echo.Context) error {
	if err := h.dash.RefreshStats(c.Request().Context()); err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, h.dash.View().Stats)
}

// HandleHistoryMsgpack returns the current history view as MessagePack
// for clients that prefer a compact payload
func (h *DashboardHandlerImpl) HandleHistoryMsgpack(c echo.Context) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(h.dash.View().History); err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", buf.Bytes())
}

// HandleGetDetection returns a single detection
func (h *DashboardHandlerImpl) HandleGetDetection(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id is required")
	}

	d, err := h.dash.Details(c.Request().Context(), id)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// HandleDeleteDetection deletes a detection, then history and statistics
// are re-fetched. The outcome is also shown in the history message region.
func (h *DashboardHandlerImpl) HandleDeleteDetection(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id is required")
	}

	if err := h.dash.Delete(c.Request().Context(), id); err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, h.dash.View())
}
