// handlers_pages.go - HTML page handlers
package api

import (
	"io"
	"io/fs"
	"net/http"

	"github.com/anugulalokeshreddy-code/deepfake/internal/dashboard"
	"github.com/labstack/echo/v4"
)

// Page files inside the embedded filesystem
const (
	PageIndex = "index.html"
	PageLogin = "login.html"
)

// PageHandlerImpl implements the PageHandler interface
type PageHandlerImpl struct {
	dash  *dashboard.Dashboard
	pages fs.FS
}

// NewPageHandler creates a page handler serving HTML from pages
func NewPageHandler(dash *dashboard.Dashboard, pages fs.FS) PageHandler {
	return &PageHandlerImpl{dash: dash, pages: pages}
}

// HandleIndex runs the page-load sequence and serves the dashboard.
// When the auth check fails the browser is sent to the login page.
func (h *PageHandlerImpl) HandleIndex(c echo.Context) error {
	if _, err := h.dash.Init(c.Request().Context()); err != nil {
		c.Logger().Debugf("[Page] Auth check failed: %v", err)
		return c.Redirect(http.StatusFound, "/login")
	}
	return h.serve(c, PageIndex)
}

// HandleLoginPage serves the login page
func (h *PageHandlerImpl) HandleLoginPage(c echo.Context) error {
	return h.serve(c, PageLogin)
}

func (h *PageHandlerImpl) serve(c echo.Context, name string) error {
	f, err := h.pages.Open(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, name+" not found")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return NewInternalError("failed to read "+name, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.HTMLBlob(http.StatusOK, content)
}
