// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// AuthHandler handles sign-in, registration and navigation state
type AuthHandler interface {
	HandleLogin(c echo.Context) error
	HandleRegister(c echo.Context) error
	HandleLogout(c echo.Context) error
	HandleNav(c echo.Context) error
	HandleChangePassword(c echo.Context) error
}

// UploadHandler handles the upload workflow
type UploadHandler interface {
	HandleUpload(c echo.Context) error
	HandleCancelUpload(c echo.Context) error
	HandleGetUpload(c echo.Context) error
}

// DashboardHandler handles dashboard state and the history/statistics views
type DashboardHandler interface {
	HandleState(c echo.Context) error
	HandleSwitchTab(c echo.Context) error
	HandleRefreshHistory(c echo.Context) error
	HandleRefreshStats(c echo.Context) error
	HandleHistoryMsgpack(c echo.Context) error
	HandleGetDetection(c echo.Context) error
	HandleDeleteDetection(c echo.Context) error
}

// PageHandler serves the HTML pages
type PageHandler interface {
	HandleIndex(c echo.Context) error
	HandleLoginPage(c echo.Context) error
}
