// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"io/fs"
	"strings"

	"github.com/anugulalokeshreddy-code/deepfake/internal/config"
	"github.com/anugulalokeshreddy-code/deepfake/internal/dashboard"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Dashboard  *dashboard.Dashboard
	Hub        *Hub
	Pages      fs.FS
	BackendURL string
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Auth      AuthHandler
	Upload    UploadHandler
	Dashboard DashboardHandler
	Pages     PageHandler
	Hub       *Hub
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	h := &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.BackendURL, deps.Hub),
		Auth:      NewAuthHandler(deps.Dashboard),
		Upload:    NewUploadHandler(deps.Dashboard),
		Dashboard: NewDashboardHandler(deps.Dashboard),
		Hub:       deps.Hub,
	}
	if deps.Pages != nil {
		h.Pages = NewPageHandler(deps.Dashboard, deps.Pages)
	}
	return h
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Pages
	if handlers.Pages != nil {
		e.GET("/", handlers.Pages.HandleIndex)
		e.GET("/login", handlers.Pages.HandleLoginPage)
	}

	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Live state push
	if handlers.Hub != nil {
		apiGroup.GET("/ws", handlers.Hub.HandleWebSocket)
	}

	dash := apiGroup.Group("/dashboard")

	// Session
	dash.GET("/nav", handlers.Auth.HandleNav)
	dash.POST("/login", handlers.Auth.HandleLogin)
	dash.POST("/register", handlers.Auth.HandleRegister)
	dash.POST("/logout", handlers.Auth.HandleLogout)
	dash.POST("/password", handlers.Auth.HandleChangePassword)

	// Upload workflow
	dash.POST("/upload", handlers.Upload.HandleUpload)
	dash.POST("/upload/cancel", handlers.Upload.HandleCancelUpload)
	dash.GET("/upload/:id", handlers.Upload.HandleGetUpload)

	// Views
	dash.GET("/state", handlers.Dashboard.HandleState)
	dash.POST("/tab/:name", handlers.Dashboard.HandleSwitchTab)
	dash.POST("/history/refresh", handlers.Dashboard.HandleRefreshHistory)
	dash.GET("/history/msgpack", handlers.Dashboard.HandleHistoryMsgpack)
	dash.POST("/stats/refresh", handlers.Dashboard.HandleRefreshStats)
	dash.GET("/detections/:id", handlers.Dashboard.HandleGetDetection)
	dash.DELETE("/detections/:id", handlers.Dashboard.HandleDeleteDetection)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig) {
	e.HTTPErrorHandler = NewErrorHandler(cfg.Advanced.LogLevel == "debug")

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" ||
				path == "/api/ws" ||
				strings.HasPrefix(path, "/static/")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogLevel:  log.ERROR,
	}))

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		TargetHeader: echo.HeaderXRequestID,
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/api/ws"
		},
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
}
