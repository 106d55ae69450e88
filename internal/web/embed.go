// Package web provides the embedded dashboard pages and static assets.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed dist/*
var staticFiles embed.FS

// GetFileSystem returns the embedded filesystem with the dist folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "dist")
}

// RegisterStaticRoutes serves the scripts and stylesheets under /static/.
// Pages are served by the api package so the dashboard can check auth first.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}

	fileServer := http.FileServer(http.FS(staticFS))

	e.GET("/static/*", func(c echo.Context) error {
		name := strings.TrimPrefix(c.Request().URL.Path, "/")
		stat, err := fs.Stat(staticFS, name)
		if err != nil || stat.IsDir() {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}

		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})

	return nil
}

// HasEmbeddedFiles returns true if both pages are embedded.
func HasEmbeddedFiles() bool {
	staticFS, err := GetFileSystem()
	if err != nil {
		return false
	}
	for _, name := range []string{"index.html", "login.html"} {
		if _, err := fs.Stat(staticFS, name); err != nil {
			return false
		}
	}
	return true
}
