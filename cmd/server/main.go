package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anugulalokeshreddy-code/deepfake/internal/api"
	"github.com/anugulalokeshreddy-code/deepfake/internal/client"
	"github.com/anugulalokeshreddy-code/deepfake/internal/config"
	"github.com/anugulalokeshreddy-code/deepfake/internal/dashboard"
	"github.com/anugulalokeshreddy-code/deepfake/internal/logging"
	"github.com/anugulalokeshreddy-code/deepfake/internal/session"
	"github.com/anugulalokeshreddy-code/deepfake/internal/storage"
	"github.com/anugulalokeshreddy-code/deepfake/internal/upload"
	"github.com/anugulalokeshreddy-code/deepfake/internal/web"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		// Get the executable's directory for config resolution
		exePath, err := os.Executable()
		if err != nil {
			fmt.Printf("Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		configPath = filepath.Join(filepath.Dir(exePath), "config.yaml")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New("dashboard", cfg.Advanced.LogLevel)

	// One backend origin; keep its idle connections around between uploads
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 8

	backend, err := client.New(cfg.Backend.BaseURL,
		client.WithHTTPClient(&http.Client{Transport: transport}),
		client.WithTimeout(cfg.RequestTimeout()),
		client.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("Failed to create backend client: %v", err)
	}

	// Local state holds only the last authenticated user
	stateStore, err := storage.NewLocalStore(cfg.GetStateDir())
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	sessionMgr := session.NewManager(stateStore, logger)
	if u, ok := sessionMgr.Restore(); ok {
		logger.Infof("Restored session hint for %s", u.Username)
	}

	uploadMgr := upload.NewManager(upload.NewValidator(cfg.Upload.AllowedTypes, cfg.Upload.MaxFileSize), logger)

	dash := dashboard.New(backend, uploadMgr, sessionMgr, dashboard.Options{
		HistoryPageSize: cfg.Upload.HistoryPageSize,
		BannerDelay:     cfg.BannerDelay(),
		Logger:          logger,
	})
	defer dash.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background upload task cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := uploadMgr.CleanupOldTasks(cfg.TaskMaxAge()); n > 0 {
					logger.Debugf("[Upload] Removed %d finished tasks", n)
				}
			}
		}
	}()

	hub := api.NewHub(dash, logger)
	go hub.Run(ctx)

	pages, err := web.GetFileSystem()
	if err != nil {
		logger.Fatalf("Failed to open embedded pages: %v", err)
	}
	if !web.HasEmbeddedFiles() {
		logger.Warn("Embedded pages are missing; only the JSON API will be served")
		pages = nil
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger

	api.SetupMiddleware(e, cfg)
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Dashboard:  dash,
		Hub:        hub,
		Pages:      pages,
		BackendURL: backend.BaseURL(),
		Version:    Version,
	}))
	if err := web.RegisterStaticRoutes(e); err != nil {
		logger.Warnf("Failed to register static routes: %v", err)
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Deepfake Detection Dashboard                    ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Backend:   %-46s║\n", backend.BaseURL())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.Storage.DataDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown: %v", err)
	}
}
