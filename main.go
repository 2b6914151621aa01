package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"steam-sentinel/internal/api"
	"steam-sentinel/internal/config"
	"steam-sentinel/internal/database"
	"steam-sentinel/internal/monitor"
	"steam-sentinel/internal/session"
	steamService "steam-sentinel/internal/services/steam"
	"steam-sentinel/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration (reads .env via godotenv)
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	if cfg.SteamID64 == "" {
		log.Fatal("STEAM_ID64 is required")
	}

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	st := store.New(db, cfg)
	if err := st.Load(cfg.Games); err != nil {
		log.Fatal("Failed to restore state: ", err)
	}

	// Session comes from an exported cookies.txt; the file is re-read every
	// cycle so refreshed cookies are picked up without a restart.
	sessions := session.NewCookieFileProvider(cfg.CookiesFile, cfg.SteamID64)
	steamSvc := steamService.NewService(cfg.Language, cfg.MarketMinDelay, cfg.MarketJitter, cfg.MarketMaxRetries)

	hub := api.NewHub()
	mon := monitor.New(cfg, steamSvc, sessions, st)
	mon.SetNotifier(hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go mon.Run(ctx)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/", api.Dashboard)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", hub.Handler())
	r.NoRoute(func(c *gin.Context) {
		// Preserve API and WS 404s
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.URL.Path == "/ws" {
			c.Status(http.StatusNotFound)
			return
		}
		api.Dashboard(c)
	})

	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, st, mon, hub)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
