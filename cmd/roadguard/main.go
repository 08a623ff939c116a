package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/jobin2005/roadgaurd-dark/internal/api"
	"github.com/jobin2005/roadgaurd-dark/internal/backend"
	"github.com/jobin2005/roadgaurd-dark/internal/config"
	"github.com/jobin2005/roadgaurd-dark/internal/engine"
	"github.com/jobin2005/roadgaurd-dark/internal/events"
	"github.com/jobin2005/roadgaurd-dark/internal/feedback"
	"github.com/jobin2005/roadgaurd-dark/internal/location"
	"github.com/jobin2005/roadgaurd-dark/internal/logging"
	"github.com/jobin2005/roadgaurd-dark/internal/repository"
	"github.com/jobin2005/roadgaurd-dark/internal/risk"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Broadcaster feeds the SSE event stream
	broadcaster := events.NewBroadcaster()

	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	// Passage telemetry goes out through a worker pool off the fix path
	dispatcher := feedback.NewDispatcher(cfg.Worker.Count, cfg.Worker.BufferSize, backendClient, db)
	dispatcher.Start(ctx)

	var provider location.Provider
	var mqttProvider *location.MQTTProvider
	if cfg.MQTT.Enabled {
		mqttProvider = location.NewMQTTProvider(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err := mqttProvider.Connect(); err != nil {
			logging.Fatalf("MQTT connect error: %v", err)
		}
		provider = mqttProvider
		slog.Info("MQTT position feed enabled", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
	}

	manager := engine.NewManager(engine.ManagerOptions{
		Provider:   provider,
		Flags:      backendClient,
		Dispatcher: dispatcher,
		Store:      db,
		Events:     broadcaster,
		Settings: engine.Settings{
			FlagDelay:        cfg.Engine.FlagDelay,
			FlagWindow:       cfg.Engine.FlagWindow,
			FallbackSpeedKMH: cfg.Engine.FallbackSpeedKMH,
			MinSpeedKMH:      1,
		},
	})

	analyzer := risk.NewAnalyzer(cfg.Engine.RiskThresholdM)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	handler := api.NewHandler(manager, analyzer, backendClient, db, broadcaster, cfg.Backend.NearbyRadiusKM)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	manager.StopJourney(context.Background())
	cancel()
	dispatcher.Stop()
	broadcaster.Close() // Close all streams gracefully
	if mqttProvider != nil {
		mqttProvider.Disconnect()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
