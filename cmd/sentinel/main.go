package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentinelapp/sentinel/internal/blob"
	"github.com/sentinelapp/sentinel/internal/database"
	"github.com/sentinelapp/sentinel/internal/logging"
	"github.com/sentinelapp/sentinel/internal/server"
)

func main() {
	port := os.Getenv("SENTINEL_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("SENTINEL_DB_PATH")
	if dbPath == "" {
		dbPath = "sentinel.db"
	}

	logger := logging.Setup(os.Getenv("SENTINEL_LOG_LEVEL"), os.Getenv("SENTINEL_LOG_FORMAT"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	tzName := os.Getenv("SENTINEL_TIMEZONE")
	if tzName == "" {
		tzName = "America/New_York"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Fatalf("invalid SENTINEL_TIMEZONE %q: %v", tzName, err)
	}

	cfg := server.Config{
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		Timezone:           loc,
		Blob: blob.Config{
			Endpoint:      os.Getenv("SENTINEL_S3_ENDPOINT"),
			Bucket:        os.Getenv("SENTINEL_S3_BUCKET"),
			Region:        os.Getenv("SENTINEL_S3_REGION"),
			AccessKey:     os.Getenv("SENTINEL_S3_ACCESS_KEY"),
			SecretKey:     os.Getenv("SENTINEL_S3_SECRET_KEY"),
			PublicBaseURL: os.Getenv("SENTINEL_S3_PUBLIC_URL"),
		},
	}
	if cfg.OpenAIKey == "" {
		logger.Warn("OPENAI_API_KEY not set; syllabus extraction is disabled")
	}
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		logger.Warn("Google OAuth credentials not set; calendar sync is disabled")
	}

	srv := server.New(db, cfg, logger)

	// Expired sessions are swept in the background.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := srv.SessionStore().DeleteExpired(); err != nil {
				logger.Warn("session cleanup failed", "error", err)
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // syllabus extraction holds the request open
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("sentinel listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
