// cmd/expire/main.go
package main

import (
	"context"
	"os"
	"time"

	"mediatheque/internal/clients"
	"mediatheque/internal/platform/config"
	"mediatheque/internal/platform/logger"
	"mediatheque/internal/platform/requestid"
)

// Triggers the cleanup of loans whose return date is today. Meant for cron.
func main() {
	cfg := config.ExpireFromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = requestid.WithContext(ctx, requestid.New())

	res, err := clients.NewClient(cfg.BaseURL, nil).ExpireToday(ctx)
	if err != nil {
		log.ErrorContext(ctx, "expired loan cleanup failed", "error", err, "request_id", requestid.FromContext(ctx))
		os.Exit(1)
	}
	log.InfoContext(ctx, "expired loan cleanup done", "deleted_count", res.DeletedCount, "request_id", requestid.FromContext(ctx))
}
