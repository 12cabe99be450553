package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/gommon/log"

	"github.com/driftmail/driftmail/internal/boot"
	"github.com/driftmail/driftmail/internal/ingest"
	"github.com/driftmail/driftmail/internal/receiver"
)

// smtp-bridge runs the SMTP receiver as its own process and forwards every
// parsed message to a mail-server ingest endpoint instead of writing to the
// store directly.
func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	logger := boot.NewLogger(config)

	if config.Ingest.URL == "" {
		logger.Error("INGEST_URL is required in bridge mode")
		os.Exit(1)
	}

	recorder := ingest.NewHTTPRecorder(config.Ingest.URL)
	server := receiver.New(receiver.Config{
		Addr:        ":" + config.SMTP.Port,
		Domain:      config.SMTP.Domain,
		StrictParse: config.SMTP.StrictParse,
		ReadTimeout: config.SMTP.ReadTimeout,
		MaxBytes:    config.SMTP.MaxBytes,
	}, recorder, logger)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, receiver.ErrServerClosed) {
			logger.Error("smtp server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("forwarding to ingest endpoint", "url", config.Ingest.URL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := server.Close(); err != nil {
		logger.Error("closing smtp server", "error", err)
	}
}
