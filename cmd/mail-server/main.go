package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"

	"github.com/driftmail/driftmail/internal/boot"
	"github.com/driftmail/driftmail/internal/handlers"
	"github.com/driftmail/driftmail/internal/receiver"
	"github.com/driftmail/driftmail/internal/service/mailbox"
)

func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	logger := boot.NewLogger(config)
	logger.Info("starting mail-server", "env", config.Env)

	service := mailbox.New(logger)

	server := echo.New()
	server.HideBanner = true
	server.Use(middleware.BodyLimit("16M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("driftmail"))
	server.Use(middleware.Recover())

	server.Logger.SetLevel(log.INFO)

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(config.Server.Origins, ","),
		AllowHeaders: headers,
	}))

	server.GET("/api/emails", handlers.GetMessages(service, config.Stream.Keepalive))
	server.POST("/api/emails", handlers.PostMessage(service))

	var smtpServer *receiver.Server
	if config.SMTP.Enabled {
		smtpServer = receiver.New(receiver.Config{
			Addr:        ":" + config.SMTP.Port,
			Domain:      config.SMTP.Domain,
			StrictParse: config.SMTP.StrictParse,
			ReadTimeout: config.SMTP.ReadTimeout,
			MaxBytes:    config.SMTP.MaxBytes,
		}, service, logger)

		go func() {
			if err := smtpServer.ListenAndServe(); err != nil && !errors.Is(err, receiver.ErrServerClosed) {
				logger.Error("smtp server failed", "error", err)
				os.Exit(1)
			}
		}()
	}

	go func() {
		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":" + config.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + config.Server.Port); err != nil && err != http.ErrServerClosed {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if smtpServer != nil {
		if err := smtpServer.Close(); err != nil {
			logger.Error("closing smtp server", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		server.Logger.Fatal(err)
	}
}
