package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomz197/marquee/internal/config"
	"github.com/tomz197/marquee/internal/httpserver"
	"github.com/tomz197/marquee/internal/logging"
)

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "marquee-web: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Prefix: "web"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "marquee-web: %v\n", err)
		os.Exit(1)
	}

	srv, err := httpserver.New(httpserver.Options{
		Addr:    net.JoinHostPort(cfg.WebHost, cfg.WebPort),
		SSHHost: cfg.SSHDisplayHost,
		SSHPort: cfg.SSHPort,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("Failed to create web server", "err", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Server error", "err", err)
		}
		return
	case <-done:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Shutdown error", "err", err)
	}
}
