package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/tomz197/marquee/internal/config"
	"github.com/tomz197/marquee/internal/draw"
	"github.com/tomz197/marquee/internal/logging"
	"github.com/tomz197/marquee/internal/loop"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "marquee: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := config.Load()
	if err != nil {
		return err
	}

	// The terminal belongs to the marquee, so logs only go to a file
	logOpts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}
	logger, err := logging.New(io.Discard, logOpts)
	if err != nil {
		return err
	}
	if cfg.LogFile != "" {
		var f *os.File
		logger, f, err = logging.OpenFile(cfg.LogFile, logOpts)
		if err != nil {
			return err
		}
		defer f.Close()
	}
	log.SetDefault(logger)

	out := termenv.NewOutput(os.Stdout)
	// Query the background before raw mode so the reply is not read as keys
	themes := draw.NewThemeProvider(cfg.Theme, out.HasDarkBackground)

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enable raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refresh := make(chan os.Signal, 1)
	signal.Notify(refresh, syscall.SIGUSR1)
	defer signal.Stop(refresh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-refresh:
				if themes.Refresh() {
					logger.Info("Theme changed")
				}
			}
		}
	}()

	logger.Info("Starting marquee", "left", cfg.LeftURL, "right", cfg.RightURL, "profile", out.EnvColorProfile())
	return loop.Run(ctx, bufio.NewReader(os.Stdin), os.Stdout, loop.RunOptions{
		Sim: loop.Options{
			MaxBodies: cfg.MaxBodies,
			PerStep:   cfg.SpawnPerStep,
			Seed:      cfg.Seed,
		},
		Feeds: loop.FeedOptions{
			URLs:             [2]string{cfg.LeftURL, cfg.RightURL},
			Logger:           logger,
			ReconnectDelay:   cfg.ReconnectDelay,
			LivenessInterval: cfg.LivenessInterval,
			StaleThreshold:   cfg.StaleThreshold,
		},
		FPS:      cfg.FPS,
		Profile:  out.EnvColorProfile(),
		Themes:   themes,
		TermSize: draw.DefaultTermSizeFunc,
		Logger:   logger,
	})
}
