package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	wishlogging "github.com/charmbracelet/wish/logging"

	"github.com/tomz197/marquee/internal/config"
	"github.com/tomz197/marquee/internal/draw"
	"github.com/tomz197/marquee/internal/httpserver"
	"github.com/tomz197/marquee/internal/logging"
	"github.com/tomz197/marquee/internal/loop"
	"github.com/tomz197/marquee/internal/loop/client"
	"github.com/tomz197/marquee/internal/loop/server"
)

const (
	viewerShutdownTimeout = 15 * time.Second
	shutdownTimeout       = 5 * time.Second
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "marquee-ssh: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "marquee-ssh: %v\n", err)
		os.Exit(1)
	}
	log.SetDefault(logger)
	if dotenv {
		logger.Debug("Loaded .env file")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server error", "err", err)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	// One simulation shared by every SSH viewer
	marquee := server.New(server.Options{
		Sim: loop.Options{
			MaxBodies: cfg.MaxBodies,
			PerStep:   cfg.SpawnPerStep,
			Seed:      cfg.Seed,
		},
		Feeds: loop.FeedOptions{
			URLs:             [2]string{cfg.LeftURL, cfg.RightURL},
			ReconnectDelay:   cfg.ReconnectDelay,
			LivenessInterval: cfg.LivenessInterval,
			StaleThreshold:   cfg.StaleThreshold,
		},
		Logger: logger,
	})
	simCtx, cancelSim := context.WithCancel(context.Background())
	defer cancelSim()
	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		_ = marquee.Run(simCtx)
	}()

	theme := draw.NewThemeProvider(cfg.Theme, nil).Theme()

	opts := []ssh.Option{
		wish.WithAddress(net.JoinHostPort(cfg.SSHHost, cfg.SSHPort)),
		wish.WithMiddleware(
			marqueeMiddleware(marquee, cfg, theme, logger),
			activeterm.Middleware(),
			wishlogging.MiddlewareWithLogger(logger),
		),
		// Set TCP_NODELAY so keys and frames are not batched
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	}
	if cfg.SSHHostKey != "" {
		opts = append(opts, wish.WithHostKeyPath(cfg.SSHHostKey))
	}

	s, err := wish.NewServer(opts...)
	if err != nil {
		return fmt.Errorf("failed to create SSH server: %w", err)
	}

	admin, err := httpserver.New(httpserver.Options{
		Addr:    cfg.HTTPAddr,
		SSHHost: cfg.SSHDisplayHost,
		SSHPort: cfg.SSHPort,
		Status:  marquee,
		Metrics: true,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("Starting SSH server", "host", cfg.SSHHost, "port", cfg.SSHPort)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errCh <- fmt.Errorf("ssh: %w", err)
		}
	}()
	go func() {
		if err := admin.Start(); err != nil {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-done:
	case runErr = <-errCh:
	}
	logger.Info("Shutting down")

	// Let viewers see the shutdown notice before the connections drop
	marquee.Shutdown(viewerShutdownTimeout)
	cancelSim()
	<-simDone

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("SSH shutdown failed", "err", err)
	}
	if err := admin.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown failed", "err", err)
	}
	return runErr
}

// marqueeMiddleware runs a marquee client for each SSH session.
func marqueeMiddleware(srv *server.Server, cfg *config.Config, theme draw.Theme, logger *log.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			pty, winCh, ok := sess.Pty()
			if !ok {
				fmt.Fprintln(sess, "Error: PTY required. Please connect with: ssh -t user@host")
				return
			}

			// TERM arrives with the pty request, not as an env variable
			environ := draw.Environ(append([]string{"TERM=" + pty.Term}, sess.Environ()...))
			profile := draw.ProfileFromEnv(environ)
			logger.Info("New session", "user", sess.User(), "term", pty.Term,
				"size", fmt.Sprintf("%dx%d", pty.Window.Width, pty.Window.Height), "profile", profile)

			size := newSizeTracker(pty.Window.Width, pty.Window.Height)
			go func() {
				for win := range winCh {
					size.update(win.Width, win.Height)
				}
			}()

			c, err := client.New(srv, bufio.NewReader(sess), sess, client.Options{
				TermSize: size.getSize,
				Name:     sess.User(),
				Profile:  profile,
				Theme:    theme,
				FPS:      cfg.FPS,
				Logger:   logger,
			})
			if err != nil {
				logger.Error("Failed to start client", "user", sess.User(), "err", err)
				fmt.Fprintln(sess, "Error: terminal not supported")
				return
			}
			if err := c.Run(sess.Context()); err != nil {
				logger.Error("Client error", "user", sess.User(), "err", err)
			}

			logger.Info("Session ended", "user", sess.User())
			next(sess)
		}
	}
}

// sizeTracker tracks terminal size from SSH window change events.
type sizeTracker struct {
	mu     sync.RWMutex
	width  int
	height int
}

func newSizeTracker(width, height int) *sizeTracker {
	return &sizeTracker{width: width, height: height}
}

func (s *sizeTracker) update(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
}

func (s *sizeTracker) getSize() (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height, nil
}

var _ draw.TermSizeFunc = (*sizeTracker)(nil).getSize
