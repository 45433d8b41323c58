// Command stubserver runs the development backend for the subscription
// client. Accounts live in memory and one-time codes are printed to the log
// instead of being delivered.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gbaghdasaryan1/subscription-client/internal/stubserver"
	"github.com/gbaghdasaryan1/subscription-client/pkg/config"
	"github.com/gbaghdasaryan1/subscription-client/pkg/logger"
)

type serverConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"stub-dev-secret"`
	TokenExpiry     time.Duration `env:"TOKEN_EXPIRY" envDefault:"24h"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "stubserver:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotenv(".env"); err != nil {
		return err
	}

	var cfg serverConfig
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("stubserver", cfg.LogLevel)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: stubserver.New(stubserver.Config{
			JWTSecret:   cfg.JWTSecret,
			TokenExpiry: cfg.TokenExpiry,
		}, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("stub backend listening", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
