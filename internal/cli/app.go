// Package cli wires the client SDK into the subclient binary: config, the
// credential store backend, the auth API client, the flows, and the
// interactive commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/gbaghdasaryan1/subscription-client/internal/authapi"
	"github.com/gbaghdasaryan1/subscription-client/internal/credstore"
	"github.com/gbaghdasaryan1/subscription-client/internal/flow"
	"github.com/gbaghdasaryan1/subscription-client/internal/gate"
	"github.com/gbaghdasaryan1/subscription-client/internal/modal"
	"github.com/gbaghdasaryan1/subscription-client/pkg/httpclient"
	"github.com/gbaghdasaryan1/subscription-client/pkg/logger"
	"github.com/gbaghdasaryan1/subscription-client/pkg/tracing"
)

// App holds the assembled client.
type App struct {
	Config       *Config
	Logger       *slog.Logger
	Store        credstore.Store
	API          *authapi.Client
	Registration *flow.Registration
	Auth         *flow.Authenticator
	Gate         *gate.Gate
	Overlay      *modal.Coordinator

	shutdown func(context.Context) error
	closer   func() error
}

// NewApp builds the client from configuration.
func NewApp(ctx context.Context, cfg *Config) (*App, error) {
	log := logger.New("subclient", cfg.LogLevel)

	tcfg := tracing.DefaultConfig("subclient")
	tcfg.Enabled = cfg.TracingEnabled
	tcfg.OTLPEndpoint = cfg.TracingEndpoint
	shutdown, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	store, closer, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	httpc := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	breaker := httpclient.NewCircuitBreakerClient(httpc,
		httpclient.DefaultCircuitBreakerConfig("authapi"), log)
	api := authapi.New(cfg.APIBaseURL, breaker, store, log)

	overlay := modal.NewCoordinator()
	return &App{
		Config:       cfg,
		Logger:       log,
		Store:        store,
		API:          api,
		Registration: flow.NewRegistration(api, store, overlay, log),
		Auth:         flow.NewAuthenticator(api, store, log),
		Gate:         gate.New(store, log),
		Overlay:      overlay,
		shutdown:     shutdown,
		closer:       closer,
	}, nil
}

// Close flushes tracing and releases the store backend.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.closer != nil {
		firstErr = a.closer()
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func newStore(ctx context.Context, cfg *Config) (credstore.Store, func() error, error) {
	switch cfg.StoreBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis unreachable at %s: %w", cfg.RedisAddr, err)
		}
		return credstore.NewRedisStore(client, cfg.DeviceID), client.Close, nil
	default:
		dir := cfg.StoreDir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, nil, fmt.Errorf("resolve home dir: %w", err)
			}
			dir = filepath.Join(home, ".subclient")
		}
		store, err := credstore.NewFileStore(dir, cfg.StoreSecret)
		if err != nil {
			return nil, nil, fmt.Errorf("open credential store: %w", err)
		}
		return store, nil, nil
	}
}
