// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultmcp/internal/api"
	"github.com/starford/vaultmcp/internal/fileservice"
	"github.com/starford/vaultmcp/internal/index"
	"github.com/starford/vaultmcp/internal/mcpserver"
	"github.com/starford/vaultmcp/internal/search"
	"github.com/starford/vaultmcp/internal/sse"
	"github.com/starford/vaultmcp/internal/vault"
)

// components is everything Run wires together.
type components struct {
	provider vault.Provider
	local    *vault.FS
	cache    *index.Cache
	service  *fileservice.Service
	broker   *sse.Broker
	mcp      *mcpserver.Server
}

func newProvider(cfg VaultConfig) (vault.Provider, *vault.FS, error) {
	switch cfg.Mode {
	case VaultModeFS:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create vault dir: %w", err)
		}
		fs, err := vault.NewFS(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init vault: %w", err)
		}
		return fs, fs, nil
	case VaultModeREST, "":
		return vault.NewREST(vault.RESTOptions{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Timeout:     cfg.Timeout,
			InsecureTLS: cfg.InsecureTLS,
		}), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown vault mode %q", cfg.Mode)
}

func build(cfg *Config, version string, logger *slog.Logger) (*components, error) {
	provider, local, err := newProvider(cfg.Vault)
	if err != nil {
		return nil, err
	}

	walker := index.NewWalker(provider, logger.With(slog.String("component", "walker")))
	cache := index.NewCache(walker, cfg.Index.CacheTTL, logger.With(slog.String("component", "index")))

	trashDir := fileservice.TrashDir(cfg.Trash.Dir)

	// Soft-deleted copies would otherwise show up as duplicate hits.
	exclude := append(append([]string{}, cfg.Search.Exclude...), trashDir+"/**")
	grepOpts := []search.GrepOption{search.WithExclude(exclude...)}
	if len(cfg.Search.Include) > 0 {
		grepOpts = append(grepOpts, search.WithInclude(cfg.Search.Include...))
	}
	grep, err := search.NewGrep(walker, provider, logger.With(slog.String("component", "search")), grepOpts...)
	if err != nil {
		return nil, fmt.Errorf("init search: %w", err)
	}

	broker := sse.NewBroker(cfg.Search.EventThrottle)
	svc := fileservice.New(provider, walker, cache, grep,
		logger.With(slog.String("component", "fileservice")),
		fileservice.WithTrashDir(trashDir),
		fileservice.WithEvents(broker.PublishFileEvent))

	return &components{
		provider: provider,
		local:    local,
		cache:    cache,
		service:  svc,
		broker:   broker,
		mcp:      mcpserver.New(svc, logger, version),
	}, nil
}

func newRouter(cfg *Config, c *components) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if _, err := c.provider.List(ctx, ""); err != nil {
			slog.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"vault unreachable"}`))
			return
		}
		body := map[string]any{"status": "ok"}
		if snap, ok := c.cache.Current(); ok {
			body["indexed_files"] = len(snap.Paths)
			body["indexed_at"] = snap.CapturedAt.UTC()
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	})

	r.Mount("/api", api.NewRouter(c.service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker))

	// MCP over streamable HTTP, behind the same bearer token as the API.
	r.With(api.AuthMiddleware(cfg.Auth.AuthEnabled(), cfg.Auth.Token)).
		Handle("/mcp", c.mcp.HTTPHandler())

	return r
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Stdout carries the protocol in stdio mode, so logs go to stderr.
	var logOut io.Writer = os.Stdout
	if app.stdio {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_mode", cfg.Vault.Mode),
		slog.String("vault_url", cfg.Vault.BaseURL),
		slog.Duration("cache_ttl", cfg.Index.CacheTTL),
		slog.Bool("stdio", app.stdio),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := build(cfg, app.version, logger)
	if err != nil {
		return err
	}
	defer c.broker.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	// Watch a local vault for changes made outside this process.
	if cfg.Index.Watch {
		if c.local == nil {
			logger.Warn("index.watch ignored: only supported in fs mode")
		} else {
			g.Go(func() error {
				if err := index.Watch(gCtx, c.local.Root(), c.cache, logger, c.broker.PublishFileEvent); err != nil {
					logger.Warn("watcher stopped", slog.String("error", err.Error()))
				}
				return nil
			})
		}
	}

	if app.stdio {
		g.Go(func() error {
			logger.Info("Serving MCP on stdio")
			if err := c.mcp.ServeStdio(); err != nil {
				return fmt.Errorf("stdio server error: %w", err)
			}
			return context.Canceled
		})
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Application error", slog.String("error", err.Error()))
			return err
		}
		return nil
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRouter(cfg, c),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		cancel()

		// Open SSE streams only end when the broker closes them.
		c.broker.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
