package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/auth"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/config"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/gateway"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/llm"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/pendingstore"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/ratelimit"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/revocation"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/tracing"
)

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway's HTTP/SSE server",
		Long: `Start the gateway server.

The server will:
1. Load configuration from the specified YAML file
2. Connect to Redis for revocation and pending-confirmation state
3. Build the configured LLM provider (anthropic or openai)
4. Discover tools from every configured Tool Server
5. Serve /query, /confirm, /tools, /health, and (if enabled) /metrics

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, addr, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func runServe(ctx context.Context, configPath, addr string, debug bool) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting gateway", "version", version, "commit", commit, "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	revocationCache := newRevocationCache(cfg, logger)
	go revocationCache.Run(ctx)

	authService, err := buildAuthService(ctx, cfg, revocationCache)
	if err != nil {
		return fmt.Errorf("build auth service: %w", err)
	}

	pendingStore := newPendingStore(cfg)

	provider, err := buildLLMProvider(cfg)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}

	limiter := ratelimit.NewGatewayLimiter(ratelimit.GatewayLimits{
		GeneralPerMinute: cfg.Rate.General,
		QueryPerMinute:   cfg.Rate.Query,
	})

	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.OTLPEndpoint
	}
	tracer, shutdownTracing := tracing.New(tracing.Config{
		ServiceName: "gateway",
		Endpoint:    tracingEndpoint,
		Insecure:    true,
	})
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		_ = shutdownTracing(flushCtx)
	}()

	srv := gateway.New(gateway.Deps{
		Config:   cfg,
		Logger:   logger,
		Auth:     authService,
		Pending:  pendingStore,
		Limiter:  limiter,
		Provider: provider,
		Tracer:   tracer,
	})

	discoverCtx, discoverCancel := context.WithTimeout(ctx, 30*time.Second)
	err = srv.DiscoverTools(discoverCtx)
	discoverCancel()
	if err != nil {
		return fmt.Errorf("discover tools: %w", err)
	}

	watcher := config.NewWatcher(configPath, logger, srv.ApplyReload)
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("config hot-reload watcher failed to start", "error", err)
	} else {
		defer watcher.Close()
	}

	if err := srv.Start(addr); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	logger.Info("gateway started", "addr", addr, "tool_servers", len(cfg.ToolServers))

	<-ctx.Done()
	logger.Info("shutdown signal received, draining in-flight requests")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	srv.Stop(shutdownCtx)

	logger.Info("gateway stopped")
	return nil
}

func buildSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := config.JSONSchema()
			if err != nil {
				return fmt.Errorf("generate config schema: %w", err)
			}
			fmt.Println(string(schema))
			return nil
		},
	}
}

// buildAuthService wires the Gateway's credential verifier:
// production deployments verify against the IdP's JWKS, while
// dev.authEnabled swaps in the HS256 DevSigner for local development.
func buildAuthService(ctx context.Context, cfg *config.Config, revocationCache *revocation.Cache) (*auth.Service, error) {
	if cfg.Dev.AuthEnabled {
		dev := auth.NewDevSigner(cfg.Dev.Secret, cfg.Timeout.RequestTotal, cfg.IDP.Issuer, cfg.IDP.Audience)
		return auth.NewService(nil, dev, cfg.IDP.Audience, cfg.IDP.Issuer, revocationCache), nil
	}

	idp, err := auth.NewIdentityProviderAdapter(ctx, cfg.IDP.JWKSURL, cfg.IDP.MinRefresh)
	if err != nil {
		return nil, fmt.Errorf("build identity provider adapter: %w", err)
	}
	return auth.NewService(idp, nil, cfg.IDP.Audience, cfg.IDP.Issuer, revocationCache), nil
}

func newRevocationCache(cfg *config.Config, logger *slog.Logger) *revocation.Cache {
	addr := cfg.Revocation.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return revocation.New(client, revocation.Config{
		KeyPrefix:    cfg.Revocation.KeyPrefix,
		SyncInterval: cfg.Revocation.SyncInterval,
		FailOpen:     cfg.Revocation.FailOpenOrDefault(),
	}, logger)
}

// newPendingStore builds the Pending Action Store client. It
// falls back to the revocation store's Redis address when none is
// configured separately, since both are commonly the same Redis
// deployment in the reference configuration.
func newPendingStore(cfg *config.Config) pendingstore.Store {
	addr := cfg.Pending.RedisAddr
	if addr == "" {
		addr = cfg.Revocation.RedisAddr
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return pendingstore.NewRedisStore(client)
}

// buildLLMProvider selects the configured LLM provider ("any
// provider matching this shape is substitutable").
func buildLLMProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "", "anthropic":
		return llm.NewAnthropicProvider(llm.AnthropicConfig{
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			DefaultModel: cfg.LLM.Model,
		})
	case "openai":
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			DefaultModel: cfg.LLM.Model,
		})
	default:
		return nil, fmt.Errorf("unknown llm.provider %q", cfg.LLM.Provider)
	}
}
