package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/auth"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/config"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/llm"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/pendingstore"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/ratelimit"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/tracing"
)

// Server is the Gateway: the system's single front door. Exactly one
// Server runs per deployment; it holds no per-request process-wide
// mutable state. Every field here is either
// immutable after construction or internally synchronized.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	auth       *auth.Service
	pending    pendingstore.Store
	limiter    *ratelimit.GatewayLimiter
	provider   llm.Provider
	registry   *ToolRegistry
	toolClient *ToolClient
	metrics    *Metrics
	tracer     *tracing.Tracer
	invLog     *invocationLog

	httpClient *http.Client

	httpServer *http.Server
}

// Deps bundles the Server's constructed dependencies, wired by
// cmd/gateway from the loaded Config.
type Deps struct {
	Config     *config.Config
	Logger     *slog.Logger
	Auth       *auth.Service
	Pending    pendingstore.Store
	Limiter    *ratelimit.GatewayLimiter
	Provider   llm.Provider
	HTTPClient *http.Client
	Tracer     *tracing.Tracer
}

// New builds a Server from its dependencies. Tool discovery must be
// run separately via (*Server).DiscoverTools before serving traffic.
func New(deps Deps) *Server {
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 95 * time.Second}
	}
	s := &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		auth:       deps.Auth,
		pending:    deps.Pending,
		limiter:    deps.Limiter,
		provider:   deps.Provider,
		registry:   NewToolRegistry(),
		httpClient: httpClient,
		metrics:    NewMetrics(),
		tracer:     deps.Tracer,
		invLog:     newInvocationLog(64),
	}
	s.toolClient = NewToolClient(httpClient, deps.Config.Timeout.ToolRead, deps.Config.Timeout.ToolWrite)
	return s
}

// DiscoverTools polls every configured Tool Server's discovery
// endpoint and populates the registry.
func (s *Server) DiscoverTools(ctx context.Context) error {
	endpoints := make([]ToolServerEndpoint, 0, len(s.cfg.ToolServers))
	for _, ts := range s.cfg.ToolServers {
		endpoints = append(endpoints, ToolServerEndpoint{Name: ts.Name, BaseURL: ts.BaseURL})
	}
	if err := s.registry.Discover(ctx, s.httpClient, endpoints); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("discovered tools", "count", len(s.registry.All()))
	}
	return nil
}

// ApplyReload applies the hot-reloadable subset of configuration.
// Rate limits, timeouts, and pagination bounds may change without a
// restart; identity-critical fields never do.
func (s *Server) ApplyReload(fields config.ReloadableFields) {
	s.cfg.Timeout = fields.Timeout
	s.cfg.Rate = fields.Rate
	s.cfg.Pagination = fields.Pagination
	if s.limiter != nil {
		s.limiter.SetLimits(ratelimit.GatewayLimits{GeneralPerMinute: fields.Rate.General, QueryPerMinute: fields.Rate.Query})
	}
	s.toolClient = NewToolClient(s.httpClient, fields.Timeout.ToolRead, fields.Timeout.ToolWrite)
}
