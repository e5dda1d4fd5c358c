package mcpsrv

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/usestring/iothub-service/internal/config"
	"github.com/usestring/iothub-service/internal/jq"
	"github.com/usestring/iothub-service/internal/logging"
	"github.com/usestring/iothub-service/internal/mcp"
	"github.com/usestring/iothub-service/internal/mcp/tools"
	"github.com/usestring/iothub-service/internal/metrics"
	"github.com/usestring/iothub-service/internal/schema"
	"github.com/usestring/iothub-service/pkg/client"
)

// Server is the IoT hub MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal   *mcp.Server
	deps       *Deps
	gatherer   prometheus.Gatherer
	logCleanup func() error
}

// NewServer creates a new MCP server with builtin IoT hub tools.
//
// Configuration is loaded from the environment unless WithConfig is given.
// The service client is built from the configured connection string unless
// WithClient is given.
func NewServer(opts ...Option) (*Server, error) {
	cfg := &serverConfig{
		config:  config.Load(),
		version: "1.0.0",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// Setup logging
	logCfg := logging.Config{
		Level:      cfg.config.LogLevel,
		Format:     cfg.config.LogFormat,
		FilePath:   cfg.config.LogFile,
		MaxSizeMB:  cfg.config.LogMaxSizeMB,
		MaxBackups: cfg.config.LogMaxBackups,
		MaxAgeDays: cfg.config.LogMaxAgeDays,
		Compress:   cfg.config.LogCompress,
	}
	if cfg.logLevel != "" {
		logCfg.Level = cfg.logLevel
	}
	if cfg.logFormat != "" {
		logCfg.Format = cfg.logFormat
	}
	if cfg.logFile != "" {
		logCfg.FilePath = cfg.logFile
	}
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	// Metrics
	reg := cfg.registerer
	var gatherer prometheus.Gatherer
	if reg == nil {
		private := prometheus.NewRegistry()
		reg, gatherer = private, private
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	} else {
		gatherer = prometheus.DefaultGatherer
	}
	recorder := metrics.New(reg)

	// Item schemas back the schema tool and, with STRICT_PAGES, page validation.
	schemas, err := schema.NewItemValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to build item schemas: %w", err)
	}

	c := cfg.client
	if c == nil {
		clientOpts := []client.Option{client.WithObserver(recorder)}
		if cfg.httpClient != nil {
			clientOpts = append(clientOpts, client.WithHTTPClient(cfg.httpClient))
		}
		if cfg.config.StrictPages {
			clientOpts = append(clientOpts, client.WithItemValidator(schemas))
		}
		c, err = config.NewClient(cfg.config, append(clientOpts, cfg.clientOptions...)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
	}

	jqEngine := jq.NewEngine()

	// Create deps for internal tools and custom tools
	toolDeps := &tools.Deps{
		Client:  c,
		Config:  cfg.config,
		JQ:      jqEngine,
		Schemas: schemas,
	}

	// Create public deps (same values, different type for public API)
	deps := &Deps{
		Client:  c,
		Config:  cfg.config,
		JQ:      jqEngine,
		Schemas: schemas,
		Metrics: recorder,
	}

	// Build internal server options
	internalOpts := []mcp.ServerOption{
		mcp.WithToolObserver(recorder),
		mcp.WithVersion(cfg.version),
	}
	if !cfg.disableBuiltinTools {
		internalOpts = append(internalOpts, mcp.WithBuiltinTools())
	}
	if !cfg.disableBuiltinPrompts {
		internalOpts = append(internalOpts, mcp.WithBuiltinPrompts())
	}

	// Add custom extension registration callbacks
	for _, fn := range cfg.toolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.promptRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.resourceRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}

	// Add deferred tool registrations (tools that need Deps access)
	for _, fn := range cfg.deferredToolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			fn(srv, deps)
		}))
	}

	internal, err := mcp.NewServer(toolDeps, internalOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	slog.Info("iothub MCP server configured",
		slog.String("host", c.Host()),
		slog.Bool("strict_pages", cfg.config.StrictPages),
		slog.Bool("builtin_tools", !cfg.disableBuiltinTools),
	)

	return &Server{
		internal:   internal,
		deps:       deps,
		gatherer:   gatherer,
		logCleanup: logCleanup,
	}, nil
}

// Run starts the MCP server with stdio transport.
// The server runs until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.internal.Run(ctx)
}

// MetricsHandler serves the server's Prometheus metrics.
func (s *Server) MetricsHandler() http.Handler {
	return metrics.Handler(s.gatherer)
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}
