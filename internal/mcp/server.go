// Package mcp provides an MCP (Model Context Protocol) server for pamem.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/pamem/internal/config"
	"github.com/nvandessel/pamem/internal/constants"
	"github.com/nvandessel/pamem/internal/ratelimit"
	"github.com/nvandessel/pamem/internal/session"
	"github.com/nvandessel/pamem/internal/store"
)

// Server wraps the MCP SDK server and exposes one associative memory
// session as tools.
type Server struct {
	server       *sdk.Server
	session      *session.Session
	root         string
	maxTicks     int
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "pamem")
	Version string // Server version
	Root    string // Project root directory

	// Pam is the memory configuration. Nil loads it from Root.
	Pam *config.PamConfig

	// Limits overrides the default per-tool rate limits.
	Limits map[string]ratelimit.Limit

	Logger *slog.Logger
}

// NewServer creates a new MCP server with pamem tools.
func NewServer(cfg *Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pam := cfg.Pam
	if pam == nil {
		var err error
		pam, err = config.Load(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if _, err := store.EnsureLocalPamemDir(cfg.Root); err != nil {
		return nil, err
	}

	sess, err := session.Open(session.Options{Root: cfg.Root, Config: pam, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		session:      sess,
		root:         cfg.Root,
		maxTicks:     constants.DefaultMaxTicks,
		toolLimiters: ratelimit.NewToolLimiters(cfg.Limits),
		auditLogger:  NewAuditLogger(cfg.Root),
		logger:       logger,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.Close()

	return err
}

// Close closes the server and releases resources. It is safe to call more
// than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.auditLogger.Close()
		s.closeErr = s.session.Close()
	})
	return s.closeErr
}
