// Package session assembles a runnable associative memory from
// configuration: semantic store, resident graph, buffers, scheduler and
// spreading engine. The CLI and the MCP server both drive a Session.
//
// All public methods are safe for concurrent use.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nvandessel/pamem/internal/buffer"
	"github.com/nvandessel/pamem/internal/config"
	"github.com/nvandessel/pamem/internal/constants"
	"github.com/nvandessel/pamem/internal/graph"
	"github.com/nvandessel/pamem/internal/logging"
	"github.com/nvandessel/pamem/internal/models"
	"github.com/nvandessel/pamem/internal/scheduler"
	"github.com/nvandessel/pamem/internal/spreading"
	"github.com/nvandessel/pamem/internal/store"
	"github.com/nvandessel/pamem/internal/world"
)

// Options configures Open.
type Options struct {
	// Root is the project root holding .pamem/. Empty disables the decision
	// log and requires the memory backend or an explicit Store.
	Root string

	// Config defaults to config.Default().
	Config *config.PamConfig

	// Store overrides the configured backend. The session does not close it.
	Store store.SemanticStore

	Env      world.Environment
	Triggers spreading.Triggers
	Logger   *slog.Logger
}

// Session is one running associative memory.
type Session struct {
	Graph     *graph.Graph
	Store     store.SemanticStore
	Workspace *buffer.Workspace
	Scheduler *scheduler.Scheduler
	Engine    *spreading.Engine

	config    *config.PamConfig
	logger    *slog.Logger
	decisions *logging.DecisionLogger
	ownsStore bool

	// runMu serializes excitation runs so reports do not interleave.
	runMu sync.Mutex
}

// Open builds a session. Configuration is sanitized rather than rejected so
// a bad value in a config file degrades to its default.
func Open(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg.Sanitize(logger)

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("building engine config: %w", err)
	}

	s := &Session{
		config:    cfg,
		logger:    logger,
		Store:     opts.Store,
		Graph:     graph.New(),
		Workspace: buffer.NewWorkspace(),
	}
	if s.Store == nil {
		s.Store, err = OpenStore(opts.Root, cfg.Store)
		if err != nil {
			return nil, err
		}
		s.ownsStore = true
	}
	if opts.Root != "" {
		s.decisions = logging.NewDecisionLogger(store.LocalPamemPath(opts.Root), cfg.Logging.Level)
	}

	s.Scheduler = scheduler.New(scheduler.Options{
		Workers: cfg.Scheduler.Workers,
		Guard:   s.Graph.Contains,
		Logger:  logger,
	})

	s.Engine, err = spreading.NewEngine(spreading.Deps{
		Graph:     s.Graph,
		Store:     s.Store,
		Router:    s.Workspace,
		Scheduler: s.Scheduler,
		Env:       opts.Env,
		Triggers:  opts.Triggers,
		Logger:    logger,
		Decisions: s.decisions,
	}, engineCfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	if err := s.Engine.StartDecay(); err != nil {
		s.Close()
		return nil, fmt.Errorf("starting decay: %w", err)
	}
	return s, nil
}

// OpenStore opens the semantic store selected by sc.
func OpenStore(root string, sc config.StoreConfig) (store.SemanticStore, error) {
	switch sc.Backend {
	case constants.BackendMemory:
		return store.NewInMemorySemanticStore(), nil
	case constants.BackendSQLite, "":
		if root == "" && sc.Path == "" {
			return nil, fmt.Errorf("sqlite store needs a project root or an explicit path")
		}
		s, err := store.NewSQLiteSemanticStore(store.ResolveDBPath(root, sc.Path))
		if err != nil {
			return nil, fmt.Errorf("opening semantic store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

// Config returns the sanitized configuration the session runs with.
func (s *Session) Config() *config.PamConfig {
	return s.config
}

// Report is the outcome of one excitation run.
type Report struct {
	Labels  []string          `json:"labels"`
	Amount  float64           `json:"amount"`
	Source  string            `json:"source"`
	Ticks   int               `json:"ticks"`
	Pending int               `json:"pending"`
	Buffers []buffer.Contents `json:"buffers"`
}

// Excite excites labels by amount and ticks the scheduler until it is idle
// or maxTicks ticks have run. Buffers with no contents are left out of the
// report.
func (s *Session) Excite(ctx context.Context, labels []string, amount float64, source string, maxTicks int) (Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if err := s.Engine.ExciteAll(ctx, labels, amount, source); err != nil {
		return Report{}, err
	}
	ticks, err := s.Scheduler.RunUntilIdle(ctx, maxTicks)
	if err != nil {
		return Report{}, fmt.Errorf("running scheduler: %w", err)
	}
	s.logger.Debug("excitation run finished", "labels", labels, "ticks", ticks, "pending", s.Scheduler.Pending())

	return Report{
		Labels:  labels,
		Amount:  amount,
		Source:  source,
		Ticks:   ticks,
		Pending: s.Scheduler.Pending(),
		Buffers: s.Buffers(),
	}, nil
}

// Buffers returns the non-empty buffers. With names, only those buffers are
// returned, empty or not.
func (s *Session) Buffers(names ...buffer.Name) []buffer.Contents {
	if len(names) > 0 {
		out := make([]buffer.Contents, 0, len(names))
		for _, n := range names {
			out = append(out, s.Workspace.Snapshot(n))
		}
		return out
	}
	var out []buffer.Contents
	for _, n := range buffer.AllNames() {
		c := s.Workspace.Snapshot(n)
		if len(c.Nodes) > 0 || len(c.Links) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// NodeView is a resident node with its incident links.
type NodeView struct {
	Node   models.NodeSnapshot   `json:"node"`
	Parent []models.LinkSnapshot `json:"parent_links"`
	Child  []models.LinkSnapshot `json:"child_links"`
}

// Node looks up a resident node by label, falling back to id.
func (s *Session) Node(ref string) (NodeView, bool) {
	n := s.Graph.NodeByLabel(ref)
	if n == nil {
		n = s.Graph.Node(ref)
	}
	if n == nil {
		return NodeView{}, false
	}
	return NodeView{
		Node:   n.Snapshot(),
		Parent: snapshots(s.Graph.ParentLinksOf(n.ID)),
		Child:  snapshots(s.Graph.ChildLinksOf(n.ID)),
	}, true
}

// Resident returns snapshots of every node and link in the resident graph.
func (s *Session) Resident() ([]models.NodeSnapshot, []models.LinkSnapshot) {
	nodes := s.Graph.Nodes()
	out := make([]models.NodeSnapshot, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Snapshot())
	}
	return out, snapshots(s.Graph.Links())
}

func snapshots(links []*models.Link) []models.LinkSnapshot {
	out := make([]models.LinkSnapshot, 0, len(links))
	for _, l := range links {
		out = append(out, l.Snapshot())
	}
	return out
}

// Close stops the scheduler and releases the decision log and any store the
// session opened.
func (s *Session) Close() error {
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	s.decisions.Close()
	if s.ownsStore && s.Store != nil {
		return s.Store.Close()
	}
	return nil
}
