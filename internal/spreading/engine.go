// Package spreading implements perceptual associative memory: excitation of
// concept nodes and the spreading of that activation up through parent links,
// routing what it reaches into the downstream buffers.
//
// Propagation is depth-bounded and scheduled. Each hop runs as its own
// scheduler task, so a single excitation fans out over several ticks and
// concurrent chains interleave.
package spreading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/nvandessel/pamem/internal/buffer"
	"github.com/nvandessel/pamem/internal/graph"
	"github.com/nvandessel/pamem/internal/logging"
	"github.com/nvandessel/pamem/internal/models"
	"github.com/nvandessel/pamem/internal/scheduler"
	"github.com/nvandessel/pamem/internal/store"
	"github.com/nvandessel/pamem/internal/truth"
	"github.com/nvandessel/pamem/internal/world"
)

// Config holds parameters for propagation.
type Config struct {
	// Upscale scales the activation passed from a node to its parents. Default: 0.6.
	Upscale float64

	// Downscale scales the activation passed from a concept down into a
	// variable scene it instantiates. Default: 0.5.
	Downscale float64

	// PerceptThreshold is the total activation plus incentive salience a
	// target must exceed to enter the current scene. Default: 0.7.
	PerceptThreshold float64

	// ExcitationTicks is the delay before an excitation starts propagating. Default: 1.
	ExcitationTicks int

	// PropagationTicks is the delay between hops. Default: 1.
	PropagationTicks int

	// PropagationThreshold is the smallest amount worth passing on.
	// Continuations carrying less are dropped. Default: 0.05.
	PropagationThreshold float64

	// MaxDepth bounds the number of hops from the excited node. Default: 6.
	MaxDepth int

	// RefractoryThreshold is the non-conscious activation at or above which a
	// target is skipped. Default: 0.98.
	RefractoryThreshold float64

	// MaxPending is the scheduler backlog above which scene-to-scene is-a
	// links are not followed. Default: 1000.
	MaxPending int

	// PredictedObjects are labels placed one cell ahead of the agent rather
	// than at the agent's cell. Default: [rockFront].
	PredictedObjects []string

	// NodeTypeMap and LinkTypeMap rename factory types on percept egress.
	// Unmapped types fall back to the defaults.
	NodeTypeMap map[string]string
	LinkTypeMap map[string]string

	// DecayInterval is the number of ticks between decay passes. Zero disables decay.
	DecayInterval int

	// Decay lowers activation on every decay pass. Nil means linear decay at 0.1.
	Decay graph.DecayStrategy
}

// DefaultConfig returns the default propagation configuration.
func DefaultConfig() Config {
	return Config{
		Upscale:              0.6,
		Downscale:            0.5,
		PerceptThreshold:     0.7,
		ExcitationTicks:      1,
		PropagationTicks:     1,
		PropagationThreshold: 0.05,
		MaxDepth:             6,
		RefractoryThreshold:  0.98,
		MaxPending:           1000,
		PredictedObjects:     []string{"rockFront"},
	}
}

// Spawner is the part of the scheduler the engine submits work to.
type Spawner interface {
	Schedule(delay int, t scheduler.Task) (string, error)
	Pending() int
	CurrentTick() int64
}

// Deps are the collaborators an Engine works against. Graph, Router and
// Scheduler are required.
type Deps struct {
	Graph     *graph.Graph
	Store     store.SemanticStore // optional long-term store
	Router    buffer.Router
	Scheduler Spawner
	Env       world.Environment // optional; enables site tagging
	Triggers  Triggers          // optional; defaults to NopTriggers
	Strategy  PropagationStrategy
	Logger    *slog.Logger
	Decisions *logging.DecisionLogger
}

// Engine spreads activation through the resident graph.
type Engine struct {
	graph     *graph.Graph
	store     store.SemanticStore
	router    buffer.Router
	sched     Spawner
	env       world.Environment
	triggers  Triggers
	strategy  PropagationStrategy
	config    Config
	predicted map[string]bool
	logger    *slog.Logger
	decisions *logging.DecisionLogger

	// hydrated records the nodes whose parent links were pulled from the store.
	hydrated sync.Map

	listenersMu sync.RWMutex
	listeners   []PerceptListener
}

// NewEngine creates a propagation engine.
func NewEngine(deps Deps, config Config) (*Engine, error) {
	if deps.Graph == nil || deps.Router == nil || deps.Scheduler == nil {
		return nil, errors.New("spreading: graph, router and scheduler are required")
	}
	if deps.Triggers == nil {
		deps.Triggers = NopTriggers{Logger: deps.Logger}
	}
	if deps.Strategy == nil {
		deps.Strategy = UpscaleStrategy{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultConfig().MaxDepth
	}
	if config.Decay == nil {
		config.Decay = graph.LinearDecay{Rate: 0.1}
	}

	predicted := make(map[string]bool, len(config.PredictedObjects))
	for _, label := range config.PredictedObjects {
		predicted[label] = true
	}

	return &Engine{
		graph:     deps.Graph,
		store:     deps.Store,
		router:    deps.Router,
		sched:     deps.Scheduler,
		env:       deps.Env,
		triggers:  deps.Triggers,
		strategy:  deps.Strategy,
		config:    config,
		predicted: predicted,
		logger:    deps.Logger,
		decisions: deps.Decisions,
	}, nil
}

// Graph returns the resident graph the engine works on.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.config
}

// cycleID is the output cycle the current-scene buffer is about to broadcast.
func (e *Engine) cycleID() string {
	return strconv.FormatInt(e.router.BroadcastCount(buffer.CurrentScene)+1, 10)
}

// Propagate runs one propagation step from node at the given depth.
//
// It returns an error only when ctx is cancelled or the scheduler refuses a
// continuation. Missing nodes, unknown categories and store failures end the
// affected branch and are logged.
func (e *Engine) Propagate(ctx context.Context, node *models.Node, depth int, origin string) error {
	return e.propagate(ctx, node, depth, origin, false)
}

func (e *Engine) propagate(ctx context.Context, node *models.Node, depth int, origin string, extended bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if node == nil {
		return nil
	}

	node.Stamp(e.cycleID())
	node.SetTruth(e.truthFor(node, depth))
	if depth == 0 {
		e.route(buffer.Concept, buffer.NodePercept(node))
		e.route(buffer.NonConscious, buffer.NodePercept(node))
	}
	node = e.graph.AddNode(node)

	if depth >= e.config.MaxDepth {
		e.logger.Log(ctx, logging.LevelTrace, "depth bound reached",
			"node", node.Label, "depth", depth)
		return nil
	}

	e.hydrate(ctx, node)

	amount := e.strategy.Amount(e.config.Upscale, node.TotalActivation())
	incoming := node.Origin().Category

	for _, link := range e.graph.ParentLinksOf(node.ID) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.follow(ctx, node, link, incoming, amount, depth+1, origin, extended); err != nil {
			return err
		}
	}
	return nil
}

// follow handles a single parent link of node.
func (e *Engine) follow(ctx context.Context, node *models.Node, link *models.Link, incoming string, amount float64, childDepth int, origin string, extended bool) error {
	target := e.graph.Node(link.Key.Source)
	if target == nil {
		e.logger.Debug("parent link source not resident", "link", link.Key.String())
		return nil
	}

	if target.ID == node.ID || node.OriginID() == target.ID {
		e.decisions.Event("cycle_skip", "node", node.ID, "target", target.ID, "link", link.Key.String())
		return nil
	}
	if snap, ok := e.router.Node(buffer.NonConscious, target.ID); ok && snap.Activation >= e.config.RefractoryThreshold {
		e.decisions.Event("refractory_skip", "target", target.ID, "activation", snap.Activation)
		return nil
	}

	target.SetOriginID(node.OriginID())
	target = e.graph.AddNode(target)
	link, _ = e.graph.AddLink(link)

	exists := e.router.ContainsLink(buffer.NonConscious, link.Key)
	siblings := e.router.ChildLinksOf(buffer.NonConscious, target.ID)

	st := &step{
		node:       node,
		target:     target,
		link:       link,
		incoming:   incoming,
		childDepth: childDepth,
		extended:   extended,
	}
	if err := e.dispatch(ctx, st); err != nil {
		return err
	}
	if st.skip {
		return nil
	}

	if childDepth == 1 {
		e.route(buffer.Concept, buffer.NodePercept(target))
		e.route(buffer.Concept, buffer.LinkPercept(link))
	}

	e.admit(target, link, node, exists, siblings)

	e.route(buffer.NonConscious, buffer.NodePercept(target))
	e.route(buffer.NonConscious, buffer.LinkPercept(link))

	target.SetOrigin(models.Provenance{
		NodeID:   node.ID,
		SceneID:  node.Origin().SceneID,
		Category: link.Category(),
	})

	if link.Category() == models.CategoryContinuation {
		return nil
	}
	return e.schedule(e.config.PropagationTicks, &propagationTask{
		engine:   e,
		target:   target,
		link:     link.Key,
		amount:   amount,
		depth:    st.childDepth,
		origin:   origin,
		extended: st.extended,
	})
}

// admit applies the current-scene admission rule to target.
func (e *Engine) admit(target *models.Node, link *models.Link, node *models.Node, exists bool, siblings []models.LinkSnapshot) {
	ok, withSiblings := buffer.AdmitCurrentScene(target.Salience(), e.config.PerceptThreshold, exists, len(siblings))
	if !ok {
		return
	}
	if withSiblings {
		for _, sib := range siblings {
			if e.router.ContainsNode(buffer.CurrentScene, sib.Key.Sink) {
				s := sib
				e.route(buffer.CurrentScene, buffer.Percept{Link: &s})
			}
		}
	}
	e.route(buffer.CurrentScene, buffer.NodePercept(node))
	e.route(buffer.CurrentScene, buffer.NodePercept(target))
	e.route(buffer.CurrentScene, buffer.LinkPercept(link))

	e.decisions.Log(map[string]any{
		"event":    "admitted",
		"target":   target.ID,
		"link":     link.Key.String(),
		"siblings": len(siblings),
		"exists":   exists,
	})
}

// truthFor computes the node's truth state for a visit at depth.
func (e *Engine) truthFor(node *models.Node, depth int) truth.State {
	inScene := e.router.ContainsNode(buffer.CurrentScene, node.ID)
	prior := node.Truth()

	if depth == 0 {
		if inScene {
			return truth.Merge(truth.Real, prior)
		}
		return truth.Real
	}

	if node.HasTag(models.TagAction) || node.HasTag(models.TagState) {
		return truth.CoreState(e.roleEvidence(node.ID), node.Cores, prior, inScene)
	}
	if inScene {
		return truth.Merge(truth.Virtual, prior)
	}
	return truth.Virtual
}

// roleEvidence inspects the node's role links in the current scene.
func (e *Engine) roleEvidence(id string) truth.Evidence {
	var ev truth.Evidence
	for _, l := range e.router.ChildLinksOf(buffer.CurrentScene, id) {
		if !e.isReal(l.Key.Sink) {
			continue
		}
		switch l.Key.Category {
		case models.CategoryAction:
			ev.ActionReal = true
		case models.CategoryPatient:
			ev.PatientReal = true
		case models.CategoryAgent:
			ev.AgentReal = true
		}
	}
	return ev
}

func (e *Engine) isReal(id string) bool {
	if n := e.graph.Node(id); n != nil {
		return n.Truth().IsReal()
	}
	if snap, ok := e.router.Node(buffer.CurrentScene, id); ok {
		return snap.Truth.IsReal()
	}
	return false
}

// hydrate pulls the node's parent links and their sources from the semantic
// store into the resident graph, once per node.
func (e *Engine) hydrate(ctx context.Context, node *models.Node) {
	if e.store == nil {
		return
	}
	if _, loaded := e.hydrated.LoadOrStore(node.ID, struct{}{}); loaded {
		return
	}

	recs, err := e.store.FetchParentLinks(ctx, node.ID)
	if err != nil {
		e.hydrated.Delete(node.ID)
		e.logger.Warn("failed to fetch parent links", "node", node.ID, "error", err)
		return
	}
	for _, rec := range recs {
		if !e.graph.Contains(rec.Source) {
			src, err := e.store.FetchNode(ctx, rec.Source)
			if err != nil {
				e.logger.Warn("failed to fetch node", "id", rec.Source, "error", err)
				continue
			}
			if src == nil {
				continue
			}
			e.graph.AddNode(src.ToNode())
		}
		e.graph.AddLink(rec.ToLink())
	}
}

// materialize ensures a stored node is resident, returning the resident instance.
func (e *Engine) materialize(rec *store.Record) *models.Node {
	if rec == nil {
		return nil
	}
	if n := e.graph.Node(rec.ID); n != nil {
		return n
	}
	return e.graph.AddNode(rec.ToNode())
}

func (e *Engine) route(name buffer.Name, p buffer.Percept) {
	e.router.Accept(name, p)
}

func (e *Engine) schedule(delay int, t scheduler.Task) error {
	if _, err := e.sched.Schedule(delay, t); err != nil {
		return fmt.Errorf("scheduling %s task: %w", t.Kind(), err)
	}
	return nil
}
