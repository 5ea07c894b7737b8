package spreading

import (
	"context"
	"fmt"

	"github.com/nvandessel/pamem/internal/buffer"
	"github.com/nvandessel/pamem/internal/logging"
	"github.com/nvandessel/pamem/internal/models"
	"github.com/nvandessel/pamem/internal/scheduler"
	"github.com/nvandessel/pamem/internal/store"
)

// excitationTask starts propagation from a freshly excited node.
type excitationTask struct {
	engine *Engine
	node   *models.Node
	source string
	depth  int
}

func (t *excitationTask) Kind() scheduler.Kind { return scheduler.KindExcitation }
func (t *excitationTask) TargetID() string     { return t.node.ID }

func (t *excitationTask) Run(ctx context.Context) error {
	return t.engine.Propagate(ctx, t.node, t.depth, t.source)
}

// propagationTask carries activation one hop up a parent link.
type propagationTask struct {
	engine   *Engine
	target   *models.Node
	link     models.LinkKey
	amount   float64
	depth    int
	origin   string
	extended bool
}

func (t *propagationTask) Kind() scheduler.Kind { return scheduler.KindPropagation }
func (t *propagationTask) TargetID() string     { return t.target.ID }

func (t *propagationTask) Run(ctx context.Context) error {
	e := t.engine
	if t.amount < e.config.PropagationThreshold {
		e.logger.Log(ctx, logging.LevelTrace, "activation below propagation threshold",
			"link", t.link.String(), "amount", t.amount)
		return nil
	}
	t.target.Excite(t.amount)
	return e.propagate(ctx, t.target, t.depth, t.origin, t.extended)
}

// grammarTask asks the grammar framer to put a retrieved scene into words.
type grammarTask struct {
	engine *Engine
	scene  *models.Node
}

func (t *grammarTask) Kind() scheduler.Kind { return scheduler.KindGrammar }
func (t *grammarTask) TargetID() string     { return t.scene.ID }

func (t *grammarTask) Run(ctx context.Context) error {
	if err := t.engine.triggers.FrameGrammar(ctx, t.scene); err != nil {
		return fmt.Errorf("framing grammar for %s: %w", t.scene.Label, err)
	}
	return nil
}

// goalTask walks a desired scene's plan hierarchy down to its leaf, pushing
// each level into the sequence buffer, and hands the leaf to plan derivation.
type goalTask struct {
	engine *Engine
	root   *models.Node
}

func (t *goalTask) Kind() scheduler.Kind { return scheduler.KindGoal }
func (t *goalTask) TargetID() string     { return t.root.ID }

func (t *goalTask) Run(ctx context.Context) error {
	return t.walk(ctx, t.root, map[string]bool{})
}

func (t *goalTask) walk(ctx context.Context, head *models.Node, visited map[string]bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := t.engine
	visited[head.ID] = true

	var rows []store.Row
	if e.store != nil {
		var err error
		rows, err = e.store.Query(ctx, store.Pattern{Kind: store.PatternPlanRoot, Subject: head.ID})
		if err != nil {
			return fmt.Errorf("plan root query for %s: %w", head.Label, err)
		}
	}

	descended := false
	for _, row := range rows {
		if row.Link == nil || row.Sink == nil || visited[row.Sink.ID] {
			continue
		}
		next := e.materialize(row.Sink)
		link, _ := e.graph.AddLink(row.Link.ToLink())
		next.SetIncentiveSalience(head.IncentiveSalience())
		e.route(buffer.Sequence, buffer.NodePercept(next))
		e.route(buffer.Sequence, buffer.LinkPercept(link))
		descended = true
		if err := t.walk(ctx, next, visited); err != nil {
			return err
		}
	}
	if descended {
		return nil
	}
	if err := e.triggers.DerivePlan(ctx, head, leafKind(head)); err != nil {
		return fmt.Errorf("deriving plan from %s: %w", head.Label, err)
	}
	return nil
}

// instantiationTask binds a concrete scene to the variable scene it is an
// instance of and continues propagation from the variable scene.
type instantiationTask struct {
	engine   *Engine
	instance *models.Node
	scene    *models.Node
}

func (t *instantiationTask) Kind() scheduler.Kind { return scheduler.KindInstantiation }
func (t *instantiationTask) TargetID() string     { return t.scene.ID }

func (t *instantiationTask) Run(ctx context.Context) error {
	e := t.engine
	link, _ := e.graph.AddLink(models.NewLink(t.instance.ID, t.scene.ID, models.CategoryNowIsA))
	e.route(buffer.NonConscious, buffer.LinkPercept(link))

	t.scene.SetOrigin(models.Provenance{
		NodeID:   t.instance.ID,
		SceneID:  t.instance.Origin().SceneID,
		Category: models.CategoryNowIsA,
	})
	t.scene.Excite(e.config.Downscale * t.instance.TotalActivation())
	return e.propagate(ctx, t.scene, 1, "varscene", false)
}

// decayTask lowers activation across the resident graph and reschedules
// itself.
type decayTask struct {
	engine *Engine
}

func (t *decayTask) Kind() scheduler.Kind { return scheduler.KindDecay }

func (t *decayTask) Run(ctx context.Context) error {
	e := t.engine
	e.graph.Decay(int64(e.config.DecayInterval), e.config.Decay)
	return e.schedule(e.config.DecayInterval, t)
}

// StartDecay schedules the periodic decay pass. It does nothing when the
// decay interval is zero.
func (e *Engine) StartDecay() error {
	if e.config.DecayInterval <= 0 {
		return nil
	}
	return e.schedule(e.config.DecayInterval, &decayTask{engine: e})
}
