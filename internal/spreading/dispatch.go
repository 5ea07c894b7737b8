package spreading

import (
	"context"

	"github.com/nvandessel/pamem/internal/buffer"
	"github.com/nvandessel/pamem/internal/models"
	"github.com/nvandessel/pamem/internal/store"
	"github.com/nvandessel/pamem/internal/truth"
)

// step is the state of one link traversal as it passes through dispatch.
type step struct {
	node       *models.Node
	target     *models.Node
	link       *models.Link
	incoming   string // category of the link that activated node
	childDepth int
	extended   bool
	skip       bool // set when the link must not be followed any further
}

// behavior is the dispatch record for one link category.
type behavior struct {
	// bump is added to the target's activation when the target is already
	// in the non-conscious buffer.
	bump float64
	// salience updates incentive salience. May be nil.
	salience func(st *step)
	// route sends percepts and spawns derived tasks. May be nil.
	route func(ctx context.Context, e *Engine, st *step) error
	// semantic marks categories that join the semantic network.
	semantic bool
}

// unknownBehavior is used for categories missing from the table.
var unknownBehavior = behavior{bump: 0.004}

var behaviors = map[string]behavior{
	models.CategoryDesire: {
		bump:     0.009,
		salience: desireSalience,
		route:    routeDesire,
	},
	models.CategoryPlan:      {bump: 0.008},
	models.CategoryIntention: {bump: 0.008},
	models.CategorySubclass: {
		bump:     0.006,
		salience: inheritSalience(0),
		route:    routeSequenceTarget,
	},
	models.CategoryMentalPlan: {
		bump:     0.004,
		salience: inheritSalience(0),
		route:    routeSequenceTarget,
	},
	models.CategoryEmbodiedPlan: {
		bump:     0.004,
		salience: inheritSalience(0),
		route:    routeSequenceTarget,
	},
	models.CategorySequence: {
		bump:     0.007,
		salience: inheritSalience(0.01),
		route:    routeSequenceTarget,
	},
	models.CategorySuccession: {
		bump:     0.005,
		salience: successionSalience,
		route:    routeSuccession,
	},
	models.CategoryContent: {bump: 0.007},
	models.CategoryIsA: {
		bump:     0.004,
		route:    routeIsA,
		semantic: true,
	},
	models.CategoryImplication: {
		bump:     0.004,
		semantic: true,
	},
	models.CategoryGrammarSequence:  {bump: 0.004, route: routeGrammar},
	models.CategoryContinuation:     {bump: 0.004, route: routeGrammar},
	models.CategoryAssignment:       {bump: 0.004, route: routeAssignment},
	models.CategoryWholeAssignment:  {bump: 0.004, route: routeAssignment},
	models.CategoryReturnAssignment: {bump: 0.004, route: routeAssignment},
	models.CategorySatisfaction:     {bump: 0.004, route: routeAssignment},
	models.CategoryElse:             {bump: 0.004, route: routeAssignment},
}

func behaviorFor(category string) behavior {
	if b, ok := behaviors[category]; ok {
		return b
	}
	return unknownBehavior
}

// dispatch applies the category behavior for st.link: activation bump,
// salience, routing and derived tasks, then the semantic step.
func (e *Engine) dispatch(ctx context.Context, st *step) error {
	b := behaviorFor(st.link.Category())

	if e.router.ContainsNode(buffer.NonConscious, st.target.ID) {
		st.target.Excite(b.bump)
	}
	if b.salience != nil {
		b.salience(st)
	}
	if b.route != nil {
		if err := b.route(ctx, e, st); err != nil {
			return err
		}
		if st.skip {
			return nil
		}
	}
	if b.semantic && (models.IsSemanticLinking(st.incoming) || st.childDepth == 1) {
		e.semanticStep(ctx, st)
	}
	return nil
}

// semanticStep joins node, target and link to the concept buffer and lets
// the chain run one hop past the depth bound, once.
func (e *Engine) semanticStep(ctx context.Context, st *step) {
	e.route(buffer.Concept, buffer.NodePercept(st.node))
	e.route(buffer.Concept, buffer.NodePercept(st.target))
	e.route(buffer.Concept, buffer.LinkPercept(st.link))
	st.target.Excite(0.1)

	if st.childDepth >= e.config.MaxDepth && !st.extended {
		st.childDepth = e.config.MaxDepth - 1
		st.extended = true
		e.decisions.Log(map[string]any{
			"event":  "depth_extended",
			"target": st.target.ID,
			"link":   st.link.Key.String(),
		})
	}

	e.retrieve(ctx, st)
}

func desireSalience(st *step) {
	st.target.SetIncentiveSalience(st.link.IncentiveOrDefault())
}

// inheritSalience copies the node's incentive to the target, less discount,
// when the node carries any.
func inheritSalience(discount float64) func(st *step) {
	return func(st *step) {
		if inc := st.node.IncentiveSalience(); inc > 0 {
			st.target.SetIncentiveSalience(inc - discount)
		}
	}
}

func successionSalience(st *step) {
	gain := st.node.IncentiveSalience() * st.link.IncentiveOrDefault()
	if s := st.node.Truth(); s == truth.VirtualThenReal || s == truth.MultilayerRealTrailing {
		gain += 0.2
	}
	st.target.AddIncentiveSalience(gain)
}

func routeDesire(ctx context.Context, e *Engine, st *step) error {
	e.route(buffer.Feeling, buffer.NodePercept(st.node))
	e.route(buffer.Goal, buffer.NodePercept(st.node))
	e.route(buffer.Goal, buffer.NodePercept(st.target))
	e.route(buffer.Goal, buffer.LinkPercept(st.link))
	for _, l := range e.graph.LinksOf(st.target.ID) {
		if src := e.graph.Node(l.Key.Source); src != nil {
			e.route(buffer.Goal, buffer.NodePercept(src))
		}
		e.route(buffer.Goal, buffer.LinkPercept(l))
	}
	return e.schedule(1, &goalTask{engine: e, root: st.target})
}

func routeSequenceTarget(_ context.Context, e *Engine, st *step) error {
	if st.node.IncentiveSalience() <= 0 {
		return nil
	}
	e.route(buffer.Sequence, buffer.NodePercept(st.target))
	e.route(buffer.Sequence, buffer.LinkPercept(st.link))
	return nil
}

func (e *Engine) routeTriple(name buffer.Name, st *step) {
	e.route(name, buffer.NodePercept(st.node))
	e.route(name, buffer.NodePercept(st.target))
	e.route(name, buffer.LinkPercept(st.link))
}

func routeSuccession(ctx context.Context, e *Engine, st *step) error {
	nodeIn := e.router.ContainsNode(buffer.Sequence, st.node.ID)
	targetIn := e.router.ContainsNode(buffer.Sequence, st.target.ID)
	switch {
	case nodeIn && targetIn:
		e.routeTriple(buffer.Sequence, st)
	case nodeIn || targetIn:
		e.bridgeSuccession(ctx, st)
	}
	return nil
}

// bridgeSuccession looks for a plan scene sequencing both ends of a
// succession link. When that scene is an active plan its incentive is handed
// to both ends.
func (e *Engine) bridgeSuccession(ctx context.Context, st *step) {
	if e.store == nil {
		return
	}
	rows, err := e.store.Query(ctx, store.Pattern{
		Kind:    store.PatternSequenceBridge,
		Subject: st.node.ID,
		Object:  st.target.ID,
	})
	if err != nil {
		e.logger.Warn("sequence bridge query failed", "link", st.link.Key.String(), "error", err)
		return
	}
	for _, row := range rows {
		if row.Node == nil {
			continue
		}
		snap, ok := e.router.Node(buffer.Sequence, row.Node.ID)
		if !ok || snap.Incentive <= 0 {
			continue
		}
		st.node.SetIncentiveSalience(snap.Incentive)
		st.target.SetIncentiveSalience(snap.Incentive)
		e.routeTriple(buffer.Sequence, st)
	}
}

func routeIsA(_ context.Context, e *Engine, st *step) error {
	if !st.node.HasTag(models.TagScene) || !st.target.HasTag(models.TagScene) {
		return nil
	}
	if e.sched.Pending() > e.config.MaxPending {
		st.skip = true
		e.logger.Debug("scheduler backlog, skipping scene is-a",
			"link", st.link.Key.String(), "pending", e.sched.Pending())
		return nil
	}
	if st.target.HasTag(models.TagVariableScene) {
		return e.schedule(1, &instantiationTask{
			engine:   e,
			instance: st.node,
			scene:    st.target,
		})
	}
	return nil
}

func routeGrammar(_ context.Context, e *Engine, st *step) error {
	e.routeTriple(buffer.Grammar, st)
	return nil
}

func routeAssignment(_ context.Context, e *Engine, st *step) error {
	inc := st.node.IncentiveSalience()
	if !e.router.ContainsNode(buffer.Sequence, st.node.ID) || inc <= 0 {
		return nil
	}
	st.target.SetIncentiveSalience(inc)
	e.routeTriple(buffer.Sequence, st)
	return nil
}
