package spreading

import (
	"context"
	"fmt"

	"github.com/nvandessel/pamem/internal/logging"
	"github.com/nvandessel/pamem/internal/models"
	"github.com/nvandessel/pamem/internal/world"
)

// Excite resolves label to a node and excites it by amount. A label unknown to
// both the resident graph and the semantic store is logged and ignored.
func (e *Engine) Excite(ctx context.Context, label string, amount float64, source string) error {
	node, err := e.resolve(ctx, label)
	if err != nil {
		return err
	}
	if node == nil {
		e.logger.Warn("cannot find node to excite", "label", label, "source", source)
		return nil
	}
	return e.ReceiveExcitation(ctx, node, amount, source)
}

// ExciteAll excites each label in turn with the same amount.
func (e *Engine) ExciteAll(ctx context.Context, labels []string, amount float64, source string) error {
	for _, label := range labels {
		if err := e.Excite(ctx, label, amount, source); err != nil {
			return fmt.Errorf("exciting %q: %w", label, err)
		}
	}
	return nil
}

// resolve finds the resident node for label, loading it from the semantic
// store on first reference.
func (e *Engine) resolve(ctx context.Context, label string) (*models.Node, error) {
	if n := e.graph.NodeByLabel(label); n != nil {
		return n, nil
	}
	if e.store == nil {
		return nil, nil
	}
	rec, err := e.store.FetchByLabel(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("loading %q from store: %w", label, err)
	}
	if rec == nil {
		return nil, nil
	}
	return e.graph.AddNode(rec.ToNode()), nil
}

// ReceiveExcitation sets the node's activation to its weight times amount,
// records where it was perceived and schedules propagation from it.
func (e *Engine) ReceiveExcitation(ctx context.Context, node *models.Node, amount float64, source string) error {
	resident := e.graph.Node(node.ID)
	if resident == nil {
		e.logger.Warn("cannot find resident node", "id", node.ID, "source", source)
		return nil
	}

	e.logger.Log(ctx, logging.LevelTrace, "node receives excitation",
		"node", resident.Label, "amount", amount, "source", source)

	e.addSite(resident)
	resident.SetActivation(resident.Weight * amount)

	return e.schedule(e.config.ExcitationTicks, &excitationTask{
		engine: e,
		node:   resident,
		source: source,
	})
}

// ReceiveLinkExcitation rejects excitation aimed at a link. Only nodes are
// excited directly; links gain activation through propagation.
func (e *Engine) ReceiveLinkExcitation(_ context.Context, link *models.Link, amount float64, source string) error {
	e.logger.Warn("links cannot be excited directly",
		"link", link.Key.String(), "amount", amount, "source", source)
	return nil
}

// addSite tags the node with the grid cell it was perceived in.
func (e *Engine) addSite(n *models.Node) {
	if e.env == nil {
		return
	}
	n.SetLocation(world.Site(e.env, e.predicted[n.Label]))
}
