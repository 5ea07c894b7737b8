package spreading

import (
	"context"
	"log/slog"

	"github.com/nvandessel/pamem/internal/models"
)

// Leaf kinds handed to Triggers.DerivePlan.
const (
	LeafMindAct     = "mind-act"
	LeafSelectTree  = "select-tree"
	LeafSimpleScene = "simple-scene"
)

// Triggers are the downstream processes propagation can start: grammar
// framing for language generation and plan derivation for goals.
type Triggers interface {
	// FrameGrammar is called when a retrieved main scene is ready to be
	// put into words.
	FrameGrammar(ctx context.Context, scene *models.Node) error
	// DerivePlan is called with the leaf of a plan hierarchy and its kind.
	DerivePlan(ctx context.Context, leaf *models.Node, kind string) error
}

// NopTriggers logs trigger requests and does nothing else.
type NopTriggers struct {
	Logger *slog.Logger
}

// FrameGrammar implements Triggers.
func (t NopTriggers) FrameGrammar(ctx context.Context, scene *models.Node) error {
	if t.Logger != nil {
		t.Logger.DebugContext(ctx, "grammar framing requested", "scene", scene.Label)
	}
	return nil
}

// DerivePlan implements Triggers.
func (t NopTriggers) DerivePlan(ctx context.Context, leaf *models.Node, kind string) error {
	if t.Logger != nil {
		t.Logger.DebugContext(ctx, "plan derivation requested", "leaf", leaf.Label, "kind", kind)
	}
	return nil
}

// leafKind classifies a plan leaf.
func leafKind(n *models.Node) string {
	switch {
	case n.HasTag(models.TagVariableScene):
		return LeafMindAct
	case n.HasTag(models.TagIfElse):
		return LeafSelectTree
	default:
		return LeafSimpleScene
	}
}
