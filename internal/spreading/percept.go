package spreading

import (
	"context"

	"github.com/nvandessel/pamem/internal/models"
)

// PerceptFrame is a converted batch of nodes and links delivered to
// listeners, stamped with where and when it was perceived.
type PerceptFrame struct {
	Nodes []models.NodeSnapshot `json:"nodes"`
	Links []models.LinkSnapshot `json:"links"`
	Site  string                `json:"site,omitempty"`
	Tick  int64                 `json:"tick"`
}

// PerceptListener receives percept frames.
type PerceptListener interface {
	ReceivePercept(ctx context.Context, frame PerceptFrame)
}

// PerceptListenerFunc adapts a function into a PerceptListener.
type PerceptListenerFunc func(ctx context.Context, frame PerceptFrame)

// ReceivePercept implements PerceptListener.
func (f PerceptListenerFunc) ReceivePercept(ctx context.Context, frame PerceptFrame) {
	f(ctx, frame)
}

// AddListener registers l for percept frames.
func (e *Engine) AddListener(l PerceptListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// AddToPercept converts nodes and links to their percept types and fans the
// frame out to every listener. Activation in the frame is total activation.
func (e *Engine) AddToPercept(ctx context.Context, nodes []*models.Node, links []*models.Link) {
	frame := PerceptFrame{Tick: e.sched.CurrentTick()}
	if e.env != nil {
		frame.Site = e.env.AgentCell().Key()
	}

	for _, n := range nodes {
		snap := n.Snapshot()
		snap.Type = convertType(e.config.NodeTypeMap, snap.Type, models.DefaultNodeType)
		snap.Activation = snap.TotalActivation
		frame.Nodes = append(frame.Nodes, snap)
	}
	for _, l := range links {
		snap := l.Snapshot()
		snap.Type = convertType(e.config.LinkTypeMap, snap.Type, models.DefaultLinkType)
		frame.Links = append(frame.Links, snap)
	}

	e.listenersMu.RLock()
	listeners := append([]PerceptListener(nil), e.listeners...)
	e.listenersMu.RUnlock()

	for _, l := range listeners {
		l.ReceivePercept(ctx, frame)
	}
}

func convertType(m map[string]string, typ, fallback string) string {
	if mapped, ok := m[typ]; ok {
		return mapped
	}
	return fallback
}
