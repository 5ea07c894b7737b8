package spreading

import (
	"context"
	"testing"

	"github.com/nvandessel/pamem/internal/graph"
	"github.com/nvandessel/pamem/internal/models"
	"github.com/nvandessel/pamem/internal/store"
	"github.com/nvandessel/pamem/internal/world"
)

func TestExcite_AddSite(t *testing.T) {
	grid := world.NewGrid(5, 5)
	grid.Place(world.Cell{X: 2, Y: 2}, world.East)
	h := newHarness(t, harnessOpts{env: grid})
	h.addNodes(models.NewNode("rock", "rockFront"), models.NewNode("apple", "apple"))

	h.excite(t, "rockFront", 1.0)
	h.excite(t, "apple", 1.0)

	if got := h.graph.Node("rock").Location(); got != "3_2" {
		t.Errorf("predicted object location = %q, want 3_2", got)
	}
	if got := h.graph.Node("apple").Location(); got != "2_2" {
		t.Errorf("object location = %q, want 2_2", got)
	}
}

func TestExcite_WeightScalesActivation(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	n := models.NewNode("n", "n")
	n.Weight = 0.5
	h.addNodes(n)

	h.excite(t, "n", 0.8)
	if !approx(n.Activation(), 0.4) {
		t.Errorf("activation = %v, want 0.4", n.Activation())
	}
	if h.sched.Pending() != 1 {
		t.Errorf("pending = %d, want 1 excitation task", h.sched.Pending())
	}
}

func TestExcite_UnknownLabelIsIgnored(t *testing.T) {
	h := newHarness(t, harnessOpts{store: store.NewInMemorySemanticStore()})
	h.excite(t, "ghost", 1.0)
	if h.sched.Pending() != 0 {
		t.Errorf("pending = %d, want 0", h.sched.Pending())
	}
}

func TestExcite_LoadsFromStore(t *testing.T) {
	s := store.NewInMemorySemanticStore()
	if _, err := s.AddNode(context.Background(), store.Record{ID: "s1", Label: "sun", Weight: 0.5}); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, harnessOpts{store: s})
	h.excite(t, "sun", 1.0)

	n := h.graph.NodeByLabel("sun")
	if n == nil {
		t.Fatal("sun not materialized")
	}
	if !approx(n.Activation(), 0.5) {
		t.Errorf("activation = %v, want 0.5", n.Activation())
	}
}

func TestExciteAll(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.addNodes(models.NewNode("a", "a"), models.NewNode("b", "b"))
	if err := h.engine.ExciteAll(context.Background(), []string{"a", "b", "c"}, 1.0, "test"); err != nil {
		t.Fatalf("ExciteAll() error = %v", err)
	}
	if h.sched.Pending() != 2 {
		t.Errorf("pending = %d, want 2", h.sched.Pending())
	}
}

func TestReceiveLinkExcitation_Rejected(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.addNodes(models.NewNode("a", "a"), models.NewNode("b", "b"))
	l := h.link("a", "b", models.CategoryContent)

	if err := h.engine.ReceiveLinkExcitation(context.Background(), l, 1.0, "test"); err != nil {
		t.Errorf("ReceiveLinkExcitation() error = %v", err)
	}
	if h.sched.Pending() != 0 || l.Activation() != 0 {
		t.Error("link excitation should be a no-op")
	}
}

func TestReceiveExcitation_NonResidentIgnored(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	if err := h.engine.ReceiveExcitation(context.Background(), models.NewNode("x", "x"), 1.0, "test"); err != nil {
		t.Errorf("ReceiveExcitation() error = %v", err)
	}
	if h.sched.Pending() != 0 {
		t.Error("non-resident node should not be scheduled")
	}
}

func TestAddToPercept(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeTypeMap = map[string]string{models.DefaultNodeType: "percept-node"}
	grid := world.NewGrid(3, 3)
	grid.Place(world.Cell{X: 1, Y: 2}, world.North)
	h := newHarness(t, harnessOpts{config: cfg, env: grid})

	var got []PerceptFrame
	h.engine.AddListener(PerceptListenerFunc(func(_ context.Context, f PerceptFrame) {
		got = append(got, f)
	}))

	n := models.NewNode("n", "n")
	n.SetActivation(0.3)
	n.SetBaseActivation(0.2)
	l := models.NewLink("n", "m", models.CategoryContent)
	l.Type = "custom-link"

	h.engine.AddToPercept(context.Background(), []*models.Node{n}, []*models.Link{l})

	if len(got) != 1 {
		t.Fatalf("listener received %d frames, want 1", len(got))
	}
	f := got[0]
	if f.Site != "1_2" {
		t.Errorf("site = %q", f.Site)
	}
	if f.Nodes[0].Type != "percept-node" || !approx(f.Nodes[0].Activation, 0.5) {
		t.Errorf("node = %+v", f.Nodes[0])
	}
	if f.Links[0].Type != models.DefaultLinkType {
		t.Errorf("unmapped link type = %q, want default", f.Links[0].Type)
	}
}

func TestStartDecay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DecayInterval = 2
	cfg.Decay = graph.LinearDecay{Rate: 0.1}
	h := newHarness(t, harnessOpts{config: cfg})
	n := models.NewNode("n", "n")
	n.SetActivation(0.5)
	h.addNodes(n)

	if err := h.engine.StartDecay(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := h.sched.Tick(ctx); err != nil {
			t.Fatal(err)
		}
	}
	// Two passes of 0.1 × 2 ticks each.
	if !approx(n.Activation(), 0.1) {
		t.Errorf("activation = %v, want 0.1", n.Activation())
	}
	if h.sched.Pending() != 1 {
		t.Errorf("decay task should reschedule itself, pending = %d", h.sched.Pending())
	}
}

func TestStartDecay_Disabled(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	if err := h.engine.StartDecay(); err != nil {
		t.Fatal(err)
	}
	if h.sched.Pending() != 0 {
		t.Error("decay should be disabled by default")
	}
}

func TestLeafKind(t *testing.T) {
	tests := []struct {
		tags []string
		want string
	}{
		{[]string{models.TagVariableScene}, LeafMindAct},
		{[]string{models.TagIfElse}, LeafSelectTree},
		{[]string{models.TagScene}, LeafSimpleScene},
	}
	for _, tt := range tests {
		if got := leafKind(models.NewNode("x", "x", tt.tags...)); got != tt.want {
			t.Errorf("leafKind(%v) = %s, want %s", tt.tags, got, tt.want)
		}
	}
}
