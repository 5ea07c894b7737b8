package visualization

import (
	"strings"
	"testing"

	"github.com/nvandessel/pamem/internal/models"
	"github.com/nvandessel/pamem/internal/truth"
)

func TestRenderDOT_Empty(t *testing.T) {
	dot := RenderDOT(nil, nil)
	if !strings.HasPrefix(dot, "digraph pamem {") {
		t.Errorf("missing digraph header: %q", dot)
	}
	if !strings.HasSuffix(dot, "}\n") {
		t.Error("missing closing brace")
	}
}

func TestRenderDOT_NodesAndLinks(t *testing.T) {
	nodes := []models.NodeSnapshot{
		{ID: "B", Label: "banana", Truth: truth.Virtual, Activation: 0.6},
		{ID: "A", Label: "apple", Truth: truth.Real, Activation: 1},
	}
	links := []models.LinkSnapshot{
		{Key: models.LinkKey{Source: "B", Sink: "A", Category: models.CategoryIsA}},
		{Key: models.LinkKey{Source: "A", Sink: "B", Category: "custom"}},
	}

	dot := RenderDOT(nodes, links)

	for _, want := range []string{
		`"A" [label="apple", fillcolor="mediumseagreen", penwidth=3.0`,
		`"B" [label="banana", fillcolor="lightgray", penwidth=2.2`,
		`"B" -> "A" [label="is-a", style=bold];`,
		`"A" -> "B" [label="custom", style=solid];`,
		"truth=real",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("output missing %q:\n%s", want, dot)
		}
	}

	// Nodes are emitted in id order regardless of input order.
	if strings.Index(dot, `"A" [`) > strings.Index(dot, `"B" [`) {
		t.Error("nodes not sorted by id")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a very long label indeed", 10, "a very ..."},
		{"abcdef", 3, "abc"},
		{"äöüäöü", 5, "äö..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
