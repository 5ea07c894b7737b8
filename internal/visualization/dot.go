// Package visualization renders the resident associative graph in Graphviz
// DOT format.
package visualization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nvandessel/pamem/internal/models"
	"github.com/nvandessel/pamem/internal/truth"
)

// truthColors maps truth states to DOT fill colors.
var truthColors = map[truth.State]string{
	truth.Virtual:                   "lightgray",
	truth.Real:                      "mediumseagreen",
	truth.RealThenVirtual:           "goldenrod",
	truth.VirtualThenReal:           "steelblue",
	truth.MultilayerVirtualTrailing: "khaki",
	truth.MultilayerRealTrailing:    "lightseagreen",
}

// edgeStyles maps link categories to DOT styles. Unlisted categories are solid.
var edgeStyles = map[string]string{
	models.CategoryIsA:          "bold",
	models.CategoryImplication:  "bold",
	models.CategorySuccession:   "dashed",
	models.CategorySequence:     "dashed",
	models.CategoryDesire:       "tapered",
	models.CategoryContinuation: "dotted",
}

// RenderDOT produces a Graphviz DOT representation of nodes and links. Nodes
// are filled by truth state and their pen width grows with activation. Links
// point from source to sink. Output order is stable.
func RenderDOT(nodes []models.NodeSnapshot, links []models.LinkSnapshot) string {
	nodes = append([]models.NodeSnapshot(nil), nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	links = append([]models.LinkSnapshot(nil), links...)
	sort.Slice(links, func(i, j int) bool { return links[i].Key.String() < links[j].Key.String() })

	var b strings.Builder
	b.WriteString("digraph pamem {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, n := range nodes {
		color := truthColors[n.Truth]
		if color == "" {
			color = "white"
		}
		fmt.Fprintf(&b, "  %q [label=%q, fillcolor=%q, penwidth=%.1f, tooltip=\"activation=%.2f incentive=%.2f truth=%s\"];\n",
			n.ID, truncate(n.Label, 40), color, 1+2*n.Activation, n.Activation, n.Incentive, n.Truth)
	}
	b.WriteString("\n")

	for _, l := range links {
		style := edgeStyles[l.Key.Category]
		if style == "" {
			style = "solid"
		}
		fmt.Fprintf(&b, "  %q -> %q [label=%q, style=%s];\n", l.Key.Source, l.Key.Sink, l.Key.Category, style)
	}

	b.WriteString("}\n")
	return b.String()
}

// truncate shortens s to at most max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
