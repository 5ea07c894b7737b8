// Package buffer provides the named output channels that propagation routes
// percepts into, and the admission rule for the current-scene buffer.
//
// Buffers hold mirrored value copies of nodes and links, never the resident
// instances, so a reader always sees a consistent snapshot.
package buffer

import (
	"github.com/nvandessel/pamem/internal/models"
)

// Name identifies a downstream buffer.
type Name string

const (
	CurrentScene  Name = "current-scene"
	NonConscious  Name = "non-conscious"
	Feeling       Name = "feeling"
	Goal          Name = "goal"
	Sequence      Name = "sequence"
	Concept       Name = "concept"
	Scene         Name = "scene"
	Grammar       Name = "grammar"
	Understanding Name = "understanding"
)

// AllNames returns every buffer name in a stable order.
func AllNames() []Name {
	return []Name{
		CurrentScene, NonConscious, Feeling, Goal, Sequence,
		Concept, Scene, Grammar, Understanding,
	}
}

// ParseName converts a string into a known buffer name.
func ParseName(s string) (Name, bool) {
	for _, n := range AllNames() {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

// Percept is a node or link offered to a buffer. Exactly one of Node and Link
// is set.
type Percept struct {
	Node *models.NodeSnapshot `json:"node,omitempty"`
	Link *models.LinkSnapshot `json:"link,omitempty"`
}

// NodePercept wraps a snapshot of n.
func NodePercept(n *models.Node) Percept {
	s := n.Snapshot()
	return Percept{Node: &s}
}

// LinkPercept wraps a snapshot of l.
func LinkPercept(l *models.Link) Percept {
	s := l.Snapshot()
	return Percept{Link: &s}
}

// IsLink reports whether the percept carries a link.
func (p Percept) IsLink() bool {
	return p.Link != nil
}

// Router accepts percepts and answers the membership questions propagation
// asks about buffer contents.
type Router interface {
	Accept(name Name, p Percept)
	ContainsNode(name Name, id string) bool
	ContainsLink(name Name, key models.LinkKey) bool
	Node(name Name, id string) (models.NodeSnapshot, bool)
	// ChildLinksOf returns the mirrored links whose source is id.
	ChildLinksOf(name Name, id string) []models.LinkSnapshot
	LinksOf(name Name, id string) []models.LinkSnapshot
	NodesTagged(name Name, tag string) []models.NodeSnapshot
	BroadcastCount(name Name) int64
}

// AdmitCurrentScene decides whether a propagation target enters the
// current-scene buffer.
//
// salience is the target's total activation plus incentive salience. exists
// reports whether the traversed link was already mirrored in non-conscious,
// and siblings counts the non-conscious links sharing the target as source.
// The second return value reports whether the qualifying sibling links must
// be routed along with the target.
func AdmitCurrentScene(salience, threshold float64, exists bool, siblings int) (admit, withSiblings bool) {
	if salience <= threshold {
		return false, false
	}
	switch {
	case !exists && siblings > 0, exists && siblings > 2:
		return true, true
	case exists && siblings == 1:
		return true, false
	default:
		return false, false
	}
}
