// Package graph holds the resident associative graph: every node and link that
// has been excited or traversed during the life of the process.
//
// Insertion is create-if-absent. A second insertion with the same id (or link
// key) returns the resident instance untouched, so callers may materialize
// entities freely while other tasks are mutating them.
package graph

import (
	"sync"

	"github.com/nvandessel/pamem/internal/models"
)

// Graph is a concurrency-safe, indexed set of resident nodes and links.
// Map access is guarded by the graph lock; entity fields are guarded by the
// entities themselves.
type Graph struct {
	mu     sync.RWMutex
	nodes  map[string]*models.Node
	labels map[string]*models.Node
	links  map[models.LinkKey]*models.Link
	bySink map[string]map[models.LinkKey]*models.Link
	bySrc  map[string]map[models.LinkKey]*models.Link
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:  make(map[string]*models.Node),
		labels: make(map[string]*models.Node),
		links:  make(map[models.LinkKey]*models.Link),
		bySink: make(map[string]map[models.LinkKey]*models.Link),
		bySrc:  make(map[string]map[models.LinkKey]*models.Link),
	}
}

// AddNode inserts n unless a node with the same id is already resident, and
// returns the resident instance. Nil or id-less nodes are ignored.
func (g *Graph) AddNode(n *models.Node) *models.Node {
	if n == nil || n.ID == "" {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.nodes[n.ID]; ok {
		return existing
	}
	g.nodes[n.ID] = n
	if n.Label != "" {
		if _, taken := g.labels[n.Label]; !taken {
			g.labels[n.Label] = n
		}
	}
	return n
}

// AddLink inserts l unless a link with the same key is resident. It returns
// the resident instance and whether l was newly inserted.
func (g *Graph) AddLink(l *models.Link) (*models.Link, bool) {
	if l == nil {
		return nil, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.links[l.Key]; ok {
		return existing, false
	}
	g.links[l.Key] = l
	index(g.bySink, l.Key.Sink, l)
	index(g.bySrc, l.Key.Source, l)
	return l, true
}

func index(idx map[string]map[models.LinkKey]*models.Link, id string, l *models.Link) {
	m, ok := idx[id]
	if !ok {
		m = make(map[models.LinkKey]*models.Link)
		idx[id] = m
	}
	m[l.Key] = l
}

// Node returns the resident node with the given id, or nil.
func (g *Graph) Node(id string) *models.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// NodeByLabel returns the resident node with the given label, or nil.
func (g *Graph) NodeByLabel(label string) *models.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.labels[label]
}

// Contains reports whether a node with the given id is resident.
func (g *Graph) Contains(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Link returns the resident link with the given key, or nil.
func (g *Graph) Link(key models.LinkKey) *models.Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.links[key]
}

// ParentLinksOf returns a snapshot of every link whose sink is id. The slice
// is owned by the caller; later insertions do not affect it.
func (g *Graph) ParentLinksOf(id string) []*models.Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return collect(g.bySink[id])
}

// ChildLinksOf returns a snapshot of every link whose source is id.
func (g *Graph) ChildLinksOf(id string) []*models.Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return collect(g.bySrc[id])
}

// LinksOf returns a snapshot of every link touching id in either direction.
func (g *Graph) LinksOf(id string) []*models.Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := collect(g.bySink[id])
	for key, l := range g.bySrc[id] {
		if key.Sink == id {
			continue // self-loop already collected
		}
		out = append(out, l)
	}
	return out
}

func collect(m map[models.LinkKey]*models.Link) []*models.Link {
	out := make([]*models.Link, 0, len(m))
	for _, l := range m {
		out = append(out, l)
	}
	return out
}

// Nodes returns a snapshot of all resident nodes.
func (g *Graph) Nodes() []*models.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*models.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Links returns a snapshot of all resident links.
func (g *Graph) Links() []*models.Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*models.Link, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, l)
	}
	return out
}

// RemoveNode drops a node and every link touching it. Pending tasks that
// target the node are discarded by the scheduler guard.
func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return
	}
	delete(g.nodes, id)
	if g.labels[n.Label] == n {
		delete(g.labels, n.Label)
	}

	for key := range g.bySink[id] {
		g.unlink(key)
	}
	for key := range g.bySrc[id] {
		g.unlink(key)
	}
	delete(g.bySink, id)
	delete(g.bySrc, id)
}

func (g *Graph) unlink(key models.LinkKey) {
	delete(g.links, key)
	if m := g.bySink[key.Sink]; m != nil {
		delete(m, key)
	}
	if m := g.bySrc[key.Source]; m != nil {
		delete(m, key)
	}
}

// Len returns the number of resident nodes and links.
func (g *Graph) Len() (nodes, links int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes), len(g.links)
}
