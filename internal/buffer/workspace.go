package buffer

import (
	"sort"
	"sync"

	"github.com/nvandessel/pamem/internal/models"
)

// DefaultSubscriberCapacity is the channel size used when Subscribe is given
// a non-positive capacity.
const DefaultSubscriberCapacity = 64

// Contents is a point-in-time copy of one buffer.
type Contents struct {
	Name       Name                  `json:"name"`
	Broadcasts int64                 `json:"broadcasts"`
	Nodes      []models.NodeSnapshot `json:"nodes"`
	Links      []models.LinkSnapshot `json:"links"`
}

type subscriber struct {
	id int
	ch chan Percept
}

type store struct {
	mu         sync.RWMutex
	nodes      map[string]models.NodeSnapshot
	links      map[models.LinkKey]models.LinkSnapshot
	broadcasts int64
	subs       []subscriber
	nextSub    int
}

func newStore() *store {
	return &store{
		nodes: make(map[string]models.NodeSnapshot),
		links: make(map[models.LinkKey]models.LinkSnapshot),
	}
}

// Workspace is the in-process Router: one mirror per buffer name, each
// guarded by its own lock.
type Workspace struct {
	buffers map[Name]*store
}

// NewWorkspace creates a workspace with every known buffer.
func NewWorkspace() *Workspace {
	w := &Workspace{buffers: make(map[Name]*store)}
	for _, n := range AllNames() {
		w.buffers[n] = newStore()
	}
	return w
}

func (w *Workspace) get(name Name) *store {
	return w.buffers[name]
}

// Accept mirrors p into the named buffer, replacing any earlier copy of the
// same entity, and fans it out to subscribers. Unknown buffer names are
// ignored.
func (w *Workspace) Accept(name Name, p Percept) {
	b := w.get(name)
	if b == nil || (p.Node == nil && p.Link == nil) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if p.Node != nil {
		b.nodes[p.Node.ID] = *p.Node
	} else {
		b.links[p.Link.Key] = *p.Link
	}
	for _, s := range b.subs {
		offer(s.ch, p)
	}
}

// offer sends p without blocking. A full channel loses its oldest percept.
func offer(ch chan Percept, p Percept) {
	select {
	case ch <- p:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- p:
	default:
	}
}

// Subscribe returns a channel receiving every percept accepted by the named
// buffer from now on, and a cancel func that closes it.
func (w *Workspace) Subscribe(name Name, capacity int) (<-chan Percept, func()) {
	if capacity <= 0 {
		capacity = DefaultSubscriberCapacity
	}
	ch := make(chan Percept, capacity)
	b := w.get(name)
	if b == nil {
		close(ch)
		return ch, func() {}
	}

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs = append(b.subs, subscriber{id: id, ch: ch})
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// ContainsNode reports whether the buffer mirrors the node.
func (w *Workspace) ContainsNode(name Name, id string) bool {
	b := w.get(name)
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.nodes[id]
	return ok
}

// ContainsLink reports whether the buffer mirrors the link.
func (w *Workspace) ContainsLink(name Name, key models.LinkKey) bool {
	b := w.get(name)
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.links[key]
	return ok
}

// Node returns the mirrored copy of a node.
func (w *Workspace) Node(name Name, id string) (models.NodeSnapshot, bool) {
	b := w.get(name)
	if b == nil {
		return models.NodeSnapshot{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.nodes[id]
	return n, ok
}

// ChildLinksOf returns the mirrored links whose source is id.
func (w *Workspace) ChildLinksOf(name Name, id string) []models.LinkSnapshot {
	return w.filterLinks(name, func(k models.LinkKey) bool { return k.Source == id })
}

// LinksOf returns the mirrored links touching id.
func (w *Workspace) LinksOf(name Name, id string) []models.LinkSnapshot {
	return w.filterLinks(name, func(k models.LinkKey) bool { return k.Source == id || k.Sink == id })
}

func (w *Workspace) filterLinks(name Name, keep func(models.LinkKey) bool) []models.LinkSnapshot {
	b := w.get(name)
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []models.LinkSnapshot
	for k, l := range b.links {
		if keep(k) {
			out = append(out, l)
		}
	}
	return out
}

// NodesTagged returns the mirrored nodes carrying tag.
func (w *Workspace) NodesTagged(name Name, tag string) []models.NodeSnapshot {
	b := w.get(name)
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []models.NodeSnapshot
	for _, n := range b.nodes {
		if n.HasTag(tag) {
			out = append(out, n)
		}
	}
	return out
}

// BroadcastCount returns how many times the buffer has been broadcast.
func (w *Workspace) BroadcastCount(name Name) int64 {
	b := w.get(name)
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.broadcasts
}

// Broadcast closes the current cycle of the named buffer: it increments the
// broadcast count and returns the contents that were broadcast.
func (w *Workspace) Broadcast(name Name) Contents {
	b := w.get(name)
	if b == nil {
		return Contents{Name: name}
	}
	b.mu.Lock()
	b.broadcasts++
	b.mu.Unlock()
	return w.Snapshot(name)
}

// Snapshot returns the buffer contents sorted by node id and link key.
func (w *Workspace) Snapshot(name Name) Contents {
	c := Contents{Name: name}
	b := w.get(name)
	if b == nil {
		return c
	}

	b.mu.RLock()
	c.Broadcasts = b.broadcasts
	c.Nodes = make([]models.NodeSnapshot, 0, len(b.nodes))
	for _, n := range b.nodes {
		c.Nodes = append(c.Nodes, n)
	}
	c.Links = make([]models.LinkSnapshot, 0, len(b.links))
	for _, l := range b.links {
		c.Links = append(c.Links, l)
	}
	b.mu.RUnlock()

	sort.Slice(c.Nodes, func(i, j int) bool { return c.Nodes[i].ID < c.Nodes[j].ID })
	sort.Slice(c.Links, func(i, j int) bool { return c.Links[i].Key.String() < c.Links[j].Key.String() })
	return c
}

// Clear empties the named buffer. The broadcast count is kept.
func (w *Workspace) Clear(name Name) {
	b := w.get(name)
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodes = make(map[string]models.NodeSnapshot)
	b.links = make(map[models.LinkKey]models.LinkSnapshot)
}
