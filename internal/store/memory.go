package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemorySemanticStore implements SemanticStore for testing and development.
type InMemorySemanticStore struct {
	mu     sync.RWMutex
	nodes  map[string]Record
	labels map[string]string
	links  []LinkRecord
}

// NewInMemorySemanticStore creates a new in-memory store.
func NewInMemorySemanticStore() *InMemorySemanticStore {
	return &InMemorySemanticStore{
		nodes:  make(map[string]Record),
		labels: make(map[string]string),
		links:  make([]LinkRecord, 0),
	}
}

// AddNode adds or replaces a node.
func (s *InMemorySemanticStore) AddNode(ctx context.Context, rec Record) (string, error) {
	if err := validateRecord(rec); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.labels[rec.Label]; ok && owner != rec.ID {
		return "", fmt.Errorf("label %q already used by node %s", rec.Label, owner)
	}
	if old, ok := s.nodes[rec.ID]; ok && old.Label != rec.Label {
		delete(s.labels, old.Label)
	}
	rec.Tags = append([]string(nil), rec.Tags...)
	s.nodes[rec.ID] = rec
	s.labels[rec.Label] = rec.ID
	return rec.ID, nil
}

// AddLink adds or replaces a link matching source, sink and category.
func (s *InMemorySemanticStore) AddLink(ctx context.Context, rec LinkRecord) error {
	if err := validateLinkRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.links {
		if l.Source == rec.Source && l.Sink == rec.Sink && l.Category == rec.Category {
			s.links[i] = rec
			return nil
		}
	}
	s.links = append(s.links, rec)
	return nil
}

// FetchNode retrieves a node by id. Returns nil if not found.
func (s *InMemorySemanticStore) FetchNode(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodeUnlocked(id), nil
}

func (s *InMemorySemanticStore) nodeUnlocked(id string) *Record {
	rec, ok := s.nodes[id]
	if !ok {
		return nil
	}
	return &rec
}

// FetchByLabel retrieves a node by label. Returns nil if not found.
func (s *InMemorySemanticStore) FetchByLabel(ctx context.Context, label string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.labels[label]
	if !ok {
		return nil, nil
	}
	return s.nodeUnlocked(id), nil
}

// FetchParentLinks returns the links whose sink is id.
func (s *InMemorySemanticStore) FetchParentLinks(ctx context.Context, id string) ([]LinkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(l LinkRecord) bool { return l.Sink == id }), nil
}

func (s *InMemorySemanticStore) filter(keep func(LinkRecord) bool) []LinkRecord {
	results := make([]LinkRecord, 0)
	for _, l := range s.links {
		if keep(l) {
			results = append(results, l)
		}
	}
	return results
}

// Query runs a structural pattern.
func (s *InMemorySemanticStore) Query(ctx context.Context, p Pattern) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch p.Kind {
	case PatternAnalogousScenes:
		return s.analogousScenes(p.Subject, p.Object), nil
	case PatternSceneMembers:
		var rows []Row
		for _, l := range s.filter(func(l LinkRecord) bool {
			return l.Sink == p.Subject && !sceneMemberExcluded[l.Category]
		}) {
			rows = append(rows, s.linkRow(l))
		}
		return rows, nil
	case PatternSequenceBridge:
		return s.sequenceBridge(p.Subject, p.Object), nil
	case PatternPlanRoot:
		var rows []Row
		for _, l := range s.filter(func(l LinkRecord) bool {
			return l.Source == p.Subject && l.Category == "sequence-head"
		}) {
			rows = append(rows, s.linkRow(l))
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPattern, p.Kind)
	}
}

func (s *InMemorySemanticStore) linkRow(l LinkRecord) Row {
	l0 := l
	return Row{Link: &l0, Source: s.nodeUnlocked(l.Source), Sink: s.nodeUnlocked(l.Sink)}
}

func (s *InMemorySemanticStore) analogousScenes(concept, origin string) []Row {
	// m is-a concept
	instances := make(map[string]bool)
	for _, l := range s.links {
		if l.Category == "is-a" && l.Sink == concept {
			instances[l.Source] = true
		}
	}
	// scene -[role]-> m
	candidates := make(map[string]bool)
	for _, l := range s.links {
		if roleCategories[l.Category] && instances[l.Sink] {
			if rec, ok := s.nodes[l.Source]; ok && rec.HasTag("scene") {
				candidates[l.Source] = true
			}
		}
	}
	// origin -> scene
	found := make(map[string]bool)
	for _, l := range s.links {
		if l.Source == origin && candidates[l.Sink] {
			found[l.Sink] = true
		}
	}
	return s.nodeRows(found)
}

func (s *InMemorySemanticStore) sequenceBridge(a, b string) []Row {
	toA := make(map[string]bool)
	toB := make(map[string]bool)
	for _, l := range s.links {
		if l.Category != "sequence" {
			continue
		}
		if l.Sink == a {
			toA[l.Source] = true
		}
		if l.Sink == b {
			toB[l.Source] = true
		}
	}
	found := make(map[string]bool)
	for id := range toA {
		if toB[id] {
			if rec, ok := s.nodes[id]; ok && rec.HasTag("scene") {
				found[id] = true
			}
		}
	}
	return s.nodeRows(found)
}

func (s *InMemorySemanticStore) nodeRows(ids map[string]bool) []Row {
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	rows := make([]Row, 0, len(sorted))
	for _, id := range sorted {
		if rec := s.nodeUnlocked(id); rec != nil {
			rows = append(rows, Row{Node: rec})
		}
	}
	return rows
}

// AllNodes returns every node sorted by id.
func (s *InMemorySemanticStore) AllNodes(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.nodes))
	for _, rec := range s.nodes {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AllLinks returns every link in insertion order.
func (s *InMemorySemanticStore) AllLinks(ctx context.Context) ([]LinkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LinkRecord(nil), s.links...), nil
}

// Close is a no-op for in-memory storage.
func (s *InMemorySemanticStore) Close() error {
	return nil
}
