package store

import (
	"context"
	"fmt"
)

// ValidationError describes a graph consistency issue.
type ValidationError struct {
	NodeID string `json:"node_id"`
	Field  string `json:"field"`  // "link-source", "link-sink", "core"
	RefID  string `json:"ref_id"` // the problematic reference
	Issue  string `json:"issue"`  // "dangling", "role-missing"
}

// String returns a human-readable description of the validation error.
func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s in %s references %s", e.Issue, e.NodeID, e.Field, e.RefID)
}

// Validate checks a dumpable store for:
//   - links whose source or sink is not a stored node
//   - action or state nodes whose core count exceeds the role links they own
func Validate(ctx context.Context, d Dumper) ([]ValidationError, error) {
	nodes, err := d.AllNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	links, err := d.AllLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	allIDs := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		allIDs[n.ID] = true
	}

	var errs []ValidationError
	roles := make(map[string]map[string]bool)
	for _, l := range links {
		if !allIDs[l.Source] {
			errs = append(errs, ValidationError{NodeID: l.Sink, Field: "link-source", RefID: l.Source, Issue: "dangling"})
		}
		if !allIDs[l.Sink] {
			errs = append(errs, ValidationError{NodeID: l.Source, Field: "link-sink", RefID: l.Sink, Issue: "dangling"})
		}
		if roleCategories[l.Category] {
			if roles[l.Source] == nil {
				roles[l.Source] = make(map[string]bool)
			}
			roles[l.Source][l.Category] = true
		}
	}

	for _, n := range nodes {
		if !n.HasTag("action") && !n.HasTag("state") {
			continue
		}
		if n.Cores > 0 && len(roles[n.ID]) > 0 && len(roles[n.ID]) < n.Cores {
			errs = append(errs, ValidationError{
				NodeID: n.ID,
				Field:  "core",
				RefID:  fmt.Sprintf("%d/%d", len(roles[n.ID]), n.Cores),
				Issue:  "role-missing",
			})
		}
	}
	return errs, nil
}
