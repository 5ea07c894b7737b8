// Package store defines the SemanticStore interface: the long-term semantic
// graph that propagation hydrates resident nodes and links from, and the
// structural pattern queries run against it.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownPattern is returned by Query for an unrecognized pattern kind.
var ErrUnknownPattern = errors.New("unknown pattern kind")

// Record is a node as persisted in the semantic store.
type Record struct {
	ID             string   `json:"id"`
	Label          string   `json:"label"`
	Type           string   `json:"type,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Cores          int      `json:"core,omitempty"`   // required-role cardinality
	Weight         float64  `json:"weight,omitempty"` // excitation multiplier, 0 means 1.0
	BaseActivation float64  `json:"base_activation,omitempty"`
}

// HasTag reports whether the record carries tag.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LinkRecord is a link as persisted in the semantic store. Source and Sink are
// node ids.
type LinkRecord struct {
	Source    string   `json:"source"`
	Sink      string   `json:"sink"`
	Category  string   `json:"category"`
	Type      string   `json:"type,omitempty"`
	Incentive *float64 `json:"incentive,omitempty"`
}

// PatternKind names a structural query.
type PatternKind string

const (
	// PatternAnalogousScenes finds scenes S with a role link to some m where
	// m is-a Subject, and with a link into S from Object.
	// Rows carry Node = S.
	PatternAnalogousScenes PatternKind = "analogous-scenes"

	// PatternSceneMembers lists the links whose sink is the Subject scene,
	// excluding sequencing and parameter links. Rows carry Link, Source, Sink.
	PatternSceneMembers PatternKind = "scene-members"

	// PatternSequenceBridge finds scenes m with sequence links to both Subject
	// and Object. Rows carry Node = m.
	PatternSequenceBridge PatternKind = "sequence-bridge"

	// PatternPlanRoot lists the sequence-head links whose source is Subject.
	// Rows carry Link and Sink.
	PatternPlanRoot PatternKind = "plan-root"
)

// Pattern is a parameterized structural query. Subject and Object are node ids.
type Pattern struct {
	Kind    PatternKind `json:"kind"`
	Subject string      `json:"subject"`
	Object  string      `json:"object,omitempty"`
}

// Row is one result of a pattern query. Which fields are set depends on the
// pattern kind.
type Row struct {
	Node   *Record     `json:"node,omitempty"`
	Link   *LinkRecord `json:"link,omitempty"`
	Source *Record     `json:"source,omitempty"`
	Sink   *Record     `json:"sink,omitempty"`
}

// SemanticStore is the long-term graph backing the resident graph.
type SemanticStore interface {
	// AddNode inserts or replaces a node and returns its id.
	AddNode(ctx context.Context, rec Record) (string, error)
	// AddLink inserts or replaces a link.
	AddLink(ctx context.Context, rec LinkRecord) error

	// FetchNode returns the node with the given id, or nil if absent.
	FetchNode(ctx context.Context, id string) (*Record, error)
	// FetchByLabel returns the node with the given label, or nil if absent.
	FetchByLabel(ctx context.Context, label string) (*Record, error)
	// FetchParentLinks returns the links whose sink is id.
	FetchParentLinks(ctx context.Context, id string) ([]LinkRecord, error)

	// Query runs a structural pattern.
	Query(ctx context.Context, p Pattern) ([]Row, error)

	Close() error
}

// Dumper is implemented by stores that can enumerate their contents, used for
// JSONL export and validation.
type Dumper interface {
	AllNodes(ctx context.Context) ([]Record, error)
	AllLinks(ctx context.Context) ([]LinkRecord, error)
}

// Categories excluded from scene membership.
var sceneMemberExcluded = map[string]bool{
	"succession":    true,
	"sequence":      true,
	"sequence-head": true,
	"parameter":     true,
}

var roleCategories = map[string]bool{
	"action":  true,
	"patient": true,
	"agent":   true,
}

func validateRecord(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("node ID is required")
	}
	if rec.Label == "" {
		return fmt.Errorf("node label is required: %s", rec.ID)
	}
	return nil
}

func validateLinkRecord(rec LinkRecord) error {
	if rec.Source == "" || rec.Sink == "" {
		return fmt.Errorf("link source and sink are required")
	}
	if rec.Category == "" {
		return fmt.Errorf("link category is required: %s -> %s", rec.Source, rec.Sink)
	}
	return nil
}
