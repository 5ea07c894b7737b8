package models

import (
	"fmt"
	"sync"
)

// DefaultLinkType is the factory type stamped on links created by the memory.
const DefaultLinkType = "pam-link"

// DefaultLinkIncentive is used by motivational categories when a link carries
// no explicit incentive property.
const DefaultLinkIncentive = 0.1

// LinkKey identifies a link. Two links with the same key are the same link.
type LinkKey struct {
	Source   string `json:"source"`
	Sink     string `json:"sink"`
	Category string `json:"category"`
}

// String renders the key as "source -[category]-> sink".
func (k LinkKey) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", k.Source, k.Category, k.Sink)
}

// Link is a directed, categorized connection from Source to Sink.
//
// A link is a parent link of its Sink: activation reaching the sink is
// propagated back up to the Source.
type Link struct {
	Key  LinkKey
	Type string

	mu           sync.Mutex
	activation   float64
	incentive    float64
	hasIncentive bool
}

// NewLink creates a link with the default type and no incentive.
func NewLink(source, sink, category string) *Link {
	return &Link{
		Key:  LinkKey{Source: source, Sink: sink, Category: category},
		Type: DefaultLinkType,
	}
}

// Category returns the link's category name.
func (l *Link) Category() string {
	return l.Key.Category
}

// Activation returns the link's activation.
func (l *Link) Activation() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.activation
}

// SetActivation sets the link's activation, clamped to [0, 1].
func (l *Link) SetActivation(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activation = clampUnit(v)
}

// Decay applies fn to the link's activation under the link lock.
func (l *Link) Decay(fn func(float64) float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activation = clampUnit(fn(l.activation))
}

// Incentive returns the link's incentive property and whether it was set.
func (l *Link) Incentive() (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.incentive, l.hasIncentive
}

// IncentiveOrDefault returns the incentive property or DefaultLinkIncentive.
func (l *Link) IncentiveOrDefault() float64 {
	if v, ok := l.Incentive(); ok {
		return v
	}
	return DefaultLinkIncentive
}

// SetIncentive sets the link's incentive property.
func (l *Link) SetIncentive(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.incentive = v
	l.hasIncentive = true
}

// LinkSnapshot is an immutable copy of a link's state.
type LinkSnapshot struct {
	Key        LinkKey `json:"key"`
	Type       string  `json:"type"`
	Activation float64 `json:"activation"`
	Incentive  float64 `json:"incentive,omitempty"`
}

// Snapshot returns a consistent copy of the link's state.
func (l *Link) Snapshot() LinkSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LinkSnapshot{
		Key:        l.Key,
		Type:       l.Type,
		Activation: l.activation,
		Incentive:  l.incentive,
	}
}
