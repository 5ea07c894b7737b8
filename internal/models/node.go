package models

import (
	"sync"

	"github.com/nvandessel/pamem/internal/truth"
)

// DefaultNodeType is the factory type stamped on nodes created by the memory.
const DefaultNodeType = "pam-node"

// Provenance records where a node's current activation came from.
// It is used to block immediate back-propagation and to attribute percepts.
type Provenance struct {
	NodeID   string `json:"node_id,omitempty"`
	SceneID  string `json:"scene_id,omitempty"`
	Category string `json:"category,omitempty"`
}

// Node is a resident concept in the associative graph.
//
// ID, Label, Type, Tags, Cores and Weight are fixed once the node is inserted
// into a graph. Everything else is mutable and guarded by the node's own mutex,
// so a node may be shared freely between concurrently running tasks.
type Node struct {
	ID     string
	Label  string
	Type   string
	Tags   TagSet
	Cores  int     // number of semantic roles required to be considered occurring
	Weight float64 // static multiplier applied to incoming excitation

	mu             sync.Mutex
	activation     float64
	baseActivation float64
	incentive      float64
	truth          truth.State
	lastBroadcast  string
	lastActivated  string
	origin         Provenance
	location       string
}

// NewNode creates a node with unit weight, a single core, and the default type.
func NewNode(id, label string, tags ...string) *Node {
	return &Node{
		ID:     id,
		Label:  label,
		Type:   DefaultNodeType,
		Tags:   NewTagSet(tags...),
		Cores:  1,
		Weight: 1.0,
	}
}

// HasTag reports whether the node carries the given semantic tag.
func (n *Node) HasTag(tag string) bool {
	return n.Tags.Has(tag)
}

// Activation returns the current activation.
func (n *Node) Activation() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.activation
}

// SetActivation sets the current activation, clamped to [0, 1].
func (n *Node) SetActivation(v float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activation = clampUnit(v)
}

// Excite adds delta to the current activation and returns the new value.
func (n *Node) Excite(delta float64) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activation = clampUnit(n.activation + delta)
	return n.activation
}

// SetBaseActivation sets the slowly changing base-level activation.
func (n *Node) SetBaseActivation(v float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.baseActivation = clampUnit(v)
}

// TotalActivation returns current plus base-level activation, clamped to [0, 1].
func (n *Node) TotalActivation() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return clampUnit(n.activation + n.baseActivation)
}

// Decay applies fn to the current activation under the node lock.
func (n *Node) Decay(fn func(float64) float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activation = clampUnit(fn(n.activation))
}

// IncentiveSalience returns the node's motivational weight.
func (n *Node) IncentiveSalience() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.incentive
}

// SetIncentiveSalience sets the motivational weight, clamped to [0, 1].
func (n *Node) SetIncentiveSalience(v float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.incentive = clampUnit(v)
}

// AddIncentiveSalience adds delta to the motivational weight.
func (n *Node) AddIncentiveSalience(delta float64) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.incentive = clampUnit(n.incentive + delta)
	return n.incentive
}

// Salience returns total activation plus incentive salience, the quantity
// compared against the percept threshold.
func (n *Node) Salience() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return clampUnit(n.activation+n.baseActivation) + n.incentive
}

// Truth returns the node's truth state.
func (n *Node) Truth() truth.State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.truth
}

// SetTruth sets the truth state. Only the propagation engine calls this,
// once per visit.
func (n *Node) SetTruth(s truth.State) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.truth = s
}

// Stamp records the output cycle in which the node was last reached.
func (n *Node) Stamp(cycle string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastBroadcast = cycle
	n.lastActivated = cycle
}

// LastBroadcast returns the cycle id of the last stamp.
func (n *Node) LastBroadcast() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastBroadcast
}

// LastActivated returns the cycle id of the last activation.
func (n *Node) LastActivated() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastActivated
}

// Origin returns a copy of the node's provenance.
func (n *Node) Origin() Provenance {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.origin
}

// OriginID returns the id of the node the current activation chain came from.
func (n *Node) OriginID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.origin.NodeID
}

// SetOriginID replaces only the origin node id.
func (n *Node) SetOriginID(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.origin.NodeID = id
}

// SetOrigin replaces the whole provenance record.
func (n *Node) SetOrigin(p Provenance) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.origin = p
}

// Location returns the derived spatial key, or "" when none is attached.
func (n *Node) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

// SetLocation attaches a spatial key such as "3_4".
func (n *Node) SetLocation(loc string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = loc
}

// NodeSnapshot is an immutable copy of a node's state, used for buffer
// mirrors and output.
type NodeSnapshot struct {
	ID              string      `json:"id"`
	Label           string      `json:"label"`
	Type            string      `json:"type"`
	Tags            []string    `json:"tags,omitempty"`
	Activation      float64     `json:"activation"`
	TotalActivation float64     `json:"total_activation"`
	Incentive       float64     `json:"incentive_salience"`
	Truth           truth.State `json:"truth"`
	LastBroadcast   string      `json:"last_broadcast,omitempty"`
	Location        string      `json:"location,omitempty"`
	Origin          Provenance  `json:"origin"`
}

// Snapshot returns a consistent copy of the node's current state.
func (n *Node) Snapshot() NodeSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return NodeSnapshot{
		ID:              n.ID,
		Label:           n.Label,
		Type:            n.Type,
		Tags:            n.Tags.Slice(),
		Activation:      n.activation,
		TotalActivation: clampUnit(n.activation + n.baseActivation),
		Incentive:       n.incentive,
		Truth:           n.truth,
		LastBroadcast:   n.lastBroadcast,
		Location:        n.location,
		Origin:          n.origin,
	}
}

// HasTag reports whether the snapshot carries the given tag.
func (s NodeSnapshot) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
