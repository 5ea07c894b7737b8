// Package truth implements the truth-state automaton used to decide whether a
// node's referent is currently believed real, virtual, or in transition.
//
// The automaton is pure: callers gather evidence from the graph and the
// current-scene buffer, and the functions here fold that evidence into one of
// six discrete states.
package truth

import "fmt"

// State is a node's discrete existence/truth value.
type State int

const (
	Virtual                   State = 0 // imagined, not observed
	Real                      State = 1 // observed in the current cycle
	RealThenVirtual           State = 2 // was real, now only imagined
	VirtualThenReal           State = 3 // was imagined, now observed
	MultilayerVirtualTrailing State = 4 // several transitions, ending virtual
	MultilayerRealTrailing    State = 5 // several transitions, ending real
)

// NumStates is the number of valid truth states.
const NumStates = 6

var stateNames = [NumStates]string{
	"virtual",
	"real",
	"real-then-virtual",
	"virtual-then-real",
	"multilayer-virtual-trailing",
	"multilayer-real-trailing",
}

// String returns the state's name.
func (s State) String() string {
	if !s.Valid() {
		return fmt.Sprintf("invalid(%d)", int(s))
	}
	return stateNames[s]
}

// Valid reports whether s is one of the six defined states.
func (s State) Valid() bool {
	return s >= Virtual && s <= MultilayerRealTrailing
}

// IsReal reports whether the state ends in a real observation.
// Real, VirtualThenReal and MultilayerRealTrailing are real; all others,
// including invalid values, are virtual.
func (s State) IsReal() bool {
	return s == Real || s == VirtualThenReal || s == MultilayerRealTrailing
}

// mergeTable[observed][prior] gives the folded state. Row 0 is a virtual
// observation, row 1 a real one.
var mergeTable = [2][NumStates]State{
	{Virtual, RealThenVirtual, RealThenVirtual, MultilayerVirtualTrailing, MultilayerVirtualTrailing, MultilayerVirtualTrailing},
	{VirtualThenReal, Real, MultilayerRealTrailing, VirtualThenReal, MultilayerRealTrailing, MultilayerRealTrailing},
}

// Merge folds a newly observed state into a node's prior state.
// The observation is coerced to binary with IsReal before lookup.
// An invalid prior yields Virtual.
func Merge(observed, prior State) State {
	if !prior.Valid() {
		return Virtual
	}
	row := 0
	if observed.IsReal() {
		row = 1
	}
	return mergeTable[row][prior]
}

// Evidence records which semantic roles of a node were verified real in the
// current scene.
type Evidence struct {
	ActionReal  bool
	PatientReal bool
	AgentReal   bool
}

// Satisfies reports whether every role required by the given core count is
// real. One core needs the action; two need action and patient; three or more
// need action, patient and agent.
func (e Evidence) Satisfies(cores int) bool {
	switch {
	case cores <= 1:
		return e.ActionReal
	case cores == 2:
		return e.ActionReal && e.PatientReal
	default:
		return e.ActionReal && e.PatientReal && e.AgentReal
	}
}

// CoreState derives a node's truth from role cardinality.
//
// Without a prior (the node has no current-scene history) the base state is
// Real when every required core is verified and Virtual otherwise. With a
// prior the base state is merged into it.
func CoreState(ev Evidence, cores int, prior State, hasPrior bool) State {
	base := Virtual
	if ev.Satisfies(cores) {
		base = Real
	}
	if !hasPrior {
		return base
	}
	return Merge(base, prior)
}
