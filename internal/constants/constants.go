// Package constants provides named constants used throughout pamem.
// This centralizes the model's tuning values so configuration defaults,
// the engine and the CLI agree on them.
package constants

// Propagation defaults.
const (
	// DefaultUpscale scales the activation a node passes to its parents.
	DefaultUpscale = 0.6

	// DefaultDownscale scales activation passed from a concept into a
	// variable scene it instantiates.
	DefaultDownscale = 0.5

	// DefaultPerceptThreshold is the activation plus incentive salience a node
	// must exceed to enter the current scene.
	DefaultPerceptThreshold = 0.7

	// DefaultPropagationThreshold is the smallest amount worth propagating.
	DefaultPropagationThreshold = 0.05

	// DefaultRefractoryThreshold is the non-conscious activation at which a
	// node stops accepting further propagation.
	DefaultRefractoryThreshold = 0.98

	// DefaultMaxDepth bounds the hops from an excited node.
	DefaultMaxDepth = 6

	// DefaultExcitationTicks and DefaultPropagationTicks are task delays.
	DefaultExcitationTicks  = 1
	DefaultPropagationTicks = 1
)

// Scheduler defaults.
const (
	// DefaultWorkers bounds concurrently running tasks per tick.
	DefaultWorkers = 4

	// DefaultMaxPending is the backlog above which scene-to-scene is-a links
	// are not followed.
	DefaultMaxPending = 1000

	// DefaultMaxTicks bounds a batch run started from the CLI.
	DefaultMaxTicks = 100
)

// Decay defaults.
const (
	DefaultDecayStrategy = "linear"
	DefaultDecayRate     = 0.1
)

// DefaultPredictedObject is the object label perceived one cell ahead of the agent.
const DefaultPredictedObject = "rockFront"

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Excitation sources recorded on propagation chains.
const (
	SourceCLI = "cli"
	SourceMCP = "mcp"
)
