package mcp

import (
	"github.com/nvandessel/pamem/internal/buffer"
	"github.com/nvandessel/pamem/internal/models"
)

// PamExciteInput defines the input for the pam_excite tool.
type PamExciteInput struct {
	Labels []string `json:"labels" jsonschema:"Node labels to excite"`
	Amount float64  `json:"amount,omitempty" jsonschema:"Excitation amount in (0.0-1.0], default 1.0"`
	Ticks  int      `json:"ticks,omitempty" jsonschema:"Maximum scheduler ticks to run, default 100"`
}

// PamExciteOutput defines the output for the pam_excite tool.
type PamExciteOutput struct {
	Ticks   int             `json:"ticks" jsonschema:"Scheduler ticks executed"`
	Pending int             `json:"pending" jsonschema:"Tasks still queued when the run stopped"`
	Buffers []BufferSummary `json:"buffers" jsonschema:"Non-empty buffers after the run"`
	Message string          `json:"message" jsonschema:"Human-readable result message"`
}

// BufferSummary is a compact view of one buffer.
type BufferSummary struct {
	Name       buffer.Name `json:"name"`
	Broadcasts int64       `json:"broadcasts"`
	Nodes      []string    `json:"nodes"`
	Links      int         `json:"links"`
}

// PamBufferInput defines the input for the pam_buffer tool.
type PamBufferInput struct {
	Buffer string `json:"buffer,omitempty" jsonschema:"Buffer name such as current-scene or goal; empty lists every non-empty buffer"`
}

// PamBufferOutput defines the output for the pam_buffer tool.
type PamBufferOutput struct {
	Buffers []buffer.Contents `json:"buffers" jsonschema:"Buffer contents"`
	Count   int               `json:"count" jsonschema:"Number of buffers returned"`
}

// PamNodeInput defines the input for the pam_node tool.
type PamNodeInput struct {
	Ref string `json:"ref" jsonschema:"Node label or id"`
}

// PamNodeOutput defines the output for the pam_node tool.
type PamNodeOutput struct {
	Node        models.NodeSnapshot   `json:"node" jsonschema:"Resident node state"`
	ParentLinks []models.LinkSnapshot `json:"parent_links" jsonschema:"Links whose sink is this node"`
	ChildLinks  []models.LinkSnapshot `json:"child_links" jsonschema:"Links whose source is this node"`
}
