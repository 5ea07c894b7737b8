package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/pamem/internal/buffer"
	"github.com/nvandessel/pamem/internal/constants"
	"github.com/nvandessel/pamem/internal/models"
	"github.com/nvandessel/pamem/internal/ratelimit"
)

// bufferURIPrefix addresses one buffer as a resource.
const bufferURIPrefix = "pam://buffers/"

// registerTools registers all pamem MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pam_excite",
		Description: "Excite nodes by label and spread activation until the scheduler is idle or the tick budget runs out",
	}, s.handlePamExcite)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pam_buffer",
		Description: "Read the contents of a downstream buffer (current-scene, goal, sequence, concept, ...)",
	}, s.handlePamBuffer)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pam_node",
		Description: "Inspect a resident node's activation, truth state, provenance and incident links",
	}, s.handlePamNode)
}

// registerResources exposes every buffer as a JSON resource.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: bufferURIPrefix + "{name}",
		Name:        "pamem-buffer",
		Description: "Current contents of one buffer as JSON.",
		MIMEType:    "application/json",
	}, s.handleBufferResource)
}

// handleBufferResource returns one buffer's contents.
func (s *Server) handleBufferResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, bufferURIPrefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	name, ok := buffer.ParseName(strings.TrimPrefix(uri, bufferURIPrefix))
	if !ok {
		return nil, fmt.Errorf("unknown buffer: %s", uri)
	}

	data, err := json.MarshalIndent(normalize(s.session.Workspace.Snapshot(name)), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding buffer: %w", err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}

// handlePamExcite implements the pam_excite tool.
func (s *Server) handlePamExcite(ctx context.Context, req *sdk.CallToolRequest, args PamExciteInput) (_ *sdk.CallToolResult, _ PamExciteOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("pam_excite", start, retErr, sanitizeToolParams(map[string]any{
			"labels": args.Labels, "amount": args.Amount, "ticks": args.Ticks,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "pam_excite"); err != nil {
		return nil, PamExciteOutput{}, err
	}

	if len(args.Labels) == 0 {
		return nil, PamExciteOutput{}, fmt.Errorf("'labels' parameter is required")
	}
	amount := args.Amount
	if amount == 0 {
		amount = 1.0
	}
	if amount < 0 || amount > 1.0 {
		return nil, PamExciteOutput{}, fmt.Errorf("amount must be in (0.0, 1.0], got %f", amount)
	}
	ticks := args.Ticks
	if ticks <= 0 || ticks > s.maxTicks {
		ticks = s.maxTicks
	}

	report, err := s.session.Excite(ctx, args.Labels, amount, constants.SourceMCP, ticks)
	if err != nil {
		return nil, PamExciteOutput{}, fmt.Errorf("excitation failed: %w", err)
	}

	out := PamExciteOutput{
		Ticks:   report.Ticks,
		Pending: report.Pending,
		Buffers: make([]BufferSummary, 0, len(report.Buffers)),
	}
	for _, c := range report.Buffers {
		sum := BufferSummary{
			Name:       c.Name,
			Broadcasts: c.Broadcasts,
			Nodes:      make([]string, 0, len(c.Nodes)),
			Links:      len(c.Links),
		}
		for _, n := range c.Nodes {
			sum.Nodes = append(sum.Nodes, n.Label)
		}
		out.Buffers = append(out.Buffers, sum)
	}
	out.Message = fmt.Sprintf("Excited %d label(s) over %d tick(s); %d buffer(s) populated", len(args.Labels), report.Ticks, len(out.Buffers))
	if report.Pending > 0 {
		out.Message += fmt.Sprintf(", %d task(s) still pending", report.Pending)
	}
	return nil, out, nil
}

// handlePamBuffer implements the pam_buffer tool.
func (s *Server) handlePamBuffer(ctx context.Context, req *sdk.CallToolRequest, args PamBufferInput) (_ *sdk.CallToolResult, _ PamBufferOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("pam_buffer", start, retErr, sanitizeToolParams(map[string]any{"buffer": args.Buffer}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "pam_buffer"); err != nil {
		return nil, PamBufferOutput{}, err
	}

	var contents []buffer.Contents
	if args.Buffer == "" {
		contents = s.session.Buffers()
	} else {
		name, ok := buffer.ParseName(args.Buffer)
		if !ok {
			return nil, PamBufferOutput{}, fmt.Errorf("unknown buffer: %s", args.Buffer)
		}
		contents = s.session.Buffers(name)
	}

	out := PamBufferOutput{Buffers: make([]buffer.Contents, 0, len(contents))}
	for _, c := range contents {
		out.Buffers = append(out.Buffers, normalize(c))
	}
	out.Count = len(out.Buffers)
	return nil, out, nil
}

// handlePamNode implements the pam_node tool.
func (s *Server) handlePamNode(ctx context.Context, req *sdk.CallToolRequest, args PamNodeInput) (_ *sdk.CallToolResult, _ PamNodeOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("pam_node", start, retErr, sanitizeToolParams(map[string]any{"ref": args.Ref}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "pam_node"); err != nil {
		return nil, PamNodeOutput{}, err
	}
	if args.Ref == "" {
		return nil, PamNodeOutput{}, fmt.Errorf("'ref' parameter is required")
	}

	view, ok := s.session.Node(args.Ref)
	if !ok {
		return nil, PamNodeOutput{}, fmt.Errorf("node not resident: %s", args.Ref)
	}
	return nil, PamNodeOutput{
		Node:        view.Node,
		ParentLinks: view.Parent,
		ChildLinks:  view.Child,
	}, nil
}

// normalize replaces nil slices so structured output always carries arrays.
func normalize(c buffer.Contents) buffer.Contents {
	if c.Nodes == nil {
		c.Nodes = []models.NodeSnapshot{}
	}
	if c.Links == nil {
		c.Links = []models.LinkSnapshot{}
	}
	return c
}
