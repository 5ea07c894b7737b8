package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/nvandessel/pamem/internal/sanitize"
)

// ImportStats summarizes a JSONL import.
type ImportStats struct {
	Nodes   int `json:"nodes"`
	Links   int `json:"links"`
	Skipped int `json:"skipped"`
}

// Importer loads JSONL node and link files into a store.
//
// Node lines without an id are given a fresh UUID. Link endpoints may name a
// node by id or by label; labels are resolved against nodes imported earlier
// in the same run, then against the store.
type Importer struct {
	Store  SemanticStore
	Logger *slog.Logger

	labels map[string]string
}

// NewImporter creates an importer for s.
func NewImporter(s SemanticStore, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{Store: s, Logger: logger, labels: make(map[string]string)}
}

// ImportNodes imports a JSONL file of Records. A missing file is not an error.
func (im *Importer) ImportNodes(ctx context.Context, path string, stats *ImportStats) error {
	return scanJSONL(path, func(lineNum int, line []byte) error {
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			im.Logger.Warn("skipping malformed node line", "file", path, "line", lineNum, "error", err)
			stats.Skipped++
			return nil
		}
		rec.Label = sanitize.Label(rec.Label)
		rec.Tags = sanitize.Tags(rec.Tags)
		if rec.Label == "" {
			im.Logger.Warn("skipping node without a usable label", "file", path, "line", lineNum)
			stats.Skipped++
			return nil
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if _, err := im.Store.AddNode(ctx, rec); err != nil {
			return fmt.Errorf("failed to import node %s: %w", rec.ID, err)
		}
		im.labels[rec.Label] = rec.ID
		stats.Nodes++
		return nil
	})
}

// ImportLinks imports a JSONL file of LinkRecords. A missing file is not an
// error.
func (im *Importer) ImportLinks(ctx context.Context, path string, stats *ImportStats) error {
	return scanJSONL(path, func(lineNum int, line []byte) error {
		var rec LinkRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			im.Logger.Warn("skipping malformed link line", "file", path, "line", lineNum, "error", err)
			stats.Skipped++
			return nil
		}
		var err error
		if rec.Source, err = im.resolve(ctx, rec.Source); err != nil {
			return err
		}
		if rec.Sink, err = im.resolve(ctx, rec.Sink); err != nil {
			return err
		}
		if err := im.Store.AddLink(ctx, rec); err != nil {
			return fmt.Errorf("failed to import link at line %d: %w", lineNum, err)
		}
		stats.Links++
		return nil
	})
}

func (im *Importer) resolve(ctx context.Context, ref string) (string, error) {
	if id, ok := im.labels[ref]; ok {
		return id, nil
	}
	rec, err := im.Store.FetchNode(ctx, ref)
	if err != nil {
		return "", err
	}
	if rec != nil {
		return ref, nil
	}
	rec, err = im.Store.FetchByLabel(ctx, ref)
	if err != nil {
		return "", err
	}
	if rec != nil {
		im.labels[ref] = rec.ID
		return rec.ID, nil
	}
	// Unknown references are kept as ids; Validate reports them.
	return ref, nil
}

func scanJSONL(path string, fn func(lineNum int, line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No file is fine
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024) // 1MB max line length

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(lineNum, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// ExportJSONL writes every node and link of d to the two paths.
func ExportJSONL(ctx context.Context, d Dumper, nodesPath, linksPath string) error {
	nodes, err := d.AllNodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}
	if err := writeJSONL(nodesPath, len(nodes), func(enc *json.Encoder, i int) error {
		return enc.Encode(nodes[i])
	}); err != nil {
		return fmt.Errorf("failed to export nodes: %w", err)
	}

	links, err := d.AllLinks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list links: %w", err)
	}
	if err := writeJSONL(linksPath, len(links), func(enc *json.Encoder, i int) error {
		return enc.Encode(links[i])
	}); err != nil {
		return fmt.Errorf("failed to export links: %w", err)
	}
	return nil
}

func writeJSONL(path string, n int, encode func(*json.Encoder, int) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i := 0; i < n; i++ {
		if err := encode(enc, i); err != nil {
			return err
		}
	}
	return nil
}
