package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// DBFileName is the database file created inside the .pamem directory.
const DBFileName = "pamem.db"

// SQLiteSemanticStore implements SemanticStore on SQLite.
type SQLiteSemanticStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteSemanticStore opens (creating if needed) the database at dbPath.
func NewSQLiteSemanticStore(dbPath string) (*SQLiteSemanticStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteSemanticStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteSemanticStore) Path() string {
	return s.dbPath
}

// AddNode inserts or replaces a node and its tags.
func (s *SQLiteSemanticStore) AddNode(ctx context.Context, rec Record) (string, error) {
	if err := validateRecord(rec); err != nil {
		return "", err
	}
	if rec.Type == "" {
		rec.Type = "pam-node"
	}
	if rec.Cores <= 0 {
		rec.Cores = 1
	}
	if rec.Weight <= 0 {
		rec.Weight = 1.0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO nodes (id, label, type, cores, weight, base_activation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			type = excluded.type,
			cores = excluded.cores,
			weight = excluded.weight,
			base_activation = excluded.base_activation,
			updated_at = excluded.updated_at
	`, rec.ID, rec.Label, rec.Type, rec.Cores, rec.Weight, rec.BaseActivation, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert node %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM node_tags WHERE node_id = ?`, rec.ID); err != nil {
		return "", fmt.Errorf("failed to clear tags: %w", err)
	}
	for _, tag := range rec.Tags {
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO node_tags (node_id, tag) VALUES (?, ?)`, rec.ID, tag); err != nil {
			return "", fmt.Errorf("failed to insert tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit node: %w", err)
	}
	return rec.ID, nil
}

// AddLink inserts or replaces a link.
func (s *SQLiteSemanticStore) AddLink(ctx context.Context, rec LinkRecord) error {
	if err := validateLinkRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var incentive sql.NullFloat64
	if rec.Incentive != nil {
		incentive = sql.NullFloat64{Float64: *rec.Incentive, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO links (source, sink, category, type, incentive, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Source, rec.Sink, rec.Category, nullString(rec.Type), incentive, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

// FetchNode retrieves a node by id. Returns nil if not found.
func (s *SQLiteSemanticStore) FetchNode(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchNodeUnlocked(ctx, `id = ?`, id)
}

// FetchByLabel retrieves a node by label. Returns nil if not found.
func (s *SQLiteSemanticStore) FetchByLabel(ctx context.Context, label string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchNodeUnlocked(ctx, `label = ?`, label)
}

func (s *SQLiteSemanticStore) fetchNodeUnlocked(ctx context.Context, where string, arg string) (*Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, type, cores, weight, base_activation FROM nodes WHERE `+where, arg,
	).Scan(&rec.ID, &rec.Label, &rec.Type, &rec.Cores, &rec.Weight, &rec.BaseActivation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query node: %w", err)
	}

	tags, err := s.tagsUnlocked(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Tags = tags
	return &rec, nil
}

func (s *SQLiteSemanticStore) tagsUnlocked(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM node_tags WHERE node_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// FetchParentLinks returns the links whose sink is id.
func (s *SQLiteSemanticStore) FetchParentLinks(ctx context.Context, id string) ([]LinkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLinks(ctx, `WHERE sink = ?`, id)
}

func (s *SQLiteSemanticStore) queryLinks(ctx context.Context, where string, args ...any) ([]LinkRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, sink, category, type, incentive FROM links `+where+` ORDER BY source, sink, category`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	results := make([]LinkRecord, 0)
	for rows.Next() {
		var rec LinkRecord
		var typ sql.NullString
		var incentive sql.NullFloat64
		if err := rows.Scan(&rec.Source, &rec.Sink, &rec.Category, &typ, &incentive); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		rec.Type = typ.String
		if incentive.Valid {
			v := incentive.Float64
			rec.Incentive = &v
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// Query runs a structural pattern as a SQL join.
func (s *SQLiteSemanticStore) Query(ctx context.Context, p Pattern) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch p.Kind {
	case PatternAnalogousScenes:
		ids, err := s.queryIDs(ctx, `
			SELECT DISTINCT scene.source FROM links isa
			JOIN links scene ON scene.sink = isa.source AND scene.category IN ('action', 'patient', 'agent')
			JOIN node_tags st ON st.node_id = scene.source AND st.tag = 'scene'
			JOIN links o ON o.sink = scene.source AND o.source = ?
			WHERE isa.category = 'is-a' AND isa.sink = ?
		`, p.Object, p.Subject)
		if err != nil {
			return nil, err
		}
		return s.nodeRows(ctx, ids)

	case PatternSequenceBridge:
		ids, err := s.queryIDs(ctx, `
			SELECT DISTINCT a.source FROM links a
			JOIN links b ON b.source = a.source AND b.category = 'sequence' AND b.sink = ?
			JOIN node_tags st ON st.node_id = a.source AND st.tag = 'scene'
			WHERE a.category = 'sequence' AND a.sink = ?
		`, p.Object, p.Subject)
		if err != nil {
			return nil, err
		}
		return s.nodeRows(ctx, ids)

	case PatternSceneMembers:
		excluded := make([]string, 0, len(sceneMemberExcluded))
		args := []any{p.Subject}
		for c := range sceneMemberExcluded {
			excluded = append(excluded, "?")
			args = append(args, c)
		}
		links, err := s.queryLinks(ctx,
			`WHERE sink = ? AND category NOT IN (`+strings.Join(excluded, ", ")+`)`, args...)
		if err != nil {
			return nil, err
		}
		return s.linkRows(ctx, links)

	case PatternPlanRoot:
		links, err := s.queryLinks(ctx, `WHERE source = ? AND category = 'sequence-head'`, p.Subject)
		if err != nil {
			return nil, err
		}
		return s.linkRows(ctx, links)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPattern, p.Kind)
	}
}

func (s *SQLiteSemanticStore) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run pattern query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// nodeRows and linkRows run after the driving query's rows are closed, so
// the single connection is free for the nested lookups.
func (s *SQLiteSemanticStore) nodeRows(ctx context.Context, ids []string) ([]Row, error) {
	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		rec, err := s.fetchNodeUnlocked(ctx, `id = ?`, id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			rows = append(rows, Row{Node: rec})
		}
	}
	return rows, nil
}

func (s *SQLiteSemanticStore) linkRows(ctx context.Context, links []LinkRecord) ([]Row, error) {
	rows := make([]Row, 0, len(links))
	for i := range links {
		src, err := s.fetchNodeUnlocked(ctx, `id = ?`, links[i].Source)
		if err != nil {
			return nil, err
		}
		sink, err := s.fetchNodeUnlocked(ctx, `id = ?`, links[i].Sink)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Link: &links[i], Source: src, Sink: sink})
	}
	return rows, nil
}

// AllNodes returns every node sorted by id.
func (s *SQLiteSemanticStore) AllNodes(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.queryIDs(ctx, `SELECT id FROM nodes`)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.fetchNodeUnlocked(ctx, `id = ?`, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get node %s: %w", id, err)
		}
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// AllLinks returns every link.
func (s *SQLiteSemanticStore) AllLinks(ctx context.Context) ([]LinkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLinks(ctx, ``)
}

// Close closes the database.
func (s *SQLiteSemanticStore) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
