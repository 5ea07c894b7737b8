package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

func TestImporter_ResolvesLabelsAndAssignsIDs(t *testing.T) {
	dir := t.TempDir()
	nodes := filepath.Join(dir, "nodes.jsonl")
	links := filepath.Join(dir, "links.jsonl")

	writeFile(t, nodes, strings.Join([]string{
		`{"id":"a","label":"apple"}`,
		`{"label":"fruit","tags":["scene"]}`,
		`not json`,
		``,
	}, "\n"))
	writeFile(t, links, strings.Join([]string{
		`{"source":"apple","sink":"fruit","category":"is-a"}`,
		`{"source":"a","sink":"missing","category":"content"}`,
	}, "\n"))

	s := NewInMemorySemanticStore()
	im := NewImporter(s, nil)
	ctx := context.Background()
	var stats ImportStats
	if err := im.ImportNodes(ctx, nodes, &stats); err != nil {
		t.Fatalf("ImportNodes() error = %v", err)
	}
	if err := im.ImportLinks(ctx, links, &stats); err != nil {
		t.Fatalf("ImportLinks() error = %v", err)
	}

	if stats.Nodes != 2 || stats.Links != 2 || stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}

	fruit, _ := s.FetchByLabel(ctx, "fruit")
	if fruit == nil || fruit.ID == "" || fruit.ID == "fruit" {
		t.Fatalf("fruit should get a generated id, got %+v", fruit)
	}
	parents, _ := s.FetchParentLinks(ctx, fruit.ID)
	if len(parents) != 1 || parents[0].Source != "a" {
		t.Errorf("is-a link not resolved by label: %+v", parents)
	}

	problems, err := Validate(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 1 || problems[0].Issue != "dangling" || problems[0].RefID != "missing" {
		t.Errorf("Validate() = %+v", problems)
	}
}

func TestImporter_SanitizesLabelsAndTags(t *testing.T) {
	nodes := filepath.Join(t.TempDir(), "nodes.jsonl")
	writeFile(t, nodes, strings.Join([]string{
		`{"id":"a","label":"<system>apple</system>\u0007","tags":["scene!","???"]}`,
		`{"id":"b","label":"<br/>"}`,
	}, "\n"))

	s := NewInMemorySemanticStore()
	ctx := context.Background()
	var stats ImportStats
	if err := NewImporter(s, nil).ImportNodes(ctx, nodes, &stats); err != nil {
		t.Fatalf("ImportNodes() error = %v", err)
	}
	if stats.Nodes != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}

	rec, _ := s.FetchNode(ctx, "a")
	if rec == nil || rec.Label != "apple" {
		t.Fatalf("label not sanitized: %+v", rec)
	}
	if len(rec.Tags) != 1 || rec.Tags[0] != "scene" {
		t.Errorf("tags = %v, want [scene]", rec.Tags)
	}
}

func TestImporter_MissingFileIsNotAnError(t *testing.T) {
	im := NewImporter(NewInMemorySemanticStore(), nil)
	var stats ImportStats
	if err := im.ImportNodes(context.Background(), filepath.Join(t.TempDir(), "none.jsonl"), &stats); err != nil {
		t.Errorf("ImportNodes() error = %v", err)
	}
}

func TestExportJSONL_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewInMemorySemanticStore()
	seedScenes(t, src)

	dir := t.TempDir()
	nodes := filepath.Join(dir, "nodes.jsonl")
	links := filepath.Join(dir, "links.jsonl")
	if err := ExportJSONL(ctx, src, nodes, links); err != nil {
		t.Fatalf("ExportJSONL() error = %v", err)
	}

	dst, err := NewSQLiteSemanticStore(filepath.Join(dir, DBFileName))
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	im := NewImporter(dst, nil)
	var stats ImportStats
	if err := im.ImportNodes(ctx, nodes, &stats); err != nil {
		t.Fatal(err)
	}
	if err := im.ImportLinks(ctx, links, &stats); err != nil {
		t.Fatal(err)
	}

	wantNodes, _ := src.AllNodes(ctx)
	wantLinks, _ := src.AllLinks(ctx)
	if stats.Nodes != len(wantNodes) || stats.Links != len(wantLinks) {
		t.Errorf("stats = %+v, want %d nodes %d links", stats, len(wantNodes), len(wantLinks))
	}
	gotNodes, _ := dst.AllNodes(ctx)
	if len(gotNodes) != len(wantNodes) {
		t.Errorf("AllNodes() = %d, want %d", len(gotNodes), len(wantNodes))
	}
}

func TestValidate_RoleMissing(t *testing.T) {
	ctx := context.Background()
	s := NewInMemorySemanticStore()
	mustAddNode(t, s, Record{ID: "give", Label: "give", Tags: []string{"action"}, Cores: 3})
	mustAddNode(t, s, Record{ID: "ball", Label: "ball"})
	mustAddLink(t, s, "give", "ball", "patient")

	problems, err := Validate(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 1 || problems[0].Issue != "role-missing" || problems[0].RefID != "1/3" {
		t.Errorf("Validate() = %+v", problems)
	}
	if !strings.Contains(problems[0].String(), "give") {
		t.Errorf("String() = %q", problems[0].String())
	}
}

func TestPaths(t *testing.T) {
	global, err := GlobalPamemPath()
	if err != nil {
		t.Fatalf("GlobalPamemPath() error = %v", err)
	}
	if !strings.HasSuffix(global, DirName) || !filepath.IsAbs(global) {
		t.Errorf("GlobalPamemPath() = %s", global)
	}

	if got := LocalPamemPath("/home/user/project"); got != filepath.Join("/home/user/project", ".pamem") {
		t.Errorf("LocalPamemPath() = %s", got)
	}

	root := t.TempDir()
	dir, err := EnsureLocalPamemDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("EnsureLocalPamemDir() did not create %s", dir)
	}

	if got := ResolveDBPath(root, ""); got != filepath.Join(root, ".pamem", "pamem.db") {
		t.Errorf("ResolveDBPath(default) = %s", got)
	}
	if got := ResolveDBPath(root, "/abs/x.db"); got != "/abs/x.db" {
		t.Errorf("ResolveDBPath(abs) = %s", got)
	}
}
