package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/pamem/internal/buffer"
	"github.com/nvandessel/pamem/internal/config"
	"github.com/nvandessel/pamem/internal/constants"
	"github.com/nvandessel/pamem/internal/logging"
	"github.com/nvandessel/pamem/internal/models"
	"github.com/nvandessel/pamem/internal/store"
)

// seededStore holds A with a content parent link from B.
func seededStore(t *testing.T) *store.InMemorySemanticStore {
	t.Helper()
	ctx := context.Background()
	s := store.NewInMemorySemanticStore()
	for _, rec := range []store.Record{{ID: "A", Label: "apple"}, {ID: "B", Label: "banana"}} {
		if _, err := s.AddNode(ctx, rec); err != nil {
			t.Fatalf("AddNode(%s): %v", rec.ID, err)
		}
	}
	if err := s.AddLink(ctx, store.LinkRecord{Source: "B", Sink: "A", Category: models.CategoryContent}); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	return s
}

func openMemory(t *testing.T, s store.SemanticStore) *Session {
	t.Helper()
	sess, err := Open(Options{Store: s})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestExcite_SpreadsFromStore(t *testing.T) {
	sess := openMemory(t, seededStore(t))

	r, err := sess.Excite(context.Background(), []string{"apple"}, 1.0, constants.SourceCLI, 0)
	if err != nil {
		t.Fatalf("Excite() error = %v", err)
	}
	if r.Ticks != 2 || r.Pending != 0 {
		t.Errorf("ticks = %d, pending = %d, want 2 and 0", r.Ticks, r.Pending)
	}

	view, ok := sess.Node("banana")
	if !ok {
		t.Fatal("banana was not hydrated")
	}
	if view.Node.Activation < 0.59 || view.Node.Activation > 0.61 {
		t.Errorf("banana activation = %v, want 0.6", view.Node.Activation)
	}
	if len(view.Child) != 1 || view.Child[0].Key.Sink != "A" {
		t.Errorf("banana child links = %+v", view.Child)
	}

	names := map[buffer.Name]bool{}
	for _, c := range r.Buffers {
		names[c.Name] = true
	}
	if !names[buffer.NonConscious] || !names[buffer.Concept] {
		t.Errorf("report buffers = %v", names)
	}
	if names[buffer.Goal] {
		t.Error("empty goal buffer should be left out of the report")
	}
}

func TestExcite_MaxTicksBoundsDecay(t *testing.T) {
	cfg := config.Default()
	cfg.Decay.Interval = 1
	sess, err := Open(Options{Config: cfg, Store: seededStore(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	r, err := sess.Excite(context.Background(), []string{"apple"}, 1.0, constants.SourceCLI, 5)
	if err != nil {
		t.Fatal(err)
	}
	if r.Ticks != 5 {
		t.Errorf("ticks = %d, want 5", r.Ticks)
	}
	if r.Pending == 0 {
		t.Error("decay task should still be pending")
	}
}

func TestBuffers_Named(t *testing.T) {
	sess := openMemory(t, store.NewInMemorySemanticStore())

	got := sess.Buffers(buffer.Goal, buffer.Feeling)
	if len(got) != 2 || got[0].Name != buffer.Goal || got[1].Name != buffer.Feeling {
		t.Errorf("Buffers() = %+v", got)
	}
}

func TestNode_Unknown(t *testing.T) {
	sess := openMemory(t, store.NewInMemorySemanticStore())
	if _, ok := sess.Node("nope"); ok {
		t.Error("unknown node should not be found")
	}
}

func TestOpen_SQLiteUnderRoot(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Logging.Level = "debug"

	sess, err := Open(Options{Root: root, Config: cfg})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := sess.Excite(context.Background(), []string{"ghost"}, 1.0, constants.SourceCLI, 0); err != nil {
		t.Fatalf("Excite() error = %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	for _, name := range []string{store.DBFileName, logging.DecisionFileName} {
		if _, err := os.Stat(filepath.Join(root, store.DirName, name)); err != nil {
			t.Errorf("expected %s under .pamem: %v", name, err)
		}
	}
}

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name    string
		root    string
		sc      config.StoreConfig
		wantErr bool
	}{
		{"memory", "", config.StoreConfig{Backend: constants.BackendMemory}, false},
		{"sqlite without root", "", config.StoreConfig{Backend: constants.BackendSQLite}, true},
		{"sqlite explicit path", "", config.StoreConfig{Backend: constants.BackendSQLite, Path: filepath.Join(t.TempDir(), "x.db")}, false},
		{"unknown", "", config.StoreConfig{Backend: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := OpenStore(tt.root, tt.sc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("OpenStore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if s != nil {
				s.Close()
			}
		})
	}
}
