package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/pamem/internal/graph"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func TestDefault(t *testing.T) {
	config := Default()

	p := config.Propagation
	if p.Upscale != 0.6 || p.Downscale != 0.5 || p.PerceptThreshold != 0.7 {
		t.Errorf("unexpected scale defaults: %+v", p)
	}
	if p.PropagationThreshold != 0.05 || p.RefractoryThreshold != 0.98 || p.MaxDepth != 6 {
		t.Errorf("unexpected propagation defaults: %+v", p)
	}
	if len(p.PredictedObjects) != 1 || p.PredictedObjects[0] != "rockFront" {
		t.Errorf("expected predicted objects [rockFront], got %v", p.PredictedObjects)
	}
	if config.Scheduler.Workers != 4 || config.Scheduler.MaxPending != 1000 {
		t.Errorf("unexpected scheduler defaults: %+v", config.Scheduler)
	}
	if config.Scheduler.TickInterval != 10*time.Millisecond {
		t.Errorf("expected tick interval 10ms, got %v", config.Scheduler.TickInterval)
	}
	if config.Decay.Strategy != "linear" || config.Decay.Interval != 0 {
		t.Errorf("unexpected decay defaults: %+v", config.Decay)
	}
	if config.Store.Backend != "sqlite" {
		t.Errorf("expected sqlite backend, got %s", config.Store.Backend)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, `
propagation:
  upscale: 0.8
  percept_mappings:
    - node,pam-node,percept-node
scheduler:
  tick_interval: 50ms
decay:
  strategy: exponential
  interval: 5
store:
  backend: memory
`)

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Propagation.Upscale != 0.8 {
		t.Errorf("expected upscale 0.8, got %f", config.Propagation.Upscale)
	}
	// Keys absent from the file keep defaults.
	if config.Propagation.PerceptThreshold != 0.7 {
		t.Errorf("expected default percept threshold, got %f", config.Propagation.PerceptThreshold)
	}
	if config.Scheduler.TickInterval != 50*time.Millisecond {
		t.Errorf("expected tick interval 50ms, got %v", config.Scheduler.TickInterval)
	}
	if config.Decay.Strategy != "exponential" || config.Decay.Interval != 5 {
		t.Errorf("unexpected decay: %+v", config.Decay)
	}
	if config.Store.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", config.Store.Backend)
	}
}

func TestLoad_Layering(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PAMEM_WORKERS", "")
	t.Setenv("PAMEM_MAX_DEPTH", "")

	writeConfig(t, filepath.Join(home, ".pamem", "config.yaml"), `
propagation:
  upscale: 0.9
  max_depth: 8
`)
	writeConfig(t, filepath.Join(root, ".pamem", "config.yaml"), `
propagation:
  max_depth: 4
`)
	t.Setenv("PAMEM_WORKERS", "2")

	config, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Propagation.Upscale != 0.9 {
		t.Errorf("global file not applied: upscale = %f", config.Propagation.Upscale)
	}
	if config.Propagation.MaxDepth != 4 {
		t.Errorf("project file should override global: max_depth = %d", config.Propagation.MaxDepth)
	}
	if config.Scheduler.Workers != 2 {
		t.Errorf("env should override files: workers = %d", config.Scheduler.Workers)
	}
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, `
store:
  path: ${TEST_PAMEM_DIR}/graph.db
`)
	t.Setenv("TEST_PAMEM_DIR", "/data")

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if config.Store.Path != "/data/graph.db" {
		t.Errorf("expected expanded path, got '%s'", config.Store.Path)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PAMEM_UPSCALE", "0.4")
	t.Setenv("PAMEM_MAX_PENDING", "50")
	t.Setenv("PAMEM_TICK_INTERVAL", "1s")
	t.Setenv("PAMEM_DECAY_STRATEGY", "exponential")
	t.Setenv("PAMEM_STORE_BACKEND", "memory")
	t.Setenv("PAMEM_LOG_LEVEL", "debug")
	t.Setenv("PAMEM_MAX_DEPTH", "not-a-number")

	config := Default()
	applyEnvOverrides(config)

	if config.Propagation.Upscale != 0.4 {
		t.Errorf("expected upscale 0.4, got %f", config.Propagation.Upscale)
	}
	if config.Scheduler.MaxPending != 50 {
		t.Errorf("expected max pending 50, got %d", config.Scheduler.MaxPending)
	}
	if config.Scheduler.TickInterval != time.Second {
		t.Errorf("expected tick interval 1s, got %v", config.Scheduler.TickInterval)
	}
	if config.Decay.Strategy != "exponential" || config.Store.Backend != "memory" {
		t.Errorf("string overrides not applied: %+v %+v", config.Decay, config.Store)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}
	if config.Propagation.MaxDepth != 6 {
		t.Errorf("unparseable override should be ignored, got %d", config.Propagation.MaxDepth)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *PamConfig)
	}{
		{"negative upscale", func(c *PamConfig) { c.Propagation.Upscale = -0.1 }},
		{"threshold above 1", func(c *PamConfig) { c.Propagation.PerceptThreshold = 1.5 }},
		{"zero depth", func(c *PamConfig) { c.Propagation.MaxDepth = 0 }},
		{"zero ticks", func(c *PamConfig) { c.Propagation.PropagationTicks = 0 }},
		{"bad mapping", func(c *PamConfig) { c.Propagation.PerceptMappings = []string{"node,only"} }},
		{"zero workers", func(c *PamConfig) { c.Scheduler.Workers = 0 }},
		{"zero tick interval", func(c *PamConfig) { c.Scheduler.TickInterval = 0 }},
		{"unknown strategy", func(c *PamConfig) { c.Decay.Strategy = "cliff" }},
		{"negative interval", func(c *PamConfig) { c.Decay.Interval = -1 }},
		{"unknown backend", func(c *PamConfig) { c.Store.Backend = "neo4j" }},
		{"invalid log level", func(c *PamConfig) { c.Logging.Level = "verbose" }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got error: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_ValidLogLevels(t *testing.T) {
	for _, level := range []string{"", "info", "debug", "trace"} {
		t.Run(level, func(t *testing.T) {
			config := Default()
			config.Logging.Level = level
			if err := config.Validate(); err != nil {
				t.Errorf("expected log level '%s' to be valid, got error: %v", level, err)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	config := Default()
	config.Propagation.Upscale = 3
	config.Propagation.MaxDepth = -2
	config.Propagation.PerceptMappings = []string{"node,pam-node,percept-node", "garbage"}
	config.Scheduler.Workers = 0
	config.Decay.Strategy = "cliff"
	config.Store.Backend = "neo4j"

	config.Sanitize(logger)

	if err := config.Validate(); err == nil || !strings.Contains(err.Error(), "percept mapping") {
		t.Errorf("only the malformed mapping should remain invalid, got %v", err)
	}
	if config.Propagation.Upscale != 0.6 || config.Propagation.MaxDepth != 6 || config.Scheduler.Workers != 4 {
		t.Errorf("out-of-range values not reset: %+v %+v", config.Propagation, config.Scheduler)
	}
	if config.Decay.Strategy != "linear" || config.Store.Backend != "sqlite" {
		t.Errorf("unknown names not reset: %+v %+v", config.Decay, config.Store)
	}
	out := buf.String()
	for _, want := range []string{"upscale", "max_depth", "garbage"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected warning mentioning %q, got:\n%s", want, out)
		}
	}
}

func TestSanitize_TickDelays(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	config := Default()
	config.Propagation.ExcitationTicks = 0
	config.Propagation.PropagationTicks = -3
	config.Sanitize(logger)

	if config.Propagation.ExcitationTicks != 1 {
		t.Errorf("excitation_ticks = %d, want 1", config.Propagation.ExcitationTicks)
	}
	if got, want := config.Propagation.PropagationTicks, Default().Propagation.PropagationTicks; got != want {
		t.Errorf("propagation_ticks = %d, want default %d", got, want)
	}
	out := buf.String()
	if !strings.Contains(out, "tick delay 0 raised to 1") || !strings.Contains(out, "excitation_ticks") {
		t.Errorf("expected raise warning for excitation_ticks, got:\n%s", out)
	}
	if !strings.Contains(out, "propagation_ticks") {
		t.Errorf("expected out-of-range warning for propagation_ticks, got:\n%s", out)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("sanitized config should validate: %v", err)
	}
}

func TestParsePerceptMappings(t *testing.T) {
	nodes, links, bad := ParsePerceptMappings([]string{
		"node,pam-node,percept-node",
		" link , pam-link , percept-link ",
		"edge,a,b",
		"node,,b",
		"node,a",
	})
	if nodes["pam-node"] != "percept-node" {
		t.Errorf("nodes = %v", nodes)
	}
	if links["pam-link"] != "percept-link" {
		t.Errorf("links = %v", links)
	}
	if len(bad) != 3 {
		t.Errorf("bad = %v, want 3 entries", bad)
	}
}

func TestEngineConfig(t *testing.T) {
	config := Default()
	config.Decay.Strategy = "exponential"
	config.Decay.Interval = 3
	config.Propagation.PerceptMappings = []string{"link,pam-link,percept-link"}

	ec, err := config.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig() error = %v", err)
	}
	if _, ok := ec.Decay.(graph.ExponentialDecay); !ok {
		t.Errorf("decay = %T, want ExponentialDecay", ec.Decay)
	}
	if ec.DecayInterval != 3 || ec.MaxPending != 1000 || ec.MaxDepth != 6 {
		t.Errorf("unexpected engine config: %+v", ec)
	}
	if ec.LinkTypeMap["pam-link"] != "percept-link" {
		t.Errorf("link map = %v", ec.LinkTypeMap)
	}

	config.Decay.Strategy = "cliff"
	if _, err := config.EngineConfig(); err == nil {
		t.Error("expected error for unknown decay strategy")
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	config := Default()
	config.Propagation.Upscale = 0.75
	if err := config.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Propagation.Upscale != 0.75 || loaded.Scheduler.TickInterval != 10*time.Millisecond {
		t.Errorf("round trip lost values: %+v %+v", loaded.Propagation, loaded.Scheduler)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, `
propagation:
  upscale: [invalid yaml
`)
	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
