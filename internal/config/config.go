// Package config provides unified configuration loading for pamem.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/pamem/internal/constants"
	"github.com/nvandessel/pamem/internal/graph"
	"github.com/nvandessel/pamem/internal/spreading"
	"github.com/nvandessel/pamem/internal/store"
	"gopkg.in/yaml.v3"
)

// PamConfig contains all pamem configuration settings.
type PamConfig struct {
	// Propagation tunes the spreading engine.
	Propagation PropagationConfig `json:"propagation" yaml:"propagation"`

	// Scheduler sizes the tick scheduler.
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`

	// Decay configures periodic activation decay.
	Decay DecayConfig `json:"decay" yaml:"decay"`

	// Store selects the semantic store backend.
	Store StoreConfig `json:"store" yaml:"store"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// PropagationConfig holds the engine's numeric parameters.
type PropagationConfig struct {
	Upscale              float64 `json:"upscale" yaml:"upscale"`
	Downscale            float64 `json:"downscale" yaml:"downscale"`
	PerceptThreshold     float64 `json:"percept_threshold" yaml:"percept_threshold"`
	ExcitationTicks      int     `json:"excitation_ticks" yaml:"excitation_ticks"`
	PropagationTicks     int     `json:"propagation_ticks" yaml:"propagation_ticks"`
	PropagationThreshold float64 `json:"propagation_threshold" yaml:"propagation_threshold"`
	MaxDepth             int     `json:"max_depth" yaml:"max_depth"`
	RefractoryThreshold  float64 `json:"refractory_threshold" yaml:"refractory_threshold"`

	// PerceptMappings rename factory types on percept egress. Each entry is
	// "kind,originalType,mappedType" with kind "node" or "link".
	PerceptMappings []string `json:"percept_mappings,omitempty" yaml:"percept_mappings,omitempty"`

	// PredictedObjects are placed one cell ahead of the agent when excited.
	PredictedObjects []string `json:"predicted_objects" yaml:"predicted_objects"`
}

// SchedulerConfig sizes the tick scheduler.
type SchedulerConfig struct {
	// Workers bounds how many due tasks run at once.
	Workers int `json:"workers" yaml:"workers"`

	// TickInterval is the wall-clock time between ticks in server mode.
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval"`

	// MaxPending is the backlog above which scene-to-scene is-a links are skipped.
	MaxPending int `json:"max_pending" yaml:"max_pending"`
}

// DecayConfig configures periodic activation decay.
type DecayConfig struct {
	// Strategy is "linear" or "exponential".
	Strategy string `json:"strategy" yaml:"strategy"`

	// Rate is the per-tick decay rate.
	Rate float64 `json:"rate" yaml:"rate"`

	// Interval is the number of ticks between decay passes. 0 disables decay.
	Interval int `json:"interval" yaml:"interval"`
}

// StoreConfig selects the semantic store.
type StoreConfig struct {
	// Backend is "sqlite" (default) or "memory".
	Backend string `json:"backend" yaml:"backend"`

	// Path is the SQLite database path. Relative paths resolve against the
	// project root. Empty means .pamem/pamem.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LoggingConfig configures pamem's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to .pamem/decisions.jsonl.
	// "trace" additionally logs every excitation and dropped continuation.
	Level string `json:"level" yaml:"level"`
}

// Default returns a PamConfig with sensible defaults.
func Default() *PamConfig {
	return &PamConfig{
		Propagation: PropagationConfig{
			Upscale:              constants.DefaultUpscale,
			Downscale:            constants.DefaultDownscale,
			PerceptThreshold:     constants.DefaultPerceptThreshold,
			ExcitationTicks:      constants.DefaultExcitationTicks,
			PropagationTicks:     constants.DefaultPropagationTicks,
			PropagationThreshold: constants.DefaultPropagationThreshold,
			MaxDepth:             constants.DefaultMaxDepth,
			RefractoryThreshold:  constants.DefaultRefractoryThreshold,
			PredictedObjects:     []string{constants.DefaultPredictedObject},
		},
		Scheduler: SchedulerConfig{
			Workers:      constants.DefaultWorkers,
			TickInterval: 10 * time.Millisecond,
			MaxPending:   constants.DefaultMaxPending,
		},
		Decay: DecayConfig{
			Strategy: constants.DefaultDecayStrategy,
			Rate:     constants.DefaultDecayRate,
		},
		Store: StoreConfig{
			Backend: constants.BackendSQLite,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.pamem/config.yaml -> <root>/.pamem/config.yaml -> environment variables.
// An empty root skips the project file.
func Load(root string) (*PamConfig, error) {
	config := Default()

	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, store.DirName, "config.yaml"))
	}
	if root != "" {
		paths = append(paths, filepath.Join(store.LocalPamemPath(root), "config.yaml"))
	}
	for _, path := range paths {
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		if err := mergeFile(config, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file over the defaults.
func LoadFromFile(path string) (*PamConfig, error) {
	config := Default()
	if err := mergeFile(config, path); err != nil {
		return nil, err
	}
	return config, nil
}

// mergeFile overlays the YAML file at path onto config. Keys absent from the
// file keep their current values.
func mergeFile(config *PamConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	config.Store.Path = expandEnvVars(config.Store.Path)
	return nil
}

// WriteFile writes config as YAML to path, creating parent directories.
func (c *PamConfig) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

var (
	validLevels     = map[string]bool{"info": true, "debug": true, "trace": true}
	validBackends   = map[string]bool{constants.BackendSQLite: true, constants.BackendMemory: true}
	validStrategies = map[string]bool{"linear": true, "exponential": true}
)

// Validate checks that the configuration is valid.
func (c *PamConfig) Validate() error {
	p := c.Propagation
	for name, v := range map[string]float64{
		"upscale":               p.Upscale,
		"downscale":             p.Downscale,
		"percept_threshold":     p.PerceptThreshold,
		"propagation_threshold": p.PropagationThreshold,
		"refractory_threshold":  p.RefractoryThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, v)
		}
	}
	if p.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", p.MaxDepth)
	}
	if p.ExcitationTicks < 1 || p.PropagationTicks < 1 {
		return fmt.Errorf("excitation_ticks and propagation_ticks must be at least 1")
	}
	if _, _, bad := ParsePerceptMappings(p.PerceptMappings); len(bad) > 0 {
		return fmt.Errorf("invalid percept mapping: %q (want kind,originalType,mappedType)", bad[0])
	}

	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Scheduler.Workers)
	}
	if c.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.Scheduler.TickInterval)
	}
	if c.Scheduler.MaxPending < 0 {
		return fmt.Errorf("max_pending must be non-negative, got %d", c.Scheduler.MaxPending)
	}

	if !validStrategies[c.Decay.Strategy] {
		return fmt.Errorf("invalid decay strategy: %s (valid: linear, exponential)", c.Decay.Strategy)
	}
	if c.Decay.Rate < 0 {
		return fmt.Errorf("decay rate must be non-negative, got %f", c.Decay.Rate)
	}
	if c.Decay.Interval < 0 {
		return fmt.Errorf("decay interval must be non-negative, got %d", c.Decay.Interval)
	}

	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend: %s (valid: sqlite, memory)", c.Store.Backend)
	}

	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// Sanitize replaces out-of-range values with their defaults, logging a warning
// for each. Unlike Validate it never fails.
func (c *PamConfig) Sanitize(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := Default()

	unit := func(name string, v *float64, def float64) {
		if *v < 0 || *v > 1 {
			logger.Warn("config value out of range, using default", "key", name, "value", *v, "default", def)
			*v = def
		}
	}
	atLeast := func(name string, v *int, min, def int) {
		if *v < min {
			logger.Warn("config value out of range, using default", "key", name, "value", *v, "default", def)
			*v = def
		}
	}

	p := &c.Propagation
	unit("upscale", &p.Upscale, d.Propagation.Upscale)
	unit("downscale", &p.Downscale, d.Propagation.Downscale)
	unit("percept_threshold", &p.PerceptThreshold, d.Propagation.PerceptThreshold)
	unit("propagation_threshold", &p.PropagationThreshold, d.Propagation.PropagationThreshold)
	unit("refractory_threshold", &p.RefractoryThreshold, d.Propagation.RefractoryThreshold)
	atLeast("max_depth", &p.MaxDepth, 1, d.Propagation.MaxDepth)
	delay := func(name string, v *int, def int) {
		if *v == 0 {
			logger.Warn("tick delay 0 raised to 1; a task never runs on the tick that scheduled it", "key", name)
			*v = 1
			return
		}
		atLeast(name, v, 1, def)
	}
	delay("excitation_ticks", &p.ExcitationTicks, d.Propagation.ExcitationTicks)
	delay("propagation_ticks", &p.PropagationTicks, d.Propagation.PropagationTicks)

	atLeast("workers", &c.Scheduler.Workers, 1, d.Scheduler.Workers)
	atLeast("max_pending", &c.Scheduler.MaxPending, 0, d.Scheduler.MaxPending)
	if c.Scheduler.TickInterval <= 0 {
		logger.Warn("config value out of range, using default", "key", "tick_interval", "value", c.Scheduler.TickInterval)
		c.Scheduler.TickInterval = d.Scheduler.TickInterval
	}

	if !validStrategies[c.Decay.Strategy] {
		logger.Warn("unknown decay strategy, using default", "strategy", c.Decay.Strategy)
		c.Decay.Strategy = d.Decay.Strategy
	}
	if c.Decay.Rate < 0 {
		logger.Warn("negative decay rate, using default", "rate", c.Decay.Rate)
		c.Decay.Rate = d.Decay.Rate
	}
	atLeast("decay.interval", &c.Decay.Interval, 0, d.Decay.Interval)

	if !validBackends[c.Store.Backend] {
		logger.Warn("unknown store backend, using default", "backend", c.Store.Backend)
		c.Store.Backend = d.Store.Backend
	}
	if !validLevels[c.Logging.Level] {
		c.Logging.Level = d.Logging.Level
	}

	_, _, bad := ParsePerceptMappings(p.PerceptMappings)
	for _, entry := range bad {
		logger.Warn("ignoring malformed percept mapping", "entry", entry)
	}
}

// ParsePerceptMappings splits "kind,originalType,mappedType" entries into
// node and link type maps. Malformed entries are returned in bad.
func ParsePerceptMappings(entries []string) (nodes, links map[string]string, bad []string) {
	nodes = make(map[string]string)
	links = make(map[string]string)
	for _, entry := range entries {
		parts := strings.Split(entry, ",")
		if len(parts) != 3 {
			bad = append(bad, entry)
			continue
		}
		kind := strings.TrimSpace(parts[0])
		from := strings.TrimSpace(parts[1])
		to := strings.TrimSpace(parts[2])
		if from == "" || to == "" {
			bad = append(bad, entry)
			continue
		}
		switch kind {
		case "node":
			nodes[from] = to
		case "link":
			links[from] = to
		default:
			bad = append(bad, entry)
		}
	}
	return nodes, links, bad
}

// EngineConfig converts the configuration into spreading engine parameters.
// Call Sanitize first; an invalid decay strategy here is an error.
func (c *PamConfig) EngineConfig() (spreading.Config, error) {
	decay, err := graph.NewDecayStrategy(c.Decay.Strategy, c.Decay.Rate)
	if err != nil {
		return spreading.Config{}, err
	}
	nodes, links, _ := ParsePerceptMappings(c.Propagation.PerceptMappings)
	p := c.Propagation
	return spreading.Config{
		Upscale:              p.Upscale,
		Downscale:            p.Downscale,
		PerceptThreshold:     p.PerceptThreshold,
		ExcitationTicks:      p.ExcitationTicks,
		PropagationTicks:     p.PropagationTicks,
		PropagationThreshold: p.PropagationThreshold,
		MaxDepth:             p.MaxDepth,
		RefractoryThreshold:  p.RefractoryThreshold,
		MaxPending:           c.Scheduler.MaxPending,
		PredictedObjects:     p.PredictedObjects,
		NodeTypeMap:          nodes,
		LinkTypeMap:          links,
		DecayInterval:        c.Decay.Interval,
		Decay:                decay,
	}, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *PamConfig) {
	floats := map[string]*float64{
		"PAMEM_UPSCALE":               &config.Propagation.Upscale,
		"PAMEM_DOWNSCALE":             &config.Propagation.Downscale,
		"PAMEM_PERCEPT_THRESHOLD":     &config.Propagation.PerceptThreshold,
		"PAMEM_PROPAGATION_THRESHOLD": &config.Propagation.PropagationThreshold,
		"PAMEM_REFRACTORY_THRESHOLD":  &config.Propagation.RefractoryThreshold,
		"PAMEM_DECAY_RATE":            &config.Decay.Rate,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	ints := map[string]*int{
		"PAMEM_MAX_DEPTH":      &config.Propagation.MaxDepth,
		"PAMEM_WORKERS":        &config.Scheduler.Workers,
		"PAMEM_MAX_PENDING":    &config.Scheduler.MaxPending,
		"PAMEM_DECAY_INTERVAL": &config.Decay.Interval,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	if v := os.Getenv("PAMEM_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Scheduler.TickInterval = d
		}
	}
	if v := os.Getenv("PAMEM_DECAY_STRATEGY"); v != "" {
		config.Decay.Strategy = v
	}
	if v := os.Getenv("PAMEM_STORE_BACKEND"); v != "" {
		config.Store.Backend = v
	}
	if v := os.Getenv("PAMEM_STORE_PATH"); v != "" {
		config.Store.Path = v
	}
	if v := os.Getenv("PAMEM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
