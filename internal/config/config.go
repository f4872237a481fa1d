// Package config loads the TOML configuration of the fiberjobs command.
//
// Every section is optional; missing keys keep the values of Default.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Swind/go-fiber-jobs/core"
)

// File is the root of a configuration file.
type File struct {
	JobSystem JobSystem `toml:"job_system"`
	Log       Log       `toml:"log"`
	Metrics   Metrics   `toml:"metrics"`
	Workload  Workload  `toml:"workload"`
}

// JobSystem holds the fixed pool sizes and scheduler tuning.
type JobSystem struct {
	NumFibers       int  `toml:"num_fibers"`
	MaxNumThreads   int  `toml:"max_num_threads"`
	HistoryCapacity int  `toml:"history_capacity"`
	Idle            Idle `toml:"idle"`
}

// Idle selects what an idle scheduler loop does. Durations are TOML strings
// such as "10us" or "1ms".
type Idle struct {
	Strategy     string        `toml:"strategy"`
	InitialDelay time.Duration `toml:"initial_delay"`
	MaxDelay     time.Duration `toml:"max_delay"`
	BackoffRatio float64       `toml:"backoff_ratio"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr         string        `toml:"addr"`
	Namespace    string        `toml:"namespace"`
	PollInterval time.Duration `toml:"poll_interval"`
}

// Workload sizes the demonstration workload run by the command.
type Workload struct {
	// Items is the length of the input summed by the parallel sum stage.
	Items int `toml:"items"`
	// ChunkSize is the number of items per job in the parallel sum stage.
	ChunkSize int `toml:"chunk_size"`
	// Fanout is the number of child jobs each nested job submits.
	Fanout int `toml:"fanout"`
	// Depth is the nesting depth of the nested batch stage.
	Depth int `toml:"depth"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	idle := core.DefaultIdlePolicy()
	return &File{
		JobSystem: JobSystem{
			NumFibers:       core.DefaultNumFibers,
			MaxNumThreads:   0,
			HistoryCapacity: 100,
			Idle: Idle{
				Strategy:     idle.Strategy.String(),
				InitialDelay: idle.InitialDelay,
				MaxDelay:     idle.MaxDelay,
				BackoffRatio: idle.BackoffRatio,
			},
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Metrics: Metrics{
			Namespace:    "fiberjobs",
			PollInterval: time.Second,
		},
		Workload: Workload{
			Items:     1 << 20,
			ChunkSize: 1 << 14,
			Fanout:    4,
			Depth:     3,
		},
	}
}

// Load reads the file at path on top of Default. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func Load(path string) (*File, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: %q: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges. Pool size consistency against the hardware
// thread count is checked later by core.NewJobSystemWithConfig.
func (f *File) Validate() error {
	var errs []error
	js := f.JobSystem
	if js.NumFibers < 1 {
		errs = append(errs, fmt.Errorf("job_system.num_fibers must be at least 1, got %d", js.NumFibers))
	}
	if js.MaxNumThreads < 0 {
		errs = append(errs, fmt.Errorf("job_system.max_num_threads must not be negative, got %d", js.MaxNumThreads))
	}
	if _, ok := core.ParseIdleStrategy(js.Idle.Strategy); !ok {
		errs = append(errs, fmt.Errorf("job_system.idle.strategy %q is not one of yield, spin, backoff", js.Idle.Strategy))
	}
	if js.Idle.BackoffRatio < 1 {
		errs = append(errs, fmt.Errorf("job_system.idle.backoff_ratio must be at least 1, got %g", js.Idle.BackoffRatio))
	}
	if js.Idle.MaxDelay > 0 && js.Idle.InitialDelay > js.Idle.MaxDelay {
		errs = append(errs, fmt.Errorf("job_system.idle.initial_delay %v exceeds max_delay %v", js.Idle.InitialDelay, js.Idle.MaxDelay))
	}
	if _, err := core.ParseLogLevel(f.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch f.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of console, json", f.Log.Format))
	}
	w := f.Workload
	if w.Items < 0 || w.ChunkSize < 1 || w.Fanout < 0 || w.Depth < 0 {
		errs = append(errs, fmt.Errorf("workload values out of range: %+v", w))
	}
	return errors.Join(errs...)
}

// IdlePolicy converts the idle section.
func (f *File) IdlePolicy() core.IdlePolicy {
	strategy, _ := core.ParseIdleStrategy(f.JobSystem.Idle.Strategy)
	return core.IdlePolicy{
		Strategy:     strategy,
		InitialDelay: f.JobSystem.Idle.InitialDelay,
		MaxDelay:     f.JobSystem.Idle.MaxDelay,
		BackoffRatio: f.JobSystem.Idle.BackoffRatio,
	}
}

// NewLogger builds the logger described by the log section, writing to w.
func (f *File) NewLogger(w io.Writer) (core.Logger, error) {
	level, err := core.ParseLogLevel(f.Log.Level)
	if err != nil {
		return nil, err
	}
	if f.Log.Format == "json" {
		return core.NewJSONLogger(w, level), nil
	}
	return core.NewConsoleLogger(w, level), nil
}

// CoreConfig converts the job_system section into a core.Config using logger.
func (f *File) CoreConfig(logger core.Logger) *core.Config {
	cfg := core.DefaultConfig()
	cfg.NumFibers = f.JobSystem.NumFibers
	cfg.MaxNumThreads = f.JobSystem.MaxNumThreads
	cfg.HistoryCapacity = f.JobSystem.HistoryCapacity
	cfg.Idle = f.IdlePolicy()
	if logger != nil {
		cfg.Logger = logger
	}
	return cfg
}
