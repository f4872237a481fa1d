package main

import (
	"github.com/BurntSushi/toml"
	"github.com/Swind/go-fiber-jobs/internal/config"
	"github.com/urfave/cli/v2"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:   "config",
		Usage:  "print the effective configuration as TOML",
		Flags:  overrideFlags(),
		Action: ConfigAction,
	}
}

func ConfigAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return toml.NewEncoder(c.App.Writer).Encode(cfg)
}

// loadConfig reads the --config file, if any, and applies flag overrides.
func loadConfig(c *cli.Context) (*config.File, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, cli.Exit(err.Error(), 2)
		}
		cfg = loaded
	}

	if c.IsSet("fibers") {
		cfg.JobSystem.NumFibers = c.Int("fibers")
	}
	if c.IsSet("threads") {
		cfg.JobSystem.MaxNumThreads = c.Int("threads")
	}
	if c.IsSet("idle") {
		cfg.JobSystem.Idle.Strategy = c.String("idle")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}
	if c.IsSet("items") {
		cfg.Workload.Items = c.Int("items")
	}

	if err := cfg.Validate(); err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	return cfg, nil
}

func overrideFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "fibers",
			Aliases: []string{"f"},
			Usage:   "fixed fiber pool size",
		},
		&cli.IntFlag{
			Name:    "threads",
			Aliases: []string{"t"},
			Usage:   "maximum worker thread count (0 = one per CPU)",
		},
		&cli.StringFlag{
			Name:  "idle",
			Usage: "idle strategy: yield, spin or backoff",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "console or json",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "serve Prometheus metrics on this address (empty = disabled)",
		},
		&cli.IntFlag{
			Name:  "items",
			Usage: "input length of the parallel sum stage",
		},
	}
}
