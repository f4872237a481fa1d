// Command fiberjobs runs a demonstration workload on the fiber job system.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "fiberjobs",
		Usage: "run workloads on a fiber-based job system",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
				EnvVars: []string{"FIBERJOBS_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			RunCommand(),
			ConfigCommand(),
		},
		DefaultCommand: "run",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
