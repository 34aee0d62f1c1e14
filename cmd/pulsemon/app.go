package main

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	flagConfig   = "config"
	flagDebug    = "debug"
	flagSimulate = "simulate"
	flagLogFile  = "log-file"
	flagWatch    = "watch"
)

func newApp(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:  "pulsemon",
		Usage: "count pulses on a digital input",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotating it as it grows",
			},
		},
		Writer:    out,
		ErrWriter: out,
		Reader:    in,
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "monitor a board interactively",
				UsageText: "pulsemon run [--config FILE] [--simulate INTERVAL]",
				Description: "Reads commands from standard input: " +
					"start, stop, read [pin], reset, count, help and quit.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load configuration from `FILE`",
					},
					&cli.DurationFlag{
						Name:  flagSimulate,
						Usage: "pulse pin 1 of a fake board every `INTERVAL`",
					},
					&cli.BoolFlag{
						Name:  flagWatch,
						Usage: "apply log level changes made to the config file while running",
					},
				},
				Action: runAction,
			},
			{
				Name:      "validate",
				Usage:     "check a config file",
				UsageText: "pulsemon validate --config FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagConfig,
						Aliases:  []string{"c"},
						Usage:    "load configuration from `FILE`",
						Required: true,
					},
				},
				Action: validateAction,
			},
		},
	}
}
