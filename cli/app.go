// Package cli contains the rangesim command line interface.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"go.viam.com/rangesim/logging"
)

const (
	// Flags.
	generalFlagConfig  = "config"
	generalFlagDebug   = "debug"
	generalFlagLogFile = "log-file"

	scanFlagSensor = "sensor"

	runFlagTicks     = "ticks"
	runFlagRealtime  = "realtime"
	runFlagWatch     = "watch"
	runFlagRenderDir = "render-dir"
	runFlagPlot      = "plot"

	defaultRunTicks = 10

	logFileKey = "log-file"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:      generalFlagConfig,
		Aliases:   []string{"c"},
		Usage:     "load the world from `FILE`",
		Required:  true,
		TakesFile: true,
	}
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "rangesim",
		Usage:           "simulate scanning laser rangefinders",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Metadata:        map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:      generalFlagLogFile,
				Usage:     "also write JSON logs to `FILE`, rotating it as it grows",
				TakesFile: true,
			},
		},
		Before: func(c *cli.Context) error {
			if path := c.String(generalFlagLogFile); path != "" {
				c.App.Metadata[logFileKey] = logging.NewFileAppender(path)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if fa, ok := c.App.Metadata[logFileKey].(*logging.FileAppender); ok {
				return fa.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "check a world file without running it",
				UsageText: "rangesim validate --config <world.json>",
				Flags:     []cli.Flag{configFlag()},
				Action:    ValidateAction,
			},
			{
				Name:      "scan",
				Usage:     "run a single tick and print every laser's samples",
				UsageText: "rangesim scan --config <world.json> [--sensor <name>]",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  scanFlagSensor,
						Usage: "only print the sensor with this name",
					},
				},
				Action: ScanAction,
			},
			{
				Name:      "run",
				Usage:     "step the simulation and optionally render each scan",
				UsageText: "rangesim run --config <world.json> [other options]",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  runFlagTicks,
						Usage: "number of ticks to simulate",
						Value: defaultRunTicks,
					},
					&cli.BoolFlag{
						Name:  runFlagRealtime,
						Usage: "step once per tick of wall time instead of as fast as possible",
					},
					&cli.BoolFlag{
						Name:  runFlagWatch,
						Usage: "apply changes to the world file between ticks",
					},
					&cli.StringFlag{
						Name:      runFlagRenderDir,
						Usage:     "write a PNG of every new scan to `DIR`",
						TakesFile: true,
					},
					&cli.BoolFlag{
						Name:  runFlagPlot,
						Usage: "also write a range plot per laser to the render directory when done",
					},
				},
				Action: RunAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of world files",
				Action: SchemaAction,
			},
		},
	}
}

// newLogger returns a logger that writes to the app's error writer so command output stays
// parseable.
func newLogger(c *cli.Context) logging.Logger {
	logger := logging.NewBlankLogger("rangesim")
	logger.AddAppender(zapcore.NewCore(
		zapcore.NewConsoleEncoder(logging.NewLoggerConfig().EncoderConfig),
		zapcore.AddSync(c.App.ErrWriter),
		zapcore.DebugLevel,
	))
	if fa, ok := c.App.Metadata[logFileKey].(*logging.FileAppender); ok {
		logger.AddAppender(fa)
	}
	if c.Bool(generalFlagDebug) {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(logging.WARN)
	}
	return logger
}
