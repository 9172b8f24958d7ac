package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/confkit-go/internal/cli/output"
	"github.com/yndnr/confkit-go/internal/cli/settings"
	"github.com/yndnr/confkit-go/internal/infra/buildinfo"
	"github.com/yndnr/confkit-go/pkg/confkit"
	"github.com/yndnr/confkit-go/pkg/logger"
	"github.com/yndnr/confkit-go/pkg/metric"
)

// DefaultConfigFile is read when --config is not given.
const DefaultConfigFile = "confkit.yaml"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:        "confkit",
		Usage:       "Resolve typed configuration values from layered sources",
		Version:     buildinfo.Get().Version,
		HideVersion: true,
		Flags:       globalFlags(),
		Commands: []*cli.Command{
			GetCommand(),
			ListCommand(),
			CheckCommand(),
			WatchCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Settings file declaring loaders and keys",
			EnvVars: []string{"CONFKIT_CONFIG"},
			Value:   DefaultConfigFile,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log every resolution and loader event",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config  string
	Output  output.Format
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		Config:  c.String("config"),
		Output:  format,
		Verbose: c.Bool("verbose"),
	}
}

// openKit loads the settings file and builds an initialized Kit. The CLI
// logs at warn level unless the settings or --verbose say otherwise.
func openKit(c *cli.Context, rec *metric.Recorder) (*confkit.Kit, logger.Logger, error) {
	flags := ParseGlobalFlags(c)

	s, err := settings.Load(flags.Config)
	if err != nil {
		return nil, nil, err
	}

	level := s.Log.Level
	if level == "" {
		level = "warn"
	}
	if flags.Verbose {
		level = "debug"
	}
	format := s.Log.Format
	if format == "" {
		format = "text"
	}
	log, err := logger.New(logger.Config{Level: level, Format: format, Output: c.App.ErrWriter})
	if err != nil {
		return nil, nil, err
	}

	kit, err := settings.Build(c.Context, s, settings.BuildOptions{Logger: log, Metrics: rec})
	if err != nil {
		return nil, nil, err
	}
	if err := kit.Init(c.Context); err != nil {
		_ = kit.Close()
		return nil, nil, fmt.Errorf("init loaders: %w", err)
	}
	return kit, log, nil
}

// render writes data to the app writer in the selected output format.
func render(c *cli.Context, data any) error {
	return output.NewFormatter(ParseGlobalFlags(c).Output).Format(c.App.Writer, data)
}
