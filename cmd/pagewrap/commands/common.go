package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagewrap/internal/config"
)

// EnvLogLevel overrides the configured log level unless --verbose is set.
const EnvLogLevel = "PAGEWRAP_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"pagewrap.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Assemble all pages (or the scope of one changed path) into the destination tree"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild on change and serve the destination tree with live reload"`
	Plan    PlanCmd    `cmd:"" help:"Show the rebuild scope and source to destination mapping without writing"`
	History HistoryCmd `cmd:"" help:"List recent assembly passes from the build journal"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; it installs the bootstrap logger used
// until the configuration file has been read.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(newLogger(os.Stderr, c.Verbose, config.LoggingConfig{}))
	return nil
}

// newLogger builds the process logger. Precedence for the level is
// --verbose, then PAGEWRAP_LOG_LEVEL, then the configuration.
func newLogger(w io.Writer, verbose bool, lc config.LoggingConfig) *slog.Logger {
	level := config.NormalizeLogLevel(string(lc.Level))
	if env := os.Getenv(EnvLogLevel); env != "" {
		level = config.NormalizeLogLevel(env)
	}
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if config.NormalizeLogFormat(string(lc.Format)) == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig reads root.Config and reinstalls the default logger with the
// configured level and format.
func loadConfig(root *CLI) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, slog.Default(), err
	}
	logger := newLogger(os.Stderr, root.Verbose, cfg.Logging)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
