package cli

import (
	"flag"
	"fmt"
	"io"
)

// CLIArgs are the command-line arguments of the server binary. Empty
// string fields mean "not given"; the caller falls back to the loaded
// config for those.
type CLIArgs struct {
	// ConfigPath points at an optional YAML config file.
	ConfigPath string

	// Addr overrides the configured listen address.
	Addr string

	// DBPath overrides the configured history database path.
	DBPath string

	// LogLevel overrides the configured log level.
	LogLevel string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by
// passing arbitrary slices. The function is deterministic and does not
// read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("confiable", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "Path to a YAML config file")
		addr       = fs.String("addr", "", "HTTP listen address (overrides config)")
		dbPath     = fs.String("db", "", "SQLite history database path (overrides config)")
		logLevel   = fs.String("log-level", "", "Log level: debug|info|warn|error (overrides config)")
	)

	// Keep Parse quiet in tests; errors are returned, not printed.
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	return &CLIArgs{
		ConfigPath: *configPath,
		Addr:       *addr,
		DBPath:     *dbPath,
		LogLevel:   *logLevel,
		RawArgs:    args,
	}, nil
}
