package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/studycircle/internal/flagx"
)

// parseFlags overlays cfg with command-line flags.
//
//	-s string     storage backend (memory, file, sqlite, postgres, redis)
//	-d string     data directory for the file and sqlite backends
//	-k string     storage key of the identity record
//	-l duration   simulated backend latency, e.g. 500ms
//	-v string     log level (debug, info, warn, error)
//
// args is filtered with flagx.FilterArgs first so flags owned by other
// parsers (-c) do not cause errors.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-s", "-d", "-k", "-l", "-v"})

	fs := flag.NewFlagSet("studycircle", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Storage, "s", cfg.Storage, "storage backend")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.StorageKey, "k", cfg.StorageKey, "storage key")
	fs.DurationVar(&cfg.Latency, "l", cfg.Latency, "simulated backend latency")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
