package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/studycircle/internal/common"
)

// EnvPrefix is prepended to every variable name, e.g. STUDYCIRCLE_STORAGE.
var EnvPrefix = strings.ToUpper(common.AppName) + "_"

// loadDotEnv exports the variables of path into the process environment.
// A missing file is not an error; variables already set are not overridden.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseEnv overlays cfg with STUDYCIRCLE_* variables. Unset variables leave
// the current values alone. environ replaces the process environment when
// non-nil.
func parseEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
