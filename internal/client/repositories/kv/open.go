package kv

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/studycircle/internal/filex"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string

	// DataDir holds the file and default SQLite stores.
	DataDir  string
	FileName string

	SQLiteDSN   string
	PostgresDSN string

	RedisURL           string
	RedisPrefix        string
	RedisRetryAttempts int
	RedisRetryInterval time.Duration
}

// Open builds the backend named by opts.Backend. The returned close function
// releases the underlying connection and is never nil.
func Open(ctx context.Context, opts Options) (Repository, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case BackendMemory:
		return NewMemoryRepository(), noop, nil

	case BackendFile, "":
		dir, err := filex.EnsureDir(opts.DataDir)
		if err != nil {
			return nil, noop, err
		}
		return NewFileRepository(filepath.Join(dir, opts.FileName)), noop, nil

	case BackendSQLite:
		dsn := opts.SQLiteDSN
		if dsn == "" {
			dir, err := filex.EnsureDir(opts.DataDir)
			if err != nil {
				return nil, noop, err
			}
			dsn = filepath.Join(dir, "session.db")
		}
		db, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, noop, err
		}
		return NewSQLiteRepository(db), db.Close, nil

	case BackendPostgres:
		db, err := OpenPostgres(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		return NewPostgresRepository(db), db.Close, nil

	case BackendRedis:
		client, err := ConnectRedis(ctx, opts.RedisURL, opts.RedisRetryAttempts, opts.RedisRetryInterval)
		if err != nil {
			return nil, noop, err
		}
		return NewRedisRepository(client, opts.RedisPrefix), client.Close, nil

	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
