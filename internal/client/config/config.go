package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/studycircle/internal/client/repositories/kv"
	"github.com/dmitrijs2005/studycircle/internal/common"
)

// Config holds runtime settings for the Study Circle terminal client.
//
// Durations are time.Duration values; JSON files may spell them as strings
// ("1s") or integer nanoseconds.
type Config struct {
	// Storage selects the kv backend: memory, file, sqlite, postgres or redis.
	Storage     string `env:"STORAGE"`
	DataDir     string `env:"DATA_DIR"`
	FileName    string `env:"FILE_NAME"`
	SQLiteDSN   string `env:"SQLITE_DSN"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	RedisURL    string `env:"REDIS_URL"`
	RedisPrefix string `env:"REDIS_PREFIX"`

	// StorageKey is the slot the identity record is stored under.
	StorageKey string `env:"STORAGE_KEY"`

	// Latency is the simulated backend round trip.
	Latency          time.Duration `env:"LATENCY"`
	SubscriberBuffer int           `env:"SUBSCRIBER_BUFFER"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	// OTLPEndpoint enables tracing when set (host:port of an OTLP/HTTP collector).
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Storage = kv.BackendFile
	c.DataDir = defaultDataDir()
	c.FileName = "session.json"
	c.RedisPrefix = common.AppName + ":"
	c.StorageKey = "user"
	c.Latency = time.Second
	c.SubscriberBuffer = 16
	c.LogLevel = "info"
	c.LogFormat = "text"
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return common.DataDirName
	}
	return filepath.Join(home, common.DataDirName)
}

// StorageOptions maps the storage settings onto kv.Options.
func (c *Config) StorageOptions() kv.Options {
	return kv.Options{
		Backend:            c.Storage,
		DataDir:            c.DataDir,
		FileName:           c.FileName,
		SQLiteDSN:          c.SQLiteDSN,
		PostgresDSN:        c.PostgresDSN,
		RedisURL:           c.RedisURL,
		RedisPrefix:        c.RedisPrefix,
		RedisRetryAttempts: 5,
		RedisRetryInterval: time.Second,
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (after loading an optional .env file), a JSON file (if
// -c/-config is present in args) and command-line flags. Later sources take
// precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, nil); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
