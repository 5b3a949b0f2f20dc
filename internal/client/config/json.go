package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/studycircle/internal/flagx"
	"github.com/dmitrijs2005/studycircle/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from "empty" so a file only overrides what it
// names.
type JsonConfig struct {
	Storage          *string         `json:"storage"`
	DataDir          *string         `json:"data_dir"`
	FileName         *string         `json:"file_name"`
	SQLiteDSN        *string         `json:"sqlite_dsn"`
	PostgresDSN      *string         `json:"postgres_dsn"`
	RedisURL         *string         `json:"redis_url"`
	RedisPrefix      *string         `json:"redis_prefix"`
	StorageKey       *string         `json:"storage_key"`
	Latency          *timex.Duration `json:"latency"`
	SubscriberBuffer *int            `json:"subscriber_buffer"`
	LogLevel         *string         `json:"log_level"`
	LogFormat        *string         `json:"log_format"`
	OTLPEndpoint     *string         `json:"otlp_endpoint"`
}

// parseJson overlays cfg with the JSON file named by -c/-config in args. No
// flag means no file.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.Storage, jc.Storage)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.FileName, jc.FileName)
	setString(&cfg.SQLiteDSN, jc.SQLiteDSN)
	setString(&cfg.PostgresDSN, jc.PostgresDSN)
	setString(&cfg.RedisURL, jc.RedisURL)
	setString(&cfg.RedisPrefix, jc.RedisPrefix)
	setString(&cfg.StorageKey, jc.StorageKey)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.OTLPEndpoint, jc.OTLPEndpoint)
	if jc.Latency != nil {
		cfg.Latency = jc.Latency.Duration
	}
	if jc.SubscriberBuffer != nil {
		cfg.SubscriberBuffer = *jc.SubscriberBuffer
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
