// Package config loads runtime configuration for the Study Circle client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables prefixed with STUDYCIRCLE_ (see parseEnv); a
//     .env file in the working directory is loaded first if present.
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-s string     storage backend
//	-d string     data directory
//	-k string     storage key
//	-l duration   simulated backend latency
//	-v string     log level
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the latency, so it can be either a
// string like "1s" or integer nanoseconds. Keys that are absent keep their
// previous value:
//
//	{
//	  "storage": "sqlite",
//	  "data_dir": "/var/lib/studycircle",
//	  "latency": "250ms",
//	  "log_format": "json"
//	}
package config
