package config

import (
	"fmt"
	"strconv"
	"time"
)

const envPrefix = "CUPLOAD_"

// parseEnv overlays cfg with CUPLOAD_* variables:
//
//	CUPLOAD_UPLOADER        selected uploader name or index
//	CUPLOAD_HISTORY_DSN     history database, empty disables history
//	CUPLOAD_TIMEOUT         request timeout, e.g. "30s"
//	CUPLOAD_PARALLEL        batch upload parallelism
//	CUPLOAD_MAX_FILE_SIZE   file size limit in bytes
//	CUPLOAD_USER_AGENT      User-Agent header
//	CUPLOAD_LOG_LEVEL       debug, info, warn or error
//	CUPLOAD_LOG_FORMAT      text or json
//	CUPLOAD_REQUIRE_KEY     require {key} in encrypted requests
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}

	str("UPLOADER", &cfg.SelectedUploader)
	str("HISTORY_DSN", &cfg.HistoryDSN)
	str("USER_AGENT", &cfg.UserAgent)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	if v, ok := lookup(envPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", envPrefix, err)
		}
		cfg.Timeout = d
	}
	if v, ok := lookup(envPrefix + "PARALLEL"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPARALLEL: %w", envPrefix, err)
		}
		cfg.Parallel = n
	}
	if v, ok := lookup(envPrefix + "MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_FILE_SIZE: %w", envPrefix, err)
		}
		cfg.MaxFileSize = n
	}
	if v, ok := lookup(envPrefix + "REQUIRE_KEY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sREQUIRE_KEY: %w", envPrefix, err)
		}
		cfg.RequireKeyInRequest = b
	}

	return nil
}
