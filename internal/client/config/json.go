package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/dmitrijs2005/customuploader/internal/client/models"
	"github.com/dmitrijs2005/customuploader/internal/filex"
	"github.com/dmitrijs2005/customuploader/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON (un)marshalling. Pointer
// fields distinguish "absent" from zero values, so a file only overrides what
// it mentions.
type JsonConfig struct {
	Uploaders           []models.UploaderProfile `json:"uploaders,omitempty"`
	SelectedUploader    *string                  `json:"selected_uploader,omitempty"`
	HistoryDSN          *string                  `json:"history_dsn,omitempty"`
	Timeout             *timex.Duration          `json:"timeout,omitempty"`
	Parallel            *int                     `json:"parallel,omitempty"`
	MaxFileSize         *int64                   `json:"max_file_size,omitempty"`
	UserAgent           *string                  `json:"user_agent,omitempty"`
	LogLevel            *string                  `json:"log_level,omitempty"`
	LogFormat           *string                  `json:"log_format,omitempty"`
	RequireKeyInRequest *bool                    `json:"require_key_in_request,omitempty"`
}

// readJSONC reads a JSON file that may contain comments and trailing commas.
func readJSONC(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := json.Unmarshal(jsonc.ToJSONInPlace(data), v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// parseJSON overlays cfg with the values present in the file at path.
func parseJSON(cfg *Config, path string) error {
	var jc JsonConfig
	if err := readJSONC(path, &jc); err != nil {
		return err
	}

	if jc.Uploaders != nil {
		cfg.Uploaders = jc.Uploaders
	}
	setIf(&cfg.SelectedUploader, jc.SelectedUploader)
	setIf(&cfg.HistoryDSN, jc.HistoryDSN)
	if jc.Timeout != nil {
		cfg.Timeout = time.Duration(jc.Timeout.Duration)
	}
	setIf(&cfg.Parallel, jc.Parallel)
	setIf(&cfg.MaxFileSize, jc.MaxFileSize)
	setIf(&cfg.UserAgent, jc.UserAgent)
	setIf(&cfg.LogLevel, jc.LogLevel)
	setIf(&cfg.LogFormat, jc.LogFormat)
	setIf(&cfg.RequireKeyInRequest, jc.RequireKeyInRequest)

	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Save writes the whole configuration to path as indented JSON. Comments of
// a previous file are not preserved.
func (c *Config) Save(path string) error {
	jc := JsonConfig{
		Uploaders:           c.Uploaders,
		SelectedUploader:    &c.SelectedUploader,
		HistoryDSN:          &c.HistoryDSN,
		Timeout:             &timex.Duration{Duration: c.Timeout},
		Parallel:            &c.Parallel,
		MaxFileSize:         &c.MaxFileSize,
		UserAgent:           &c.UserAgent,
		LogLevel:            &c.LogLevel,
		LogFormat:           &c.LogFormat,
		RequireKeyInRequest: &c.RequireKeyInRequest,
	}

	data, err := json.MarshalIndent(jc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if _, err := filex.EnsureParentDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ImportSXCU reads a ShareX custom uploader file. The profile is normalized
// and validated; a missing Name falls back to the file name.
func ImportSXCU(path string) (*models.UploaderProfile, error) {
	var p models.UploaderProfile
	if err := readJSONC(path, &p); err != nil {
		return nil, err
	}

	if p.Name == "" {
		p.Name = trimExt(path)
	}

	if err := ValidateProfile(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func trimExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
