package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/customuploader/internal/client/models"
	"github.com/dmitrijs2005/customuploader/internal/common"
)

// AppName names the per-user config and state directories.
const AppName = "cupload"

// Config holds runtime settings for the uploader CLI.
type Config struct {
	Uploaders        []models.UploaderProfile `validate:"unique=Name,dive"`
	SelectedUploader string

	// HistoryDSN is the SQLite database of the upload log. Empty disables
	// history.
	HistoryDSN string

	Timeout     time.Duration `validate:"gte=0"`
	Parallel    int           `validate:"min=1,max=64"`
	MaxFileSize int64         `validate:"gte=0"`
	UserAgent   string

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`

	// RequireKeyInRequest rejects encrypted uploads whose sent templates never
	// expand {key}, since such uploads can never be decrypted.
	RequireKeyInRequest bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Uploaders = nil
	c.SelectedUploader = ""
	c.HistoryDSN = DefaultHistoryPath()
	c.Timeout = 60 * time.Second
	c.Parallel = 4
	c.MaxFileSize = 100 << 20
	c.UserAgent = common.DefaultUserAgent
	c.LogLevel = "warn"
	c.LogFormat = "text"
	c.RequireKeyInRequest = true
}

// LoadConfig builds a Config from defaults, then the JSON file at path (when
// path is empty the default location is used if it exists), then CUPLOAD_*
// environment variables. Flags are applied by the caller with ApplyFlags.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path, explicit := ResolvePath(path)
	if path != "" {
		err := parseJSON(cfg, path)
		switch {
		case err == nil:
		case !explicit && errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := parseEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResolvePath returns the config file to use: path itself, else
// CUPLOAD_CONFIG, else DefaultConfigPath. explicit is false only for the
// default location, which may legitimately not exist.
func ResolvePath(path string) (resolved string, explicit bool) {
	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		return path, true
	}
	return DefaultConfigPath(), false
}

// ReadFile builds a Config from defaults and the file at path only, ignoring
// the environment. A missing file yields defaults. It is meant for editing the
// file, so that Save does not persist environment overrides.
func ReadFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field ranges and every uploader profile.
func (c *Config) Validate() error {
	for i := range c.Uploaders {
		if err := ValidateProfile(&c.Uploaders[i]); err != nil {
			return err
		}
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	return nil
}

// ValidateProfile normalizes p and checks it.
func ValidateProfile(p *models.UploaderProfile) error {
	p.Normalize()

	if _, err := models.ParseBodyMode(string(p.Body)); err != nil {
		return fmt.Errorf("uploader %q: %w", p.Name, err)
	}

	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %q: %w", common.ErrInvalidProfile, p.Name, err)
	}

	return nil
}

// SelectProfile picks the uploader for one call. override may be a profile
// name or a zero-based index; empty means SelectedUploader, and when that is
// empty too the first profile is used. An out-of-range index falls back to
// the first profile.
func (c *Config) SelectProfile(override string) (*models.UploaderProfile, error) {
	if len(c.Uploaders) == 0 {
		return nil, fmt.Errorf("%w: no uploaders configured", common.ErrProfileNotFound)
	}

	name := strings.TrimSpace(override)
	if name == "" {
		name = c.SelectedUploader
	}
	if name == "" {
		return c.profileAt(0), nil
	}

	for i := range c.Uploaders {
		if c.Uploaders[i].Name == name {
			return c.profileAt(i), nil
		}
	}
	for i := range c.Uploaders {
		if strings.EqualFold(c.Uploaders[i].Name, name) {
			return c.profileAt(i), nil
		}
	}

	if idx, err := strconv.Atoi(name); err == nil {
		if idx < 0 || idx >= len(c.Uploaders) {
			idx = 0
		}
		return c.profileAt(idx), nil
	}

	return nil, fmt.Errorf("%w: %q", common.ErrProfileNotFound, name)
}

// profileAt returns a copy, so callers cannot change the configuration.
func (c *Config) profileAt(i int) *models.UploaderProfile {
	p := c.Uploaders[i]
	return &p
}

// AddUploader inserts p, replacing a profile with the same name.
func (c *Config) AddUploader(p models.UploaderProfile) {
	for i := range c.Uploaders {
		if c.Uploaders[i].Name == p.Name {
			c.Uploaders[i] = p
			return
		}
	}
	c.Uploaders = append(c.Uploaders, p)
}

// DefaultConfigPath is <user config dir>/cupload/config.json, or empty when
// the platform has no such directory.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, "config.json")
}

// DefaultHistoryPath is <user config dir>/cupload/history.db, or empty when
// the platform has no such directory.
func DefaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, "history.db")
}
