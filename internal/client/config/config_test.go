package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/customuploader/internal/client/models"
	"github.com/dmitrijs2005/customuploader/internal/common"
)

// isolate points the user config dir at an empty temp dir and clears
// CUPLOAD_* variables that could leak in from the environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	for _, name := range []string{"CONFIG", "UPLOADER", "HISTORY_DSN", "TIMEOUT", "PARALLEL",
		"MAX_FILE_SIZE", "USER_AGENT", "LOG_LEVEL", "LOG_FORMAT", "REQUIRE_KEY"} {
		t.Setenv(envPrefix+name, "")
		require.NoError(t, os.Unsetenv(envPrefix+name))
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleConfig = `{
	// comments are allowed
	"uploaders": [
		{
			"Name": "paste",
			"RequestMethod": "post",
			"RequestURL": "https://paste.example/api",
			"Body": "JSON",
			"Data": "{\"key\":\"{key}\"}",
			"Encrypt": true,
		},
		{"Name": "img", "RequestURL": "https://img.example/up", "FileFormName": "file"},
	],
	"selected_uploader": "img",
	"timeout": "15s",
	"parallel": 2,
	"log_level": "debug",
}`

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	var c Config
	c.LoadDefaults()

	assert.Equal(t, 60*time.Second, c.Timeout)
	assert.Equal(t, 4, c.Parallel)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.True(t, c.RequireKeyInRequest)
	assert.Equal(t, common.DefaultUserAgent, c.UserAgent)
	assert.Equal(t, filepath.Join(dir, AppName, "history.db"), c.HistoryDSN)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	if diff := cmp.Diff(&want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_ExplicitMissingFileFails(t *testing.T) {
	dir := isolate(t)
	_, err := LoadConfig(filepath.Join(dir, "nope.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_JSONC(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.json", sampleConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Uploaders, 2)
	assert.Equal(t, "POST", cfg.Uploaders[0].RequestMethod, "normalized by Validate")
	assert.Equal(t, models.BodyJSON, cfg.Uploaders[0].Body)
	assert.Equal(t, models.BodyMultipartFormData, cfg.Uploaders[1].Body)
	assert.Equal(t, "img", cfg.SelectedUploader)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Parallel)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat, "absent fields keep defaults")
	assert.True(t, cfg.RequireKeyInRequest)
}

func TestLoadConfig_DefaultLocation(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, AppName), 0o700))
	writeFile(t, filepath.Join(dir, AppName), "config.json", `{"parallel": 9}`)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Parallel)
}

func TestLoadConfig_EnvConfigPath(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "other.json", `{"parallel": 7}`)
	t.Setenv("CUPLOAD_CONFIG", path)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Parallel)
}

func TestLoadConfig_UnknownBodyMode(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.json", `{"uploaders":[{"Name":"x","RequestURL":"http://x","Body":"Yaml"}]}`)

	_, err := LoadConfig(path)
	require.ErrorIs(t, err, common.ErrUnsupportedBodyFormat)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.json", sampleConfig)

	t.Setenv("CUPLOAD_UPLOADER", "paste")
	t.Setenv("CUPLOAD_TIMEOUT", "2m")
	t.Setenv("CUPLOAD_PARALLEL", "8")
	t.Setenv("CUPLOAD_REQUIRE_KEY", "false")
	t.Setenv("CUPLOAD_LOG_FORMAT", "json")
	t.Setenv("CUPLOAD_HISTORY_DSN", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "paste", cfg.SelectedUploader)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, 8, cfg.Parallel)
	assert.False(t, cfg.RequireKeyInRequest)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.HistoryDSN, "an empty variable disables history")
}

func TestParseEnv_Errors(t *testing.T) {
	for _, name := range []string{"TIMEOUT", "PARALLEL", "MAX_FILE_SIZE", "REQUIRE_KEY"} {
		t.Run(name, func(t *testing.T) {
			var cfg Config
			cfg.LoadDefaults()
			lookup := func(k string) (string, bool) {
				if k == envPrefix+name {
					return "not-a-value", true
				}
				return "", false
			}
			require.Error(t, parseEnv(&cfg, lookup))
		})
	}
}

func TestApplyFlags(t *testing.T) {
	isolate(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"-u", "img", "--timeout", "5s", "-p", "3", "--log-level", "error"}))

	require.NoError(t, cfg.ApplyFlags(fs))
	assert.Equal(t, "img", cfg.SelectedUploader)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.Parallel)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat, "unset flags keep loaded values")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		var c Config
		c.LoadDefaults()
		c.Uploaders = []models.UploaderProfile{{Name: "a", RequestURL: "http://a"}}
		return &c
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		target error
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "parallel zero", mutate: func(c *Config) { c.Parallel = 0 }},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }},
		{name: "missing url", mutate: func(c *Config) { c.Uploaders[0].RequestURL = "" }, target: common.ErrInvalidProfile},
		{name: "missing name", mutate: func(c *Config) { c.Uploaders[0].Name = "" }, target: common.ErrInvalidProfile},
		{name: "bad method", mutate: func(c *Config) { c.Uploaders[0].RequestMethod = "FETCH" }, target: common.ErrInvalidProfile},
		{name: "bad body", mutate: func(c *Config) { c.Uploaders[0].Body = "Protobuf" }, target: common.ErrUnsupportedBodyFormat},
		{name: "duplicate names", mutate: func(c *Config) {
			c.Uploaders = append(c.Uploaders, models.UploaderProfile{Name: "a", RequestURL: "http://b"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.name == "ok" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestSelectProfile(t *testing.T) {
	c := &Config{Uploaders: []models.UploaderProfile{
		{Name: "paste", RequestURL: "http://p"},
		{Name: "img", RequestURL: "http://i"},
		{Name: "files", RequestURL: "http://f"},
	}}

	tests := []struct {
		name     string
		selected string
		override string
		want     string
		wantErr  bool
	}{
		{name: "first by default", want: "paste"},
		{name: "selected", selected: "img", want: "img"},
		{name: "override wins", selected: "img", override: "files", want: "files"},
		{name: "case-insensitive", override: "IMG", want: "img"},
		{name: "index", override: "2", want: "files"},
		{name: "index out of range", override: "9", want: "paste"},
		{name: "negative index", override: "-1", want: "paste"},
		{name: "unknown", override: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.SelectedUploader = tt.selected
			p, err := c.SelectProfile(tt.override)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrProfileNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestSelectProfile_ReturnsCopy(t *testing.T) {
	c := &Config{Uploaders: []models.UploaderProfile{{Name: "paste", RequestURL: "http://p"}}}
	p, err := c.SelectProfile("")
	require.NoError(t, err)
	p.RequestURL = "http://changed"
	assert.Equal(t, "http://p", c.Uploaders[0].RequestURL)
}

func TestSelectProfile_NoProfiles(t *testing.T) {
	_, err := (&Config{}).SelectProfile("")
	require.ErrorIs(t, err, common.ErrProfileNotFound)
}

func TestImportSXCU(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "My Host.sxcu", `{
		"Version": "15.0.0",
		"DestinationType": "ImageUploader, FileUploader",
		"RequestMethod": "POST",
		"RequestURL": "https://host.example/upload",
		"Body": "MultipartFormData",
		"FileFormName": "file",
		"Arguments": {"key": "{key}"},
		"URL": "{json:url}"
	}`)

	p, err := ImportSXCU(path)
	require.NoError(t, err)
	assert.Equal(t, "My Host", p.Name, "name falls back to the file name")
	assert.Equal(t, "file", p.FileFormName)
	assert.Equal(t, map[string]string{"key": "{key}"}, p.Arguments)

	bad := writeFile(t, dir, "bad.sxcu", `{"Name":"x"}`)
	_, err = ImportSXCU(bad)
	require.ErrorIs(t, err, common.ErrInvalidProfile)
}

func TestSaveAndReload(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.json")

	var c Config
	c.LoadDefaults()
	c.AddUploader(models.UploaderProfile{Name: "a", RequestURL: "http://a", RequestMethod: "POST", Body: models.BodyBinary})
	c.AddUploader(models.UploaderProfile{Name: "b", RequestURL: "http://b", RequestMethod: "PUT", Body: models.BodyNone})
	c.AddUploader(models.UploaderProfile{Name: "a", RequestURL: "http://a2", RequestMethod: "POST", Body: models.BodyBinary})
	c.SelectedUploader = "b"
	c.Timeout = 42 * time.Second
	c.RequireKeyInRequest = false

	require.Len(t, c.Uploaders, 2)
	require.NoError(t, c.Save(path))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	if diff := cmp.Diff(&c, got); diff != "" {
		t.Fatalf("reloaded config mismatch (-want +got):\n%s", diff)
	}
}

func TestReadFile_IgnoresEnvironment(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.json", `{"parallel": 5}`)
	t.Setenv("CUPLOAD_PARALLEL", "9")

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Parallel)

	missing, err := ReadFile(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 4, missing.Parallel)
}
