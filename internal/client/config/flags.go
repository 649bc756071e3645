package config

import "github.com/spf13/pflag"

// Flag names shared by the CLI and ApplyFlags.
const (
	FlagConfig    = "config"
	FlagUploader  = "uploader"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
	FlagHistory   = "history"
	FlagTimeout   = "timeout"
	FlagParallel  = "parallel"
)

// BindFlags registers the global flags on fs. Defaults shown in help come
// from a default Config; only flags the user actually set override loaded
// values in ApplyFlags.
func BindFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "path to the JSON config file")
	fs.StringP(FlagUploader, "u", "", "uploader name or index")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warn, error")
	fs.String(FlagLogFormat, d.LogFormat, "log format: text or json")
	fs.String(FlagHistory, d.HistoryDSN, "history database path, empty to disable")
	fs.Duration(FlagTimeout, d.Timeout, "HTTP request timeout")
	fs.IntP(FlagParallel, "p", d.Parallel, "parallel uploads for batches")
}

// ApplyFlags overlays cfg with the flags that were set on fs.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagUploader:
			c.SelectedUploader = f.Value.String()
		case FlagLogLevel:
			c.LogLevel = f.Value.String()
		case FlagLogFormat:
			c.LogFormat = f.Value.String()
		case FlagHistory:
			c.HistoryDSN = f.Value.String()
		case FlagTimeout:
			c.Timeout, err = fs.GetDuration(FlagTimeout)
		case FlagParallel:
			c.Parallel, err = fs.GetInt(FlagParallel)
		}
	})
	return err
}
