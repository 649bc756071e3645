// Package config loads runtime configuration for the uploader CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file: the --config flag, else CUPLOAD_CONFIG, else
//     <user config dir>/cupload/config.json when it exists. Comments and
//     trailing commas are allowed.
//  3. CUPLOAD_* environment variables (see parseEnv).
//  4. Command-line flags that were explicitly set (see ApplyFlags).
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "30s"
// or integer nanoseconds. Uploaders use the ShareX .sxcu field names:
//
//	{
//	  // pastebin-like service
//	  "uploaders": [{
//	    "Name": "paste",
//	    "RequestMethod": "POST",
//	    "RequestURL": "https://paste.example/api",
//	    "Body": "JSON",
//	    "Data": "{\"name\":\"{filename}\",\"key\":\"{key}\"}",
//	    "Encrypt": true,
//	    "URL": "{json:url}#{key}"
//	  }],
//	  "selected_uploader": "paste",
//	  "timeout": "30s",
//	  "parallel": 4
//	}
//
// Primary API
//
//   - type Config                         : runtime settings and uploader profiles
//   - func LoadConfig(path) (*Config, error): defaults, JSON file, environment
//   - func (*Config) ApplyFlags(fs)         : explicit flag overrides
//   - func (*Config) Validate()             : range checks and profile validation
//   - func (*Config) SelectProfile(override): picks the uploader for a call
//   - func ImportSXCU(path)                 : reads a ShareX custom uploader file
package config
