package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces secrets in log output.
const Redacted = "[REDACTED]"

// keyMaterial matches a nonce‖key bundle: 12+32 bytes in hex.
var keyMaterial = regexp.MustCompile(`(?i)[0-9a-f]{88}`)

// secretKeys are attribute names whose values are never logged.
var secretKeys = map[string]struct{}{
	"key":           {},
	"authorization": {},
	"password":      {},
	"token":         {},
}

// Scrub masks every key bundle in s.
func Scrub(s string) string {
	return keyMaterial.ReplaceAllString(s, Redacted)
}

// redactAttr is a slog ReplaceAttr hook. Upload results carry the key in
// URLs and error texts, so string and error values are scrubbed as well as
// attributes named like secrets.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, Redacted)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		if s := a.Value.String(); keyMaterial.MatchString(s) {
			return slog.String(a.Key, Scrub(s))
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, Scrub(err.Error()))
		}
	}
	return a
}
