package logging

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Attribute keys shared by every log line.
const (
	KeyTool        = "tool"
	KeyVerb        = "verb"
	KeySubVerb     = "sub_verb"
	KeyKubeContext = "kube_context"
	KeyCommand     = "command"
	KeyDecision    = "decision"
	KeyExitCode    = "exit_code"
	KeyDuration    = "duration"
	KeyError       = "error"
	KeyTransport   = "transport"
)

// Log formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const redactedIP = "<redacted-ip>"

var (
	ipv4Pattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)
	// Full, compressed and bracketed IPv6 forms.
	ipv6Pattern = regexp.MustCompile(`\[?([0-9a-fA-F]{0,4}:){2,7}[0-9a-fA-F]{0,4}\]?`)
)

// credentialFlags are kubectl global flags whose values are never logged.
var credentialFlags = map[string]bool{
	"--token":    true,
	"--password": true,
	"--username": true,
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// NewLogger builds a logger writing to w in the given format ("text" or "json").
func NewLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be %q or %q", format, FormatText, FormatJSON)
	}
}

// WithTool returns a logger that tags every record with the tool name.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(Tool(tool))
}

// Attribute constructors for the shared keys.

func Tool(name string) slog.Attr { return slog.String(KeyTool, name) }

func Verb(verb string) slog.Attr { return slog.String(KeyVerb, verb) }

func SubVerb(sub string) slog.Attr { return slog.String(KeySubVerb, sub) }

func KubeContext(name string) slog.Attr { return slog.String(KeyKubeContext, name) }

func ExitCode(code int) slog.Attr { return slog.Int(KeyExitCode, code) }

func Duration(d time.Duration) slog.Attr { return slog.Duration(KeyDuration, d) }

// Err returns the error attribute, empty for a nil error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizedErr is Err with IP addresses redacted. Use it for errors that may
// quote API server addresses.
func SanitizedErr(err error) slog.Attr {
	if err == nil {
		return Err(nil)
	}
	return slog.String(KeyError, SanitizeHost(err.Error()))
}

// Command returns the command attribute with credential values masked.
func Command(tokens []string) slog.Attr {
	return slog.String(KeyCommand, RedactCommand(tokens))
}

func redactIPs(s string) string {
	return ipv6Pattern.ReplaceAllString(ipv4Pattern.ReplaceAllString(s, redactedIP), redactedIP)
}

// SanitizeHost redacts IPv4 and IPv6 addresses in a host, URL or message.
// Hostnames are kept, and for URLs only the host part is touched:
//
//	"https://10.0.0.1:6443"           -> "https://<redacted-ip>:6443"
//	"https://api.example.com:6443"    -> unchanged
//	""                                -> "<empty>"
func SanitizeHost(host string) string {
	if host == "" {
		return "<empty>"
	}
	if strings.Contains(host, "://") {
		if u, err := url.Parse(host); err == nil {
			if redacted := redactIPs(u.Host); redacted != u.Host {
				u.Host = redacted
				return u.String()
			}
			return host
		}
	}
	return redactIPs(host)
}

// maskValue reports only the length of a secret.
func maskValue(v string) string {
	if v == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(v))
}

// RedactCommand joins command tokens for logging, masking the values of
// credential flags in both "--token=x" and "--token x" form.
func RedactCommand(tokens []string) string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		if i > 0 && credentialFlags[tokens[i-1]] {
			out[i] = maskValue(tok)
			continue
		}
		if name, value, ok := strings.Cut(tok, "="); ok && credentialFlags[name] {
			out[i] = name + "=" + maskValue(value)
			continue
		}
		out[i] = tok
	}
	return strings.Join(out, " ")
}
