package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/mcp-kubectl/internal/logging"
	"github.com/giantswarm/mcp-kubectl/internal/server/middleware"
)

// Transport type constants for the MCP server.
const (
	transportStdio          = "stdio"
	transportSSE            = "sse"
	transportStreamableHTTP = "streamable-http"
)

// envPrefix prefixes the environment variable of every serve flag,
// e.g. --read-only is read from MCP_KUBECTL_READ_ONLY.
const envPrefix = "MCP_KUBECTL_"

// configFileFlag names the flag pointing at the YAML config file. It is
// never itself read from the file.
const configFileFlag = "config"

// ServeConfig holds all configuration for the serve command.
type ServeConfig struct {
	// Transport settings
	Transport string
	HTTPAddr  string

	// Endpoint paths
	SSEEndpoint     string
	MessageEndpoint string
	HTTPEndpoint    string

	// Kubeconfig and kubectl settings
	Kubeconfig     string
	Context        string
	KubectlPath    string
	CommandTimeout time.Duration

	ReadOnly       bool
	MaxOutputBytes int
	MaskSecrets    bool

	LogLevel  string
	LogFormat string
	DebugMode bool

	// HTTP hardening
	AllowedOrigins  string
	MaxRequestBytes int64
	EnableHSTS      bool

	Metrics MetricsServeConfig
}

// MetricsServeConfig holds configuration for the dedicated metrics server.
type MetricsServeConfig struct {
	Enabled bool
	Addr    string
}

// Validate checks the configuration for values the server cannot start with.
func (c ServeConfig) Validate() error {
	switch c.Transport {
	case transportStdio, transportSSE, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s, %s)",
			c.Transport, transportStdio, transportSSE, transportStreamableHTTP)
	}

	if c.Transport == transportSSE {
		if err := validateEndpoint("sse-endpoint", c.SSEEndpoint); err != nil {
			return err
		}
		if err := validateEndpoint("message-endpoint", c.MessageEndpoint); err != nil {
			return err
		}
		if c.SSEEndpoint == c.MessageEndpoint {
			return fmt.Errorf("--sse-endpoint and --message-endpoint must differ, both are %q", c.SSEEndpoint)
		}
	}
	if c.Transport == transportStreamableHTTP {
		if err := validateEndpoint("http-endpoint", c.HTTPEndpoint); err != nil {
			return err
		}
	}

	if c.CommandTimeout < 0 {
		return fmt.Errorf("--command-timeout must not be negative, got %s", c.CommandTimeout)
	}
	if c.MaxOutputBytes < 0 {
		return fmt.Errorf("--max-output-bytes must not be negative, got %d", c.MaxOutputBytes)
	}
	if c.MaxRequestBytes < 0 {
		return fmt.Errorf("--max-request-bytes must not be negative, got %d", c.MaxRequestBytes)
	}

	if _, err := logging.ParseLevel(c.effectiveLogLevel()); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log format %q: must be %q or %q", c.LogFormat, logging.FormatText, logging.FormatJSON)
	}

	if _, err := middleware.ValidateAllowedOrigins(c.AllowedOrigins); err != nil {
		return fmt.Errorf("invalid --allowed-origins: %w", err)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("--metrics-addr is required when the metrics server is enabled")
	}

	return nil
}

// effectiveLogLevel returns "debug" in debug mode and the configured level otherwise.
func (c ServeConfig) effectiveLogLevel() string {
	if c.DebugMode {
		return "debug"
	}
	return c.LogLevel
}

func validateEndpoint(flag, path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("--%s must be an absolute path starting with '/', got %q", flag, path)
	}
	return nil
}

// envVarName returns the environment variable consulted for a flag.
func envVarName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// layerServeFlags fills every flag the user did not set on the command line,
// first from the YAML config file at path and then from the environment.
// Flags left untouched keep their defaults.
func layerServeFlags(flags *pflag.FlagSet, path string, getenv func(string) string) error {
	fileValues, err := loadConfigFile(path)
	if err != nil {
		return err
	}

	var unknown []string
	for key := range fileValues {
		if key == configFileFlag || flags.Lookup(key) == nil {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(unknown, ", "))
	}

	type pending struct {
		name, value, source string
	}
	var updates []pending
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == configFileFlag {
			return
		}
		if v, ok := fileValues[f.Name]; ok {
			updates = append(updates, pending{f.Name, v, "config file key " + f.Name})
			return
		}
		env := envVarName(f.Name)
		if v := getenv(env); v != "" {
			updates = append(updates, pending{f.Name, v, "environment variable " + env})
		}
	})

	var errs []error
	for _, u := range updates {
		if err := flags.Set(u.name, u.value); err != nil {
			errs = append(errs, fmt.Errorf("invalid value %q from %s: %w", u.value, u.source, err))
		}
	}
	return errors.Join(errs...)
}

// loadConfigFile reads a YAML mapping of flag names to values. Lists are
// joined with commas. An empty path yields no values.
func loadConfigFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for key, v := range raw {
		switch v := v.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			values[key] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("config file key %q must be a scalar or list", key)
		default:
			values[key] = fmt.Sprint(v)
		}
	}
	return values, nil
}
