// Package config loads the console's runtime settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultBaseURL          = "http://localhost:7557"
	defaultQueryTimeout     = 10 * time.Second
	defaultMutationTimeout  = 15 * time.Second
	defaultBindAddress      = "0.0.0.0"
	defaultPort             = 3000
	defaultMetricsPort      = 9091
	defaultMutationLimit    = 60
	defaultBulkConcurrency  = 4
	defaultDNSCacheTTL      = 5 * time.Minute
	maxBulkRebootConcurrent = 64
)

// Config holds all runtime settings. It is read once at start and injected into constructors.
type Config struct {
	// GenieACS northbound interface
	GenieACSBaseURL   string
	GenieACSUsername  string
	GenieACSPassword  string
	QueryTimeout      time.Duration
	MutationTimeout   time.Duration
	VerifySSL         bool
	TLSFingerprint    string
	ConnectionRequest bool

	// HTTP server
	BindAddress string
	Port        int
	MetricsPort int

	// Logging
	LogLevel  string
	LogFormat string

	MutationRateLimit     int
	BulkRebootConcurrency int
	DNSCacheTTL           time.Duration
}

// Addr returns the listen address of the API server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

// MetricsAddr returns the listen address of the metrics server, or "" when disabled.
func (c *Config) MetricsAddr() string {
	if c.MetricsPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.BindAddress, c.MetricsPort)
}

// ClientTimeout is the outer bound applied by the ACS client to every call.
func (c *Config) ClientTimeout() time.Duration {
	return max(c.QueryTimeout, c.MutationTimeout)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.GenieACSPassword != "" {
		c.GenieACSPassword = "********"
	}
	return c
}

// Load reads configuration from environment variables.
// A .env file is loaded if present but not required.
func Load() (*Config, error) {
	// Best-effort .env loading (not required)
	_ = godotenv.Load()

	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	queryTimeout, mutationTimeout := defaultQueryTimeout, defaultMutationTimeout
	if raw := strings.TrimSpace(os.Getenv("GENIEACS_TIMEOUT_MS")); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil {
			collect(fmt.Errorf("GENIEACS_TIMEOUT_MS must be a valid integer: %w", err))
		} else {
			queryTimeout = time.Duration(ms) * time.Millisecond
			mutationTimeout = queryTimeout
		}
	}

	verifySSL, err := envOrDefaultBool("GENIEACS_VERIFY_SSL", true)
	collect(err)
	connectionRequest, err := envOrDefaultBool("GENIEACS_CONNECTION_REQUEST", true)
	collect(err)
	port, err := envOrDefaultInt("PORT", defaultPort)
	collect(err)
	metricsPort, err := envOrDefaultInt("METRICS_PORT", defaultMetricsPort)
	collect(err)
	rateLimit, err := envOrDefaultInt("MUTATION_RATE_LIMIT", defaultMutationLimit)
	collect(err)
	bulk, err := envOrDefaultInt("BULK_REBOOT_CONCURRENCY", defaultBulkConcurrency)
	collect(err)
	dnsTTL, err := envOrDefaultDuration("DNS_CACHE_TTL", defaultDNSCacheTTL)
	collect(err)

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	cfg := &Config{
		GenieACSBaseURL:       strings.TrimSuffix(envOrDefault("GENIEACS_BASE_URL", defaultBaseURL), "/"),
		GenieACSUsername:      strings.TrimSpace(os.Getenv("GENIEACS_USERNAME")),
		GenieACSPassword:      os.Getenv("GENIEACS_PASSWORD"),
		QueryTimeout:          queryTimeout,
		MutationTimeout:       mutationTimeout,
		VerifySSL:             verifySSL,
		TLSFingerprint:        strings.TrimSpace(os.Getenv("GENIEACS_TLS_FINGERPRINT")),
		ConnectionRequest:     connectionRequest,
		BindAddress:           envOrDefault("BIND_ADDRESS", defaultBindAddress),
		Port:                  port,
		MetricsPort:           metricsPort,
		LogLevel:              envOrDefault("LOG_LEVEL", "info"),
		LogFormat:             envOrDefault("LOG_FORMAT", "auto"),
		MutationRateLimit:     rateLimit,
		BulkRebootConcurrency: bulk,
		DNSCacheTTL:           dnsTTL,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string

	parsed, err := url.Parse(c.GenieACSBaseURL)
	switch {
	case err != nil:
		problems = append(problems, fmt.Sprintf("GENIEACS_BASE_URL must be a valid URL: %v", err))
	case parsed.Scheme != "http" && parsed.Scheme != "https":
		problems = append(problems, "GENIEACS_BASE_URL must use http or https scheme")
	case parsed.Host == "":
		problems = append(problems, "GENIEACS_BASE_URL must include a host")
	}

	if c.QueryTimeout <= 0 || c.MutationTimeout <= 0 {
		problems = append(problems, "GENIEACS_TIMEOUT_MS must be greater than 0")
	}
	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		problems = append(problems, fmt.Sprintf("METRICS_PORT must be between 0 and 65535, got %d", c.MetricsPort))
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.Port {
		problems = append(problems, "METRICS_PORT must differ from PORT")
	}
	if c.MutationRateLimit <= 0 {
		problems = append(problems, fmt.Sprintf("MUTATION_RATE_LIMIT must be greater than 0, got %d", c.MutationRateLimit))
	}
	if c.BulkRebootConcurrency < 1 || c.BulkRebootConcurrency > maxBulkRebootConcurrent {
		problems = append(problems, fmt.Sprintf("BULK_REBOOT_CONCURRENCY must be between 1 and %d, got %d", maxBulkRebootConcurrent, c.BulkRebootConcurrency))
	}
	if c.DNSCacheTTL <= 0 {
		problems = append(problems, "DNS_CACHE_TTL must be greater than 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) (int, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
		}
		return n, nil
	}
	return fallback, nil
}

func envOrDefaultBool(key string, fallback bool) (bool, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%s must be a boolean: %w", key, err)
		}
		return b, nil
	}
	return fallback, nil
}

func envOrDefaultDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a duration such as 5m: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}
