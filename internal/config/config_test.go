package config

import (
	"strings"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"GENIEACS_BASE_URL", "GENIEACS_USERNAME", "GENIEACS_PASSWORD", "GENIEACS_TIMEOUT_MS",
	"GENIEACS_VERIFY_SSL", "GENIEACS_TLS_FINGERPRINT", "GENIEACS_CONNECTION_REQUEST",
	"BIND_ADDRESS", "PORT", "METRICS_PORT", "LOG_LEVEL", "LOG_FORMAT",
	"MUTATION_RATE_LIMIT", "BULK_REBOOT_CONCURRENCY", "DNS_CACHE_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GenieACSBaseURL != "http://localhost:7557" {
		t.Fatalf("base URL = %q", cfg.GenieACSBaseURL)
	}
	if cfg.QueryTimeout != 10*time.Second || cfg.MutationTimeout != 15*time.Second {
		t.Fatalf("timeouts = %v / %v", cfg.QueryTimeout, cfg.MutationTimeout)
	}
	if cfg.ClientTimeout() != 15*time.Second {
		t.Fatalf("client timeout = %v", cfg.ClientTimeout())
	}
	if !cfg.VerifySSL || !cfg.ConnectionRequest {
		t.Fatalf("expected TLS verification and connection requests on by default")
	}
	if cfg.Addr() != "0.0.0.0:3000" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
	if cfg.MetricsAddr() != "0.0.0.0:9091" {
		t.Fatalf("metrics addr = %q", cfg.MetricsAddr())
	}
	if cfg.MutationRateLimit != 60 || cfg.BulkRebootConcurrency != 4 || cfg.DNSCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "auto" {
		t.Fatalf("log defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GENIEACS_BASE_URL", "https://acs.example.net:7557/")
	t.Setenv("GENIEACS_USERNAME", "nbi")
	t.Setenv("GENIEACS_PASSWORD", "secret")
	t.Setenv("GENIEACS_TIMEOUT_MS", "2500")
	t.Setenv("GENIEACS_VERIFY_SSL", "false")
	t.Setenv("GENIEACS_CONNECTION_REQUEST", "0")
	t.Setenv("PORT", "8080")
	t.Setenv("METRICS_PORT", "0")
	t.Setenv("DNS_CACHE_TTL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GenieACSBaseURL != "https://acs.example.net:7557" {
		t.Fatalf("base URL = %q", cfg.GenieACSBaseURL)
	}
	if cfg.QueryTimeout != 2500*time.Millisecond || cfg.MutationTimeout != 2500*time.Millisecond {
		t.Fatalf("a set timeout applies to both kinds, got %v / %v", cfg.QueryTimeout, cfg.MutationTimeout)
	}
	if cfg.VerifySSL || cfg.ConnectionRequest {
		t.Fatalf("expected overrides to disable TLS verification and connection requests")
	}
	if cfg.MetricsAddr() != "" {
		t.Fatalf("metrics should be disabled, got %q", cfg.MetricsAddr())
	}
	if cfg.DNSCacheTTL != 30*time.Second {
		t.Fatalf("dns ttl = %v", cfg.DNSCacheTTL)
	}
	if got := cfg.Redacted().GenieACSPassword; got != "********" {
		t.Fatalf("redacted password = %q", got)
	}
	if cfg.GenieACSPassword != "secret" {
		t.Fatalf("Redacted must not modify the original")
	}
}

func TestLoadAggregatesParseErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "http")
	t.Setenv("GENIEACS_VERIFY_SSL", "sometimes")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"PORT", "GENIEACS_VERIFY_SSL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"scheme":        {"GENIEACS_BASE_URL": "ftp://acs"},
		"timeout":       {"GENIEACS_TIMEOUT_MS": "0"},
		"port":          {"PORT": "70000"},
		"metrics clash": {"PORT": "9091", "METRICS_PORT": "9091"},
		"rate limit":    {"MUTATION_RATE_LIMIT": "0"},
		"bulk":          {"BULK_REBOOT_CONCURRENCY": "500"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error for %v", env)
			}
		})
	}
}
