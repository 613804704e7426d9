package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 8080},
		Index: IndexConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Index.Driver != DriverRedis {
		t.Errorf("Index.Driver = %q", cfg.Index.Driver)
	}
	if cfg.Index.Name != "venues-idx" || cfg.Index.KeyPrefix != "venue:" {
		t.Errorf("Index = %+v", cfg.Index)
	}
	if cfg.Index.Timeout() != 2*time.Second {
		t.Errorf("Index.Timeout() = %v", cfg.Index.Timeout())
	}
	if cfg.Pagination.SearchDefaultLimit != 10 || cfg.Pagination.ListingDefaultLimit != 20 || cfg.Pagination.MaxLimit != 100 {
		t.Errorf("Pagination = %+v", cfg.Pagination)
	}
	if cfg.Changelog.Mode != ChangelogInline {
		t.Errorf("Changelog.Mode = %q", cfg.Changelog.Mode)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("HTTP.ShutdownSec = %d", cfg.HTTP.ShutdownSec)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		Index:      IndexConfig{Driver: DriverMemory, TimeoutMs: 500, BatchSize: 50},
		Pagination: PaginationConfig{SearchDefaultLimit: 25},
	}
	cfg.ApplyDefaults()

	if cfg.Index.Driver != DriverMemory || cfg.Index.Timeout() != 500*time.Millisecond || cfg.Index.BatchSize != 50 {
		t.Errorf("Index = %+v", cfg.Index)
	}
	if cfg.Pagination.SearchDefaultLimit != 25 {
		t.Errorf("SearchDefaultLimit = %d", cfg.Pagination.SearchDefaultLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "invalid port", mutate: func(c *Config) { c.HTTP.Port = 0 }, wantErr: "http.port"},
		{name: "redis without addrs", mutate: func(c *Config) { c.Index.Addrs = nil }, wantErr: "index.addrs"},
		{name: "memory without addrs", mutate: func(c *Config) { c.Index.Driver, c.Index.Addrs = DriverMemory, nil }},
		{name: "unknown driver", mutate: func(c *Config) { c.Index.Driver = "valkey" }, wantErr: "index.driver"},
		{name: "default over max", mutate: func(c *Config) { c.Pagination.ListingDefaultLimit = 500 }, wantErr: "max_limit"},
		{name: "unknown changelog", mutate: func(c *Config) { c.Changelog.Mode = "kafka" }, wantErr: "changelog.mode"},
		{name: "nats without url", mutate: func(c *Config) { c.Changelog.Mode = ChangelogNATS }, wantErr: "changelog.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("VENUEDEX_TEST_ADDR", "redis:6379")
	got := string(expandEnvVars([]byte("a: ${VENUEDEX_TEST_ADDR}\nb: ${VENUEDEX_TEST_UNSET:-fallback}\nc: ${VENUEDEX_TEST_UNSET}")))
	want := "a: redis:6379\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("VENUEDEX_TEST_PORT", "9090")
	path := filepath.Join(t.TempDir(), "test.yaml")
	body := `
http:
  port: ${VENUEDEX_TEST_PORT}
index:
  driver: memory
store:
  path: ${VENUEDEX_TEST_STORE:-/tmp/v.db}
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Index.Driver != DriverMemory || cfg.Store.Path != "/tmp/v.db" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Index.Name != "venues-idx" {
		t.Error("defaults not applied")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestLoad_Local(t *testing.T) {
	t.Setenv("INDEX_DRIVER", "memory")
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Index.Driver != DriverMemory || cfg.Changelog.Stream != "VENUES" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
