package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	c := Default()

	if c.Namespaces.Vendor != xmldoc.NSCamunda {
		t.Errorf("Vendor = %q", c.Namespaces.Vendor)
	}
	if c.Resolve.Workers < 1 {
		t.Errorf("Workers = %d, want positive", c.Resolve.Workers)
	}
	if c.Cache.Backend != BackendFile {
		t.Errorf("Backend = %q, want file", c.Cache.Backend)
	}
	if c.Cache.Dir != filepath.Join("/tmp/xdg-cache", AppName) {
		t.Errorf("Dir = %q", c.Cache.Dir)
	}
	if c.Server.Addr != ":8080" || c.Store.Database != AppName {
		t.Errorf("Server.Addr = %q, Store.Database = %q", c.Server.Addr, c.Store.Database)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[namespaces]
vendor = "http://example.com/ext"

[resolve]
workers = 3

[cache]
backend = "redis"
ttl = "90m"

[redis]
addr = "cache:6379"
key_prefix = "staging:"

[store]
mongo_uri = "mongodb://db:27017"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"vendor", c.Namespaces.Vendor, "http://example.com/ext"},
		{"workers", c.Resolve.Workers, 3},
		{"backend", c.Cache.Backend, BackendRedis},
		{"ttl", c.Cache.TTL.Duration, 90 * time.Minute},
		{"redis", c.Redis.Addr, "cache:6379"},
		{"redis prefix", c.Redis.KeyPrefix, "staging:"},
		{"mongo", c.Store.MongoURI, "mongodb://db:27017"},
		{"database default", c.Store.Database, AppName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code errors.Code
	}{
		{"syntax", `[cache`, errors.ErrCodeInvalidConfig},
		{"unknown key", "[cache]\nbackedn = \"file\"\n", errors.ErrCodeInvalidConfig},
		{"bad backend", "[cache]\nbackend = \"memcached\"\n", errors.ErrCodeInvalidConfig},
		{"negative workers", "[resolve]\nworkers = -2\n", errors.ErrCodeInvalidConfig},
		{"bad ttl", "[cache]\nttl = \"soon\"\n", errors.ErrCodeInvalidConfig},
		{"bad mongo scheme", "[store]\nmongo_uri = \"http://db\"\n", errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, tt.code) {
				t.Errorf("Load() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	if _, err := Load(path); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load() error = %v, want FILE_NOT_FOUND", err)
	}
	c, err := LoadOrDefault(path)
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if c.Cache.Backend != BackendFile {
		t.Errorf("LoadOrDefault returned %+v", c)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg")
	if got, want := DefaultPath(), "/etc/xdg/procmeta/config.toml"; got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}
