// Package config loads procmeta settings from a TOML file.
//
// Every field has a default, so an empty or missing file yields a working
// configuration:
//
//	[namespaces]
//	vendor = "http://camunda.org/schema/1.0/bpmn"
//
//	[resolve]
//	workers = 8
//
//	[cache]
//	backend = "file"   # file | redis | none
//	dir = ""           # defaults to $XDG_CACHE_HOME/procmeta
//	ttl = "168h"
//
//	[redis]
//	addr = "localhost:6379"
//
//	[store]
//	mongo_uri = ""     # empty keeps documents in memory
//	database = "procmeta"
//
//	[server]
//	addr = ":8080"
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/procmeta/pkg/cache"
	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

// AppName names the XDG subdirectories used for config and cache.
const AppName = "procmeta"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the root of the TOML document.
type Config struct {
	Namespaces Namespaces `toml:"namespaces"`
	Resolve    Resolve    `toml:"resolve"`
	Cache      Cache      `toml:"cache"`
	Redis      Redis      `toml:"redis"`
	Store      Store      `toml:"store"`
	Server     Server     `toml:"server"`
}

// Namespaces configures XML namespace bindings.
type Namespaces struct {
	// Vendor is the URI bound to the camunda: extension prefix.
	Vendor string `toml:"vendor"`
}

// Resolve configures metadata resolution.
type Resolve struct {
	// Workers bounds concurrent node resolution per process.
	Workers int `toml:"workers"`
}

// Cache configures the result cache.
type Cache struct {
	Backend string   `toml:"backend"`
	Dir     string   `toml:"dir"`
	TTL     Duration `toml:"ttl"`
}

// Redis configures the Redis cache backend.
type Redis struct {
	Addr string `toml:"addr"`
	// KeyPrefix namespaces every key so deployments can share one instance.
	KeyPrefix string `toml:"key_prefix"`
}

// Store configures where resolved documents are kept by the server.
type Store struct {
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a Go duration string ("24h").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero-valued fields.
func (c *Config) SetDefaults() {
	if c.Namespaces.Vendor == "" {
		c.Namespaces.Vendor = xmldoc.NSCamunda
	}
	if c.Resolve.Workers == 0 {
		c.Resolve.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendFile
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = CacheDir()
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL.Duration = cache.TTLMetadata
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Store.Database == "" {
		c.Store.Database = AppName
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate rejects settings no component can honour.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"cache.backend %q (must be one of: file, redis, none)", c.Cache.Backend)
	}
	if c.Resolve.Workers < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "resolve.workers must be positive, got %d", c.Resolve.Workers)
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	if c.Store.MongoURI != "" && !strings.HasPrefix(c.Store.MongoURI, "mongodb://") &&
		!strings.HasPrefix(c.Store.MongoURI, "mongodb+srv://") {
		return errors.New(errors.ErrCodeInvalidConfig, "store.mongo_uri must use the mongodb:// or mongodb+srv:// scheme")
	}
	return nil
}

// Load decodes the TOML file at path, applies defaults and validates the
// result. Unknown keys are rejected so typos do not silently fall back to
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadOrDefault behaves like [Load] but returns [Default] when path does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	c, err := Load(path)
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		return Default(), nil
	}
	return c, err
}

// DefaultPath returns $XDG_CONFIG_HOME/procmeta/config.toml.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName, "config.toml")
}

// CacheDir returns the cache directory using the XDG convention
// (~/.cache/procmeta/).
func CacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(home, ".cache", AppName)
}
