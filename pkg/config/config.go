// Package config loads xwire settings from a TOML file.
//
// The file is looked up at --config or $XDG_CONFIG_HOME/xwire/config.toml
// (~/.config/xwire/config.toml). A missing file yields [Default]. A few
// environment variables override the file:
//
//	XWIRE_REDIS_ADDR   [cache] redis_addr
//	XWIRE_MONGO_URI    [store] mongo_uri (and selects the mongo backend)
//	XDG_CACHE_HOME     base of the default [cache] dir
//
// Example:
//
//	[import]
//	networks   = "~/xLights/xlights_networks.xml"
//	rgbeffects = "~/xLights/xlights_rgbeffects.xml"
//	strategy   = "port-grouping"
//
//	[store]
//	backend = "file"
//	path    = "diagram-data.json"
//
//	[cache]
//	ttl = "72h"
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/xwire/pkg/alloc"
	"github.com/matzehuels/xwire/pkg/cache"
	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/errors"
)

// AppName names the config and cache directories.
const AppName = "xwire"

// Store backends.
const (
	BackendFile  = "file"
	BackendMongo = "mongo"
)

// DefaultAddr is the address `xwire serve` listens on.
const DefaultAddr = ":3001"

// Config is the whole configuration file.
type Config struct {
	Import ImportConfig `toml:"import"`
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
}

// ImportConfig holds defaults for `xwire import` and the import endpoint.
type ImportConfig struct {
	Networks          string   `toml:"networks"`
	RGBEffects        string   `toml:"rgbeffects"`
	Strategy          string   `toml:"strategy"`
	LogicalPortRule   string   `toml:"logical_port_rule"`
	DifferentialTypes []string `toml:"differential_types"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`

	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// StoreConfig selects where the diagram is persisted.
type StoreConfig struct {
	Backend         string `toml:"backend"`
	Path            string `toml:"path"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
	Name            string `toml:"name"`
}

// CacheConfig selects the cache backend. A non-empty RedisAddr wins over Dir.
type CacheConfig struct {
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	RedisDB   int      `toml:"redis_db"`
	TTL       Duration `toml:"ttl"`
}

// Duration is a time.Duration written as "36h" in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Import: ImportConfig{
			Strategy: alloc.StrategyNamePortGrouping,
		},
		Server: ServerConfig{Addr: DefaultAddr},
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    diagram.DefaultFile,
		},
		Cache: CacheConfig{Dir: defaultCacheDir()},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/xwire/config.toml, falling back to
// ~/.config. It returns "" when no home directory is known.
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

// Load reads the file at path, or [DefaultPath] when path is empty, on top
// of [Default] and applies environment overrides. A missing default file is
// not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrap(errors.ErrCodeParse, err, "parse %s", filepath.Base(path))
			}
		case os.IsNotExist(err) && !explicit:
		case os.IsNotExist(err):
			return cfg, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
		default:
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("XWIRE_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("XWIRE_MONGO_URI"); v != "" {
		c.Store.MongoURI = v
		c.Store.Backend = BackendMongo
	}
	c.Import.Networks = expandHome(c.Import.Networks)
	c.Import.RGBEffects = expandHome(c.Import.RGBEffects)
	c.Store.Path = expandHome(c.Store.Path)
	c.Cache.Dir = expandHome(c.Cache.Dir)
}

// Validate checks enumerated values and fills blanks left by the file.
func (c *Config) Validate() error {
	if c.Import.Strategy != "" {
		s, err := alloc.ParseStrategy(c.Import.Strategy)
		if err != nil {
			return err
		}
		if c.Import.LogicalPortRule != "" {
			rule, err := alloc.ParseRule(c.Import.LogicalPortRule)
			if err != nil {
				return err
			}
			if err := alloc.CheckRule(s, rule); err != nil {
				return err
			}
		}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	switch c.Store.Backend {
	case "":
		c.Store.Backend = BackendFile
	case BackendFile, BackendMongo:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q (want file or mongo)", c.Store.Backend)
	}
	if c.Store.Backend == BackendMongo && c.Store.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidInput, "store backend mongo needs mongo_uri")
	}
	if c.Store.Path == "" {
		c.Store.Path = diagram.DefaultFile
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache ttl must not be negative")
	}
	return nil
}

// OpenStore connects the configured diagram persister.
func (c StoreConfig) OpenStore(ctx context.Context) (diagram.Persister, error) {
	if c.Backend == BackendMongo {
		return diagram.NewMongoStore(ctx, diagram.MongoConfig{
			URI:        c.MongoURI,
			Database:   c.MongoDatabase,
			Collection: c.MongoCollection,
			Name:       c.Name,
		})
	}
	return diagram.NewFileStore(c.Path), nil
}

// OpenCache connects the configured cache. Redis is used when RedisAddr is
// set, otherwise a FileCache in Dir. A TTL caps entry lifetimes.
func (c CacheConfig) OpenCache(ctx context.Context) (cache.Cache, error) {
	var (
		backend cache.Cache
		err     error
	)
	switch {
	case c.RedisAddr != "":
		backend, err = cache.NewRedisCache(ctx, cache.RedisConfig{Addr: c.RedisAddr, DB: c.RedisDB})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to redis at %s", c.RedisAddr)
		}
	case c.Dir != "":
		backend, err = cache.NewFileCache(c.Dir)
		if err != nil {
			return nil, fmt.Errorf("open cache dir: %w", err)
		}
	default:
		backend = cache.NewNullCache()
	}
	return cache.WithMaxTTL(backend, time.Duration(c.TTL)), nil
}

// defaultCacheDir returns $XDG_CACHE_HOME/xwire or ~/.cache/xwire.
func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", AppName)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
