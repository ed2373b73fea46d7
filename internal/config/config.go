// Package config loads application configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlasgeo/placestore/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store StoreConfig `yaml:"store" mapstructure:"store"`
	Key   KeyConfig   `yaml:"key" mapstructure:"key"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	// Backend is "cache" or "relational".
	Backend string `yaml:"backend" mapstructure:"backend"`
	// CacheURL is the redis address for the cache backend; empty selects the
	// in-memory store.
	CacheURL string `yaml:"cache_url" mapstructure:"cache_url"`
	// DatabaseURL is the DSN for the relational backend.
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// Dialect names the SQL dialect for the relational backend
	// (sqlite, postgres, mysql).
	Dialect string `yaml:"dialect" mapstructure:"dialect"`
}

// KeyConfig holds the tunables of key compilation, search and record
// lifetime. It is immutable once a store is constructed.
type KeyConfig struct {
	// Prefix is the ordered list of global key path segments.
	Prefix []string `yaml:"prefix" mapstructure:"prefix"`
	// SectionGlue joins key sections; LevelGlue joins fields within one
	// admin-level section.
	SectionGlue string `yaml:"section_glue" mapstructure:"section_glue"`
	LevelGlue   string `yaml:"level_glue" mapstructure:"level_glue"`
	// LevelPrefix opens each admin-level section.
	LevelPrefix string `yaml:"level_prefix" mapstructure:"level_prefix"`
	// TTL is the record lifetime on the cache backend and the prune horizon
	// on the relational one.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
	// MaxResults caps one search response; PageLimit caps one enumeration
	// page.
	MaxResults int `yaml:"max_results" mapstructure:"max_results"`
	PageLimit  int `yaml:"page_limit" mapstructure:"page_limit"`
	// Locale drives case folding during key normalization.
	Locale string `yaml:"locale" mapstructure:"locale"`
	// Compress enables zlib compression of stored payloads.
	Compress      bool `yaml:"compress" mapstructure:"compress"`
	CompressLevel int  `yaml:"compress_level" mapstructure:"compress_level"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// JoinedPrefix returns the global prefix segments joined with the section
// glue, the form shared by every compiled key.
func (k KeyConfig) JoinedPrefix() string {
	return strings.Join(k.Prefix, k.SectionGlue)
}

// Validate rejects configurations a store cannot run with.
func (k KeyConfig) Validate() error {
	if k.SectionGlue == "" {
		return eris.Wrap(model.ErrInvalidArgument, "config: empty section glue")
	}
	if k.LevelGlue == "" {
		return eris.Wrap(model.ErrInvalidArgument, "config: empty level glue")
	}
	if k.TTL <= 0 {
		return eris.Wrap(model.ErrInvalidArgument, "config: non-positive ttl")
	}
	if k.MaxResults <= 0 {
		return eris.Wrap(model.ErrInvalidArgument, "config: non-positive max results")
	}
	if k.PageLimit <= 0 {
		return eris.Wrap(model.ErrInvalidArgument, "config: non-positive page limit")
	}
	return nil
}

// DefaultKeyConfig returns the key configuration used when nothing is
// overridden. Kept in sync with the viper defaults in Load.
func DefaultKeyConfig() KeyConfig {
	return KeyConfig{
		Prefix:        []string{"geocoder", "storageProvider"},
		SectionGlue:   "_",
		LevelGlue:     "-",
		LevelPrefix:   "level",
		TTL:           365 * 24 * time.Hour,
		MaxResults:    30,
		PageLimit:     50,
		Locale:        "en",
		CompressLevel: 6,
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLACESTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	def := DefaultKeyConfig()
	v.SetDefault("store.backend", "cache")
	v.SetDefault("store.dialect", "sqlite")
	v.SetDefault("store.database_url", "placestore.db")
	v.SetDefault("key.prefix", def.Prefix)
	v.SetDefault("key.section_glue", def.SectionGlue)
	v.SetDefault("key.level_glue", def.LevelGlue)
	v.SetDefault("key.level_prefix", def.LevelPrefix)
	v.SetDefault("key.ttl", def.TTL)
	v.SetDefault("key.max_results", def.MaxResults)
	v.SetDefault("key.page_limit", def.PageLimit)
	v.SetDefault("key.locale", def.Locale)
	v.SetDefault("key.compress", false)
	v.SetDefault("key.compress_level", def.CompressLevel)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Key.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
