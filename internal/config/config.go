package config

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"

	"onefile/internal/paths"
	"onefile/internal/syntax"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Config represents the complete onefile configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Library LibraryConfig `json:"library" mapstructure:"library"`
	Resolve ResolveConfig `json:"resolve" mapstructure:"resolve"`
	Build   BuildConfig   `json:"build" mapstructure:"build"`
	Output  OutputConfig  `json:"output" mapstructure:"output"`
	Scan    ScanConfig    `json:"scan" mapstructure:"scan"`
	Store   StoreConfig   `json:"store" mapstructure:"store"`
	Watch   WatchConfig   `json:"watch" mapstructure:"watch"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// LibraryConfig locates the registry manifest
type LibraryConfig struct {
	Manifest string `json:"manifest" mapstructure:"manifest"`
	Language string `json:"language" mapstructure:"language"`
}

// ResolveConfig selects the runtime extraction strategy
type ResolveConfig struct {
	Strategy string `json:"strategy" mapstructure:"strategy"`
}

// BuildConfig configures the offline dependency graph builder
type BuildConfig struct {
	Strategy  string `json:"strategy" mapstructure:"strategy"`
	CacheSize int    `json:"cacheSize" mapstructure:"cacheSize"`
	// AutoBuild computes dependencies in memory when a manifest carries none
	AutoBuild bool `json:"autoBuild" mapstructure:"autoBuild"`
}

// OutputConfig configures the bundle artifact
type OutputConfig struct {
	// Path is the artifact path; relative paths resolve against the entry's directory
	Path      string `json:"path" mapstructure:"path"`
	Header    bool   `json:"header" mapstructure:"header"`
	TokenMode string `json:"tokenMode" mapstructure:"tokenMode"`
	Atomic    bool   `json:"atomic" mapstructure:"atomic"`
}

// ScanConfig configures library scanning
type ScanConfig struct {
	Minify  bool     `json:"minify" mapstructure:"minify"`
	Exclude []string `json:"exclude" mapstructure:"exclude"`
}

// StoreConfig configures the annotated registry store
type StoreConfig struct {
	Enabled  bool `json:"enabled" mapstructure:"enabled"`
	Compress bool `json:"compress" mapstructure:"compress"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       bool   `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// Token modes for the freshness header
const (
	TokenModeMtime = "mtime"
	TokenModeHash  = "hash"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Library: LibraryConfig{
			Manifest: "library.toml",
			Language: "go",
		},
		Resolve: ResolveConfig{
			Strategy: "name",
		},
		Build: BuildConfig{
			Strategy:  "semantic",
			CacheSize: 4096,
			AutoBuild: true,
		},
		Output: OutputConfig{
			Path:      "",
			Header:    true,
			TokenMode: TokenModeMtime,
			Atomic:    true,
		},
		Scan: ScanConfig{
			Minify:  false,
			Exclude: []string{"vendor", "testdata"},
		},
		Store: StoreConfig{
			Enabled:  true,
			Compress: true,
		},
		Watch: WatchConfig{
			DebounceMs: 200,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       false,
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// BuildStrategyFor returns the default build strategy for a library
// language. Only Go registries can be type-checked.
func BuildStrategyFor(language string) string {
	if lang, err := syntax.ParseLanguage(language); err == nil && lang == syntax.Go {
		return "semantic"
	}
	return "name"
}

// LoadConfig loads configuration from <root>/.onefile/config.json.
// Environment variables prefixed ONEFILE_ override file values
// (resolve.strategy -> ONEFILE_RESOLVE_STRATEGY).
func LoadConfig(root string) (*Config, error) {
	return load(root, "")
}

// LoadConfigFile loads configuration from an explicit file path.
func LoadConfigFile(path string) (*Config, error) {
	return load("", path)
}

func load(root, file string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("ONEFILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(paths.GetStateDir(root))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Build.Strategy == "" {
		cfg.Build.Strategy = BuildStrategyFor(cfg.Library.Language)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("library.manifest", d.Library.Manifest)
	v.SetDefault("library.language", d.Library.Language)
	v.SetDefault("resolve.strategy", d.Resolve.Strategy)
	// build.strategy depends on library.language and is filled in after
	// unmarshalling.
	_ = v.BindEnv("build.strategy")
	v.SetDefault("build.cacheSize", d.Build.CacheSize)
	v.SetDefault("build.autoBuild", d.Build.AutoBuild)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.header", d.Output.Header)
	v.SetDefault("output.tokenMode", d.Output.TokenMode)
	v.SetDefault("output.atomic", d.Output.Atomic)
	v.SetDefault("scan.minify", d.Scan.Minify)
	v.SetDefault("scan.exclude", d.Scan.Exclude)
	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.compress", d.Store.Compress)
	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// Save writes the configuration to <root>/.onefile/config.json
func (c *Config) Save(root string) error {
	if _, err := paths.EnsureStateDir(root); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(paths.GetConfigPath(root), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Library.Language == "" {
		return &ConfigError{Field: "library.language", Message: "must not be empty"}
	}
	switch c.Output.TokenMode {
	case TokenModeMtime, TokenModeHash:
	default:
		return &ConfigError{Field: "output.tokenMode", Message: "must be \"mtime\" or \"hash\""}
	}
	if c.Build.CacheSize < 0 {
		return &ConfigError{Field: "build.cacheSize", Message: "must not be negative"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
