/*
Package config manages the TOML config for omniserve.
*/
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bastiangx/omniserve/internal/utils"
	"github.com/bastiangx/omniserve/pkg/resolver"
	"github.com/bastiangx/omniserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
)

// FileName is the config file looked up in the config dir.
const FileName = "config.toml"

// Config holds the entire config structure
type Config struct {
	Server    ServerConfig     `toml:"server"`
	Resolver  ResolverConfig   `toml:"resolver"`
	History   HistoryConfig    `toml:"history"`
	Index     IndexConfig      `toml:"index"`
	Bookmarks BookmarksConfig  `toml:"bookmarks"`
	Engines   []suggest.Engine `toml:"engines"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	// MetricsAddr enables the /metrics listener when set, e.g. "127.0.0.1:9464".
	MetricsAddr      string `toml:"metrics_addr"`
	RequestTimeoutMs int    `toml:"request_timeout_ms"`
}

// ResolverConfig holds the merge limits and the content-index query.
type ResolverConfig struct {
	MaxResults int      `toml:"max_results"`
	IndexLimit int      `toml:"index_limit"`
	IndexName  string   `toml:"index_name"`
	IndexField string   `toml:"index_field"`
	DataPaths  []string `toml:"data_paths"`
}

// HistoryConfig holds history source options. Relative files live in the data dir.
type HistoryConfig struct {
	File  string `toml:"file"`
	Limit int    `toml:"limit"`
}

// IndexConfig holds content-index options.
type IndexConfig struct {
	File string `toml:"file"`
}

// BookmarksConfig holds bookmarks source options.
type BookmarksConfig struct {
	File       string `toml:"file"`
	Watch      bool   `toml:"watch"`
	DebounceMs int    `toml:"debounce_ms"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	opts := resolver.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			MetricsAddr:      "",
			RequestTimeoutMs: 2000,
		},
		Resolver: ResolverConfig{
			MaxResults: opts.MaxResults,
			IndexLimit: opts.Index.Limit,
			IndexName:  opts.Index.Index,
			IndexField: opts.Index.Field,
			DataPaths:  append([]string(nil), opts.Index.Paths...),
		},
		History: HistoryConfig{
			File:  "history.toml",
			Limit: 20,
		},
		Index: IndexConfig{
			File: "index.toml",
		},
		Bookmarks: BookmarksConfig{
			File:       "bookmarks.toml",
			Watch:      true,
			DebounceMs: 200,
		},
		Engines: []suggest.Engine{
			{Name: "DuckDuckGo", URL: "https://duckduckgo.com/", Selected: true},
			{Name: "Google", URL: "https://www.google.com/search"},
		},
	}
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. defaultPath, created with defaults when missing
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath, defaultPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if utils.FileExists(customConfigPath) {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s. Trying default path...", customConfigPath)
		}
	}
	if defaultPath == "" {
		log.Warn("No default config path. Using built-in defaults...")
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file. A file that does not decode as a whole
// is salvaged section by section.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	// Engines replace the defaults instead of merging into them.
	config.Engines = nil

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	if len(config.Engines) == 0 {
		config.Engines = DefaultConfig().Engines
	}
	return config, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "resolver"); ok {
		extractResolverConfig(section, &config.Resolver)
	}
	if section, ok := utils.ExtractSection(tempConfig, "history"); ok {
		if val, ok := utils.ExtractString(section, "file"); ok {
			config.History.File = val
		}
		if val, ok := utils.ExtractInt64(section, "limit"); ok {
			config.History.Limit = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "index"); ok {
		if val, ok := utils.ExtractString(section, "file"); ok {
			config.Index.File = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "bookmarks"); ok {
		extractBookmarksConfig(section, &config.Bookmarks)
	}
	if tables, ok := utils.ExtractTables(tempConfig, "engines"); ok {
		if engines := extractEngines(tables); len(engines) > 0 {
			config.Engines = engines
		}
	}
	return config, nil
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "metrics_addr"); ok {
		server.MetricsAddr = val
	}
	if val, ok := utils.ExtractInt64(data, "request_timeout_ms"); ok {
		server.RequestTimeoutMs = val
	}
}

// extractResolverConfig extracts resolver configuration from a map
func extractResolverConfig(data map[string]any, r *ResolverConfig) {
	if val, ok := utils.ExtractInt64(data, "max_results"); ok {
		r.MaxResults = val
	}
	if val, ok := utils.ExtractInt64(data, "index_limit"); ok {
		r.IndexLimit = val
	}
	if val, ok := utils.ExtractString(data, "index_name"); ok {
		r.IndexName = val
	}
	if val, ok := utils.ExtractString(data, "index_field"); ok {
		r.IndexField = val
	}
	if val, ok := utils.ExtractStrings(data, "data_paths"); ok {
		r.DataPaths = val
	}
}

func extractBookmarksConfig(data map[string]any, b *BookmarksConfig) {
	if val, ok := utils.ExtractString(data, "file"); ok {
		b.File = val
	}
	if val, ok := utils.ExtractBool(data, "watch"); ok {
		b.Watch = val
	}
	if val, ok := utils.ExtractInt64(data, "debounce_ms"); ok {
		b.DebounceMs = val
	}
}

// extractEngines keeps the [[engines]] tables that have a name and url.
func extractEngines(tables []map[string]any) []suggest.Engine {
	var engines []suggest.Engine
	for _, t := range tables {
		name, _ := utils.ExtractString(t, "name")
		url, _ := utils.ExtractString(t, "url")
		if name == "" || url == "" {
			continue
		}
		selected, _ := utils.ExtractBool(t, "selected")
		engines = append(engines, suggest.Engine{Name: name, URL: url, Selected: selected})
	}
	return engines
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs *multierror.Error
	if c.Resolver.MaxResults <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("resolver.max_results must be positive, got %d", c.Resolver.MaxResults))
	}
	if c.Resolver.IndexLimit <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("resolver.index_limit must be positive, got %d", c.Resolver.IndexLimit))
	}
	if c.Resolver.IndexField == "" {
		errs = multierror.Append(errs, fmt.Errorf("resolver.index_field must not be empty"))
	}
	for _, p := range c.Resolver.DataPaths {
		if !strings.HasPrefix(p, "/") {
			errs = multierror.Append(errs, fmt.Errorf("resolver.data_paths: %q must start with /", p))
		}
	}
	if c.History.Limit <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("history.limit must be positive, got %d", c.History.Limit))
	}
	if c.Server.RequestTimeoutMs < 0 {
		errs = multierror.Append(errs, fmt.Errorf("server.request_timeout_ms must not be negative"))
	}
	if len(c.Engines) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("at least one search engine is required"))
	}
	for i, e := range c.Engines {
		if e.Name == "" || e.URL == "" {
			errs = multierror.Append(errs, fmt.Errorf("engines[%d]: name and url are required", i))
		}
	}
	return errs.ErrorOrNil()
}

// ResolverOptions maps the [resolver] section onto resolver.Options.
func (c *Config) ResolverOptions() resolver.Options {
	return resolver.Options{
		MaxResults: c.Resolver.MaxResults,
		Index: suggest.IndexQuery{
			Paths: c.Resolver.DataPaths,
			Limit: c.Resolver.IndexLimit,
			Index: c.Resolver.IndexName,
			Field: c.Resolver.IndexField,
		},
	}
}

// RequestTimeout is the per-resolution deadline; zero means none.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutMs) * time.Millisecond
}

// DataFile resolves a source file name against the data directory.
func DataFile(dataDir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dataDir, name)
}

// RebuildConfigFile force creates a new config.toml at path
func RebuildConfigFile(path string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return SaveConfig(DefaultConfig(), path)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	return utils.AbsPath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
