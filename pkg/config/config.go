/*
Package config manages the TOML configuration of typeahead: trigger syntax, session
timing, the suggestion source and the suggestion server limits.

	[trigger]
	sequence = "<>"
	escape = ""

	[session]
	debounce_ms = 300
	fetch_timeout_ms = 2000
	max_candidates = 8

	[source]
	kind = "trie"
	dict_dir = "data/"

	[server]
	max_limit = 64

A file that fails to decode is salvaged section by section; anything unreadable falls
back to DefaultConfig.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/match"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
)

// Source kinds.
const (
	SourceTrie   = "trie"
	SourceStatic = "static"
	SourceRemote = "remote"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the entire config structure
type Config struct {
	Trigger TriggerConfig `toml:"trigger"`
	Session SessionConfig `toml:"session"`
	Source  SourceConfig  `toml:"source"`
	Server  ServerConfig  `toml:"server"`
}

// TriggerConfig describes the trigger syntax.
type TriggerConfig struct {
	Sequence string `toml:"sequence"`
	// Escape is a single character; empty disables escaping.
	Escape      string `toml:"escape"`
	Terminators string `toml:"terminators"`
}

// SessionConfig holds the controller timing options.
type SessionConfig struct {
	DebounceMs     int `toml:"debounce_ms"`
	FetchTimeoutMs int `toml:"fetch_timeout_ms"`
	MaxCandidates  int `toml:"max_candidates"`
}

// SourceConfig selects and tunes the suggestion source.
type SourceConfig struct {
	Kind         string   `toml:"kind"`
	Words        []string `toml:"words"`
	DictDir      string   `toml:"dict_dir"`
	LatencyMs    int      `toml:"latency_ms"`
	CacheSize    int      `toml:"cache_size"`
	EnableFilter bool     `toml:"enable_filter"`
	RemoteCmd    string   `toml:"remote_cmd"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxLimit  int `toml:"max_limit"`
	MinPrefix int `toml:"min_prefix"`
	MaxPrefix int `toml:"max_prefix"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	def := match.DefaultTrigger()
	return &Config{
		Trigger: TriggerConfig{
			Sequence:    def.Sequence,
			Escape:      escapeString(def.Escape),
			Terminators: def.Terminators,
		},
		Session: SessionConfig{
			DebounceMs:     300,
			FetchTimeoutMs: 2000,
			MaxCandidates:  8,
		},
		Source: SourceConfig{
			Kind:      SourceTrie,
			Words:     append([]string(nil), suggest.DemoWords...),
			DictDir:   "data/",
			CacheSize: 128,
		},
		Server: ServerConfig{
			MaxLimit:  64,
			MinPrefix: 1,
			MaxPrefix: 60,
		},
	}
}

func escapeString(r rune) string {
	if r == 0 {
		return ""
	}
	return string(r)
}

// MatchTrigger converts the section into a match.Trigger.
func (t TriggerConfig) MatchTrigger() match.Trigger {
	trig := match.Trigger{Sequence: t.Sequence, Terminators: t.Terminators}
	if r, _ := utf8.DecodeRuneInString(t.Escape); r != utf8.RuneError {
		trig.Escape = r
	}
	return trig
}

// Debounce returns the typing pause as a duration.
func (s SessionConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// FetchTimeout returns the per-fetch bound as a duration.
func (s SessionConfig) FetchTimeout() time.Duration {
	return time.Duration(s.FetchTimeoutMs) * time.Millisecond
}

// Latency returns the simulated static source delay.
func (s SourceConfig) Latency() time.Duration {
	return time.Duration(s.LatencyMs) * time.Millisecond
}

// Validate reports the first setting no session could run with.
func (c *Config) Validate() error {
	switch {
	case c.Trigger.Sequence == "":
		return fmt.Errorf("%w: trigger.sequence is empty", ErrInvalidConfig)
	case utf8.RuneCountInString(c.Trigger.Escape) > 1:
		return fmt.Errorf("%w: trigger.escape %q is more than one character", ErrInvalidConfig, c.Trigger.Escape)
	case c.Session.DebounceMs < 0:
		return fmt.Errorf("%w: session.debounce_ms is negative", ErrInvalidConfig)
	case c.Session.FetchTimeoutMs < 0:
		return fmt.Errorf("%w: session.fetch_timeout_ms is negative", ErrInvalidConfig)
	case c.Session.MaxCandidates < 0:
		return fmt.Errorf("%w: session.max_candidates is negative", ErrInvalidConfig)
	case c.Source.CacheSize < 0:
		return fmt.Errorf("%w: source.cache_size is negative", ErrInvalidConfig)
	case c.Server.MinPrefix < 1 || c.Server.MaxPrefix < c.Server.MinPrefix:
		return fmt.Errorf("%w: server prefix bounds [%d,%d]", ErrInvalidConfig, c.Server.MinPrefix, c.Server.MaxPrefix)
	case c.Server.MaxLimit < 1:
		return fmt.Errorf("%w: server.max_limit must be positive", ErrInvalidConfig)
	}
	switch c.Source.Kind {
	case SourceTrie, SourceStatic:
	case SourceRemote:
		if c.Source.RemoteCmd == "" {
			return fmt.Errorf("%w: source.remote_cmd is required for kind %q", ErrInvalidConfig, SourceRemote)
		}
	default:
		return fmt.Errorf("%w: unknown source.kind %q", ErrInvalidConfig, c.Source.Kind)
	}
	return nil
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/typeahead
// 2. ~/Library/Application Support/typeahead (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", utils.AppDirName)
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", utils.AppDirName)
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from the -config flag
// 2. Default path: [UserConfigDir]/typeahead/config.toml
// 3. Builtin defaults
//
// The returned path is empty when builtin defaults are in use.
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
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

// LoadConfig decodes a TOML file over the defaults. The result is validated; a file
// that decodes but does not validate is an error.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		if !utils.FileExists(configPath) {
			return nil, err
		}
		config = tryPartialParse(configPath)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return config, nil
}

// tryPartialParse keeps every well-typed key from a file that did not decode into Config.
func tryPartialParse(configPath string) *Config {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config
	}

	if section, ok := utils.ExtractSection(tempConfig, "trigger"); ok {
		extractTriggerConfig(section, &config.Trigger)
	}
	if section, ok := utils.ExtractSection(tempConfig, "session"); ok {
		extractSessionConfig(section, &config.Session)
	}
	if section, ok := utils.ExtractSection(tempConfig, "source"); ok {
		extractSourceConfig(section, &config.Source)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	return config
}

func extractTriggerConfig(data map[string]any, trigger *TriggerConfig) {
	if val, ok := utils.ExtractString(data, "sequence"); ok {
		trigger.Sequence = val
	}
	if val, ok := utils.ExtractString(data, "escape"); ok {
		trigger.Escape = val
	}
	if val, ok := utils.ExtractString(data, "terminators"); ok {
		trigger.Terminators = val
	}
}

func extractSessionConfig(data map[string]any, session *SessionConfig) {
	if val, ok := utils.ExtractInt64(data, "debounce_ms"); ok {
		session.DebounceMs = val
	}
	if val, ok := utils.ExtractInt64(data, "fetch_timeout_ms"); ok {
		session.FetchTimeoutMs = val
	}
	if val, ok := utils.ExtractInt64(data, "max_candidates"); ok {
		session.MaxCandidates = val
	}
}

func extractSourceConfig(data map[string]any, source *SourceConfig) {
	if val, ok := utils.ExtractString(data, "kind"); ok {
		source.Kind = val
	}
	if val, ok := utils.ExtractStringSlice(data, "words"); ok {
		source.Words = val
	}
	if val, ok := utils.ExtractString(data, "dict_dir"); ok {
		source.DictDir = val
	}
	if val, ok := utils.ExtractInt64(data, "latency_ms"); ok {
		source.LatencyMs = val
	}
	if val, ok := utils.ExtractInt64(data, "cache_size"); ok {
		source.CacheSize = val
	}
	if val, ok := utils.ExtractBool(data, "enable_filter"); ok {
		source.EnableFilter = val
	}
	if val, ok := utils.ExtractString(data, "remote_cmd"); ok {
		source.RemoteCmd = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		server.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
