package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bastiangx/typeahead/pkg/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, match.DefaultTrigger(), cfg.Trigger.MatchTrigger())
	assert.Empty(t, cfg.Trigger.Escape, "escaping is opt-in")
	assert.Equal(t, 300*time.Millisecond, cfg.Session.Debounce())
	assert.Equal(t, 2*time.Second, cfg.Session.FetchTimeout())
	assert.Equal(t, SourceTrie, cfg.Source.Kind)
	assert.Len(t, cfg.Source.Words, 6)
	assert.Equal(t, 64, cfg.Server.MaxLimit)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[trigger]
sequence = "@"
escape = "\\"

[session]
debounce_ms = 120

[source]
kind = "static"
words = ["alpha", "beta"]
latency_ms = 500
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, match.Trigger{Sequence: "@", Escape: '\\', Terminators: "\n\r"}, cfg.Trigger.MatchTrigger())
	assert.Equal(t, 120*time.Millisecond, cfg.Session.Debounce())
	assert.Equal(t, 2000, cfg.Session.FetchTimeoutMs, "unset keys keep defaults")
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Source.Words)
	assert.Equal(t, 500*time.Millisecond, cfg.Source.Latency())
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[session]
debounce_ms = "fast"
max_candidates = 3

[server]
max_limit = 10
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Session.DebounceMs, "bad key falls back")
	assert.Equal(t, 3, cfg.Session.MaxCandidates)
	assert.Equal(t, 10, cfg.Server.MaxLimit)
}

func TestLoadConfigUnparseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "this is = = not toml [")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty sequence", func(c *Config) { c.Trigger.Sequence = "" }},
		{"long escape", func(c *Config) { c.Trigger.Escape = "ab" }},
		{"negative debounce", func(c *Config) { c.Session.DebounceMs = -1 }},
		{"negative timeout", func(c *Config) { c.Session.FetchTimeoutMs = -1 }},
		{"negative candidates", func(c *Config) { c.Session.MaxCandidates = -2 }},
		{"negative cache", func(c *Config) { c.Source.CacheSize = -1 }},
		{"prefix bounds", func(c *Config) { c.Server.MinPrefix, c.Server.MaxPrefix = 5, 2 }},
		{"zero limit", func(c *Config) { c.Server.MaxLimit = 0 }},
		{"unknown kind", func(c *Config) { c.Source.Kind = "llm" }},
		{"remote without command", func(c *Config) { c.Source.Kind = SourceRemote }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[source]\nkind = \"nope\"\n")

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestInitConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfigWithPriorityCustomPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, path, "[session]\nmax_candidates = 4\n")

	cfg, used, err := LoadConfigWithPriority(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, 4, cfg.Session.MaxCandidates)
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, SaveConfig(DefaultConfig(), path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []*Config
	require.NoError(t, Watch(ctx, path, func(c *Config) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c)
	}))

	writeFile(t, path, "[session]\ndebounce_ms = 42\n")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1].Session.DebounceMs == 42
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatchMissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "none.toml"), func(*Config) {})
	assert.Error(t, err)
}

func TestGetActiveConfigPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	assert.Equal(t, path, GetActiveConfigPath(path))
	assert.NotEmpty(t, GetActiveConfigPath(""))
}
