package utils

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidInput(t *testing.T) {
	testCases := []struct {
		input string
		want  bool
	}{
		{"hello", true},
		{"draft-js", true},
		{"hello world", true},
		{"héllo", true},
		{"", false},
		{"   ", false},
		{"123", false},
		{"a1", true},
		{"wor!", false},
		{"aaa", false},
		{"aa", true},
		{"ééé", false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, IsValidInput(tc.input), "input %q", tc.input)
	}
}

func TestCreateRankList(t *testing.T) {
	assert.Equal(t, []uint16{}, CreateRankList(0))
	assert.Equal(t, []uint16{}, CreateRankList(-3))
	assert.Equal(t, []uint16{1, 2, 3}, CreateRankList(3))

	big := CreateRankList(math.MaxUint16 + 10)
	assert.Equal(t, uint16(math.MaxUint16), big[len(big)-1])
}

func TestParseTOMLWithRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[session]
debounce_ms = 50
[trigger]
sequence = "@"
[source]
words = ["alpha", "beta"]
mixed = ["alpha", 2]
enable_filter = true
`), 0o644))

	data, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)

	session, ok := ExtractSection(data, "session")
	require.True(t, ok)
	debounce, ok := ExtractInt64(session, "debounce_ms")
	assert.True(t, ok)
	assert.Equal(t, 50, debounce)
	_, ok = ExtractString(session, "debounce_ms")
	assert.False(t, ok)

	trigger, ok := ExtractSection(data, "trigger")
	require.True(t, ok)
	seq, ok := ExtractString(trigger, "sequence")
	assert.True(t, ok)
	assert.Equal(t, "@", seq)

	source, ok := ExtractSection(data, "source")
	require.True(t, ok)
	words, ok := ExtractStringSlice(source, "words")
	assert.True(t, ok)
	assert.Equal(t, []string{"alpha", "beta"}, words)
	_, ok = ExtractStringSlice(source, "mixed")
	assert.False(t, ok)
	filter, ok := ExtractBool(source, "enable_filter")
	assert.True(t, ok)
	assert.True(t, filter)

	_, ok = ExtractSection(data, "missing")
	assert.False(t, ok)
}

func TestIsDictionaryDir(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsDictionaryDir(dir))
	assert.False(t, IsDictionaryDir(filepath.Join(dir, "nope")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "words.txt"), []byte("hello\n"), 0o644))
	assert.True(t, IsDictionaryDir(dir))
}

func TestSaveTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.toml")
	type section struct {
		Name string `toml:"name"`
	}
	require.NoError(t, SaveTOMLFile(struct {
		S section `toml:"s"`
	}{S: section{Name: "x"}}, path))
	assert.True(t, FileExists(path))

	var got struct {
		S section `toml:"s"`
	}
	require.NoError(t, LoadTOMLFile(path, &got))
	assert.Equal(t, "x", got.S.Name)
}

func TestHasPrefixIgnoreCase(t *testing.T) {
	assert.True(t, HasPrefixIgnoreCase("Hello world", "hel"))
	assert.True(t, HasPrefixIgnoreCase("draft-js", "DRAFT"))
	assert.True(t, HasPrefixIgnoreCase("any", ""))
	assert.False(t, HasPrefixIgnoreCase("he", "hello"))
}
