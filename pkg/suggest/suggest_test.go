package suggest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleterRanksByFrequency(t *testing.T) {
	c := NewCompleter()
	c.AddWord("world", 50)
	c.AddWord("word", 80)
	c.AddWord("work", 80)
	c.AddWord("wonder", 10)
	c.AddWord("apple", 99)

	got := c.Complete("wor", 0)
	assert.Equal(t, []Suggestion{
		{Word: "word", Frequency: 80},
		{Word: "work", Frequency: 80},
		{Word: "world", Frequency: 50},
	}, got)

	assert.Len(t, c.Complete("wor", 2), 2)
	assert.Empty(t, c.Complete("zzz", 5))
}

func TestCompleterCaseHandling(t *testing.T) {
	c := NewCompleter()
	c.AddWord("hello", 10)
	c.AddWord("Hello", 5)

	got := c.Complete("He", 0)
	require.Len(t, got, 1, "same word in another case is one entry")
	assert.Equal(t, "Hello", got[0].Word, "caller capitalization applied")
	assert.Equal(t, 10, got[0].Frequency)

	exact := c.Complete("hello", 0)
	require.Len(t, exact, 1)
	assert.Equal(t, "hello", exact[0].Word, "exact match included")

	stats := c.Stats()
	assert.Equal(t, 1, stats["totalWords"])
	assert.Equal(t, 10, stats["maxFrequency"])
}

func TestNewCompleterFromWordsKeepsListOrder(t *testing.T) {
	c := NewCompleterFromWords(DemoWords)
	src := CompleterSource{Completer: c}

	words, err := src.Fetch(context.Background(), "hel")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "hello world"}, words)

	words, err = src.Fetch(context.Background(), "draft")
	require.NoError(t, err)
	assert.Equal(t, []string{"draft-js", "draft-js example"}, words)
}

func TestCompleterSourceFilterAndContext(t *testing.T) {
	c := NewCompleterFromWords([]string{"123abc", "aaa", "abc"})
	src := CompleterSource{Completer: c, Filter: true}

	words, err := src.Fetch(context.Background(), "123")
	require.NoError(t, err)
	assert.Empty(t, words)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Fetch(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticSource(t *testing.T) {
	src := StaticSource{Words: DemoWords}

	words, err := src.Fetch(context.Background(), "WOR")
	require.NoError(t, err)
	assert.Equal(t, []string{"world"}, words)

	words, err = src.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DemoWords, words)

	words, err = src.Fetch(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, words)
	assert.Empty(t, words)
}

func TestStaticSourceLatencyHonoursContext(t *testing.T) {
	src := StaticSource{Words: DemoWords, Latency: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := src.Fetch(ctx, "he")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimit(t *testing.T) {
	src := Limit(StaticSource{Words: DemoWords}, 2)
	words, err := src.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"test", "hello"}, words)

	failing := Limit(SourceFunc(func(context.Context, string) ([]string, error) {
		return nil, errors.New("down")
	}), 2)
	_, err = failing.Fetch(context.Background(), "x")
	assert.Error(t, err)
}

func TestCachedSource(t *testing.T) {
	var calls atomic.Int32
	var fail atomic.Bool
	inner := SourceFunc(func(_ context.Context, q string) ([]string, error) {
		calls.Add(1)
		if fail.Load() {
			return nil, errors.New("backend down")
		}
		return []string{q + "1", q + "2"}, nil
	})
	cs := NewCachedSource(inner, 2)
	ctx := context.Background()

	got, err := cs.Fetch(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, got)

	got[0] = "mutated"
	again, err := cs.Fetch(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, again, "cached copy is not aliased")
	assert.Equal(t, int32(1), calls.Load())

	_, err = cs.Fetch(ctx, "b")
	require.NoError(t, err)
	_, err = cs.Fetch(ctx, "a") // touch a so b is oldest
	require.NoError(t, err)
	_, err = cs.Fetch(ctx, "c") // evicts b
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	_, err = cs.Fetch(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "a survived eviction")
	_, err = cs.Fetch(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load(), "b was evicted")

	fail.Store(true)
	_, err = cs.Fetch(ctx, "zz")
	assert.Error(t, err)
	_, err = cs.Fetch(ctx, "zz")
	assert.Error(t, err)
	assert.Equal(t, int32(6), calls.Load(), "errors are not cached")

	stats := cs.Stats()
	assert.Equal(t, 2, stats["cachedQueries"])
	assert.Equal(t, 3, stats["cacheHits"])

	cs.Purge()
	assert.Equal(t, 0, cs.Stats()["cachedQueries"])
}
