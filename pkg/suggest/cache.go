package suggest

import (
	"context"
	"math"
	"sync"

	"github.com/charmbracelet/log"
)

type cacheEntry struct {
	words      []string
	accessTime int64
}

// CachedSource remembers the results of recent queries in front of another Source.
// Failed fetches are not cached. Least recently used entries are evicted first.
type CachedSource struct {
	source      Source
	entries     map[string]*cacheEntry
	accessCount int64
	hits        int64
	maxEntries  int
	mu          sync.Mutex
}

// NewCachedSource wraps source with a cache holding up to maxEntries queries.
func NewCachedSource(source Source, maxEntries int) *CachedSource {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &CachedSource{
		source:     source,
		entries:    make(map[string]*cacheEntry, maxEntries),
		maxEntries: maxEntries,
	}
}

// Fetch serves query from the cache or the wrapped source.
func (cs *CachedSource) Fetch(ctx context.Context, query string) ([]string, error) {
	cs.mu.Lock()
	if e, ok := cs.entries[query]; ok {
		e.accessTime = cs.getNextAccessTime()
		cs.hits++
		words := append([]string(nil), e.words...)
		cs.mu.Unlock()
		return words, nil
	}
	cs.mu.Unlock()

	words, err := cs.source.Fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, ok := cs.entries[query]; !ok && len(cs.entries) >= cs.maxEntries {
		cs.evictLRU()
	}
	cs.entries[query] = &cacheEntry{
		words:      append([]string(nil), words...),
		accessTime: cs.getNextAccessTime(),
	}
	return words, nil
}

// Purge drops every cached query, e.g. after the dictionary changed.
func (cs *CachedSource) Purge() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.entries = make(map[string]*cacheEntry, cs.maxEntries)
}

// Stats reports cache size and hits.
func (cs *CachedSource) Stats() map[string]int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return map[string]int{
		"cachedQueries": len(cs.entries),
		"maxQueries":    cs.maxEntries,
		"cacheHits":     int(cs.hits),
	}
}

func (cs *CachedSource) getNextAccessTime() int64 {
	cs.accessCount++
	return cs.accessCount
}

func (cs *CachedSource) evictLRU() {
	var oldestQuery string
	var oldestTime int64 = math.MaxInt64
	found := false

	for q, e := range cs.entries {
		if e.accessTime < oldestTime {
			oldestTime = e.accessTime
			oldestQuery = q
			found = true
		}
	}

	if found {
		delete(cs.entries, oldestQuery)
		log.Debugf("Evicted query '%s' from suggestion cache", oldestQuery)
	}
}
