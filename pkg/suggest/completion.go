package suggest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/tchap/go-patricia/v2/patricia"
)

var stringPool = sync.Map{}

func internString(s string) string {
	if cached, exists := stringPool.Load(s); exists {
		return cached.(string)
	}
	stringPool.Store(s, s)
	return s
}

// Suggestion is one ranked completion.
type Suggestion struct {
	Word      string
	Frequency int
}

// entry is what the trie stores under the lowercased key.
type entry struct {
	word string
	freq int
}

// Completer is a case-insensitive prefix index over words with frequencies.
// It is safe for concurrent use.
type Completer struct {
	mu           sync.RWMutex
	trie         *patricia.Trie
	totalWords   int
	maxFrequency int
}

// NewCompleter returns an empty completer.
func NewCompleter() *Completer {
	return &Completer{
		trie: patricia.NewTrie(),
	}
}

// NewCompleterFromWords indexes words in order; earlier words rank higher.
func NewCompleterFromWords(words []string) *Completer {
	c := NewCompleter()
	for i, w := range words {
		c.AddWord(w, len(words)-i)
	}
	return c
}

// AddWord inserts word. Adding a word again keeps the higher frequency.
func (c *Completer) AddWord(word string, frequency int) {
	if word == "" {
		return
	}
	key := patricia.Prefix(strings.ToLower(word))

	c.mu.Lock()
	defer c.mu.Unlock()

	if item := c.trie.Get(key); item != nil {
		old := item.(entry)
		if old.freq >= frequency {
			return
		}
		c.trie.Set(key, entry{word: internString(word), freq: frequency})
	} else {
		c.trie.Insert(key, entry{word: internString(word), freq: frequency})
		c.totalWords++
	}
	if frequency > c.maxFrequency {
		c.maxFrequency = frequency
	}
}

// Complete returns up to limit words starting with prefix, highest frequency first.
// The caller's capitalization is applied to the results. An exact match is included.
func (c *Completer) Complete(prefix string, limit int) []Suggestion {
	lowerPrefix := strings.ToLower(prefix)

	capitalPositions := make([]bool, 0, len(prefix))
	for _, r := range prefix {
		capitalPositions = append(capitalPositions, r >= 'A' && r <= 'Z')
	}

	c.mu.RLock()
	suggestions := SearchTrie(c.trie, lowerPrefix, capitalPositions)
	c.mu.RUnlock()

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Frequency != suggestions[j].Frequency {
			return suggestions[i].Frequency > suggestions[j].Frequency
		}
		return suggestions[i].Word < suggestions[j].Word
	})

	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// Stats reports index size.
func (c *Completer) Stats() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]int{
		"totalWords":   c.totalWords,
		"maxFrequency": c.maxFrequency,
	}
}

// CompleterSource serves a completer as an asynchronous Source.
type CompleterSource struct {
	Completer ICompleter
	// Limit caps the results per query; 0 means no cap.
	Limit int
	// Filter drops queries utils.IsValidInput rejects (numbers only, symbols, repeats).
	Filter bool
}

// Fetch returns the words of the completer's suggestions for query.
func (s CompleterSource) Fetch(ctx context.Context, query string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Filter && !utils.IsValidInput(query) {
		return []string{}, nil
	}
	results := s.Completer.Complete(query, s.Limit)
	words := make([]string, len(results))
	for i, r := range results {
		words[i] = r.Word
	}
	return words, nil
}
