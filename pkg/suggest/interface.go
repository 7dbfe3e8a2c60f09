// Package suggest provides the suggestion backends an autocomplete session queries: a
// patricia trie completer, a fixed word list, and a result cache that wraps any source.
package suggest

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by sources that have been shut down.
	ErrClosed = errors.New("suggestion source closed")
	// ErrTimeout is returned by remote sources whose backend did not answer in time.
	ErrTimeout = errors.New("suggestion source timed out")
)

// Source looks up candidates for a query.
//
// Fetch may be slow and may fail. Callers may issue overlapping Fetch calls and must not
// assume they resolve in order. The returned slice is ordered by relevance and may hold
// duplicates.
type Source interface {
	Fetch(ctx context.Context, query string) ([]string, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context, query string) ([]string, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, query string) ([]string, error) {
	return f(ctx, query)
}

// ICompleter is the synchronous word index behind a CompleterSource.
type ICompleter interface {
	// Complete returns suggestions for a given prefix with a limit
	Complete(prefix string, limit int) []Suggestion

	// AddWord adds a word with its frequency to the completer
	AddWord(word string, frequency int)

	// Stats returns statistics about the loaded dictionary
	Stats() map[string]int
}

// Limit caps the number of candidates src returns. n <= 0 leaves results untouched.
func Limit(src Source, n int) Source {
	return SourceFunc(func(ctx context.Context, query string) ([]string, error) {
		words, err := src.Fetch(ctx, query)
		if err != nil {
			return nil, err
		}
		if n > 0 && len(words) > n {
			words = words[:n]
		}
		return words, nil
	})
}
