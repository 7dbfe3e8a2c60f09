package suggest

import (
	"context"
	"time"

	"github.com/bastiangx/typeahead/internal/utils"
)

// DemoWords is the fixed word list the demo backend serves.
var DemoWords = []string{
	"test",
	"hello",
	"world",
	"draft-js",
	"hello world",
	"draft-js example",
}

// StaticSource filters a fixed word list by case-insensitive prefix, optionally after a
// simulated network delay.
type StaticSource struct {
	Words   []string
	Latency time.Duration
}

// Fetch waits Latency (or until ctx is done) and returns the words starting with query, in list order.
func (s StaticSource) Fetch(ctx context.Context, query string) ([]string, error) {
	if s.Latency > 0 {
		timer := time.NewTimer(s.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	filtered := []string{}
	for _, w := range s.Words {
		if utils.HasPrefixIgnoreCase(w, query) {
			filtered = append(filtered, w)
		}
	}
	return filtered, nil
}
