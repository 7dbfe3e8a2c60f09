package suggest

import (
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// SearchTrie collects every entry under lowerPrefix, recapitalized to match the caller.
func SearchTrie(trie *patricia.Trie, lowerPrefix string, capitalPositions []bool) []Suggestion {
	if trie == nil {
		return []Suggestion{}
	}

	var suggestions []Suggestion

	err := trie.VisitSubtree(patricia.Prefix(lowerPrefix), func(p patricia.Prefix, item patricia.Item) error {
		e, ok := item.(entry)
		if !ok {
			log.Errorf("Unknown item type: %T for word %s", item, p)
			return nil
		}
		suggestions = append(suggestions, Suggestion{
			Word:      ApplyCapitalization(e.word, capitalPositions),
			Frequency: e.freq,
		})
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting trie subtree: %v", err)
	}

	return suggestions
}

// ApplyCapitalization uppercases the runes of word at positions the caller typed in uppercase.
func ApplyCapitalization(word string, capitalPositions []bool) string {
	if len(capitalPositions) == 0 {
		return word
	}

	wordRunes := []rune(word)
	for i := 0; i < len(wordRunes) && i < len(capitalPositions); i++ {
		if capitalPositions[i] && wordRunes[i] >= 'a' && wordRunes[i] <= 'z' {
			wordRunes[i] = wordRunes[i] - 'a' + 'A'
		}
	}
	return string(wordRunes)
}
