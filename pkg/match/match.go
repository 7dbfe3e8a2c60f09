// Package match finds an open trigger sequence before the caret and extracts the partial query typed after it.
package match

import (
	"strings"
	"unicode/utf8"
)

// DefaultSequence is the trigger typed to open a suggestion popup.
const DefaultSequence = "<>"

// Trigger describes what opens a match.
//
// Sequence is the literal text that opens a match. When Escape is set, a Sequence directly
// preceded by it is treated as plain text. Any rune in Terminators between the trigger and the caret
// closes the match.
type Trigger struct {
	Sequence    string
	Escape      rune
	Terminators string
}

// DefaultTrigger returns the `<>` trigger terminated by line breaks. Escaping is off:
// the last `<>` before the caret always opens the match.
func DefaultTrigger() Trigger {
	return Trigger{
		Sequence:    DefaultSequence,
		Terminators: "\n\r",
	}
}

// Match is an open trigger: where it starts (rune offset) and what was typed after it.
type Match struct {
	TriggerStart int
	Query        string
}

// Empty reports whether the query has no non-whitespace content.
func (m Match) Empty() bool {
	return strings.TrimSpace(m.Query) == ""
}

// Detect runs FindTriggerStart on text and returns the resulting match.
// text must be the caret block's text up to the caret.
func (t Trigger) Detect(textBeforeCaret string) (Match, bool) {
	runes := []rune(textBeforeCaret)
	start, ok := t.find(runes, len(runes))
	if !ok {
		return Match{}, false
	}
	query := string(runes[start+utf8.RuneCountInString(t.Sequence):])
	return Match{TriggerStart: start, Query: query}, true
}

// FindTriggerStart returns the rune offset of the last unescaped trigger in text[:caret].
func (t Trigger) FindTriggerStart(text string, caret int) (int, bool) {
	runes := []rune(text)
	if caret < 0 || caret > len(runes) {
		return 0, false
	}
	return t.find(runes, caret)
}

// Detect uses the default trigger.
func Detect(textBeforeCaret string) (Match, bool) {
	return DefaultTrigger().Detect(textBeforeCaret)
}

// find scans backwards from caret. It stops at the first terminator, since a match
// never spans one.
func (t Trigger) find(runes []rune, caret int) (int, bool) {
	seq := []rune(t.Sequence)
	n := len(seq)
	if n == 0 {
		return 0, false
	}
	for i := caret - n; i >= 0; i-- {
		if strings.ContainsRune(t.Terminators, runes[i+n-1]) {
			return 0, false
		}
		if !hasAt(runes, seq, i) {
			continue
		}
		if t.Escape != 0 && i > 0 && runes[i-1] == t.Escape {
			continue
		}
		return i, true
	}
	return 0, false
}

func hasAt(runes, seq []rune, i int) bool {
	for j, r := range seq {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
