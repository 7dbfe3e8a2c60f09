package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	testCases := []struct {
		input       string
		match       bool
		start       int
		query       string
		description string
	}{
		{"he<>wor", true, 2, "wor", "Scenario from the editor"},
		{"<>", true, 0, "", "Empty query right after trigger"},
		{"<>   ", true, 0, "   ", "Whitespace query"},
		{"plain text", false, 0, "", "No trigger"},
		{"", false, 0, "", "Nothing typed"},
		{"<", false, 0, "", "Half a trigger"},
		{"<>a<>b", true, 3, "b", "Only the most recent trigger counts"},
		{"<>a<b", true, 0, "a<b", "Half trigger inside query"},
		{"<>hello world", true, 0, "hello world", "Spaces allowed in query"},
		{"<>ab\ncd", false, 0, "", "Line break closes the match"},
		{"<>ab\n<>cd", true, 5, "cd", "Trigger after line break"},
		{`he\<>wor`, true, 3, "wor", "Backslash is plain text by default"},
		{`<>a\<>b`, true, 4, "b", "Last trigger wins even after a backslash"},
		{"héé<>wör", true, 3, "wör", "Rune offsets"},
		{"<><>", true, 2, "", "Back to back triggers"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			m, ok := Detect(tc.input)
			require.Equal(t, tc.match, ok, "input %q", tc.input)
			if !ok {
				return
			}
			assert.Equal(t, tc.start, m.TriggerStart)
			assert.Equal(t, tc.query, m.Query)
		})
	}
}

// A match exists iff the trigger occurs in text[:caret] with no line break after it,
// and the query is everything after the last trigger.
func TestDetectMatchesLastIndex(t *testing.T) {
	texts := []string{"he<>wor", "a<>b<>c", "<>", "x<y>z<>", "no trigger", "<>one\ntwo", "abc<>", `he\<>wor`, `<>a\<>b`}
	trig := DefaultTrigger()

	for _, text := range texts {
		runes := []rune(text)
		for caret := 0; caret <= len(runes); caret++ {
			before := string(runes[:caret])
			m, ok := trig.Detect(before)

			idx := strings.LastIndex(before, DefaultSequence)
			want := idx >= 0 && !strings.ContainsAny(before[idx:], "\n\r")
			require.Equal(t, want, ok, "text %q caret %d", text, caret)
			if ok {
				assert.Equal(t, before[idx+len(DefaultSequence):], m.Query)
				assert.Equal(t, idx, m.TriggerStart)
			}
		}
	}
}

func TestFindTriggerStart(t *testing.T) {
	trig := DefaultTrigger()

	start, ok := trig.FindTriggerStart("he<>world tail", 9)
	require.True(t, ok)
	assert.Equal(t, 2, start)

	_, ok = trig.FindTriggerStart("he<>world", 3)
	assert.False(t, ok, "caret inside the trigger")

	_, ok = trig.FindTriggerStart("abc", 7)
	assert.False(t, ok, "caret past text")
}

func TestCustomTrigger(t *testing.T) {
	trig := Trigger{Sequence: "@@", Terminators: " "}

	m, ok := trig.Detect("mail @@jo")
	require.True(t, ok)
	assert.Equal(t, Match{TriggerStart: 5, Query: "jo"}, m)

	_, ok = trig.Detect("mail @@jo hn")
	assert.False(t, ok)

	_, ok = Trigger{}.Detect("<>x")
	assert.False(t, ok, "empty sequence never matches")
}

func TestEscapedTrigger(t *testing.T) {
	trig := DefaultTrigger()
	trig.Escape = '\\'

	_, ok := trig.Detect(`\<>x`)
	assert.False(t, ok, "escaped trigger is text")

	m, ok := trig.Detect(`<>a\<>x`)
	require.True(t, ok)
	assert.Equal(t, Match{TriggerStart: 0, Query: `a\<>x`}, m, "falls back to the earlier trigger")

	start, ok := trig.FindTriggerStart(`he\<>wor`, 8)
	assert.False(t, ok)
	assert.Zero(t, start)
}

func TestMatchEmpty(t *testing.T) {
	assert.True(t, Match{Query: ""}.Empty())
	assert.True(t, Match{Query: " \t"}.Empty())
	assert.False(t, Match{Query: "x"}.Empty())
}
