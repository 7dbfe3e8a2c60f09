package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tag = Entity{Type: "SUGGESTION", Mutability: "IMMUTABLE", Data: "world"}

func TestNewPlacesCaretAtEnd(t *testing.T) {
	doc := New(Block{Key: "a", Text: "one"}, Block{Key: "b", Text: "twoé"})
	assert.Equal(t, Caret("b", 4), doc.Selection())
	assert.Equal(t, "one\ntwoé", doc.Text())
}

func TestFromText(t *testing.T) {
	doc := FromText("first\nsecond")
	blocks := doc.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, Block{Key: "b0", Text: "first"}, blocks[0])
	assert.Equal(t, Block{Key: "b1", Text: "second"}, blocks[1])
}

func TestTextBeforeCaret(t *testing.T) {
	doc := FromText("he<>wor")
	got, ok := doc.TextBeforeCaret()
	require.True(t, ok)
	assert.Equal(t, "he<>wor", got)

	moved, err := doc.WithSelection(Caret("b0", 2))
	require.NoError(t, err)
	got, ok = moved.TextBeforeCaret()
	require.True(t, ok)
	assert.Equal(t, "he", got)

	ranged, err := doc.WithSelection(Selection{Anchor: Position{"b0", 0}, Focus: Position{"b0", 3}})
	require.NoError(t, err)
	_, ok = ranged.TextBeforeCaret()
	assert.False(t, ok)
}

func TestReplaceTagsInsertedText(t *testing.T) {
	doc := FromText("he<>wor")

	next, sel, err := doc.Replace(Range{Block: "b0", Start: 2, End: 7}, "world", &tag)
	require.NoError(t, err)

	assert.Equal(t, "heworld", next.Text())
	assert.Equal(t, Caret("b0", 7), sel)
	assert.Equal(t, sel, next.Selection())
	assert.Equal(t, []Span{{Block: "b0", Start: 2, End: 7, Entity: tag}}, next.SpansOfType("SUGGESTION"))

	// receiver untouched
	assert.Equal(t, "he<>wor", doc.Text())
	assert.Empty(t, doc.Spans())
}

func TestReplaceInvalidRange(t *testing.T) {
	doc := FromText("abc")
	tests := []struct {
		name string
		r    Range
		want error
	}{
		{"end past block", Range{Block: "b0", Start: 1, End: 9}, ErrInvalidRange},
		{"negative start", Range{Block: "b0", Start: -1, End: 1}, ErrInvalidRange},
		{"inverted", Range{Block: "b0", Start: 2, End: 1}, ErrInvalidRange},
		{"missing block", Range{Block: "zz", Start: 0, End: 0}, ErrUnknownBlock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _, err := doc.Replace(tt.r, "x", nil)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, next)
		})
	}
}

func TestSpansShiftAndDrop(t *testing.T) {
	doc := FromText("ab")
	doc, _, err := doc.Replace(Range{Block: "b0", Start: 1, End: 1}, "XYZ", &tag)
	require.NoError(t, err)
	require.Equal(t, "aXYZb", doc.Text())

	// insert before the span shifts it
	shifted, _, err := doc.Replace(Range{Block: "b0", Start: 0, End: 0}, "__", nil)
	require.NoError(t, err)
	assert.Equal(t, []Span{{Block: "b0", Start: 3, End: 6, Entity: tag}}, shifted.Spans())

	// insert after the span leaves it alone
	after, _, err := doc.Replace(Range{Block: "b0", Start: 5, End: 5}, "!", nil)
	require.NoError(t, err)
	assert.Equal(t, []Span{{Block: "b0", Start: 1, End: 4, Entity: tag}}, after.Spans())

	// editing inside drops it
	inside, _, err := doc.Replace(Range{Block: "b0", Start: 2, End: 3}, "", nil)
	require.NoError(t, err)
	assert.Empty(t, inside.Spans())
}

func TestInsertAndBackspace(t *testing.T) {
	doc := FromText("")
	var err error
	for _, s := range []string{"<", ">", "x"} {
		doc, err = doc.Insert(s)
		require.NoError(t, err)
	}
	assert.Equal(t, "<>x", doc.Text())
	assert.Equal(t, Caret("b0", 3), doc.Selection())

	doc, err = doc.Backspace()
	require.NoError(t, err)
	assert.Equal(t, "<>", doc.Text())
	assert.Equal(t, Caret("b0", 2), doc.Selection())

	start, err := doc.WithSelection(Caret("b0", 0))
	require.NoError(t, err)
	same, err := start.Backspace()
	require.NoError(t, err)
	assert.Equal(t, "<>", same.Text())
}

func TestSplitBlockMovesTrailingSpans(t *testing.T) {
	doc := FromText("hi ")
	doc, _, err := doc.Replace(Range{Block: "b0", Start: 3, End: 3}, "word", &tag)
	require.NoError(t, err)
	doc, err = doc.WithSelection(Caret("b0", 2))
	require.NoError(t, err)

	split, err := doc.SplitBlock()
	require.NoError(t, err)
	assert.Equal(t, "hi\n word", split.Text())
	assert.Equal(t, Caret("b1", 0), split.Selection())
	assert.Equal(t, []Span{{Block: "b1", Start: 1, End: 5, Entity: tag}}, split.Spans())
}

func TestWithSelectionValidates(t *testing.T) {
	doc := FromText("abc")
	_, err := doc.WithSelection(Caret("b0", 4))
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = doc.WithSelection(Caret("nope", 0))
	assert.ErrorIs(t, err, ErrUnknownBlock)
}
