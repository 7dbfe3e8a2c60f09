package autocomplete

import (
	"errors"
	"fmt"

	"github.com/bastiangx/typeahead/pkg/document"
	"github.com/bastiangx/typeahead/pkg/match"
)

// SuggestionEntity is the entity type tagging committed suggestions.
const SuggestionEntity = "SUGGESTION"

var (
	// ErrInvalidReplacementRange means the trigger is gone or the edit range was rejected.
	ErrInvalidReplacementRange = errors.New("invalid replacement range")
	// ErrNoCandidate means there was nothing to commit.
	ErrNoCandidate = errors.New("no candidate to commit")
)

// SuggestionTag returns the immutable entity attached to an inserted suggestion.
func SuggestionTag(suggestion string) document.Entity {
	return document.Entity{
		Type:       SuggestionEntity,
		Mutability: "IMMUTABLE",
		Data:       suggestion,
	}
}

// Commit replaces the text from the nearest trigger before the caret up to the caret with
// suggestion, tags it, and puts the caret at the end of the inserted text.
//
// The trigger is located again in the current document rather than taken from an earlier
// match. On any failure the original document and selection are returned unchanged.
func Commit(doc *document.Document, trig match.Trigger, suggestion string) (*document.Document, document.Selection, error) {
	sel := doc.Selection()
	if !sel.Collapsed() {
		return doc, sel, fmt.Errorf("%w: selection is not collapsed", ErrInvalidReplacementRange)
	}
	caret := sel.Focus

	text, ok := doc.BlockText(caret.Block)
	if !ok {
		return doc, sel, fmt.Errorf("%w: caret block %q not found", ErrInvalidReplacementRange, caret.Block)
	}
	start, ok := trig.FindTriggerStart(text, caret.Offset)
	if !ok {
		return doc, sel, fmt.Errorf("%w: no trigger before offset %d", ErrInvalidReplacementRange, caret.Offset)
	}

	tag := SuggestionTag(suggestion)
	next, nextSel, err := doc.Replace(document.Range{
		Block: caret.Block,
		Start: start,
		End:   caret.Offset,
	}, suggestion, &tag)
	if err != nil {
		return doc, sel, fmt.Errorf("%w: %w", ErrInvalidReplacementRange, err)
	}
	return next, nextSel, nil
}
