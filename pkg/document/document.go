/*
Package document provides a small immutable block document used as the host model for
inline autocomplete.

A Document is an ordered list of blocks, each with a stable key and its current text, the
current selection, and a side-table of tagged spans. Offsets are rune offsets into a
block's text.

The only mutation is Replace, which never touches the receiver:

	next, sel, err := doc.Replace(document.Range{Block: "b1", Start: 2, End: 7}, "world", &tag)

Tagged spans are rendering annotations only. They shift with edits in the same
block and are dropped when an edit overlaps them.
*/
package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidRange is returned by Replace when the range falls outside its block.
	ErrInvalidRange = errors.New("invalid range")
	// ErrUnknownBlock is returned when a block key does not exist.
	ErrUnknownBlock = errors.New("unknown block")
)

// Block is one paragraph of text with an immutable identity.
type Block struct {
	Key  string
	Text string
}

// Len returns the block length in runes.
func (b Block) Len() int {
	return utf8.RuneCountInString(b.Text)
}

// Entity is an opaque tag attached to a text range.
type Entity struct {
	Type       string
	Mutability string
	Data       string
}

// Span ties an entity to a half-open rune range [Start, End) of a block.
type Span struct {
	Block  string
	Start  int
	End    int
	Entity Entity
}

// Range addresses a half-open rune range inside a single block.
type Range struct {
	Block string
	Start int
	End   int
}

// Document is an immutable snapshot of the editor content.
type Document struct {
	blocks    []Block
	index     map[string]int
	selection Selection
	spans     []Span
}

// New builds a document from plain blocks, with the caret at the end of the last block.
func New(blocks ...Block) *Document {
	d := &Document{
		blocks: append([]Block(nil), blocks...),
	}
	d.reindex()
	if len(d.blocks) > 0 {
		last := d.blocks[len(d.blocks)-1]
		d.selection = Caret(last.Key, last.Len())
	}
	return d
}

// FromText splits text on newlines into blocks keyed b0, b1, ...
func FromText(text string) *Document {
	lines := strings.Split(text, "\n")
	blocks := make([]Block, len(lines))
	for i, line := range lines {
		blocks[i] = Block{Key: "b" + strconv.Itoa(i), Text: line}
	}
	return New(blocks...)
}

func (d *Document) reindex() {
	d.index = make(map[string]int, len(d.blocks))
	for i, b := range d.blocks {
		d.index[b.Key] = i
	}
}

func (d *Document) clone() *Document {
	c := &Document{
		blocks:    append([]Block(nil), d.blocks...),
		selection: d.selection,
		spans:     append([]Span(nil), d.spans...),
	}
	c.reindex()
	return c
}

// Blocks returns a copy of the blocks in order.
func (d *Document) Blocks() []Block {
	return append([]Block(nil), d.blocks...)
}

// Block looks up a block by key.
func (d *Document) Block(key string) (Block, bool) {
	i, ok := d.index[key]
	if !ok {
		return Block{}, false
	}
	return d.blocks[i], true
}

// BlockText returns the text of the block with the given key.
func (d *Document) BlockText(key string) (string, bool) {
	b, ok := d.Block(key)
	return b.Text, ok
}

// Text joins all blocks with newlines.
func (d *Document) Text() string {
	parts := make([]string, len(d.blocks))
	for i, b := range d.blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n")
}

// Selection returns the current selection.
func (d *Document) Selection() Selection {
	return d.selection
}

// Spans returns the tagged spans, ordered by block then start offset.
func (d *Document) Spans() []Span {
	return append([]Span(nil), d.spans...)
}

// SpansOfType returns tagged spans whose entity has the given type.
func (d *Document) SpansOfType(entityType string) []Span {
	var out []Span
	for _, s := range d.spans {
		if s.Entity.Type == entityType {
			out = append(out, s)
		}
	}
	return out
}

// TextBeforeCaret returns the caret block's text up to the caret.
// It reports false when the selection is not collapsed or its block is unknown.
func (d *Document) TextBeforeCaret() (string, bool) {
	if !d.selection.Collapsed() {
		return "", false
	}
	b, ok := d.Block(d.selection.Focus.Block)
	if !ok {
		return "", false
	}
	runes := []rune(b.Text)
	off := d.selection.Focus.Offset
	if off < 0 || off > len(runes) {
		return "", false
	}
	return string(runes[:off]), true
}

// WithSelection returns a copy of the document with a new selection.
func (d *Document) WithSelection(sel Selection) (*Document, error) {
	for _, p := range []Position{sel.Anchor, sel.Focus} {
		b, ok := d.Block(p.Block)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBlock, p.Block)
		}
		if p.Offset < 0 || p.Offset > b.Len() {
			return nil, fmt.Errorf("%w: offset %d in block %q", ErrInvalidRange, p.Offset, p.Block)
		}
	}
	c := d.clone()
	c.selection = sel
	return c, nil
}

// Replace substitutes the text of r with text, optionally tagging the inserted runes.
// The returned selection is collapsed at the end of the inserted text.
func (d *Document) Replace(r Range, text string, tag *Entity) (*Document, Selection, error) {
	i, ok := d.index[r.Block]
	if !ok {
		return nil, Selection{}, fmt.Errorf("%w: %q", ErrUnknownBlock, r.Block)
	}
	runes := []rune(d.blocks[i].Text)
	if r.Start < 0 || r.End < r.Start || r.End > len(runes) {
		return nil, Selection{}, fmt.Errorf("%w: [%d,%d) in block %q of length %d",
			ErrInvalidRange, r.Start, r.End, r.Block, len(runes))
	}

	inserted := []rune(text)
	out := make([]rune, 0, len(runes)-(r.End-r.Start)+len(inserted))
	out = append(out, runes[:r.Start]...)
	out = append(out, inserted...)
	out = append(out, runes[r.End:]...)

	c := d.clone()
	c.blocks[i].Text = string(out)
	c.spans = shiftSpans(c.spans, r, len(inserted))
	if tag != nil && len(inserted) > 0 {
		c.spans = insertSpan(c.spans, Span{
			Block:  r.Block,
			Start:  r.Start,
			End:    r.Start + len(inserted),
			Entity: *tag,
		}, c.index)
	}
	c.selection = Caret(r.Block, r.Start+len(inserted))
	return c, c.selection, nil
}

// Insert types text at the caret, replacing any selected range in the focus block.
func (d *Document) Insert(text string) (*Document, error) {
	r, err := d.selectionRange()
	if err != nil {
		return nil, err
	}
	next, _, err := d.Replace(r, text, nil)
	return next, err
}

// Backspace deletes the rune before a collapsed caret, or the selected range.
func (d *Document) Backspace() (*Document, error) {
	r, err := d.selectionRange()
	if err != nil {
		return nil, err
	}
	if r.Start == r.End {
		if r.Start == 0 {
			return d, nil
		}
		r.Start--
	}
	next, _, err := d.Replace(r, "", nil)
	return next, err
}

// SplitBlock breaks the caret block in two at the caret and moves the caret into the new block.
func (d *Document) SplitBlock() (*Document, error) {
	if !d.selection.Collapsed() {
		return nil, fmt.Errorf("%w: selection is not collapsed", ErrInvalidRange)
	}
	pos := d.selection.Focus
	i, ok := d.index[pos.Block]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlock, pos.Block)
	}
	runes := []rune(d.blocks[i].Text)
	if pos.Offset < 0 || pos.Offset > len(runes) {
		return nil, fmt.Errorf("%w: offset %d", ErrInvalidRange, pos.Offset)
	}

	c := d.clone()
	key := c.nextKey()
	c.blocks[i].Text = string(runes[:pos.Offset])
	tail := Block{Key: key, Text: string(runes[pos.Offset:])}
	c.blocks = append(c.blocks[:i+1], append([]Block{tail}, c.blocks[i+1:]...)...)
	c.reindex()

	var spans []Span
	for _, s := range c.spans {
		switch {
		case s.Block != pos.Block || s.End <= pos.Offset:
			spans = append(spans, s)
		case s.Start >= pos.Offset:
			s.Block = key
			s.Start -= pos.Offset
			s.End -= pos.Offset
			spans = append(spans, s)
		}
	}
	c.spans = sortSpans(spans, c.index)
	c.selection = Caret(key, 0)
	return c, nil
}

func (d *Document) selectionRange() (Range, error) {
	sel := d.selection
	if sel.Anchor.Block != sel.Focus.Block {
		return Range{}, fmt.Errorf("%w: selection spans blocks", ErrInvalidRange)
	}
	start, end := sel.Anchor.Offset, sel.Focus.Offset
	if start > end {
		start, end = end, start
	}
	return Range{Block: sel.Focus.Block, Start: start, End: end}, nil
}

func (d *Document) nextKey() string {
	for n := len(d.blocks); ; n++ {
		key := "b" + strconv.Itoa(n)
		if _, taken := d.index[key]; !taken {
			return key
		}
	}
}

// shiftSpans moves spans after an edit of r that inserted n runes.
// Spans overlapping the replaced range are dropped.
func shiftSpans(spans []Span, r Range, n int) []Span {
	delta := n - (r.End - r.Start)
	out := spans[:0]
	for _, s := range spans {
		if s.Block != r.Block {
			out = append(out, s)
			continue
		}
		switch {
		case s.End <= r.Start:
			out = append(out, s)
		case s.Start >= r.End:
			s.Start += delta
			s.End += delta
			out = append(out, s)
		}
	}
	return out
}

func insertSpan(spans []Span, s Span, index map[string]int) []Span {
	return sortSpans(append(spans, s), index)
}

func sortSpans(spans []Span, index map[string]int) []Span {
	// insertion sort, span tables stay small
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spanLess(spans[j], spans[j-1], index); j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
	return spans
}

func spanLess(a, b Span, index map[string]int) bool {
	if a.Block != b.Block {
		return index[a.Block] < index[b.Block]
	}
	return a.Start < b.Start
}
