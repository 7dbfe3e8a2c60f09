package document

// Position is a caret location: a block key and a rune offset within it.
type Position struct {
	Block  string
	Offset int
}

// Selection is an anchor/focus pair. It is collapsed when both ends coincide.
type Selection struct {
	Anchor Position
	Focus  Position
}

// Caret returns a collapsed selection at the given position.
func Caret(block string, offset int) Selection {
	p := Position{Block: block, Offset: offset}
	return Selection{Anchor: p, Focus: p}
}

// Collapsed reports whether the selection is a single caret.
func (s Selection) Collapsed() bool {
	return s.Anchor == s.Focus
}
