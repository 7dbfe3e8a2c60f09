package autocomplete

// Rect is the caret bounding box in viewport pixels.
type Rect struct {
	Left, Top     int
	Width, Height int
}

// Point is a page-space popup anchor.
type Point struct {
	X, Y int
}

// Geometry is the host's live layout: where the caret is drawn and how far the page is scrolled.
// The controller may read it from fetch goroutines, so implementations must allow concurrent reads.
type Geometry interface {
	CaretRect() (Rect, bool)
	Scroll() (x, y int)
}

// Positioner turns caret geometry into popup coordinates.
type Positioner struct {
	Geometry Geometry
}

// Compute returns the caret's top-left corner in page coordinates.
// It returns {0,0} and false when there is no caret; the popup must not be drawn then.
func (p Positioner) Compute() (Point, bool) {
	if p.Geometry == nil {
		return Point{}, false
	}
	rect, ok := p.Geometry.CaretRect()
	if !ok {
		return Point{}, false
	}
	sx, sy := p.Geometry.Scroll()
	return Point{X: rect.Left + sx, Y: rect.Top + sy}, true
}
