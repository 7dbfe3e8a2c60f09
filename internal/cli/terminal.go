package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/bastiangx/typeahead/pkg/autocomplete"
	"github.com/bastiangx/typeahead/pkg/document"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// textTop is the first screen row of the document; row 0 is the title bar.
const textTop = 1

const title = " typeahead | type <> to open suggestions | Ctrl-Q quits"

type termStyles struct {
	title      tcell.Style
	text       tcell.Style
	suggestion tcell.Style
	status     tcell.Style
	popup      tcell.Style
	selected   tcell.Style
	loading    tcell.Style
}

func defaultTermStyles() termStyles {
	return termStyles{
		title:      tcell.StyleDefault.Background(tcell.ColorGray).Foreground(tcell.ColorWhite),
		text:       tcell.StyleDefault,
		suggestion: tcell.StyleDefault.Foreground(tcell.ColorTeal).Underline(true),
		status:     tcell.StyleDefault.Background(tcell.ColorGray).Foreground(tcell.ColorWhite),
		popup:      tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorWhite),
		selected:   tcell.StyleDefault.Background(tcell.ColorTeal).Foreground(tcell.ColorBlack),
		loading:    tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorSilver).Italic(true),
	}
}

// caretGeometry is the controller's view of the caret cell. The controller reads it
// under its own lock, so it must never call back into the Terminal.
type caretGeometry struct {
	mu   sync.Mutex
	rect autocomplete.Rect
	ok   bool
}

func (g *caretGeometry) set(r autocomplete.Rect, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rect, g.ok = r, ok
}

func (g *caretGeometry) CaretRect() (autocomplete.Rect, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rect, g.ok
}

func (g *caretGeometry) Scroll() (int, int) { return 0, 0 }

// popupArea is where the popup was last drawn, for mouse hit tests.
type popupArea struct {
	x, y, width, rows int
}

func (p popupArea) row(x, y int) (int, bool) {
	if p.rows == 0 || x < p.x || x >= p.x+p.width || y < p.y || y >= p.y+p.rows {
		return 0, false
	}
	return y - p.y, true
}

// Terminal is a full screen editor hosting an autocomplete session.
type Terminal struct {
	screen tcell.Screen
	ctrl   *autocomplete.Controller
	geom   *caretGeometry
	styles termStyles

	mu    sync.Mutex
	doc   *document.Document
	popup popupArea
}

// NewTerminal creates an editor on an initialized screen. opts are passed to the
// controller; geometry and change notification are wired by the Terminal.
func NewTerminal(screen tcell.Screen, source suggest.Source, opts ...autocomplete.Option) *Terminal {
	t := &Terminal{
		screen: screen,
		geom:   &caretGeometry{},
		styles: defaultTermStyles(),
		doc:    document.FromText(""),
	}
	opts = append(opts, autocomplete.WithGeometry(t.geom), autocomplete.WithOnChange(t.onChange))
	t.ctrl = autocomplete.New(source, opts...)
	return t
}

// Controller returns the session controller.
func (t *Terminal) Controller() *autocomplete.Controller {
	return t.ctrl
}

// Document returns the current document.
func (t *Terminal) Document() *document.Document {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doc
}

// quitEvent is the interrupt payload that stops Run.
type quitEvent struct{}

// onChange runs on fetch goroutines; the redraw happens on the event loop.
func (t *Terminal) onChange(st autocomplete.State) {
	if err := t.screen.PostEvent(tcell.NewEventInterrupt(nil)); err != nil {
		log.Debug("redraw dropped", "version", st.Version, "err", err)
	}
}

// Run draws and handles events until Ctrl-Q, Ctrl-C or ctx is done, then closes the
// controller. The caller owns screen initialization and Fini.
func (t *Terminal) Run(ctx context.Context) error {
	defer t.ctrl.Close()
	t.screen.EnableMouse(tcell.MouseMotionEvents)
	t.refresh()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			// PostEventWait blocks while the queue is full, so the quit is never lost
			t.screen.PostEventWait(tcell.NewEventInterrupt(quitEvent{}))
		case <-stop:
		}
	}()

	for {
		t.draw()
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			t.refresh()
			t.screen.Sync()
		case *tcell.EventInterrupt:
			if _, ok := ev.Data().(quitEvent); ok {
				return nil
			}
		case *tcell.EventMouse:
			t.handleMouse(ev)
		case *tcell.EventKey:
			if !t.handleKey(ev) {
				return nil
			}
		}
	}
}

// keyFor maps the keys the popup may capture.
func keyFor(ev *tcell.EventKey) autocomplete.Key {
	switch ev.Key() {
	case tcell.KeyDown:
		return autocomplete.KeyDown
	case tcell.KeyUp:
		return autocomplete.KeyUp
	case tcell.KeyEnter:
		return autocomplete.KeyEnter
	case tcell.KeyTab:
		return autocomplete.KeyTab
	case tcell.KeyEscape:
		return autocomplete.KeyEscape
	}
	return autocomplete.KeyNone
}

// handleKey reports false when the editor should quit.
func (t *Terminal) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlQ, tcell.KeyCtrlC:
		return false
	}

	doc := t.Document()
	if k := keyFor(ev); k != autocomplete.KeyNone {
		next, handled := t.ctrl.HandleKey(doc, k)
		if handled {
			t.setDocument(next)
			return true
		}
	}

	var next *document.Document
	var err error
	switch ev.Key() {
	case tcell.KeyRune:
		next, err = doc.Insert(string(ev.Rune()))
	case tcell.KeyEnter:
		next, err = doc.SplitBlock()
	case tcell.KeyTab:
		next, err = doc.Insert("    ")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		next, err = doc.Backspace()
	case tcell.KeyLeft:
		next, err = moveCaret(doc, -1)
	case tcell.KeyRight:
		next, err = moveCaret(doc, 1)
	case tcell.KeyUp:
		next, err = moveLine(doc, -1)
	case tcell.KeyDown:
		next, err = moveLine(doc, 1)
	default:
		return true
	}
	if err != nil {
		log.Debug("edit rejected", "key", ev.Name(), "err", err)
		return true
	}
	t.setDocument(next)
	return true
}

func (t *Terminal) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	t.mu.Lock()
	row, ok := t.popup.row(x, y)
	t.mu.Unlock()
	if !ok {
		return
	}

	switch ev.Buttons() {
	case tcell.ButtonNone:
		t.ctrl.SelectCandidate(row)
	case tcell.Button1:
		next, err := t.ctrl.Click(t.Document(), row)
		if err != nil {
			log.Debug("click ignored", "row", row, "err", err)
			return
		}
		t.setDocument(next)
	}
}

func (t *Terminal) setDocument(doc *document.Document) {
	t.mu.Lock()
	t.doc = doc
	t.mu.Unlock()
	t.refresh()
}

// refresh publishes the caret cell and re-runs match detection.
func (t *Terminal) refresh() {
	doc := t.Document()
	rect, ok := caretCell(doc)
	t.geom.set(rect, ok)
	t.ctrl.Update(doc)
}

func caretCell(doc *document.Document) (autocomplete.Rect, bool) {
	focus := doc.Selection().Focus
	for i, b := range doc.Blocks() {
		if b.Key != focus.Block {
			continue
		}
		runes := []rune(b.Text)
		if focus.Offset > len(runes) {
			return autocomplete.Rect{}, false
		}
		x := runewidth.StringWidth(string(runes[:focus.Offset]))
		return autocomplete.Rect{Left: x, Top: textTop + i, Width: 1, Height: 1}, true
	}
	return autocomplete.Rect{}, false
}

func moveCaret(doc *document.Document, delta int) (*document.Document, error) {
	focus := doc.Selection().Focus
	blocks := doc.Blocks()
	for i, b := range blocks {
		if b.Key != focus.Block {
			continue
		}
		off := focus.Offset + delta
		switch {
		case off < 0 && i > 0:
			prev := blocks[i-1]
			return doc.WithSelection(document.Caret(prev.Key, prev.Len()))
		case off > b.Len() && i < len(blocks)-1:
			return doc.WithSelection(document.Caret(blocks[i+1].Key, 0))
		case off < 0 || off > b.Len():
			return doc, nil
		}
		return doc.WithSelection(document.Caret(b.Key, off))
	}
	return doc, nil
}

func moveLine(doc *document.Document, delta int) (*document.Document, error) {
	focus := doc.Selection().Focus
	blocks := doc.Blocks()
	for i, b := range blocks {
		if b.Key != focus.Block {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(blocks) {
			return doc, nil
		}
		target := blocks[j]
		return doc.WithSelection(document.Caret(target.Key, min(focus.Offset, target.Len())))
	}
	return doc, nil
}

func (t *Terminal) draw() {
	s := t.screen
	s.Clear()
	width, height := s.Size()
	doc := t.Document()
	st := t.ctrl.State()

	drawLine(s, 0, 0, width, title, t.styles.title)

	tagged := make(map[string][]document.Span)
	for _, sp := range doc.SpansOfType(autocomplete.SuggestionEntity) {
		tagged[sp.Block] = append(tagged[sp.Block], sp)
	}
	for i, b := range doc.Blocks() {
		y := textTop + i
		if y >= height-1 {
			break
		}
		x := 0
		for j, r := range []rune(b.Text) {
			style := t.styles.text
			for _, sp := range tagged[b.Key] {
				if j >= sp.Start && j < sp.End {
					style = t.styles.suggestion
				}
			}
			s.SetContent(x, y, r, nil, style)
			x += runewidth.RuneWidth(r)
		}
	}

	if rect, ok := t.geom.CaretRect(); ok {
		s.ShowCursor(rect.Left, rect.Top)
	} else {
		s.HideCursor()
	}

	status := fmt.Sprintf(" %s  query=%q  candidates=%d", st.Phase, st.Query, len(st.Candidates))
	if st.Pending != "" {
		status += fmt.Sprintf("  pending=%q", st.Pending)
	}
	drawLine(s, 0, height-1, width, status, t.styles.status)

	area := t.drawPopup(st, width, height)
	t.mu.Lock()
	t.popup = area
	t.mu.Unlock()

	s.Show()
}

// drawPopup draws the candidate list under the caret, or above it when there is no room.
func (t *Terminal) drawPopup(st autocomplete.State, width, height int) popupArea {
	if !st.Visible() || !st.HasPosition {
		return popupArea{}
	}
	items := st.Candidates
	loadingRow := len(items) == 0
	if loadingRow {
		items = []string{"loading..."}
	}

	w := 0
	for _, item := range items {
		w = max(w, runewidth.StringWidth(item))
	}
	w += 2

	x := min(st.Position.X, max(0, width-w))
	y := st.Position.Y + 1
	if y+len(items) > height-1 {
		y = max(textTop, st.Position.Y-len(items))
	}

	for i, item := range items {
		style := t.styles.popup
		switch {
		case loadingRow:
			style = t.styles.loading
		case i == st.Highlight:
			style = t.styles.selected
		}
		drawLine(t.screen, x, y+i, w, " "+item, style)
	}
	return popupArea{x: x, y: y, width: w, rows: len(items)}
}

// drawLine fills width cells from (x, y) with text, padded with spaces.
func drawLine(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if col+rw > x+width {
			break
		}
		s.SetContent(col, y, r, nil, style)
		col += rw
	}
	for ; col < x+width; col++ {
		s.SetContent(col, y, ' ', nil, style)
	}
}
