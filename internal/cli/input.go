// Package cli hosts interactive front ends for an autocomplete session: a line driven
// shell for scripting and debugging, and a full screen tcell editor.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bastiangx/typeahead/pkg/autocomplete"
	"github.com/bastiangx/typeahead/pkg/document"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const inputHelp = `type text and press Enter to insert it at the caret
commands: :down :up :enter :tab :esc  (popup keys)
          :nl :bs :show :quit          (newline, backspace, redraw, exit)`

type inputStyles struct {
	popup    lipgloss.Style
	selected lipgloss.Style
	loading  lipgloss.Style
	span     lipgloss.Style
	caret    lipgloss.Style
}

// InputHandler drives a session from line input. Each line is either text to insert
// or a command standing in for a key press. Fetches are flushed and awaited after every
// edit, so output is deterministic.
type InputHandler struct {
	ctrl   *autocomplete.Controller
	in     io.Reader
	out    io.Writer
	doc    *document.Document
	styles inputStyles
}

// NewInputHandler creates a handler editing an empty document.
func NewInputHandler(ctrl *autocomplete.Controller, in io.Reader, out io.Writer) *InputHandler {
	r := lipgloss.NewRenderer(out)
	return &InputHandler{
		ctrl: ctrl,
		in:   in,
		out:  out,
		doc:  document.FromText(""),
		styles: inputStyles{
			popup: r.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
				Padding(0, 1),
			selected: r.NewStyle().Reverse(true),
			loading:  r.NewStyle().Italic(true).Faint(true),
			span:     r.NewStyle().Underline(true).Foreground(lipgloss.Color("75")),
			caret:    r.NewStyle().Bold(true),
		},
	}
}

// Document returns the current document.
func (h *InputHandler) Document() *document.Document {
	return h.doc
}

// Start reads lines until EOF or :quit.
func (h *InputHandler) Start() error {
	fmt.Fprintln(h.out, inputHelp)
	scanner := bufio.NewScanner(h.in)
	for scanner.Scan() {
		if !h.handleLine(scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}

// handleLine reports false when the loop should stop.
func (h *InputHandler) handleLine(line string) bool {
	switch line {
	case ":quit":
		return false
	case ":show":
		h.render()
		return true
	case ":down":
		h.key(autocomplete.KeyDown)
	case ":up":
		h.key(autocomplete.KeyUp)
	case ":enter":
		h.key(autocomplete.KeyEnter)
	case ":tab":
		h.key(autocomplete.KeyTab)
	case ":esc":
		h.key(autocomplete.KeyEscape)
	case ":nl":
		h.edit(h.doc.SplitBlock())
	case ":bs":
		h.edit(h.doc.Backspace())
	case "":
		return true
	default:
		h.edit(h.doc.Insert(line))
	}
	h.render()
	return true
}

// key offers k to the popup first and falls back to the editor default.
func (h *InputHandler) key(k autocomplete.Key) {
	next, handled := h.ctrl.HandleKey(h.doc, k)
	if handled {
		if next != h.doc {
			h.doc = next
			h.sync()
		}
		return
	}
	switch k {
	case autocomplete.KeyEnter:
		h.edit(h.doc.SplitBlock())
	case autocomplete.KeyTab:
		h.edit(h.doc.Insert("    "))
	}
}

func (h *InputHandler) edit(next *document.Document, err error) {
	if err != nil {
		log.Warn("edit rejected", "err", err)
		return
	}
	h.doc = next
	h.sync()
}

func (h *InputHandler) sync() {
	h.ctrl.Update(h.doc)
	h.ctrl.Flush()
	h.ctrl.Wait()
}

func (h *InputHandler) render() {
	fmt.Fprintln(h.out, h.documentView())
	st := h.ctrl.State()
	if !st.Visible() {
		return
	}
	fmt.Fprintln(h.out, h.popupView(st))
}

// documentView prints every block on its own line with | at the caret.
func (h *InputHandler) documentView() string {
	focus := h.doc.Selection().Focus
	spans := h.doc.SpansOfType(autocomplete.SuggestionEntity)

	var lines []string
	for _, b := range h.doc.Blocks() {
		runes := []rune(b.Text)
		var sb strings.Builder
		pos := 0
		emit := func(end int) {
			if end <= pos {
				return
			}
			sb.WriteString(h.styleRange(b.Key, runes, pos, end, spans))
			pos = end
		}
		if b.Key == focus.Block {
			emit(min(focus.Offset, len(runes)))
			sb.WriteString(h.styles.caret.Render("|"))
		}
		emit(len(runes))
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// styleRange renders runes[start:end], underlining parts covered by suggestion spans.
func (h *InputHandler) styleRange(block string, runes []rune, start, end int, spans []document.Span) string {
	var sb strings.Builder
	for i := start; i < end; {
		j := i + 1
		tagged := false
		for _, sp := range spans {
			if sp.Block == block && i >= sp.Start && i < sp.End {
				tagged = true
				j = min(sp.End, end)
				break
			}
		}
		if tagged {
			sb.WriteString(h.styles.span.Render(string(runes[i:j])))
		} else {
			sb.WriteString(string(runes[i:j]))
		}
		i = j
	}
	return sb.String()
}

func (h *InputHandler) popupView(st autocomplete.State) string {
	if len(st.Candidates) == 0 {
		return h.styles.popup.Render(h.styles.loading.Render("loading..."))
	}
	rows := make([]string, len(st.Candidates))
	for i, c := range st.Candidates {
		if i == st.Highlight {
			rows[i] = h.styles.selected.Render("> " + c)
			continue
		}
		rows[i] = "  " + c
	}
	return h.styles.popup.Render(strings.Join(rows, "\n"))
}
