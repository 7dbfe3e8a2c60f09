/*
Package autocomplete implements the inline suggestion session of a rich-text editor.

A Controller watches the text before the caret for an open trigger (see package match),
debounces the typed query, asks a suggest.Source for candidates, and lets the host browse
and commit them. Committing replaces the trigger and query with the chosen candidate,
tagged as a SUGGESTION entity.

	ctrl := autocomplete.New(source, autocomplete.WithDebounce(300*time.Millisecond))
	defer ctrl.Close()

	// after every document change
	ctrl.Update(doc)

	// on key press
	doc, handled := ctrl.HandleKey(doc, autocomplete.KeyEnter)

# Ordering

Every fetch carries a token from a counter that also advances whenever the session is
cleared or the query changes. A result is applied only while its token is still the latest,
so a slow, older fetch never overwrites a newer one and an escaped session never reopens.
In-flight requests also get their context cancelled, but correctness does not depend on
the source honouring it.

# Empty queries

A trigger followed by nothing (or only whitespace) arms the session without fetching.
Nothing is shown until at least one non-space character is typed.
*/
package autocomplete

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bastiangx/typeahead/pkg/document"
	"github.com/bastiangx/typeahead/pkg/match"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
)

const (
	// DefaultDebounce is the pause in typing before a query is sent.
	DefaultDebounce = 300 * time.Millisecond
	// DefaultFetchTimeout bounds a single source request.
	DefaultFetchTimeout = 2 * time.Second
)

// Caret is the part of the host document the controller reads on every edit.
type Caret interface {
	Selection() document.Selection
	// TextBeforeCaret returns the caret block's text up to the caret, or false if there is no caret.
	TextBeforeCaret() (string, bool)
}

// Key is a key the popup may capture.
type Key int

const (
	KeyNone Key = iota
	KeyDown
	KeyUp
	KeyEnter
	KeyTab
	KeyEscape
)

// Option configures a Controller.
type Option func(*Controller)

// WithTrigger sets the trigger sequence, escape and terminators.
func WithTrigger(t match.Trigger) Option {
	return func(c *Controller) {
		c.trigger = t
	}
}

// WithDebounce sets the typing pause before a fetch. Zero fetches on every qualifying edit.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.debounce = d
	}
}

// WithFetchTimeout bounds each fetch. Zero disables the timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.fetchTimeout = d
	}
}

// WithMaxCandidates caps how many candidates are kept from a result. Zero keeps all.
func WithMaxCandidates(n int) Option {
	return func(c *Controller) {
		c.maxCandidates = n
	}
}

// WithLogger replaces the default charm logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithGeometry enables popup positioning from the host's caret geometry.
func WithGeometry(g Geometry) Option {
	return func(c *Controller) {
		c.positioner = Positioner{Geometry: g}
	}
}

// WithOnChange subscribes fn to state changes. Snapshots arrive in version order.
// fn runs on whichever goroutine made the change and must not call back into the Controller.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) {
		c.onChange = append(c.onChange, fn)
	}
}

// Controller owns one autocomplete session. It is safe for concurrent use.
type Controller struct {
	source        suggest.Source
	log           *log.Logger
	positioner    Positioner
	onChange      []func(State)
	maxCandidates int
	fetchTimeout  time.Duration

	mu          sync.Mutex
	trigger     match.Trigger
	debounce    time.Duration
	state       State
	current     match.Match
	dismissed   *match.Match
	timer       *time.Timer
	debounceSeq uint64
	cancelFetch context.CancelFunc
	closed      bool

	wg        sync.WaitGroup
	notifyMu  sync.Mutex
	delivered uint64
}

// New creates a controller querying source.
func New(source suggest.Source, opts ...Option) *Controller {
	c := &Controller{
		source:       source,
		log:          log.Default(),
		trigger:      match.DefaultTrigger(),
		debounce:     DefaultDebounce,
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Update re-runs match detection after a document or caret change.
func (c *Controller) Update(doc Caret) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	snap, changed := c.updateLocked(doc)
	c.mu.Unlock()
	if changed {
		c.notify(snap)
	}
}

func (c *Controller) updateLocked(doc Caret) (State, bool) {
	if !doc.Selection().Collapsed() {
		c.dismissed = nil
		return c.resetLocked("selection not collapsed")
	}
	text, ok := doc.TextBeforeCaret()
	if !ok {
		c.dismissed = nil
		return c.resetLocked("no caret")
	}
	m, ok := c.trigger.Detect(text)
	if !ok {
		c.dismissed = nil
		return c.resetLocked("no match")
	}
	c.current = m

	if c.dismissed != nil {
		if *c.dismissed == m {
			return c.finishLocked(false)
		}
		c.dismissed = nil
	}

	if m.Empty() {
		s := c.state
		changed := s.Open() || len(s.Candidates) > 0 || !s.Armed || s.TriggerStart != m.TriggerStart
		c.clearLocked()
		c.state.Armed = true
		c.state.TriggerStart = m.TriggerStart
		return c.finishLocked(changed)
	}

	changed := !c.state.Armed || c.state.TriggerStart != m.TriggerStart
	c.state.Armed = true
	c.state.TriggerStart = m.TriggerStart

	if c.state.Active && c.state.Query == m.Query {
		if c.state.Phase != Ready {
			c.stopTimerLocked()
			c.invalidateLocked()
			c.state.Phase = Ready
			c.state.Pending = ""
			c.state.Loading = false
			changed = true
		}
		return c.finishLocked(changed)
	}
	if (c.state.Phase == Debouncing || c.state.Phase == Loading) && c.state.Pending == m.Query {
		return c.finishLocked(changed)
	}

	c.state.Phase = Matching
	c.log.Debug("match", "query", m.Query, "start", m.TriggerStart)
	c.scheduleLocked(m.Query)
	return c.finishLocked(true)
}

// scheduleLocked restarts the debounce timer for query. Any earlier timer or fetch is superseded.
func (c *Controller) scheduleLocked(query string) {
	c.stopTimerLocked()
	c.invalidateLocked()
	c.state.Pending = query
	c.state.Phase = Debouncing
	c.state.Loading = false

	c.debounceSeq++
	seq := c.debounceSeq
	if c.debounce <= 0 {
		c.issueLocked()
		return
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.fire(seq)
	})
}

func (c *Controller) fire(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.debounceSeq || c.state.Phase != Debouncing {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.issueLocked()
	snap, _ := c.finishLocked(true)
	c.mu.Unlock()
	c.notify(snap)
}

// issueLocked starts the fetch for the pending query under a fresh token.
func (c *Controller) issueLocked() {
	c.state.Token++
	token := c.state.Token
	query := c.state.Pending

	var ctx context.Context
	var cancel context.CancelFunc
	if c.fetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.fetchTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	c.cancelFetch = cancel
	c.state.Phase = Loading
	c.state.Loading = true
	c.log.Debug("fetch issued", "query", query, "token", token)

	c.wg.Add(1)
	go c.run(ctx, cancel, token, query)
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, token uint64, query string) {
	defer c.wg.Done()
	defer cancel()

	words, err := c.fetch(ctx, query)
	c.resolve(token, query, words, err)
}

func (c *Controller) fetch(ctx context.Context, query string) (words []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("suggestion source panicked: %v", r)
		}
	}()
	return c.source.Fetch(ctx, query)
}

func (c *Controller) resolve(token uint64, query string, words []string, err error) {
	c.mu.Lock()
	if c.closed || token != c.state.Token || c.state.Phase != Loading {
		c.mu.Unlock()
		c.log.Debug("stale result dropped", "query", query, "token", token)
		return
	}
	c.cancelFetch = nil

	if err != nil {
		c.log.Warn("suggestion fetch failed", "query", query, "err", err)
		c.clearLocked()
		failed := match.Match{TriggerStart: c.current.TriggerStart, Query: query}
		c.dismissed = &failed
		snap, _ := c.finishLocked(true)
		c.mu.Unlock()
		c.notify(snap)
		return
	}

	if c.maxCandidates > 0 && len(words) > c.maxCandidates {
		words = words[:c.maxCandidates]
	}
	c.state.Candidates = append([]string(nil), words...)
	c.state.Query = query
	c.state.Active = true
	c.state.Pending = ""
	c.state.Highlight = 0
	c.state.Loading = false
	c.state.Phase = Ready
	c.log.Debug("candidates ready", "query", query, "token", token, "count", len(words))

	snap, _ := c.finishLocked(true)
	c.mu.Unlock()
	c.notify(snap)
}

// Escape closes the session without touching the document. The same match stays
// dismissed until the query or trigger changes. It reports whether anything was open.
func (c *Controller) Escape() bool {
	c.mu.Lock()
	wasOpen := c.state.Armed || c.state.Open()
	if wasOpen {
		dismissed := c.current
		c.dismissed = &dismissed
	}
	changed := c.clearLocked()
	snap, changed := c.finishLocked(changed)
	c.mu.Unlock()
	if changed {
		c.log.Debug("session escaped")
		c.notify(snap)
	}
	return wasOpen
}

// MoveNext highlights the next candidate, wrapping around.
func (c *Controller) MoveNext() {
	c.move(Next)
}

// MovePrev highlights the previous candidate, wrapping around.
func (c *Controller) MovePrev() {
	c.move(Prev)
}

func (c *Controller) move(step func(index, length int) int) {
	c.mu.Lock()
	n := len(c.state.Candidates)
	if !c.state.Open() || n == 0 {
		c.mu.Unlock()
		return
	}
	c.state.Highlight = step(c.state.Highlight, n)
	snap, _ := c.finishLocked(true)
	c.mu.Unlock()
	c.notify(snap)
}

// SelectCandidate highlights entry i, as on mouse hover. i is clamped to the list.
func (c *Controller) SelectCandidate(i int) {
	c.mu.Lock()
	n := len(c.state.Candidates)
	if n == 0 {
		c.mu.Unlock()
		return
	}
	i = Clamp(i, n)
	changed := c.state.Highlight != i
	c.state.Highlight = i
	snap, changed := c.finishLocked(changed)
	c.mu.Unlock()
	if changed {
		c.notify(snap)
	}
}

// Commit replaces the open trigger and query in doc with candidate and closes the session.
// On failure doc is returned unchanged along with an error wrapping ErrInvalidReplacementRange;
// the session is closed either way.
func (c *Controller) Commit(doc *document.Document, candidate string) (*document.Document, error) {
	c.mu.Lock()
	trig := c.trigger
	c.mu.Unlock()

	next, _, err := Commit(doc, trig, candidate)

	c.mu.Lock()
	c.dismissed = nil
	changed := c.clearLocked()
	snap, changed := c.finishLocked(changed)
	c.mu.Unlock()
	if changed {
		c.notify(snap)
	}

	if err != nil {
		c.log.Warn("commit aborted", "suggestion", candidate, "err", err)
		return doc, err
	}
	c.log.Debug("suggestion committed", "suggestion", candidate)
	return next, nil
}

// CommitHighlighted commits the highlighted candidate. It fails with ErrNoCandidate
// unless the list belongs to the query currently typed.
func (c *Controller) CommitHighlighted(doc *document.Document) (*document.Document, error) {
	c.mu.Lock()
	candidate, ok := c.state.Highlighted()
	current := c.currentLocked()
	c.mu.Unlock()
	if !current || !ok {
		return doc, ErrNoCandidate
	}
	return c.Commit(doc, candidate)
}

// Click commits candidate i, as on mouse down in the popup. Like CommitHighlighted it
// refuses a list left over from an earlier query.
func (c *Controller) Click(doc *document.Document, i int) (*document.Document, error) {
	c.mu.Lock()
	current := c.currentLocked()
	n := len(c.state.Candidates)
	var candidate string
	if i >= 0 && i < n {
		candidate = c.state.Candidates[i]
	}
	c.mu.Unlock()
	if !current || i < 0 || i >= n {
		return doc, ErrNoCandidate
	}
	return c.Commit(doc, candidate)
}

// currentLocked reports whether the candidates were fetched for the open match's query.
// While a retyped query is debouncing or loading the old list is still shown, but it
// must not be committed.
func (c *Controller) currentLocked() bool {
	return c.state.Phase == Ready && c.state.Active && c.state.Query == c.current.Query
}

// HandleKey applies the popup's keyboard contract. It reports whether the key was
// consumed; the host must then skip its default handling (newline, focus traversal).
// Enter and Tab commit only a list that matches the typed query; otherwise Enter is
// left to the host and Tab is swallowed while a trigger is open.
func (c *Controller) HandleKey(doc *document.Document, key Key) (*document.Document, bool) {
	st := c.State()
	listed := st.Open() && len(st.Candidates) > 0

	switch key {
	case KeyDown:
		if listed {
			c.MoveNext()
			return doc, true
		}
	case KeyUp:
		if listed {
			c.MovePrev()
			return doc, true
		}
	case KeyEnter:
		if next, err := c.CommitHighlighted(doc); !errors.Is(err, ErrNoCandidate) {
			return next, true
		}
	case KeyTab:
		if next, err := c.CommitHighlighted(doc); !errors.Is(err, ErrNoCandidate) {
			return next, true
		}
		if st.Armed || st.Open() {
			return doc, true
		}
	case KeyEscape:
		if c.Escape() {
			return doc, true
		}
	}
	return doc, false
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Visible reports whether the popup should be drawn.
func (c *Controller) Visible() bool {
	return c.State().Visible()
}

// Flush fires a pending debounce timer immediately.
func (c *Controller) Flush() {
	c.mu.Lock()
	if c.closed || c.state.Phase != Debouncing {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.debounceSeq++
	c.issueLocked()
	snap, _ := c.finishLocked(true)
	c.mu.Unlock()
	c.notify(snap)
}

// Wait blocks until every fetch started so far has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// SetDebounce changes the typing pause for future edits.
func (c *Controller) SetDebounce(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debounce = d
}

// SetTrigger swaps the trigger and closes the session.
func (c *Controller) SetTrigger(t match.Trigger) {
	c.mu.Lock()
	c.trigger = t
	c.dismissed = nil
	snap, changed := c.resetLocked("trigger changed")
	c.mu.Unlock()
	if changed {
		c.notify(snap)
	}
}

// Close stops the timer, invalidates in-flight fetches and waits for them to return.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.clearLocked()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) resetLocked(reason string) (State, bool) {
	changed := c.clearLocked()
	if changed {
		c.log.Debug("session cleared", "reason", reason)
	}
	return c.finishLocked(changed)
}

// clearLocked drops all session fields and invalidates any pending work.
func (c *Controller) clearLocked() bool {
	c.stopTimerLocked()
	c.invalidateLocked()

	s := &c.state
	changed := s.Phase != Idle || s.Active || s.Pending != "" || len(s.Candidates) > 0 ||
		s.Loading || s.Armed || s.Highlight != 0
	s.Phase = Idle
	s.Query = ""
	s.Active = false
	s.Pending = ""
	s.TriggerStart = 0
	s.Armed = false
	s.Candidates = nil
	s.Highlight = 0
	s.Loading = false
	return changed
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.debounceSeq++
}

// invalidateLocked makes the in-flight fetch, if any, stale.
func (c *Controller) invalidateLocked() {
	if c.cancelFetch == nil {
		return
	}
	c.cancelFetch()
	c.cancelFetch = nil
	c.state.Token++
}

// finishLocked refreshes the popup position and bumps the version when anything changed.
func (c *Controller) finishLocked(changed bool) (State, bool) {
	if c.positioner.Geometry != nil {
		p, ok := c.positioner.Compute()
		if p != c.state.Position || ok != c.state.HasPosition {
			c.state.Position = p
			c.state.HasPosition = ok
			changed = true
		}
	}
	if changed {
		c.state.Version++
	}
	return c.snapshotLocked(), changed
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Candidates = append([]string(nil), c.state.Candidates...)
	return s
}

func (c *Controller) notify(s State) {
	if len(c.onChange) == 0 {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if s.Version <= c.delivered {
		return
	}
	c.delivered = s.Version
	for _, fn := range c.onChange {
		fn(s)
	}
}
