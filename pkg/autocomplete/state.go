package autocomplete

// Phase is where the session is in its lifecycle.
type Phase int

const (
	// Idle has no open query. A trigger with an empty query leaves the session Idle but Armed.
	Idle Phase = iota
	// Matching is the instant a new query is seen, before its timer starts.
	Matching
	// Debouncing waits for typing to pause.
	Debouncing
	// Loading has a fetch in flight.
	Loading
	// Ready shows the candidates for Query.
	Ready
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Matching:
		return "matching"
	case Debouncing:
		return "debouncing"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// State is a read-only snapshot of an autocomplete session.
type State struct {
	Phase Phase
	// Query is the query Candidates belong to; valid when Active.
	Query  string
	Active bool
	// Pending is the query being debounced or fetched.
	Pending string
	// TriggerStart is the rune offset of the open trigger in the caret block.
	TriggerStart int
	// Armed is set while a trigger is open, including with an empty query.
	Armed      bool
	Candidates []string
	Highlight  int
	Loading    bool
	// Token is the latest request token; results carrying an older one are dropped.
	Token uint64

	Position    Point
	HasPosition bool

	// Version increases with every change.
	Version uint64
}

// Open reports whether a non-empty query is being served.
func (s State) Open() bool {
	return s.Phase != Idle
}

// Visible reports whether the popup should show: a query is open and it is loading or has candidates.
func (s State) Visible() bool {
	return s.Open() && (s.Loading || len(s.Candidates) > 0)
}

// Highlighted returns the highlighted candidate.
func (s State) Highlighted() (string, bool) {
	if s.Highlight < 0 || s.Highlight >= len(s.Candidates) {
		return "", false
	}
	return s.Candidates[s.Highlight], true
}
