/*
Package server serves word completions as a stream of msgpack messages, and provides
the matching client, a suggest.Source backed by a remote server process.

# IPC

The server reads requests from its input and writes one response per request to its
output. Requests and responses are bare msgpack maps written back to back, with no
framing. Once started the server announces itself:

	{"status": "ready"}

Completion requests carry an id, a prefix and an optional limit:

	{"id": "7c1e…", "p": "wor", "l": 8}

The response lists suggestions ranked from 1, with the lookup time in microseconds:

	{"id": "7c1e…", "s": [{"w": "world", "r": 1}, {"w": "word", "r": 2}], "c": 2, "t": 41}

Requests that fail validation get an error with an HTTP-like code instead:

	{"id": "7c1e…", "e": "prefix exceeds maximum length of 60 characters", "c": 400}

A request with action "stats" reports the index size:

	{"id": "s1", "action": "stats"}
	{"id": "s1", "status": "ok", "words": 48211, "max_frequency": 65535}

Responses are written in request order, but the client matches them by id and does not
rely on that.
*/
package server

// CompletionRequest - minimal completion request
type CompletionRequest struct {
	ID     string `msgpack:"id"`
	Prefix string `msgpack:"p"`
	Limit  int    `msgpack:"l,omitempty"`
}

// CompletionSuggestion - minimal suggestion response
type CompletionSuggestion struct {
	Word string `msgpack:"w"`
	Rank uint16 `msgpack:"r"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"c"`
	TimeTaken   int64                  `msgpack:"t"`
}

// CompletionError holds basic error information for completion requests
type CompletionError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

// StatsResponse answers an action "stats" request.
type StatsResponse struct {
	ID           string `msgpack:"id"`
	Status       string `msgpack:"status"`
	Words        int    `msgpack:"words"`
	MaxFrequency int    `msgpack:"max_frequency"`
}

// StatusMessage is sent once when the server starts.
type StatusMessage struct {
	Status string `msgpack:"status"`
}

// request is the union of every message the server accepts.
type request struct {
	ID     string `msgpack:"id"`
	Prefix string `msgpack:"p"`
	Limit  int    `msgpack:"l"`
	Action string `msgpack:"action"`
}

// reply is the union of every message the server sends. "c" is a count on success
// and an error code on failure.
type reply struct {
	ID           string                 `msgpack:"id"`
	Suggestions  []CompletionSuggestion `msgpack:"s"`
	Count        int                    `msgpack:"c"`
	TimeTaken    int64                  `msgpack:"t"`
	Error        string                 `msgpack:"e"`
	Status       string                 `msgpack:"status"`
	Words        int                    `msgpack:"words"`
	MaxFrequency int                    `msgpack:"max_frequency"`
}

const (
	ActionComplete = ""
	ActionStats    = "stats"
	StatusReady    = "ready"
	StatusOK       = "ok"
)

// Error codes.
const (
	CodeBadRequest = 400
	CodeInternal   = 500
)
