package server

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/config"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// defaultLimit applies to requests without a limit, capped by max_limit.
const defaultLimit = 10

// Server answers completion requests from a word index.
type Server struct {
	completer suggest.ICompleter
	reader    *msgpack.Decoder
	writer    io.Writer

	mu     sync.RWMutex
	config *config.Config
}

// NewServer creates a server reading requests from r and writing responses to w.
func NewServer(completer suggest.ICompleter, cfg *config.Config, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		completer: completer,
		reader:    msgpack.NewDecoder(r),
		writer:    w,
		config:    cfg,
	}
}

// SetConfig swaps the limits used for later requests.
func (s *Server) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// Start announces readiness and serves requests until the input ends.
// It returns nil on a clean end of input.
func (s *Server) Start() error {
	log.Debug("Starting Server.")
	if err := s.send(StatusMessage{Status: StatusReady}); err != nil {
		return err
	}

	for {
		raw, err := s.reader.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("Input closed, stopping server.")
				return nil
			}
			log.Errorf("Reading request: %v", err)
			return err
		}
		if err := s.handleRequest(raw); err != nil {
			return err
		}
	}
}

// handleRequest answers one message. Only write failures are returned.
func (s *Server) handleRequest(raw msgpack.RawMessage) error {
	var req request
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		log.Errorf("Unmarshaling request: %v", err)
		return s.sendError("", "invalid msgpack request", CodeBadRequest)
	}

	switch req.Action {
	case ActionComplete:
		return s.handleComplete(req)
	case ActionStats:
		stats := s.completer.Stats()
		return s.send(StatsResponse{
			ID:           req.ID,
			Status:       StatusOK,
			Words:        stats["totalWords"],
			MaxFrequency: stats["maxFrequency"],
		})
	default:
		return s.sendError(req.ID, fmt.Sprintf("unknown action: %s", req.Action), CodeBadRequest)
	}
}

func (s *Server) handleComplete(req request) error {
	s.mu.RLock()
	cfg := s.config
	s.mu.RUnlock()

	prefix := req.Prefix
	if prefix == "" {
		log.Debug("Prefix is empty in request")
		return s.sendError(req.ID, "missing prefix", CodeBadRequest)
	}
	n := utf8.RuneCountInString(prefix)
	if n < cfg.Server.MinPrefix {
		log.Debug("Prefix is too short in request")
		return s.sendError(req.ID, fmt.Sprintf("prefix must be at least %d characters", cfg.Server.MinPrefix), CodeBadRequest)
	}
	if n > cfg.Server.MaxPrefix {
		log.Debug("Prefix is too long in request")
		return s.sendError(req.ID, fmt.Sprintf("prefix exceeds maximum length of %d characters", cfg.Server.MaxPrefix), CodeBadRequest)
	}

	limit := req.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > cfg.Server.MaxLimit {
		limit = cfg.Server.MaxLimit
	}

	start := time.Now()
	var results []suggest.Suggestion
	if !cfg.Source.EnableFilter || utils.IsValidInput(prefix) {
		results = s.completer.Complete(prefix, limit)
	}
	elapsed := time.Since(start)

	ranks := utils.CreateRankList(len(results))
	suggestions := make([]CompletionSuggestion, len(results))
	for i, r := range results {
		suggestions[i] = CompletionSuggestion{Word: r.Word, Rank: ranks[i]}
	}
	log.Debugf("Completed %q: %d suggestions in %s", prefix, len(suggestions), elapsed)

	return s.send(CompletionResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   elapsed.Microseconds(),
	})
}

// send writes one message in a single Write so responses never interleave.
func (s *Server) send(v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		log.Errorf("Marshaling response: %v", err)
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		log.Errorf("Writing response: %v", err)
		return err
	}
	return nil
}

func (s *Server) sendError(id, message string, code int) error {
	return s.send(CompletionError{ID: id, Error: message, Code: code})
}
