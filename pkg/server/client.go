package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

var _ suggest.Source = (*Client)(nil)

// RemoteError is an error reply from the server.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLimit sets the limit sent with every request. Zero lets the server decide.
func WithLimit(n int) ClientOption {
	return func(c *Client) {
		c.limit = n
	}
}

// WithTimeout bounds each request. Zero disables the bound; the caller's context still applies.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// Client is a suggest.Source served by a remote Server. Requests may overlap;
// responses are matched to requests by id.
type Client struct {
	conn    io.ReadWriteCloser
	limit   int
	timeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan reply
	closed  bool

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
}

// NewClient starts reading replies from conn.
func NewClient(conn io.ReadWriteCloser, opts ...ClientOption) *Client {
	c := &Client{
		conn:    conn,
		pending: make(map[string]chan reply),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

// Spawn starts a server process (for example "typeahead -serve") and connects to its
// stdin and stdout. The process's stderr is passed through.
func Spawn(name string, args []string, opts ...ClientOption) (*Client, error) {
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	log.Debugf("Spawned suggestion server %s (pid %d)", name, cmd.Process.Pid)
	return NewClient(&processConn{cmd: cmd, stdin: stdin, stdout: stdout}, opts...), nil
}

// WaitReady blocks until the server has announced itself.
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		return suggest.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetch implements suggest.Source.
func (c *Client) Fetch(ctx context.Context, query string) ([]string, error) {
	rep, err := c.roundTrip(ctx, request{Prefix: query, Limit: c.limit})
	if err != nil {
		return nil, err
	}
	if rep.Error != "" {
		return nil, &RemoteError{Code: rep.Count, Message: rep.Error}
	}
	words := make([]string, len(rep.Suggestions))
	for i, s := range rep.Suggestions {
		words[i] = s.Word
	}
	return words, nil
}

// Stats asks the server for its index size.
func (c *Client) Stats(ctx context.Context) (StatsResponse, error) {
	rep, err := c.roundTrip(ctx, request{Action: ActionStats})
	if err != nil {
		return StatsResponse{}, err
	}
	if rep.Error != "" {
		return StatsResponse{}, &RemoteError{Code: rep.Count, Message: rep.Error}
	}
	return StatsResponse{ID: rep.ID, Status: rep.Status, Words: rep.Words, MaxFrequency: rep.MaxFrequency}, nil
}

func (c *Client) roundTrip(ctx context.Context, req request) (reply, error) {
	req.ID = uuid.NewString()
	ch := make(chan reply, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return reply{}, suggest.ErrClosed
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()
	defer c.forget(req.ID)

	if err := c.write(req); err != nil {
		return reply{}, fmt.Errorf("%w: %w", suggest.ErrClosed, err)
	}

	var timeout <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case rep := <-ch:
		return rep, nil
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-timeout:
		return reply{}, fmt.Errorf("%w after %s", suggest.ErrTimeout, c.timeout)
	case <-c.done:
		return reply{}, suggest.ErrClosed
	}
}

func (c *Client) write(req request) error {
	data, err := msgpack.Marshal(req)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.conn.Write(data)
	return err
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readLoop() {
	defer c.shutdown()
	dec := msgpack.NewDecoder(c.conn)
	for {
		var rep reply
		if err := dec.Decode(&rep); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				log.Warnf("Suggestion server connection lost: %v", err)
			}
			return
		}
		if rep.ID == "" {
			if rep.Status == StatusReady {
				c.readyOnce.Do(func() { close(c.ready) })
			} else if rep.Error != "" {
				log.Warnf("Suggestion server error: %s (code %d)", rep.Error, rep.Count)
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[rep.ID]
		delete(c.pending, rep.ID)
		c.mu.Unlock()
		if !ok {
			log.Debugf("Dropping reply for unknown request %s", rep.ID)
			continue
		}
		ch <- rep
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Close closes the connection and, for spawned servers, waits for the process to exit.
// Pending and later requests fail with suggest.ErrClosed.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	if p, ok := c.conn.(*processConn); ok {
		if waitErr := p.cmd.Wait(); err == nil {
			err = waitErr
		}
	}
	return err
}

// processConn joins a child process's pipes into one connection.
type processConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (p *processConn) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *processConn) Write(b []byte) (int, error) { return p.stdin.Write(b) }

// Close ends the server's input. The server exits, which ends its output.
func (p *processConn) Close() error {
	return p.stdin.Close()
}
