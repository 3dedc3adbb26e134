package server

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/chazu/lispik/session"
	"github.com/chazu/lispik/vm"
)

// Conn is a remote client's session with its worker and I/O buffers.
type Conn struct {
	ID     string
	Worker *Worker

	input  *queuedLines
	output *bytes.Buffer
}

// SessionStore manages the sessions of connected clients.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Conn
	opts     []session.Option
}

// NewSessionStore creates a store whose sessions are built with opts.
func NewSessionStore(opts ...session.Option) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Conn),
		opts:     opts,
	}
}

// Create starts a new session with its own worker.
func (s *SessionStore) Create() *Conn {
	input := &queuedLines{}
	output := &bytes.Buffer{}

	opts := append([]session.Option{}, s.opts...)
	opts = append(opts, session.WithVMOptions(
		vm.WithLineReader(input),
		vm.WithOutput(output),
		vm.WithReadPrompt(""),
	))
	sess := session.New(opts...)

	conn := &Conn{
		ID:     sess.ID(),
		Worker: NewWorker(sess),
		input:  input,
		output: output,
	}

	s.mu.Lock()
	s.sessions[conn.ID] = conn
	s.mu.Unlock()

	return conn
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*Conn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.sessions[id]
	return conn, ok
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Destroy removes a session and stops its worker.
func (s *SessionStore) Destroy(id string) {
	s.mu.Lock()
	conn, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		conn.Worker.Stop()
	}
}

// DestroyAll stops every session.
func (s *SessionStore) DestroyAll() {
	s.mu.Lock()
	conns := s.sessions
	s.sessions = make(map[string]*Conn)
	s.mu.Unlock()

	for _, conn := range conns {
		conn.Worker.Stop()
	}
}

// Outcome is the result of evaluating one request in a session.
type Outcome struct {
	Result *session.Result
	Output string
	Err    error
}

// Eval runs src in the session with input as the lines available to read.
func (c *Conn) Eval(src, input string) (*Outcome, error) {
	value, err := c.Worker.Do(func(s *session.Session) interface{} {
		c.input.reset(input)
		c.output.Reset()
		result, evalErr := s.Eval(src)
		return &Outcome{Result: result, Output: c.output.String(), Err: evalErr}
	})
	if err != nil {
		return nil, err
	}
	return value.(*Outcome), nil
}

// queuedLines feeds the Read instruction from a request's input text.
type queuedLines struct {
	lines []string
}

func (q *queuedLines) reset(input string) {
	q.lines = nil
	if input != "" {
		q.lines = strings.Split(strings.TrimSuffix(input, "\n"), "\n")
	}
}

func (q *queuedLines) ReadLine(prompt string) (string, error) {
	if len(q.lines) == 0 {
		return "", io.EOF
	}
	line := q.lines[0]
	q.lines = q.lines[1:]
	return line, nil
}
