package server

import (
	"fmt"
	"sync"

	"github.com/chazu/lispik/session"
)

// workRequest represents a unit of work to be executed on the worker goroutine.
type workRequest struct {
	fn   func(*session.Session) interface{}
	done chan workResult
}

// workResult holds the return value from a session operation.
type workResult struct {
	value interface{}
	err   error
}

// Worker serializes all access to a session through a single goroutine.
// Sessions are not safe for concurrent use; every handler must go through
// the worker.
type Worker struct {
	session  *session.Session
	requests chan workRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(s *session.Session) *Worker {
	w := &Worker{
		session:  s,
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the session, recovering from panics.
func (w *Worker) execute(fn func(*session.Session) interface{}) workResult {
	var result workResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.session)
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func(*session.Session) interface{}) (interface{}, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case <-w.quit:
		return nil, ErrWorkerStopped
	default:
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

// SessionID returns the id of the session the worker owns.
func (w *Worker) SessionID() string {
	return w.session.ID()
}
