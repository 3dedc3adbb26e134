package server

import (
	"errors"
	"sync"
	"testing"

	"github.com/chazu/lispik/session"
)

func TestWorkerSerializesAccess(t *testing.T) {
	w := NewWorker(session.New())
	defer w.Stop()

	if _, err := w.Do(func(s *session.Session) interface{} {
		_, err := s.Eval("(defun (inc x) (+ x 1))")
		return err
	}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := w.Do(func(s *session.Session) interface{} {
				result, err := s.Eval("(inc 41)")
				if err != nil {
					return err
				}
				return result.Values[0].String()
			})
			if err != nil {
				errs <- err
				return
			}
			if v != "42" {
				errs <- errors.New("unexpected value")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestWorkerRecoversPanics(t *testing.T) {
	w := NewWorker(session.New())
	defer w.Stop()

	_, err := w.Do(func(s *session.Session) interface{} {
		panic("boom")
	})
	if err == nil || err.Error() != "boom" {
		t.Errorf("err = %v, want boom", err)
	}

	v, err := w.Do(func(s *session.Session) interface{} { return s.GlobalEnv() })
	if err != nil || v != true {
		t.Errorf("worker should keep running after a panic, got %v, %v", v, err)
	}
}

func TestWorkerStop(t *testing.T) {
	w := NewWorker(session.New())
	w.Stop()
	w.Stop()
	if _, err := w.Do(func(s *session.Session) interface{} { return nil }); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("err = %v, want ErrWorkerStopped", err)
	}
}
