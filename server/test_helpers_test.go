package server

import (
	"os"
	"testing"

	"github.com/chazu/lispik/session"
	"github.com/chazu/lispik/vm"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// One session with a few committed functions is shared by the LSP tests;
// tests that evaluate code create their own.
// ---------------------------------------------------------------------------

var (
	testSession *session.Session
	testWorker  *Worker
)

func TestMain(m *testing.M) {
	testSession = session.New(session.WithVMOptions(vm.WithMaxSteps(100_000)))
	if _, err := testSession.Eval("(defun (square x) (* x x)) (defun (sum-to n) (if (zero? n) 0 (+ n (sum-to (- n 1)))))"); err != nil {
		panic(err)
	}
	testWorker = NewWorker(testSession)

	code := m.Run()

	testWorker.Stop()
	os.Exit(code)
}
