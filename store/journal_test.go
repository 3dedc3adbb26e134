package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/lispik/compiler"
	"github.com/chazu/lispik/compiler/hash"
	"github.com/chazu/lispik/pkg/bytecode"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func record(t *testing.T, src string) FunctionRecord {
	t.Helper()
	program, err := compiler.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	fn := program.Functions[0]
	return FunctionRecord{Name: fn.Name, Hash: hash.Hex(fn), Source: fn.Source}
}

func TestJournalFunctions(t *testing.T) {
	j := openTestJournal(t)
	first := record(t, "(defun (inc x) (+ x 1))")
	second := record(t, "(defun (dec x) (- x 1))")

	for _, r := range []FunctionRecord{first, second} {
		if err := j.RecordFunction("s1", r.Name, r.Hash, r.Source); err != nil {
			t.Fatalf("RecordFunction: %v", err)
		}
	}
	if err := j.RecordFunction("s2", "other", "x", "(defun (other) 1)"); err != nil {
		t.Fatal(err)
	}

	got, err := j.Functions("s1")
	if err != nil {
		t.Fatalf("Functions: %v", err)
	}
	if len(got) != 2 || got[0].Name != "inc" || got[1].Name != "dec" {
		t.Fatalf("functions = %+v", got)
	}

	sources, err := j.VerifiedSources("s1")
	if err != nil {
		t.Fatalf("VerifiedSources: %v", err)
	}
	if len(sources) != 2 || sources[0] != first.Source {
		t.Errorf("sources = %v", sources)
	}

	if _, err := j.VerifiedSources("s2"); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("error = %v, want ErrHashMismatch", err)
	}
}

func TestJournalSubmissions(t *testing.T) {
	j := openTestJournal(t)
	results := []bytecode.Literal{bytecode.Integer(3), bytecode.List(bytecode.Integer(1))}
	if err := j.RecordSubmission("s1", "(+ 1 2) '(1)", results, nil); err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}
	if err := j.RecordSubmission("s1", "(car 1)", nil, errors.New("boom")); err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}

	subs, err := j.Submissions("s1")
	if err != nil {
		t.Fatalf("Submissions: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d submissions, want 2", len(subs))
	}
	if subs[0].Source != "(+ 1 2) '(1)" || len(subs[0].Results) != 2 || !bytecode.Equal(subs[0].Results[1], results[1]) {
		t.Errorf("first submission = %+v", subs[0])
	}
	if subs[1].Error != "boom" || subs[1].Results != nil {
		t.Errorf("second submission = %+v", subs[1])
	}
	if subs[0].ID == "" || subs[0].ID == subs[1].ID {
		t.Error("submission ids must be unique")
	}

	latest, err := j.LatestSession()
	if err != nil || latest != "s1" {
		t.Errorf("LatestSession = %q, %v", latest, err)
	}
}

func TestJournalEmpty(t *testing.T) {
	j := openTestJournal(t)
	latest, err := j.LatestSession()
	if err != nil || latest != "" {
		t.Errorf("LatestSession = %q, %v", latest, err)
	}
	fns, err := j.Functions("none")
	if err != nil || len(fns) != 0 {
		t.Errorf("Functions = %v, %v", fns, err)
	}
}

func TestVerifyFunction(t *testing.T) {
	good := record(t, "(defun (sq x) (* x x))")
	if err := VerifyFunction(good); err != nil {
		t.Errorf("VerifyFunction: %v", err)
	}

	renamed := good
	renamed.Name = "square"
	if err := VerifyFunction(renamed); err == nil {
		t.Error("expected name mismatch")
	}

	tampered := good
	tampered.Source = "(defun (sq x) (+ x x))"
	if err := VerifyFunction(tampered); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("error = %v, want ErrHashMismatch", err)
	}

	if err := VerifyFunction(FunctionRecord{Name: "f", Source: "(defun (f) 1) 2"}); err == nil {
		t.Error("expected error for trailing expression")
	}
}
