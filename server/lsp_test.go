package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/lispik/session"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", "(squ", protocol.Position{Line: 0, Character: 4}, "squ"},
		{"predicate", "(null?", protocol.Position{Line: 0, Character: 6}, "null?"},
		{"dashed", "(sum-t", protocol.Position{Line: 0, Character: 6}, "sum-t"},
		{"multi line", "(defun (f) 1)\n(sq", protocol.Position{Line: 1, Character: 3}, "sq"},
		{"after paren", "(", protocol.Position{Line: 0, Character: 1}, ""},
		{"empty", "", protocol.Position{Line: 0, Character: 0}, ""},
		{"line beyond document", "x", protocol.Position{Line: 5, Character: 0}, ""},
		{"column beyond line", "abc", protocol.Position{Line: 0, Character: 40}, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractPrefix(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractPrefix = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"middle", "(square 4)", protocol.Position{Line: 0, Character: 3}, "square"},
		{"at end", "(square", protocol.Position{Line: 0, Character: 7}, "square"},
		{"second word", "(f square)", protocol.Position{Line: 0, Character: 4}, "square"},
		{"on space", "(a  b)", protocol.Position{Line: 0, Character: 3}, ""},
		{"lambda", "(λ (x) x)", protocol.Position{Line: 0, Character: 1}, "λ"},
		{"multi line", "1\n(eq? 1 2)", protocol.Position{Line: 1, Character: 2}, "eq?"},
		{"line beyond document", "x", protocol.Position{Line: 3, Character: 0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractWord(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractWord = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBoolPtr(t *testing.T) {
	if p := boolPtr(true); p == nil || !*p {
		t.Error("boolPtr(true) should point at true")
	}
}

// ---------------------------------------------------------------------------
// Session-backed logic, called directly on the shared worker.
// ---------------------------------------------------------------------------

func newTestLSP() *LspServer {
	return &LspServer{
		worker: testWorker,
		docs:   make(map[string]string),
	}
}

func TestLSP_Complete(t *testing.T) {
	lsp := newTestLSP()
	docFns := documentFunctions("(defun (sqrt-ish n) n)")

	result, err := testWorker.Do(func(s *session.Session) interface{} {
		return lsp.complete(s, "sq", docFns)
	})
	if err != nil {
		t.Fatalf("complete returned error: %v", err)
	}
	items := result.([]protocol.CompletionItem)

	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label
	}
	if strings.Join(labels, ",") != "sqrt-ish,square" {
		t.Errorf("labels = %v", labels)
	}
	if items[1].Kind == nil || *items[1].Kind != protocol.CompletionItemKindFunction {
		t.Error("square should complete as a function")
	}
	if items[1].Detail == nil || *items[1].Detail != "(square x)" {
		t.Errorf("square detail = %v", items[1].Detail)
	}
}

func TestLSP_CompleteKeywords(t *testing.T) {
	lsp := newTestLSP()
	result, _ := testWorker.Do(func(s *session.Session) interface{} {
		return lsp.complete(s, "le", nil)
	})
	items := result.([]protocol.CompletionItem)
	found := map[string]bool{}
	for _, item := range items {
		found[item.Label] = true
		if item.Kind == nil || *item.Kind != protocol.CompletionItemKindKeyword {
			t.Errorf("%s should be a keyword", item.Label)
		}
	}
	if !found["let"] || !found["letrec"] {
		t.Errorf("completions = %v", found)
	}
}

func TestLSP_Hover(t *testing.T) {
	lsp := newTestLSP()
	docFns := documentFunctions("(defun (twice x) (* 2 x))")

	tests := []struct {
		word string
		want string
	}{
		{"twice", "(defun (twice x) (* 2 x))"},
		{"square", "**(square x)**"},
		{"car", "**car** builtin"},
	}
	for _, tt := range tests {
		result, err := testWorker.Do(func(s *session.Session) interface{} {
			return lsp.hover(s, tt.word, docFns)
		})
		if err != nil {
			t.Fatal(err)
		}
		hover := result.(*protocol.Hover)
		if hover == nil {
			t.Fatalf("hover(%s) = nil", tt.word)
		}
		content := hover.Contents.(protocol.MarkupContent)
		if !strings.Contains(content.Value, tt.want) {
			t.Errorf("hover(%s) = %q, want it to contain %q", tt.word, content.Value, tt.want)
		}
	}

	result, _ := testWorker.Do(func(s *session.Session) interface{} {
		return lsp.hover(s, "nothing-here", nil)
	})
	if result.(*protocol.Hover) != nil {
		t.Error("hover for an unknown word should be nil")
	}
}

func TestLSP_Definition(t *testing.T) {
	lsp := newTestLSP()
	uri := protocol.DocumentUri("file:///prog.lisp")
	docFns := documentFunctions("1\n  (defun (twice x) (* 2 x))")

	result, _ := testWorker.Do(func(s *session.Session) interface{} {
		return lsp.definition(s, uri, "twice", docFns)
	})
	locs := result.([]protocol.Location)
	if len(locs) != 1 || locs[0].URI != uri {
		t.Fatalf("locations = %+v", locs)
	}
	if locs[0].Range.Start.Line != 1 {
		t.Errorf("definition line = %d, want 1", locs[0].Range.Start.Line)
	}

	result, _ = testWorker.Do(func(s *session.Session) interface{} {
		return lsp.definition(s, uri, "square", docFns)
	})
	locs = result.([]protocol.Location)
	if len(locs) != 1 || locs[0].URI != "lispik://function/square" {
		t.Errorf("locations = %+v", locs)
	}

	result, _ = testWorker.Do(func(s *session.Session) interface{} {
		return lsp.definition(s, uri, "unknown", docFns)
	})
	if locs := result.([]protocol.Location); locs != nil {
		t.Errorf("unknown word should have no definition, got %+v", locs)
	}
}

func TestLSP_Diagnose(t *testing.T) {
	lsp := newTestLSP()

	diags, err := lsp.diagnose("(square 3)")
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 0 {
		t.Errorf("valid document produced %+v", diags)
	}

	diags, err = lsp.diagnose("(+ 1\n   undefined-name)")
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %+v", diags)
	}
	d := diags[0]
	if d.Range.Start.Line != 1 || d.Range.Start.Character != 3 {
		t.Errorf("range = %+v", d.Range)
	}
	if d.Code == nil || d.Code.Value != "NotFoundByName" {
		t.Errorf("code = %+v", d.Code)
	}

	diags, _ = lsp.diagnose("(defun (square y) y)")
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "already defined") {
		t.Errorf("redefinition diagnostics = %+v", diags)
	}
}

func TestLSP_DocumentStore(t *testing.T) {
	lsp := newTestLSP()

	lsp.mu.Lock()
	lsp.docs["file:///test.lisp"] = "(square 2)"
	lsp.mu.Unlock()

	text, ok := lsp.document("file:///test.lisp")
	if !ok || text != "(square 2)" {
		t.Errorf("document = %q, %v", text, ok)
	}

	lsp.mu.Lock()
	delete(lsp.docs, "file:///test.lisp")
	lsp.mu.Unlock()

	if _, ok := lsp.document("file:///test.lisp"); ok {
		t.Error("document should be removed after close")
	}
}
