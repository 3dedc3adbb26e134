package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/lispik/compiler"
	"github.com/chazu/lispik/session"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "lispik-lsp"

// LspServer provides editor features for Lispík documents. Definitions
// committed to the session are visible in every document.
type LspServer struct {
	worker *Worker

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
	log     commonlog.Logger
}

// NewLSP creates a new LSP server over the given session.
func NewLSP(s *session.Session) *LspServer {
	l := &LspServer{
		worker:  NewWorker(s),
		docs:    make(map[string]string),
		version: "0.1.0",
		log:     commonlog.GetLogger("lispik.server"),
	}

	l.handler = protocol.Handler{
		Initialize:  l.initialize,
		Initialized: l.initialized,
		Shutdown:    l.shutdown,
		SetTrace:    l.setTrace,

		TextDocumentDidOpen:   l.textDocumentDidOpen,
		TextDocumentDidChange: l.textDocumentDidChange,
		TextDocumentDidClose:  l.textDocumentDidClose,

		TextDocumentCompletion: l.textDocumentCompletion,
		TextDocumentHover:      l.textDocumentHover,
		TextDocumentDefinition: l.textDocumentDefinition,
	}

	l.server = glspserver.NewServer(&l.handler, lspName, false)

	return l
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (l *LspServer) Run() error {
	return l.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (l *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	l.log.Info("Lispík LSP initializing")

	capabilities := l.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"("},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &l.version,
		},
	}, nil
}

func (l *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (l *LspServer) shutdown(ctx *glsp.Context) error {
	l.worker.Stop()
	return nil
}

func (l *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (l *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	l.mu.Lock()
	l.docs[string(uri)] = text
	l.mu.Unlock()

	l.publishDiagnostics(ctx, uri, text)
	return nil
}

func (l *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			l.mu.Lock()
			l.docs[string(uri)] = whole.Text
			l.mu.Unlock()

			l.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (l *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	l.mu.Lock()
	delete(l.docs, string(uri))
	l.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (l *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	text, ok := l.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (l *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := l.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	docFns := documentFunctions(text)
	result, err := l.worker.Do(func(s *session.Session) interface{} {
		return l.complete(s, prefix, docFns)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (l *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := l.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	docFns := documentFunctions(text)
	result, err := l.worker.Do(func(s *session.Session) interface{} {
		return l.hover(s, word, docFns)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.(*protocol.Hover), nil
}

func (l *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := l.document(uri)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	docFns := documentFunctions(text)
	result, err := l.worker.Do(func(s *session.Session) interface{} {
		return l.definition(s, uri, word, docFns)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result, nil
}

// --- Session-backed logic (called on worker goroutine) ---

func (l *LspServer) complete(s *session.Session, prefix string, docFns []*compiler.DeFun) []protocol.CompletionItem {
	seen := make(map[string]bool)
	var items []protocol.CompletionItem

	add := func(label, detail string, kind protocol.CompletionItemKind) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		labelCopy := label
		detailCopy := detail
		kindCopy := kind
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kindCopy,
			Detail:     &detailCopy,
			InsertText: &labelCopy,
		})
	}

	for _, fn := range docFns {
		add(fn.Name, signature(fn.Name, fn.Params), protocol.CompletionItemKindFunction)
	}
	for _, fn := range s.Functions() {
		add(fn.Name, fn.Signature(), protocol.CompletionItemKindFunction)
	}
	for _, kw := range compiler.Keywords() {
		add(kw, "builtin", protocol.CompletionItemKindKeyword)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })

	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func (l *LspServer) hover(s *session.Session, word string, docFns []*compiler.DeFun) *protocol.Hover {
	var b strings.Builder

	if fn := findFunction(docFns, word); fn != nil {
		fmt.Fprintf(&b, "**%s**\n\n```lisp\n%s\n```", signature(fn.Name, fn.Params), fn.Source)
	} else if fn, ok := s.Function(word); ok {
		fmt.Fprintf(&b, "**%s**\n\n```lisp\n%s\n```\n\nhash `%s`", fn.Signature(), fn.Source, shortHash(fn.Hash))
	} else if compiler.IsKeyword(word) {
		fmt.Fprintf(&b, "**%s** builtin", word)
	} else {
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func (l *LspServer) definition(s *session.Session, uri protocol.DocumentUri, word string, docFns []*compiler.DeFun) []protocol.Location {
	if fn := findFunction(docFns, word); fn != nil {
		start := protocol.Position{Line: protocol.UInteger(fn.Pos.Line), Character: protocol.UInteger(fn.Pos.Column)}
		return []protocol.Location{{
			URI:   uri,
			Range: protocol.Range{Start: start, End: start},
		}}
	}
	if fn, ok := s.Function(word); ok {
		return []protocol.Location{{
			URI: protocol.DocumentUri(fmt.Sprintf("lispik://function/%s", fn.Name)),
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: 0, Character: 0},
			},
		}}
	}
	return nil
}

// --- Diagnostics ---

func (l *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics, err := l.diagnose(text)
	if err != nil {
		l.log.Errorf("diagnostics for %s: %s", uri, err)
		return
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnose compiles text against the session and reports the first error.
func (l *LspServer) diagnose(text string) ([]protocol.Diagnostic, error) {
	result, err := l.worker.Do(func(s *session.Session) interface{} {
		_, compileErr := s.Compile(text)
		return compileErr
	})
	if err != nil {
		return nil, err
	}

	diagnostics := []protocol.Diagnostic{}
	if compileErr, ok := result.(error); ok && compileErr != nil {
		var start protocol.Position
		if pos, ok := compiler.ErrorPosition(compileErr); ok {
			start = protocol.Position{Line: protocol.UInteger(pos.Line), Character: protocol.UInteger(pos.Column)}
		}
		end := start
		end.Character++
		severity := protocol.DiagnosticSeverityError
		source := lspName
		_, kind := session.Classify(compileErr)
		code := protocol.IntegerOrString{Value: kind}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: end},
			Severity: &severity,
			Code:     &code,
			Source:   &source,
			Message:  compileErr.Error(),
		})
	}
	return diagnostics, nil
}

// --- Text extraction helpers ---

// documentFunctions returns the definitions of a document that parses, or
// nothing while it is being edited into shape.
func documentFunctions(text string) []*compiler.DeFun {
	program, err := compiler.Parse(text)
	if err != nil {
		return nil
	}
	return program.Functions
}

func findFunction(fns []*compiler.DeFun, name string) *compiler.DeFun {
	for _, fn := range fns {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func signature(name string, params []string) string {
	if len(params) == 0 {
		return "(" + name + ")"
	}
	return "(" + name + " " + strings.Join(params, " ") + ")"
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func lineRunes(text string, pos protocol.Position) ([]rune, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return nil, 0, false
	}
	line := []rune(lines[pos.Line])
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

// extractPrefix returns the identifier fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := lineRunes(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && compiler.IsIdentPart(line[start-1]) {
		start--
	}
	return string(line[start:col])
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineRunes(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && compiler.IsIdentPart(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && compiler.IsIdentPart(line[end]) {
		end++
	}
	return string(line[start:end])
}

func boolPtr(b bool) *bool {
	return &b
}
