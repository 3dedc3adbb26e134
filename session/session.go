package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/chazu/lispik/compiler"
	"github.com/chazu/lispik/compiler/hash"
	"github.com/chazu/lispik/pkg/bytecode"
	"github.com/chazu/lispik/vm"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// Recorder persists what a session defines and evaluates.
// store.Journal implements it.
type Recorder interface {
	RecordFunction(sessionID, name, contentHash, source string) error
	RecordSubmission(sessionID, source string, results []bytecode.Literal, evalErr error) error
}

// Function is a committed top-level definition.
type Function struct {
	Name   string
	Params []string
	Source string
	Hash   string

	decl *compiler.DeFun
}

// Signature renders the function's call shape, e.g. "(add a b)".
func (f *Function) Signature() string {
	if len(f.Params) == 0 {
		return "(" + f.Name + ")"
	}
	return "(" + f.Name + " " + strings.Join(f.Params, " ") + ")"
}

// Result describes one successful evaluation.
type Result struct {
	Values      []bytecode.Literal
	Code        bytecode.CodeBlock
	Defined     []string
	Steps       int
	CompileTime time.Duration
	RunTime     time.Duration
}

// Session accumulates top-level functions across submissions. Each
// submission is compiled together with every committed function and run on
// a fresh VM; its definitions are committed only if it runs without error.
//
// A Session is not safe for concurrent use.
type Session struct {
	id        string
	globalEnv bool
	vmOpts    []vm.Option
	recorder  Recorder
	log       commonlog.Logger

	functions []*Function
}

// Option configures a Session.
type Option func(*Session)

// WithGlobalEnv toggles global mode. Without it, defun is rejected.
func WithGlobalEnv(enabled bool) Option {
	return func(s *Session) { s.globalEnv = enabled }
}

// WithVMOptions passes options to every VM the session creates.
func WithVMOptions(opts ...vm.Option) Option {
	return func(s *Session) { s.vmOpts = append(s.vmOpts, opts...) }
}

// WithRecorder journals definitions and submissions.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithID sets the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New creates a session in global mode with a fresh uuid.
func New(opts ...Option) *Session {
	s := &Session{
		id:        uuid.New().String(),
		globalEnv: true,
		log:       commonlog.GetLogger("lispik.session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// GlobalEnv reports whether the session runs in global mode.
func (s *Session) GlobalEnv() bool {
	return s.globalEnv
}

// Functions returns the committed functions in definition order.
func (s *Session) Functions() []*Function {
	out := make([]*Function, len(s.functions))
	copy(out, s.functions)
	return out
}

// Function looks up a committed function by name.
func (s *Session) Function(name string) (*Function, bool) {
	for _, f := range s.functions {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Compile returns the bytecode src would run with, without executing it.
func (s *Session) Compile(src string) (bytecode.CodeBlock, error) {
	program, err := compiler.Parse(src)
	if err != nil {
		return nil, err
	}
	merged, _, err := s.merge(program)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(merged, compiler.Options{GlobalEnv: s.globalEnv})
}

// Eval parses, compiles and runs src.
func (s *Session) Eval(src string) (*Result, error) {
	result, err := s.eval(src)
	if s.recorder != nil {
		var values []bytecode.Literal
		if result != nil {
			values = result.Values
		}
		if rerr := s.recorder.RecordSubmission(s.id, src, values, err); rerr != nil {
			s.log.Errorf("journal submission: %s", rerr)
		}
	}
	return result, err
}

// Load evaluates a whole program, typically a file given at startup.
func (s *Session) Load(src string) (*Result, error) {
	return s.Eval(src)
}

func (s *Session) eval(src string) (*Result, error) {
	start := time.Now()
	program, err := compiler.Parse(src)
	if err != nil {
		return nil, err
	}
	merged, added, err := s.merge(program)
	if err != nil {
		return nil, err
	}
	code, err := compiler.Compile(merged, compiler.Options{GlobalEnv: s.globalEnv})
	if err != nil {
		return nil, err
	}
	compiled := time.Now()

	machine := vm.New(append([]vm.Option{vm.WithGlobalEnv(s.globalEnv)}, s.vmOpts...)...)
	values, err := machine.Run(code)
	if err != nil {
		s.log.Debugf("session %s: execution failed after %d steps: %s", s.id, machine.Steps(), err)
		return nil, err
	}

	result := &Result{
		Values:      values,
		Code:        code,
		Steps:       machine.Steps(),
		CompileTime: compiled.Sub(start),
		RunTime:     time.Since(compiled),
	}
	for _, decl := range added {
		fn := newFunction(decl)
		s.functions = append(s.functions, fn)
		result.Defined = append(result.Defined, fn.Name)
		s.record(fn)
	}
	return result, nil
}

// merge combines the committed functions with program's definitions. It
// returns the merged scope and the definitions that are new.
func (s *Session) merge(program *compiler.GlobalScope) (*compiler.GlobalScope, []*compiler.DeFun, error) {
	if !s.globalEnv {
		return program, nil, nil
	}
	merged := &compiler.GlobalScope{Expressions: program.Expressions}
	for _, f := range s.functions {
		merged.Functions = append(merged.Functions, f.decl)
	}
	for _, decl := range program.Functions {
		if err := merged.AddFunction(decl); err != nil {
			return nil, nil, err
		}
	}
	return merged, program.Functions, nil
}

// Restore commits previously journaled definitions without running them.
// All sources are checked together; on error nothing is committed.
func (s *Session) Restore(sources []string) error {
	if !s.globalEnv {
		return fmt.Errorf("restore: %w", compiler.ErrFunctionsUsedWithoutGlobalEnv)
	}
	program := &compiler.GlobalScope{}
	for _, f := range s.functions {
		program.Functions = append(program.Functions, f.decl)
	}
	var added []*compiler.DeFun
	for _, src := range sources {
		parsed, err := compiler.Parse(src)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if len(parsed.Expressions) > 0 {
			return fmt.Errorf("restore: journaled source contains expressions: %q", src)
		}
		for _, decl := range parsed.Functions {
			if err := program.AddFunction(decl); err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			added = append(added, decl)
		}
	}
	if _, err := compiler.Compile(program, compiler.Options{GlobalEnv: true}); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	for _, decl := range added {
		s.functions = append(s.functions, newFunction(decl))
	}
	s.log.Infof("session %s: restored %d functions", s.id, len(added))
	return nil
}

func (s *Session) record(fn *Function) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordFunction(s.id, fn.Name, fn.Hash, fn.Source); err != nil {
		s.log.Errorf("journal function %s: %s", fn.Name, err)
	}
}

func newFunction(decl *compiler.DeFun) *Function {
	return &Function{
		Name:   decl.Name,
		Params: decl.Params,
		Source: decl.Source,
		Hash:   hash.Hex(decl),
		decl:   decl,
	}
}
