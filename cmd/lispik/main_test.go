package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/chazu/lispik/config"
	"github.com/chazu/lispik/session"
	"github.com/chazu/lispik/vm"
)

type scriptedPrompter struct {
	lines   []string
	prompts []string
}

func (s *scriptedPrompter) Prompt(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func TestReadSubmission(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		want    string
		prompts int
		err     error
	}{
		{"single line", []string{"(+ 1 2)"}, "(+ 1 2)", 1, nil},
		{"continued", []string{"(defun (f x) \\", "  (* x x))"}, "(defun (f x) \n  (* x x))", 2, nil},
		{"eof after continuation", []string{"(f \\"}, "(f ", 2, nil},
		{"eof", nil, "", 1, io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedPrompter{lines: tt.lines}
			got, err := readSubmission(p, "> ")
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if len(p.prompts) != tt.prompts {
				t.Errorf("prompts = %v", p.prompts)
			}
			if len(p.prompts) > 1 && p.prompts[1] != continuationPrompt {
				t.Errorf("continuation prompt = %q", p.prompts[1])
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	s := session.New()
	tests := []struct {
		src  string
		want int
	}{
		{"(+ 1 2)", exitOK},
		{"#", exitCompileError},
		{"(car)", exitCompileError},
		{"y", exitCompileError},
		{"(/ 1 0)", exitRunError},
	}
	for _, tt := range tests {
		_, err := s.Eval(tt.src)
		if got := exitCode(err); got != tt.want {
			t.Errorf("exitCode(%q) = %d, want %d (%v)", tt.src, got, tt.want, err)
		}
	}
	reader := session.New(session.WithVMOptions(
		vm.WithInput(strings.NewReader("(1 2\n")),
		vm.WithReadPrompt(""),
	))
	_, err := reader.Eval("(read)")
	if got := exitCode(err); got != exitRunError {
		t.Errorf("exitCode(bad read input) = %d, want %d (%v)", got, exitRunError, err)
	}

	if got := exitCode(errors.New("disk on fire")); got != exitReadError {
		t.Errorf("plain error exit = %d", got)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := config.Default()
	tests := []struct {
		name      string
		useConfig bool
		explicit  string
		want      string
	}{
		{"off", false, "", ""},
		{"configured", true, "", cfg.Server.Addr},
		{"explicit", false, ":9000", ":9000"},
		{"explicit wins", true, ":9000", ":9000"},
	}
	for _, tt := range tests {
		if got := listenAddr(cfg, tt.useConfig, tt.explicit); got != tt.want {
			t.Errorf("%s: listenAddr = %q, want %q", tt.name, got, tt.want)
		}
	}
	if cfg.Server.Addr == "" {
		t.Error("default config must carry a server address")
	}
}

func TestEvalAndPrint(t *testing.T) {
	s := session.New()
	var out, errOut bytes.Buffer

	evalAndPrint(&out, &errOut, s, "(defun (sq x) (* x x)) (sq 7)", true)
	text := out.String()
	for _, want := range []string{"defined sq", "49\n", "; ", "steps", "Ldc"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if errOut.Len() != 0 {
		t.Errorf("unexpected error output %q", errOut.String())
	}

	out.Reset()
	evalAndPrint(&out, &errOut, s, "(car nil)", false)
	if !strings.HasPrefix(errOut.String(), "Error: WrongOperandOnStack: ") {
		t.Errorf("error output = %q", errOut.String())
	}
	if out.Len() != 0 {
		t.Errorf("output on error = %q", out.String())
	}
}

func TestCommand(t *testing.T) {
	s := session.New()
	if _, err := s.Eval("(defun (id x) x)"); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if command(&out, s, ":functions") {
		t.Fatal(":functions must not quit")
	}
	if !strings.HasPrefix(out.String(), "(id x)  ") {
		t.Errorf(":functions output = %q", out.String())
	}

	out.Reset()
	command(&out, s, ":bogus")
	if !strings.Contains(out.String(), "unknown command") {
		t.Errorf(":bogus output = %q", out.String())
	}

	if !command(&out, s, ":quit") {
		t.Error(":quit must quit")
	}
}
