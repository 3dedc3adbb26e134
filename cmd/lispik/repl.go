package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/chazu/lispik/config"
	"github.com/chazu/lispik/pkg/bytecode"
	"github.com/chazu/lispik/session"
)

const continuationPrompt = ".. "

// prompter is the part of liner the REPL depends on.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// linerLines feeds the read instruction from the REPL's line editor.
type linerLines struct {
	ln *liner.State
}

func (l linerLines) ReadLine(prompt string) (string, error) {
	return l.ln.Prompt(prompt)
}

func runREPL(sess *session.Session, ln *liner.State, cfg *config.Config, showBytecode bool) int {
	fmt.Println("Lispík REPL (:help for commands, :quit to exit)")

	if path := cfg.HistoryPath(); path != "" {
		if f, err := os.Open(path); err == nil {
			ln.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(path); err == nil {
				ln.WriteHistory(f)
				f.Close()
			}
		}()
	}

	for {
		src, err := readSubmission(ln, cfg.REPL.Prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				return exitOK
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitReadError
		}

		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		ln.AppendHistory(src)

		if strings.HasPrefix(src, ":") {
			if quit := command(os.Stdout, sess, src); quit {
				return exitOK
			}
			continue
		}

		evalAndPrint(os.Stdout, os.Stderr, sess, src, showBytecode)
	}
}

// readSubmission reads one submission; a trailing backslash continues it on
// the next line.
func readSubmission(p prompter, prompt string) (string, error) {
	var lines []string
	current := prompt
	for {
		line, err := p.Prompt(current)
		if err != nil {
			if len(lines) > 0 && errors.Is(err, io.EOF) {
				return strings.Join(lines, "\n"), nil
			}
			return "", err
		}
		if strings.HasSuffix(line, "\\") {
			lines = append(lines, strings.TrimSuffix(line, "\\"))
			current = continuationPrompt
			continue
		}
		lines = append(lines, line)
		return strings.Join(lines, "\n"), nil
	}
}

// command runs a REPL command and reports whether the REPL should exit.
func command(w io.Writer, sess *session.Session, line string) bool {
	switch strings.Fields(line)[0] {
	case ":quit", ":q":
		return true
	case ":functions", ":f":
		fns := sess.Functions()
		if len(fns) == 0 {
			fmt.Fprintln(w, "no functions defined")
		}
		for _, fn := range fns {
			fmt.Fprintf(w, "%s  %s\n", fn.Signature(), fn.Hash[:12])
		}
	case ":help", ":h":
		fmt.Fprintln(w, "  :functions  list defined functions")
		fmt.Fprintln(w, "  :quit       leave the REPL")
		fmt.Fprintln(w, "  end a line with \\ to continue on the next one")
	default:
		fmt.Fprintf(w, "unknown command %s (try :help)\n", line)
	}
	return false
}

func evalAndPrint(out, errOut io.Writer, sess *session.Session, src string, showBytecode bool) {
	result, err := sess.Eval(src)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %s\n", describe(err))
		return
	}
	if showBytecode {
		fmt.Fprint(out, bytecode.Disassemble(result.Code))
	}
	for _, name := range result.Defined {
		fmt.Fprintf(out, "defined %s\n", name)
	}
	printValues(out, result.Values)
	fmt.Fprintf(out, "; %d steps, compiled in %s, ran in %s\n",
		result.Steps, round(result.CompileTime), round(result.RunTime))
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Second:
		return d.Round(time.Millisecond)
	case d > time.Millisecond:
		return d.Round(time.Microsecond)
	}
	return d
}
