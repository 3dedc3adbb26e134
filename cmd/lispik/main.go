// Lispík CLI - runs programs, the REPL, the LSP server and the eval server
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/lispik/config"
	"github.com/chazu/lispik/pkg/bytecode"
	"github.com/chazu/lispik/server"
	"github.com/chazu/lispik/session"
	"github.com/chazu/lispik/store"
	"github.com/chazu/lispik/vm"
)

// Exit codes.
const (
	exitOK           = 0
	exitReadError    = 1
	exitCompileError = 2
	exitRunError     = 3
)

var log = commonlog.GetLogger("lispik.cli")

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		cfg = config.Default()
	}

	noGlobal := flag.Bool("no-global", !cfg.GlobalEnv(), "Disable the global environment (no defun)")
	evalOnly := flag.Bool("e", false, "Evaluate the program, print the results and exit")
	compileOnly := flag.Bool("c", false, "Compile the program and print its bytecode")
	showBytecode := flag.Bool("b", cfg.REPL.ShowBytecode, "Show bytecode of every REPL submission")
	trace := flag.Bool("d", cfg.Runtime.Trace, "Trace executed instructions (debug log)")
	maxSteps := flag.Int("max-steps", cfg.Runtime.MaxSteps, "Abort after this many instructions (0 = unlimited)")
	journalPath := flag.String("journal", cfg.StorePath(), "SQLite journal of definitions and submissions")
	serveAddr := flag.String("serve", "", "Start the websocket eval server on this address")
	serveDefault := flag.Bool("server", false, "Start the websocket eval server on [server] addr from lispik.toml")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	verbosity := flag.Int("v", cfg.Log.Verbosity, "Log verbosity")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lispik [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a Lispík program, then starts the REPL unless -e or -c is given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lispik                    # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  lispik -e prog.lisp       # Run prog.lisp and print the results\n")
		fmt.Fprintf(os.Stderr, "  lispik -c prog.lisp       # Print the compiled bytecode\n")
		fmt.Fprintf(os.Stderr, "  lispik -serve :7400       # Evaluate over ws://host:7400/ws\n")
		fmt.Fprintf(os.Stderr, "  lispik -server            # Same, on [server] addr\n")
		fmt.Fprintf(os.Stderr, "  lispik -lsp               # Language server for editors\n")
	}
	flag.Parse()

	var logPath *string
	if cfg.Log.File != "" {
		path := cfg.Resolve(cfg.Log.File)
		logPath = &path
	}
	if *trace && *verbosity < 2 {
		*verbosity = 2
	}
	commonlog.Configure(*verbosity, logPath)

	global := !*noGlobal
	vmOpts := []vm.Option{vm.WithTrace(*trace)}
	if *maxSteps > 0 {
		vmOpts = append(vmOpts, vm.WithMaxSteps(*maxSteps))
	}
	sessionOpts := []session.Option{session.WithGlobalEnv(global)}

	if *lspMode {
		sess := session.New(append(sessionOpts, session.WithVMOptions(vmOpts...))...)
		if err := server.NewLSP(sess).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "LSP error: %v\n", err)
			return exitReadError
		}
		return exitOK
	}

	if addr := listenAddr(cfg, *serveDefault, *serveAddr); addr != "" {
		srv := server.New(
			server.WithMaxSteps(*maxSteps),
			server.WithSessionOptions(append(sessionOpts, session.WithVMOptions(vmOpts...))...),
		)
		defer srv.Stop()
		if err := srv.ListenAndServe(addr); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			return exitReadError
		}
		return exitOK
	}

	interactive := !*evalOnly && !*compileOnly

	var ln *liner.State
	if interactive {
		ln = liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)
		vmOpts = append(vmOpts, vm.WithLineReader(linerLines{ln}), vm.WithReadPrompt("read> "))
	} else {
		vmOpts = append(vmOpts, vm.WithInput(bufio.NewReader(os.Stdin)), vm.WithOutput(os.Stdout), vm.WithReadPrompt(""))
	}
	sessionOpts = append(sessionOpts, session.WithVMOptions(vmOpts...))

	if *journalPath != "" && global {
		journal, err := store.Open(*journalPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitReadError
		}
		defer journal.Close()

		restoreOpts, sources, err := resumeJournal(journal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: journal not restored: %v\n", err)
		}
		sessionOpts = append(sessionOpts, restoreOpts...)
		sessionOpts = append(sessionOpts, session.WithRecorder(journal))
		sess := session.New(sessionOpts...)
		if len(sources) > 0 {
			if err := sess.Restore(sources); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
		return runProgram(sess, ln, cfg, *evalOnly, *compileOnly, *showBytecode)
	}

	return runProgram(session.New(sessionOpts...), ln, cfg, *evalOnly, *compileOnly, *showBytecode)
}

// listenAddr picks the eval server address: an explicit -serve address wins,
// -server uses the configured one, and "" means no server.
func listenAddr(cfg *config.Config, useConfig bool, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if useConfig {
		return cfg.Server.Addr
	}
	return ""
}

// resumeJournal continues the most recent journaled session.
func resumeJournal(j *store.Journal) ([]session.Option, []string, error) {
	id, err := j.LatestSession()
	if err != nil || id == "" {
		return nil, nil, err
	}
	sources, err := j.VerifiedSources(id)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("resuming session %s with %d functions", id, len(sources))
	return []session.Option{session.WithID(id)}, sources, nil
}

func runProgram(sess *session.Session, ln *liner.State, cfg *config.Config, evalOnly, compileOnly, showBytecode bool) int {
	path := flag.Arg(0)
	if path == "" && !evalOnly && !compileOnly {
		return runREPL(sess, ln, cfg, showBytecode)
	}

	src, err := readProgram(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitReadError
	}

	if compileOnly {
		code, err := sess.Compile(src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
			return exitCode(err)
		}
		fmt.Print(bytecode.DisassembleWithName(displayName(path), code))
		return exitOK
	}

	result, err := sess.Load(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		return exitCode(err)
	}
	if evalOnly {
		printValues(os.Stdout, result.Values)
		return exitOK
	}
	return runREPL(sess, ln, cfg, showBytecode)
}

func readProgram(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	return string(data), nil
}

func displayName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return path
}

// exitCode maps an evaluation error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch stage, _ := session.Classify(err); stage {
	case session.StageLex, session.StageParse, session.StageCompile:
		return exitCompileError
	case session.StageRun:
		return exitRunError
	}
	return exitReadError
}

// describe prefixes an error with its kind, e.g. "DivisionByZero: Division by zero".
func describe(err error) string {
	if _, kind := session.Classify(err); kind != "" {
		return kind + ": " + err.Error()
	}
	return err.Error()
}

func printValues(w io.Writer, values []bytecode.Literal) {
	for _, v := range values {
		fmt.Fprintln(w, v.String())
	}
}
