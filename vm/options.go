package vm

import (
	"bufio"
	"io"
	"os"

	"github.com/tliron/commonlog"
)

// LineReader supplies input lines to the Read instruction.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// Option configures a VM.
type Option func(*VM)

// WithGlobalEnv makes the bottom environment frame the global frame,
// addressed by bytecode.GlobalContext and kept across calls.
func WithGlobalEnv(enabled bool) Option {
	return func(vm *VM) {
		vm.globalEnv = enabled
	}
}

// WithInput reads Read input from r. The prompt is written to the VM's
// output before each line. Pass the same *bufio.Reader to successive VMs to
// keep buffered input between runs.
func WithInput(r io.Reader) Option {
	return func(vm *VM) {
		br, ok := r.(*bufio.Reader)
		if !ok {
			br = bufio.NewReader(r)
		}
		vm.lines = &readerLines{in: br, vm: vm}
	}
}

// WithLineReader reads Read input from lr, which is responsible for showing
// the prompt.
func WithLineReader(lr LineReader) Option {
	return func(vm *VM) {
		vm.lines = lr
	}
}

// WithOutput directs Print and the Read prompt to w.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) {
		vm.out = w
	}
}

// WithReadPrompt sets the prompt shown by Read.
func WithReadPrompt(prompt string) Option {
	return func(vm *VM) {
		vm.prompt = prompt
	}
}

// WithMaxSteps bounds the number of executed instructions per Run.
// Zero means unlimited.
func WithMaxSteps(n int) Option {
	return func(vm *VM) {
		vm.maxSteps = n
	}
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(enabled bool) Option {
	return func(vm *VM) {
		vm.trace = enabled
	}
}

// WithLogger replaces the VM's logger.
func WithLogger(log commonlog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// readerLines adapts a buffered reader to LineReader.
type readerLines struct {
	in *bufio.Reader
	vm *VM
}

func (r *readerLines) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		io.WriteString(r.vm.out, prompt)
	}
	line, err := r.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return line, err
}

func defaultLines(vm *VM) LineReader {
	return &readerLines{in: bufio.NewReader(os.Stdin), vm: vm}
}
