package vm

import (
	"io"
	"os"

	"github.com/chazu/lispik/pkg/bytecode"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: the SECD machine
// ---------------------------------------------------------------------------

// VM executes compiled Lispík bytecode. A VM is not safe for concurrent use;
// Run resets the machine state, so one VM can execute many programs in turn.
type VM struct {
	globalEnv bool
	lines     LineReader
	out       io.Writer
	prompt    string
	maxSteps  int
	trace     bool
	log       commonlog.Logger

	stack []bytecode.Literal
	dump  []continuation
	code  bytecode.CodeBlock
	env   []*bytecode.Frame
	steps int
}

// continuation is a dump entry. A complete continuation is pushed by Ap and
// Rap and consumed by Rtn; a code-only one is pushed by Sel and consumed by
// Join.
type continuation struct {
	complete bool
	stack    []bytecode.Literal
	code     bytecode.CodeBlock
	env      []*bytecode.Frame
}

// New creates a VM. Without options it reads from stdin, prints to stdout
// and runs without a global environment.
func New(opts ...Option) *VM {
	vm := &VM{
		out:    os.Stdout,
		prompt: "> ",
		log:    commonlog.GetLogger("lispik.vm"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.lines == nil {
		vm.lines = defaultLines(vm)
	}
	return vm
}

// GlobalEnv reports whether the VM runs in global mode.
func (vm *VM) GlobalEnv() bool {
	return vm.globalEnv
}

// Steps returns the number of instructions executed by the last Run.
func (vm *VM) Steps() int {
	return vm.steps
}

// Run executes code until it is exhausted and returns the final stack,
// bottom first.
func (vm *VM) Run(code bytecode.CodeBlock) ([]bytecode.Literal, error) {
	vm.stack = nil
	vm.dump = nil
	vm.env = nil
	vm.code = code
	vm.steps = 0

	for len(vm.code) > 0 {
		if vm.maxSteps > 0 && vm.steps >= vm.maxSteps {
			return nil, &ExecutionError{Kind: StepLimitExceeded, Expected: vm.maxSteps}
		}
		vm.steps++

		el := vm.code[0]
		vm.code = vm.code[1:]
		op, ok := el.(bytecode.Opcode)
		if !ok {
			return nil, &ExecutionError{Kind: NonInstructionOccurred, Found: typeName(el)}
		}
		if vm.trace {
			vm.log.Debugf("%-8s stack=%d dump=%d env=%d", op, len(vm.stack), len(vm.dump), len(vm.env))
		}
		if err := vm.execute(op); err != nil {
			if vm.trace {
				vm.log.Debugf("%s failed: %s", op, err)
			}
			return nil, err
		}
	}

	result := make([]bytecode.Literal, len(vm.stack))
	copy(result, vm.stack)
	return result, nil
}

func (vm *VM) execute(op bytecode.Opcode) error {
	switch op {
	case bytecode.OpLdc:
		return vm.ldc()
	case bytecode.OpNil:
		vm.push(bytecode.Nil{})
		return nil
	case bytecode.OpLd:
		return vm.ld()
	case bytecode.OpLdf:
		return vm.ldf()
	case bytecode.OpCons:
		return vm.cons()
	case bytecode.OpCar, bytecode.OpCdr:
		return vm.carCdr(op)
	case bytecode.OpIsNil, bytecode.OpIsAtom, bytecode.OpIsPair:
		return vm.predicate(op)
	case bytecode.OpIsEqual:
		return vm.isEqual()
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv,
		bytecode.OpGreater, bytecode.OpLower:
		return vm.arithmetic(op)
	case bytecode.OpPrint:
		return vm.print()
	case bytecode.OpRead:
		return vm.read()
	case bytecode.OpSel:
		return vm.sel()
	case bytecode.OpJoin:
		return vm.join()
	case bytecode.OpAp:
		return vm.ap()
	case bytecode.OpRtn:
		return vm.rtn()
	case bytecode.OpDum:
		env := make([]*bytecode.Frame, len(vm.env), len(vm.env)+1)
		copy(env, vm.env)
		vm.env = append(env, bytecode.NewPlaceholder())
		return nil
	case bytecode.OpRap:
		return vm.rap()
	}
	return &ExecutionError{Kind: NonInstructionOccurred, Instruction: op, Found: op.String()}
}

// ---------------------------------------------------------------------------
// Stack and code helpers
// ---------------------------------------------------------------------------

func (vm *VM) push(v bytecode.Literal) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() bytecode.Literal {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

// require checks that op can pop n values.
func (vm *VM) require(op bytecode.Opcode, n int) error {
	if len(vm.stack) < n {
		return &ExecutionError{Kind: NotEnoughOperandsOnStack, Instruction: op, Expected: n, Got: len(vm.stack)}
	}
	return nil
}

func (vm *VM) popInteger(op bytecode.Opcode) (bytecode.Integer, error) {
	v := vm.pop()
	i, ok := v.(bytecode.Integer)
	if !ok {
		return 0, wrongOnStack(op, "Integer", v)
	}
	return i, nil
}

func (vm *VM) popClosure(op bytecode.Opcode) (*bytecode.Closure, error) {
	v := vm.pop()
	c, ok := v.(*bytecode.Closure)
	if !ok {
		return nil, wrongOnStack(op, "Closure", v)
	}
	return c, nil
}

func (vm *VM) popArgs(op bytecode.Opcode) ([]bytecode.Literal, error) {
	v := vm.pop()
	switch v.(type) {
	case bytecode.Nil, *bytecode.Pair:
	default:
		return nil, wrongOnStack(op, "List", v)
	}
	args, ok := bytecode.ToSlice(v)
	if !ok {
		return nil, &ExecutionError{Kind: ListWrongFormatOrIndexOfBound, Instruction: op}
	}
	return args, nil
}

// operand takes the next code element as op's operand.
func (vm *VM) operand() bytecode.Element {
	if len(vm.code) == 0 {
		return nil
	}
	el := vm.code[0]
	vm.code = vm.code[1:]
	return el
}

func (vm *VM) blockOperand(op bytecode.Opcode) (bytecode.CodeBlock, error) {
	el := vm.operand()
	block, ok := el.(bytecode.CodeBlock)
	if !ok {
		return nil, wrongInCode(op, "CodeBlock", el)
	}
	return block, nil
}

func wrongOnStack(op bytecode.Opcode, want string, got bytecode.Element) error {
	return &ExecutionError{Kind: WrongOperandOnStack, Instruction: op, Want: want, Found: typeName(got)}
}

func wrongInCode(op bytecode.Opcode, want string, got bytecode.Element) error {
	return &ExecutionError{Kind: WrongOperandInByteCode, Instruction: op, Want: want, Found: typeName(got)}
}

// callEnv builds the environment a closure body runs in: the global frame
// when there is one, the captured frames, then the argument frame.
func (vm *VM) callEnv(captured []*bytecode.Frame, args *bytecode.Frame) []*bytecode.Frame {
	env := make([]*bytecode.Frame, 0, len(captured)+2)
	if vm.globalEnv && len(vm.env) > 0 {
		env = append(env, vm.env[0])
	}
	env = append(env, captured...)
	if args != nil {
		env = append(env, args)
	}
	return env
}
