package vm

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/lispik/compiler"
	"github.com/chazu/lispik/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Loads
// ---------------------------------------------------------------------------

func (vm *VM) ldc() error {
	el := vm.operand()
	lit, ok := el.(bytecode.Literal)
	if !ok {
		return wrongInCode(bytecode.OpLdc, "Literal", el)
	}
	if _, isClosure := lit.(*bytecode.Closure); isClosure {
		return wrongInCode(bytecode.OpLdc, "Literal", el)
	}
	vm.push(lit)
	return nil
}

func (vm *VM) ld() error {
	el := vm.operand()
	lit, ok := el.(bytecode.Literal)
	if !ok {
		return wrongInCode(bytecode.OpLd, "Pair", el)
	}
	depth, index, ok := bytecode.SplitCoordinate(lit)
	if !ok || depth < int(bytecode.GlobalContext) {
		return &ExecutionError{Kind: InvalidEnvTargetFormat, Instruction: bytecode.OpLd}
	}

	var frame *bytecode.Frame
	if depth == int(bytecode.GlobalContext) {
		if !vm.globalEnv || len(vm.env) == 0 {
			return &ExecutionError{Kind: InvalidEnvTargetFormat, Instruction: bytecode.OpLd}
		}
		frame = vm.env[0]
	} else {
		at := len(vm.env) - 1 - depth
		if at < 0 {
			return &ExecutionError{Kind: ListWrongFormatOrIndexOfBound, Instruction: bytecode.OpLd}
		}
		frame = vm.env[at]
	}
	if index < 0 || index >= len(frame.Values) {
		return &ExecutionError{Kind: ListWrongFormatOrIndexOfBound, Instruction: bytecode.OpLd}
	}
	vm.push(frame.Values[index])
	return nil
}

func (vm *VM) ldf() error {
	body, err := vm.blockOperand(bytecode.OpLdf)
	if err != nil {
		return err
	}
	frames := vm.env
	if vm.globalEnv && len(frames) > 0 {
		frames = frames[1:]
	}
	captured := make([]*bytecode.Frame, len(frames))
	copy(captured, frames)
	vm.push(&bytecode.Closure{Code: body, Env: captured})
	return nil
}

// ---------------------------------------------------------------------------
// Lists and predicates
// ---------------------------------------------------------------------------

func (vm *VM) cons() error {
	if err := vm.require(bytecode.OpCons, 2); err != nil {
		return err
	}
	car := vm.pop()
	cdr := vm.pop()
	vm.push(bytecode.Cons(car, cdr))
	return nil
}

func (vm *VM) carCdr(op bytecode.Opcode) error {
	if err := vm.require(op, 1); err != nil {
		return err
	}
	v := vm.pop()
	p, ok := v.(*bytecode.Pair)
	if !ok {
		return wrongOnStack(op, "Pair", v)
	}
	if op == bytecode.OpCar {
		vm.push(p.Car)
	} else {
		vm.push(p.Cdr)
	}
	return nil
}

func (vm *VM) predicate(op bytecode.Opcode) error {
	if err := vm.require(op, 1); err != nil {
		return err
	}
	v := vm.pop()
	var result bool
	switch op {
	case bytecode.OpIsNil:
		_, result = v.(bytecode.Nil)
	case bytecode.OpIsAtom:
		result = bytecode.IsAtom(v)
	case bytecode.OpIsPair:
		_, result = v.(*bytecode.Pair)
	}
	vm.push(bytecode.Bool(result))
	return nil
}

func (vm *VM) isEqual() error {
	if err := vm.require(bytecode.OpIsEqual, 2); err != nil {
		return err
	}
	a := vm.pop()
	b := vm.pop()
	vm.push(bytecode.Bool(bytecode.Equal(a, b)))
	return nil
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

// arithmetic pops a then b and pushes a op b.
func (vm *VM) arithmetic(op bytecode.Opcode) error {
	if err := vm.require(op, 2); err != nil {
		return err
	}
	a, err := vm.popInteger(op)
	if err != nil {
		return err
	}
	b, err := vm.popInteger(op)
	if err != nil {
		return err
	}

	var result bytecode.Integer
	switch op {
	case bytecode.OpAdd:
		result = a + b
	case bytecode.OpSub:
		result = a - b
	case bytecode.OpMul:
		result = a * b
	case bytecode.OpDiv:
		if b == 0 {
			return &ExecutionError{Kind: DivisionByZero, Instruction: op}
		}
		result = a / b
	case bytecode.OpGreater:
		result = bytecode.Bool(a > b)
	case bytecode.OpLower:
		result = bytecode.Bool(a < b)
	}
	vm.push(result)
	return nil
}

// ---------------------------------------------------------------------------
// I/O
// ---------------------------------------------------------------------------

func (vm *VM) print() error {
	if err := vm.require(bytecode.OpPrint, 1); err != nil {
		return err
	}
	_, err := fmt.Fprintln(vm.out, vm.stack[len(vm.stack)-1].String())
	return err
}

// read parses one value from the next input line and schedules a load of it.
// A blank line or end of input reads as nil.
func (vm *VM) read() error {
	line, err := vm.lines.ReadLine(vm.prompt)
	if err != nil && err != io.EOF {
		return err
	}
	if strings.TrimSpace(line) == "" {
		vm.push(bytecode.Nil{})
		return nil
	}

	values, err := compiler.ReadValues(line)
	if err != nil {
		return &ReadError{Line: strings.TrimRight(line, "\r\n"), Err: err}
	}
	if len(values) != 1 {
		return &ExecutionError{Kind: ReadInvalidNumberOfTokens, Instruction: bytecode.OpRead, Expected: 1, Got: len(values)}
	}

	code := make(bytecode.CodeBlock, 0, len(vm.code)+2)
	code = append(code, bytecode.OpLdc, values[0])
	vm.code = append(code, vm.code...)
	return nil
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func (vm *VM) sel() error {
	if err := vm.require(bytecode.OpSel, 1); err != nil {
		return err
	}
	cond, err := vm.popInteger(bytecode.OpSel)
	if err != nil {
		return err
	}
	then, err := vm.blockOperand(bytecode.OpSel)
	if err != nil {
		return err
	}
	els, err := vm.blockOperand(bytecode.OpSel)
	if err != nil {
		return err
	}

	vm.dump = append(vm.dump, continuation{code: vm.code})
	if cond != bytecode.False {
		vm.code = then
	} else {
		vm.code = els
	}
	return nil
}

func (vm *VM) join() error {
	if len(vm.code) != 0 {
		return &ExecutionError{Kind: CodeNotEmptyOnJoin, Instruction: bytecode.OpJoin}
	}
	c, err := vm.popDump()
	if err != nil {
		return err
	}
	if c.complete {
		return &ExecutionError{Kind: CannotRestoreOldContext, Instruction: bytecode.OpJoin}
	}
	vm.code = c.code
	return nil
}

func (vm *VM) ap() error {
	if err := vm.require(bytecode.OpAp, 2); err != nil {
		return err
	}
	closure, err := vm.popClosure(bytecode.OpAp)
	if err != nil {
		return err
	}
	args, err := vm.popArgs(bytecode.OpAp)
	if err != nil {
		return err
	}

	vm.dump = append(vm.dump, continuation{complete: true, stack: vm.stack, code: vm.code, env: vm.env})
	vm.env = vm.callEnv(closure.Env, bytecode.NewFrame(args))
	vm.stack = nil
	vm.code = closure.Code
	return nil
}

func (vm *VM) rtn() error {
	if err := vm.require(bytecode.OpRtn, 1); err != nil {
		return err
	}
	value := vm.pop()
	c, err := vm.popDump()
	if err != nil {
		return err
	}
	if !c.complete {
		return &ExecutionError{Kind: CannotRestoreOldContext, Instruction: bytecode.OpRtn}
	}
	vm.stack = append(c.stack, value)
	vm.code = c.code
	vm.env = c.env
	return nil
}

// rap fills the placeholder frame pushed by Dum with the arguments, so the
// closures built between Dum and Rap see their own bindings.
func (vm *VM) rap() error {
	if err := vm.require(bytecode.OpRap, 2); err != nil {
		return err
	}
	closure, err := vm.popClosure(bytecode.OpRap)
	if err != nil {
		return err
	}
	args, err := vm.popArgs(bytecode.OpRap)
	if err != nil {
		return err
	}
	if len(vm.env) == 0 || !vm.env[len(vm.env)-1].IsPlaceholder() {
		return &ExecutionError{Kind: RemovedEnvInsteadOfDummy, Instruction: bytecode.OpRap}
	}

	vm.env[len(vm.env)-1].Fill(args)
	vm.dump = append(vm.dump, continuation{complete: true, stack: vm.stack, code: vm.code, env: vm.env[:len(vm.env)-1]})
	vm.env = vm.callEnv(closure.Env, nil)
	vm.stack = nil
	vm.code = closure.Code
	return nil
}

func (vm *VM) popDump() (continuation, error) {
	if len(vm.dump) == 0 {
		return continuation{}, &ExecutionError{Kind: NothingToTakeFromDump}
	}
	c := vm.dump[len(vm.dump)-1]
	vm.dump = vm.dump[:len(vm.dump)-1]
	return c, nil
}
