package bytecode

import (
	"strconv"
	"strings"
)

// Literal is a runtime value. It is also a valid code element, appearing as
// the operand of Ldc and Ld.
type Literal interface {
	Element
	String() string
	literal()
}

// Integer is a signed 64-bit integer value.
type Integer int64

// Nil is the empty list.
type Nil struct{}

// Pair is a cons cell.
type Pair struct {
	Car Literal
	Cdr Literal
}

// Closure is a code block together with the frames it captured.
type Closure struct {
	Code CodeBlock
	Env  []*Frame
}

const (
	True  Integer = 1
	False Integer = 0

	// GlobalContext is the depth used by Ld to address the global frame.
	GlobalContext Integer = -1
)

// Bool converts b to True or False.
func Bool(b bool) Integer {
	if b {
		return True
	}
	return False
}

// Cons builds a pair.
func Cons(car, cdr Literal) *Pair {
	return &Pair{Car: car, Cdr: cdr}
}

// List right-folds items into a proper list.
func List(items ...Literal) Literal {
	var out Literal = Nil{}
	for i := len(items) - 1; i >= 0; i-- {
		out = Cons(items[i], out)
	}
	return out
}

// ToSlice flattens a proper list. The second result is false when l is not
// a chain of pairs terminated by Nil.
func ToSlice(l Literal) ([]Literal, bool) {
	var out []Literal
	for {
		switch v := l.(type) {
		case Nil:
			return out, true
		case *Pair:
			out = append(out, v.Car)
			l = v.Cdr
		default:
			return nil, false
		}
	}
}

// Coordinate builds the Ld operand for a (depth, index) address.
func Coordinate(depth, index int) *Pair {
	return Cons(Integer(depth), Integer(index))
}

// SplitCoordinate decodes an Ld operand.
func SplitCoordinate(l Literal) (depth, index int, ok bool) {
	p, isPair := l.(*Pair)
	if !isPair {
		return 0, 0, false
	}
	d, dok := p.Car.(Integer)
	i, iok := p.Cdr.(Integer)
	if !dok || !iok {
		return 0, 0, false
	}
	return int(d), int(i), true
}

// Equal compares two literals structurally. Closures are equal only to
// themselves.
func Equal(a, b Literal) bool {
	switch x := a.(type) {
	case Integer:
		y, ok := b.(Integer)
		return ok && x == y
	case Nil:
		_, ok := b.(Nil)
		return ok
	case *Pair:
		y, ok := b.(*Pair)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		return Equal(x.Car, y.Car) && Equal(x.Cdr, y.Cdr)
	case *Closure:
		y, ok := b.(*Closure)
		return ok && x == y
	}
	return false
}

// IsAtom reports whether l is anything other than a pair.
func IsAtom(l Literal) bool {
	_, ok := l.(*Pair)
	return !ok
}

func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }
func (Nil) String() string       { return "nil" }
func (*Closure) String() string  { return "closure" }

// String renders a pair the way results are printed: proper tails as
// space-separated elements and an atom tail as ".x", so (cons 1 2) is "(1.2)".
func (p *Pair) String() string {
	var sb strings.Builder
	writePair(&sb, p)
	return sb.String()
}

func writePair(sb *strings.Builder, p *Pair) {
	sb.WriteByte('(')
	writeCar(sb, p.Car)
	tail := p.Cdr
	for next, ok := tail.(*Pair); ok; next, ok = tail.(*Pair) {
		sb.WriteByte(' ')
		writeCar(sb, next.Car)
		tail = next.Cdr
	}
	if _, isNil := tail.(Nil); !isNil {
		sb.WriteByte('.')
		sb.WriteString(tail.String())
	}
	sb.WriteByte(')')
}

func writeCar(sb *strings.Builder, l Literal) {
	if p, ok := l.(*Pair); ok {
		writePair(sb, p)
		return
	}
	sb.WriteString(l.String())
}

func (Integer) literal()  {}
func (Nil) literal()      {}
func (*Pair) literal()    {}
func (*Closure) literal() {}

func (Integer) element()  {}
func (Nil) element()      {}
func (*Pair) element()    {}
func (*Closure) element() {}

// Frame is one level of the environment.
type Frame struct {
	Values []Literal

	placeholder bool
}

// NewFrame wraps values as a frame.
func NewFrame(values []Literal) *Frame {
	return &Frame{Values: values}
}

// NewPlaceholder returns the empty frame pushed by Dum.
func NewPlaceholder() *Frame {
	return &Frame{placeholder: true}
}

// IsPlaceholder reports whether the frame is still waiting for Rap.
func (f *Frame) IsPlaceholder() bool {
	return f.placeholder
}

// Fill patches a placeholder in place so every closure that captured it sees
// the values.
func (f *Frame) Fill(values []Literal) {
	f.Values = values
	f.placeholder = false
}
