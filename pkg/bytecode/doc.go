// Package bytecode defines the instruction set and value model shared by the
// Lispík compiler and virtual machine.
//
// A compiled program is a CodeBlock: an ordered sequence of Elements. An
// Element is one of
//
//   - an Opcode, one of the 25 SECD instructions
//   - a Literal operand (Integer, *Pair, Nil, *Closure)
//   - a nested CodeBlock operand (the body of Ldf, the branches of Sel)
//
// Operands are positional. Every operand-consuming opcode is immediately
// followed by its operands in the stream:
//
//	Ldc <literal>
//	Ld  <(depth . index)>
//	Ldf <block>
//	Sel <then-block> <else-block>
//
// Validate checks this contract statically; the compiler runs it on every
// program it emits so the VM never sees a malformed stream produced by us.
//
// # Values
//
// Booleans are the integers 1 and 0 (True and False). Lists are chains of
// pairs terminated by Nil. A Closure pairs a code block with the environment
// frames it captured; closures compare by identity.
//
// # Frames
//
// An environment is a stack of *Frame. Frames are shared by pointer between
// closures and are never mutated after creation, except that a placeholder
// frame pushed by Dum is filled exactly once by Rap. This is how letrec
// closures come to see themselves.
package bytecode
