package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Loads (0x00-0x0F)
	// ========================================================================

	OpLdc Opcode = 0x00 // Push literal operand: Ldc <literal>
	OpNil Opcode = 0x01 // Push nil
	OpLd  Opcode = 0x02 // Push environment value: Ld <(depth . index)>
	OpLdf Opcode = 0x03 // Push closure over current env: Ldf <block>

	// ========================================================================
	// Lists (0x10-0x1F)
	// ========================================================================

	OpCons Opcode = 0x10 // Pop a (top), b; push (a . b)
	OpCar  Opcode = 0x11 // Pop pair, push its car
	OpCdr  Opcode = 0x12 // Pop pair, push its cdr

	// ========================================================================
	// Predicates (0x20-0x2F)
	// ========================================================================

	OpIsNil   Opcode = 0x20 // Pop, push 1 if nil
	OpIsAtom  Opcode = 0x21 // Pop, push 1 if integer, nil or closure
	OpIsPair  Opcode = 0x22 // Pop, push 1 if pair
	OpIsEqual Opcode = 0x23 // Pop two, push 1 if structurally equal

	// ========================================================================
	// Arithmetic (0x30-0x3F)
	// ========================================================================

	OpAdd     Opcode = 0x30 // Pop a (top), b; push a + b
	OpSub     Opcode = 0x31 // Pop a (top), b; push a - b
	OpMul     Opcode = 0x32 // Pop a (top), b; push a * b
	OpDiv     Opcode = 0x33 // Pop a (top), b; push a / b
	OpGreater Opcode = 0x34 // Pop a (top), b; push 1 if a > b
	OpLower   Opcode = 0x35 // Pop a (top), b; push 1 if a < b

	// ========================================================================
	// I/O (0x40-0x4F)
	// ========================================================================

	OpPrint Opcode = 0x40 // Write top of stack, leave it in place
	OpRead  Opcode = 0x41 // Read one literal from input

	// ========================================================================
	// Control flow (0x50-0x5F)
	// ========================================================================

	OpSel  Opcode = 0x50 // Pop condition; Sel <then> <else>
	OpJoin Opcode = 0x51 // Resume code saved by Sel

	// ========================================================================
	// Functions (0x60-0x6F)
	// ========================================================================

	OpAp  Opcode = 0x60 // Pop closure and argument list, call
	OpRtn Opcode = 0x61 // Return top of stack to the caller
	OpDum Opcode = 0x62 // Push placeholder frame
	OpRap Opcode = 0x63 // Recursive apply: fill placeholder, call
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name      string // Human-readable name
	StackPop  int    // How many values popped from stack
	StackPush int    // How many values pushed to stack
	Operands  int    // Number of operand elements following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Loads
	OpLdc: {"Ldc", 0, 1, 1},
	OpNil: {"Nil", 0, 1, 0},
	OpLd:  {"Ld", 0, 1, 1},
	OpLdf: {"Ldf", 0, 1, 1},

	// Lists
	OpCons: {"Cons", 2, 1, 0},
	OpCar:  {"Car", 1, 1, 0},
	OpCdr:  {"Cdr", 1, 1, 0},

	// Predicates
	OpIsNil:   {"IsNil", 1, 1, 0},
	OpIsAtom:  {"IsAtom", 1, 1, 0},
	OpIsPair:  {"IsPair", 1, 1, 0},
	OpIsEqual: {"IsEqual", 2, 1, 0},

	// Arithmetic
	OpAdd:     {"Add", 2, 1, 0},
	OpSub:     {"Sub", 2, 1, 0},
	OpMul:     {"Mul", 2, 1, 0},
	OpDiv:     {"Div", 2, 1, 0},
	OpGreater: {"Greater", 2, 1, 0},
	OpLower:   {"Lower", 2, 1, 0},

	// I/O
	OpPrint: {"Print", 1, 1, 0},
	OpRead:  {"Read", 0, 1, 0},

	// Control flow
	OpSel:  {"Sel", 1, 0, 2},
	OpJoin: {"Join", 0, 0, 0},

	// Functions
	OpAp:  {"Ap", 2, 0, 0},
	OpRtn: {"Rtn", 1, 0, 0},
	OpDum: {"Dum", 0, 0, 0},
	OpRap: {"Rap", 2, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Operands returns the number of operand elements that follow this opcode.
func (op Opcode) Operands() int {
	return GetOpcodeInfo(op).Operands
}

// Valid reports whether op is a defined instruction.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

func (Opcode) element() {}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
