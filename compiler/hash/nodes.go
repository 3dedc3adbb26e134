package hash

// ---------------------------------------------------------------------------
// Frozen hashing AST types.
//
// These are stripped-down parallels of compiler/ast.go with no position data
// and de Bruijn indices instead of variable names. Two functions with the
// same semantics (same body, ignoring parameter names) produce identical
// hashing ASTs.
// ---------------------------------------------------------------------------

// HNode is the interface implemented by all hashing AST nodes.
type HNode interface {
	hnode() // marker method
}

// ---------------------------------------------------------------------------
// Literal nodes
// ---------------------------------------------------------------------------

type HIntLiteral struct{ Value int64 }
type HNilLiteral struct{}
type HListLiteral struct{ Elements []HNode }

func (*HIntLiteral) hnode()  {}
func (*HNilLiteral) hnode()  {}
func (*HListLiteral) hnode() {}

// ---------------------------------------------------------------------------
// Variable reference nodes (de Bruijn indexed)
// ---------------------------------------------------------------------------

// HLocalRef references a parameter or binding by de Bruijn indices.
// ScopeDepth 0 = innermost scope, 1 = one enclosing scope up, etc.
// SlotIndex is the position within that scope's names.
type HLocalRef struct {
	ScopeDepth uint16
	SlotIndex  uint16
}

// HGlobalRef references a top-level function by name.
type HGlobalRef struct {
	Name string
}

func (*HLocalRef) hnode()  {}
func (*HGlobalRef) hnode() {}

// ---------------------------------------------------------------------------
// Call nodes
// ---------------------------------------------------------------------------

// HBuiltin is any builtin form or operator, identified by its canonical name.
type HBuiltin struct {
	Name string
	Args []HNode
}

// HCall applies Callee to Args.
type HCall struct {
	Callee HNode
	Args   []HNode
}

// HApply applies Callee to a spread argument list.
type HApply struct {
	Callee HNode
	Args   []HNode
}

type HIf struct {
	Cond, Then, Else HNode
}

type HList struct {
	Elements []HNode
}

func (*HBuiltin) hnode() {}
func (*HCall) hnode()    {}
func (*HApply) hnode()   {}
func (*HIf) hnode()      {}
func (*HList) hnode()    {}

// ---------------------------------------------------------------------------
// Binding nodes
// ---------------------------------------------------------------------------

type HLet struct {
	Value HNode
	Body  HNode
}

type HLetRec struct {
	Value HNode
	Body  HNode
}

type HLambda struct {
	Arity int
	Body  HNode
}

// HFunction is the root of a hashed top-level function.
type HFunction struct {
	Name  string
	Arity int
	Body  HNode
}

func (*HLet) hnode()      {}
func (*HLetRec) hnode()   {}
func (*HLambda) hnode()   {}
func (*HFunction) hnode() {}
