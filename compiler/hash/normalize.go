package hash

import (
	"github.com/chazu/lispik/compiler"
)

// ---------------------------------------------------------------------------
// AST Normalization: compiler AST → frozen hashing AST
//
// Walks the compiler's AST and produces the frozen hashing AST with de Bruijn
// indices for parameters and let bindings and names for global functions.
// ---------------------------------------------------------------------------

var unaryNames = map[compiler.UnaryKind]string{
	compiler.UnaryCar:    "car",
	compiler.UnaryCdr:    "cdr",
	compiler.UnaryIsNil:  "nil?",
	compiler.UnaryIsAtom: "atom?",
	compiler.UnaryIsPair: "pair?",
	compiler.UnaryIsZero: "zero?",
	compiler.UnaryNot:    "not",
	compiler.UnaryPrint:  "print",
}

var binaryNames = map[compiler.BinaryKind]string{
	compiler.BinaryAdd:       "+",
	compiler.BinarySub:       "-",
	compiler.BinaryMul:       "*",
	compiler.BinaryDiv:       "/",
	compiler.BinaryLower:     "<",
	compiler.BinaryGreater:   ">",
	compiler.BinaryLowerEq:   "<=",
	compiler.BinaryGreaterEq: ">=",
	compiler.BinaryCons:      "cons",
	compiler.BinaryIsEqual:   "eq?",
	compiler.BinaryAnd:       "and",
	compiler.BinaryOr:        "or",
}

// normalizer holds state for the normalization walk.
type normalizer struct {
	scopes [][]string // scope stack: [0]=function params, innermost last
}

// NormalizeFunction transforms a compiler DeFun into a frozen HFunction.
func NormalizeFunction(fn *compiler.DeFun) *HFunction {
	n := &normalizer{scopes: [][]string{fn.Params}}
	return &HFunction{
		Name:  fn.Name,
		Arity: len(fn.Params),
		Body:  n.normalize(fn.Body),
	}
}

// NormalizeExpr transforms a top-level expression.
func NormalizeExpr(expr compiler.Node) HNode {
	n := &normalizer{}
	return n.normalize(expr)
}

func (n *normalizer) with(names []string, f func() HNode) HNode {
	n.scopes = append(n.scopes, names)
	defer func() { n.scopes = n.scopes[:len(n.scopes)-1] }()
	return f()
}

// resolve maps a name to a local de Bruijn reference, or a global reference
// when no enclosing scope binds it.
func (n *normalizer) resolve(name string) HNode {
	for depth := 0; depth < len(n.scopes); depth++ {
		frame := n.scopes[len(n.scopes)-1-depth]
		for i := len(frame) - 1; i >= 0; i-- {
			if frame[i] == name {
				return &HLocalRef{ScopeDepth: uint16(depth), SlotIndex: uint16(i)}
			}
		}
	}
	return &HGlobalRef{Name: name}
}

func (n *normalizer) all(nodes []compiler.Node) []HNode {
	out := make([]HNode, len(nodes))
	for i, node := range nodes {
		out[i] = n.normalize(node)
	}
	return out
}

func (n *normalizer) normalize(node compiler.Node) HNode {
	switch e := node.(type) {
	case *compiler.IntegerLit:
		return &HIntLiteral{Value: e.Value}
	case *compiler.NilLit:
		return &HNilLiteral{}
	case *compiler.ListLit:
		elems := make([]HNode, len(e.Items))
		for i, item := range e.Items {
			elems[i] = n.normalize(item)
		}
		return &HListLiteral{Elements: elems}

	case *compiler.VarRef:
		return n.resolve(e.Name)

	case *compiler.Nullary:
		return &HBuiltin{Name: "read"}
	case *compiler.Unary:
		return &HBuiltin{Name: unaryNames[e.Kind], Args: []HNode{n.normalize(e.Arg)}}
	case *compiler.Binary:
		return &HBuiltin{Name: binaryNames[e.Kind], Args: []HNode{n.normalize(e.Arg0), n.normalize(e.Arg1)}}
	case *compiler.If:
		return &HIf{Cond: n.normalize(e.Cond), Then: n.normalize(e.Then), Else: n.normalize(e.Else)}
	case *compiler.ListExpr:
		return &HList{Elements: n.all(e.Items)}

	case *compiler.CallByName:
		return &HCall{Callee: n.resolve(e.Name), Args: n.all(e.Args)}
	case *compiler.CallByEval:
		return &HCall{Callee: n.normalize(e.Target), Args: n.all(e.Args)}

	case *compiler.ApplyCall:
		var callee HNode
		if compiler.IsKeyword(e.Name) {
			callee = &HBuiltin{Name: e.Name}
		} else {
			callee = n.resolve(e.Name)
		}
		return &HApply{Callee: callee, Args: n.all(e.Args)}
	case *compiler.ApplyEval:
		return &HApply{Callee: n.normalize(e.Target), Args: n.all(e.Args)}
	case *compiler.ApplyOperator:
		return &HApply{Callee: &HBuiltin{Name: e.Operator.String()}, Args: n.all(e.Args)}

	case *compiler.Let:
		value := n.normalize(e.Value)
		body := n.with([]string{e.Name}, func() HNode { return n.normalize(e.Body) })
		return &HLet{Value: value, Body: body}
	case *compiler.LetRec:
		var value, body HNode
		n.with([]string{e.Name}, func() HNode {
			value = n.normalize(e.Value)
			body = n.normalize(e.Body)
			return nil
		})
		return &HLetRec{Value: value, Body: body}
	case *compiler.Lambda:
		body := n.with(e.Params, func() HNode { return n.normalize(e.Body) })
		return &HLambda{Arity: len(e.Params), Body: body}
	case *compiler.DeFun:
		body := n.with(e.Params, func() HNode { return n.normalize(e.Body) })
		return &HLambda{Arity: len(e.Params), Body: body}
	}

	// Unknown node type, unreachable
	return &HNilLiteral{}
}
