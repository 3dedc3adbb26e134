package hash

import (
	"bytes"
	"testing"

	"github.com/chazu/lispik/compiler"
)

func parseFunction(t *testing.T, src string) *compiler.DeFun {
	t.Helper()
	program, err := compiler.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	if len(program.Functions) != 1 {
		t.Fatalf("expected one function in %q", src)
	}
	return program.Functions[0]
}

func TestNormalize_ParamResolution(t *testing.T) {
	fn := parseFunction(t, "(defun (f x y) y)")
	hf := NormalizeFunction(fn)

	if hf.Name != "f" || hf.Arity != 2 {
		t.Errorf("got name=%q arity=%d", hf.Name, hf.Arity)
	}
	ref, ok := hf.Body.(*HLocalRef)
	if !ok {
		t.Fatalf("body: got %T, want *HLocalRef", hf.Body)
	}
	if ref.ScopeDepth != 0 || ref.SlotIndex != 1 {
		t.Errorf("var ref: got depth=%d slot=%d, want depth=0 slot=1", ref.ScopeDepth, ref.SlotIndex)
	}
}

func TestNormalize_NestedScopes(t *testing.T) {
	fn := parseFunction(t, "(defun (f x) (let (y 1) (lambda (z) x)))")
	hf := NormalizeFunction(fn)

	let, ok := hf.Body.(*HLet)
	if !ok {
		t.Fatalf("body: got %T, want *HLet", hf.Body)
	}
	lambda, ok := let.Body.(*HLambda)
	if !ok {
		t.Fatalf("let body: got %T, want *HLambda", let.Body)
	}
	ref, ok := lambda.Body.(*HLocalRef)
	if !ok || ref.ScopeDepth != 2 || ref.SlotIndex != 0 {
		t.Errorf("x should resolve to depth 2 slot 0, got %#v", lambda.Body)
	}
}

func TestNormalize_GlobalRef(t *testing.T) {
	fn := parseFunction(t, "(defun (f n) (g n))")
	call, ok := NormalizeFunction(fn).Body.(*HCall)
	if !ok {
		t.Fatalf("body: got %T, want *HCall", NormalizeFunction(fn).Body)
	}
	if g, ok := call.Callee.(*HGlobalRef); !ok || g.Name != "g" {
		t.Errorf("callee = %#v", call.Callee)
	}
}

func TestHash_AlphaEquivalence(t *testing.T) {
	a := HashFunction(parseFunction(t, "(defun (f x) (+ x 1))"))
	b := HashFunction(parseFunction(t, "(define (f y) (+ y 1))"))
	if a != b {
		t.Error("renaming a parameter should not change the hash")
	}
}

func TestHash_Differences(t *testing.T) {
	base := HashFunction(parseFunction(t, "(defun (f x) (+ x 1))"))
	others := []string{
		"(defun (g x) (+ x 1))",
		"(defun (f x) (+ x 2))",
		"(defun (f x) (- x 1))",
		"(defun (f x y) (+ x 1))",
		"(defun (f x) (+ 1 x))",
	}
	for _, src := range others {
		if HashFunction(parseFunction(t, src)) == base {
			t.Errorf("%q should hash differently", src)
		}
	}
}

func TestSerialize_VersionPrefix(t *testing.T) {
	data := Serialize(&HNilLiteral{})
	if !bytes.Equal(data, []byte{HashVersion, TagNilLiteral}) {
		t.Errorf("got % x", data)
	}
}

func TestHex(t *testing.T) {
	h := Hex(parseFunction(t, "(defun (f) 1)"))
	if len(h) != 64 {
		t.Errorf("hex length = %d, want 64", len(h))
	}
}
