package bytecode

import "testing"

func TestLiteralString(t *testing.T) {
	tests := []struct {
		name string
		lit  Literal
		want string
	}{
		{"integer", Integer(42), "42"},
		{"negative", Integer(-7), "-7"},
		{"nil", Nil{}, "nil"},
		{"closure", &Closure{}, "closure"},
		{"dotted pair", Cons(Integer(1), Integer(2)), "(1.2)"},
		{"proper list", List(Integer(1), Integer(2), Integer(3)), "(1 2 3)"},
		{"single", List(Integer(1)), "(1)"},
		{"nested car", List(List(Integer(1), Integer(2)), Integer(3)), "((1 2) 3)"},
		{"improper tail", Cons(Integer(1), Cons(Integer(2), Integer(3))), "(1 2.3)"},
		{"nil element", List(Nil{}, Integer(1)), "(nil 1)"},
		{"closure tail", Cons(Integer(1), &Closure{}), "(1.closure)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.lit.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	c := &Closure{}
	tests := []struct {
		name string
		a, b Literal
		want bool
	}{
		{"same integers", Integer(3), Integer(3), true},
		{"different integers", Integer(3), Integer(4), false},
		{"nils", Nil{}, Nil{}, true},
		{"nil vs integer", Nil{}, Integer(0), false},
		{"equal lists", List(Integer(1), Integer(2)), List(Integer(1), Integer(2)), true},
		{"different lists", List(Integer(1), Integer(2)), List(Integer(1)), false},
		{"same closure", c, c, true},
		{"distinct closures", c, &Closure{}, false},
		{"list vs nil", List(Integer(1)), Nil{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestToSlice(t *testing.T) {
	items, ok := ToSlice(List(Integer(1), Integer(2)))
	if !ok || len(items) != 2 {
		t.Fatalf("ToSlice proper list = %v, %v", items, ok)
	}
	if items[0] != Integer(1) || items[1] != Integer(2) {
		t.Errorf("unexpected items %v", items)
	}

	if items, ok := ToSlice(Nil{}); !ok || len(items) != 0 {
		t.Errorf("ToSlice(nil) = %v, %v", items, ok)
	}
	if _, ok := ToSlice(Cons(Integer(1), Integer(2))); ok {
		t.Error("ToSlice should reject an improper list")
	}
	if _, ok := ToSlice(Integer(1)); ok {
		t.Error("ToSlice should reject an integer")
	}
}

func TestCoordinate(t *testing.T) {
	d, i, ok := SplitCoordinate(Coordinate(-1, 3))
	if !ok || d != -1 || i != 3 {
		t.Errorf("SplitCoordinate = %d, %d, %v", d, i, ok)
	}
	if _, _, ok := SplitCoordinate(Integer(1)); ok {
		t.Error("integer is not a coordinate")
	}
	if _, _, ok := SplitCoordinate(Cons(Nil{}, Integer(1))); ok {
		t.Error("(nil . 1) is not a coordinate")
	}
}

func TestPlaceholderFill(t *testing.T) {
	f := NewPlaceholder()
	if !f.IsPlaceholder() {
		t.Fatal("new placeholder should report IsPlaceholder")
	}
	captured := []*Frame{f}
	f.Fill([]Literal{Integer(9)})
	if captured[0].IsPlaceholder() || captured[0].Values[0] != Integer(9) {
		t.Errorf("fill not visible through captured pointer: %+v", captured[0])
	}
}
