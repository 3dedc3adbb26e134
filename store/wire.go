package store

import (
	"fmt"

	"github.com/chazu/lispik/pkg/bytecode"
	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so equal result lists encode to equal
// bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Value tags on the wire. Frozen: journals written by older builds must
// still decode.
const (
	wireInteger uint8 = 0
	wireNil     uint8 = 1
	wirePair    uint8 = 2
	wireClosure uint8 = 3
)

// wireValue is the CBOR form of a literal. Closures keep only their tag.
type wireValue struct {
	Tag uint8      `cbor:"1,keyasint"`
	Int int64      `cbor:"2,keyasint,omitempty"`
	Car *wireValue `cbor:"3,keyasint,omitempty"`
	Cdr *wireValue `cbor:"4,keyasint,omitempty"`
}

// EncodeResults serializes a result stack to CBOR bytes.
func EncodeResults(values []bytecode.Literal) ([]byte, error) {
	wire := make([]*wireValue, len(values))
	for i, v := range values {
		w, err := toWire(v)
		if err != nil {
			return nil, err
		}
		wire[i] = w
	}
	return cborEncMode.Marshal(wire)
}

// DecodeResults deserializes a result stack from CBOR bytes. Closures come
// back as empty closures.
func DecodeResults(data []byte) ([]bytecode.Literal, error) {
	var wire []*wireValue
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("store: unmarshal results: %w", err)
	}
	values := make([]bytecode.Literal, len(wire))
	for i, w := range wire {
		v, err := fromWire(w)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func toWire(l bytecode.Literal) (*wireValue, error) {
	switch v := l.(type) {
	case bytecode.Integer:
		return &wireValue{Tag: wireInteger, Int: int64(v)}, nil
	case bytecode.Nil:
		return &wireValue{Tag: wireNil}, nil
	case *bytecode.Pair:
		car, err := toWire(v.Car)
		if err != nil {
			return nil, err
		}
		cdr, err := toWire(v.Cdr)
		if err != nil {
			return nil, err
		}
		return &wireValue{Tag: wirePair, Car: car, Cdr: cdr}, nil
	case *bytecode.Closure:
		return &wireValue{Tag: wireClosure}, nil
	}
	return nil, fmt.Errorf("store: cannot encode %T", l)
}

func fromWire(w *wireValue) (bytecode.Literal, error) {
	if w == nil {
		return nil, fmt.Errorf("store: missing value")
	}
	switch w.Tag {
	case wireInteger:
		return bytecode.Integer(w.Int), nil
	case wireNil:
		return bytecode.Nil{}, nil
	case wirePair:
		car, err := fromWire(w.Car)
		if err != nil {
			return nil, err
		}
		cdr, err := fromWire(w.Cdr)
		if err != nil {
			return nil, err
		}
		return bytecode.Cons(car, cdr), nil
	case wireClosure:
		return &bytecode.Closure{}, nil
	}
	return nil, fmt.Errorf("store: unknown value tag %d", w.Tag)
}
