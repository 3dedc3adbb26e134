package hash

import (
	"encoding/binary"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of the frozen hashing AST.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers: big-endian fixed-width (int64=8B, uint16=2B)
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Child nodes: serialized inline (flat)
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of an HNode tree.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(node HNode) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.serializeNode(node)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeInt(v int) {
	s.writeInt64(int64(v))
}

func (s *serializer) serializeNodes(nodes []HNode) {
	s.writeUint32(uint32(len(nodes)))
	for _, n := range nodes {
		s.serializeNode(n)
	}
}

func (s *serializer) serializeNode(node HNode) {
	switch n := node.(type) {
	case *HIntLiteral:
		s.writeByte(TagIntLiteral)
		s.writeInt64(n.Value)

	case *HNilLiteral:
		s.writeByte(TagNilLiteral)

	case *HListLiteral:
		s.writeByte(TagListLiteral)
		s.serializeNodes(n.Elements)

	case *HLocalRef:
		s.writeByte(TagLocalRef)
		s.writeUint16(n.ScopeDepth)
		s.writeUint16(n.SlotIndex)

	case *HGlobalRef:
		s.writeByte(TagGlobalRef)
		s.writeString(n.Name)

	case *HBuiltin:
		s.writeByte(TagBuiltin)
		s.writeString(n.Name)
		s.serializeNodes(n.Args)

	case *HCall:
		s.writeByte(TagCall)
		s.serializeNode(n.Callee)
		s.serializeNodes(n.Args)

	case *HApply:
		s.writeByte(TagApply)
		s.serializeNode(n.Callee)
		s.serializeNodes(n.Args)

	case *HIf:
		s.writeByte(TagIf)
		s.serializeNode(n.Cond)
		s.serializeNode(n.Then)
		s.serializeNode(n.Else)

	case *HList:
		s.writeByte(TagList)
		s.serializeNodes(n.Elements)

	case *HLet:
		s.writeByte(TagLet)
		s.serializeNode(n.Value)
		s.serializeNode(n.Body)

	case *HLetRec:
		s.writeByte(TagLetRec)
		s.serializeNode(n.Value)
		s.serializeNode(n.Body)

	case *HLambda:
		s.writeByte(TagLambda)
		s.writeInt(n.Arity)
		s.serializeNode(n.Body)

	case *HFunction:
		s.writeByte(TagFunction)
		s.writeString(n.Name)
		s.writeInt(n.Arity)
		s.serializeNode(n.Body)
	}
}
