package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing AST serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// all previously computed content hashes.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// AST node type tags. Each tag uniquely identifies a node kind in the
// serialized byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Literal values
	TagIntLiteral  byte = 0x01
	TagNilLiteral  byte = 0x02
	TagListLiteral byte = 0x03

	// Variable references (de Bruijn indexed)
	TagLocalRef  byte = 0x08
	TagGlobalRef byte = 0x09

	// Calls
	TagBuiltin byte = 0x10
	TagCall    byte = 0x11
	TagApply   byte = 0x12
	TagIf      byte = 0x13
	TagList    byte = 0x14

	// Binding forms
	TagLet      byte = 0x18
	TagLetRec   byte = 0x19
	TagLambda   byte = 0x1A
	TagFunction byte = 0x1B

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagIntLiteral, TagNilLiteral, TagListLiteral,
	TagLocalRef, TagGlobalRef,
	TagBuiltin, TagCall, TagApply, TagIf, TagList,
	TagLet, TagLetRec, TagLambda, TagFunction,
}
