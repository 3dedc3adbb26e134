package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/lispik/compiler"
)

// HashFunction computes the SHA-256 content hash of a function definition.
//
// The hash is computed over a deterministic serialization of the function's
// normalized AST with de Bruijn variable indexing. Two definitions with the
// same name and body, ignoring parameter names, produce the same hash.
func HashFunction(fn *compiler.DeFun) [32]byte {
	return sha256.Sum256(Serialize(NormalizeFunction(fn)))
}

// Hex returns the hash of fn as a lowercase hex string.
func Hex(fn *compiler.DeFun) string {
	h := HashFunction(fn)
	return hex.EncodeToString(h[:])
}
