// Package store persists Lispík sessions: a SQLite journal of committed
// functions and evaluated submissions, with results kept as canonical CBOR.
package store
