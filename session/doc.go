// Package session keeps the state a Lispík host carries between
// submissions: the table of top-level functions, the VM configuration and an
// optional journal.
package session
