// Package vm implements the SECD machine that executes Lispík bytecode.
//
// The machine keeps four registers: a value stack, a dump of saved
// continuations, the remaining code and the environment, a list of frames
// searched innermost first. In global mode the bottom frame holds the
// top-level functions and is shared by every call.
package vm
