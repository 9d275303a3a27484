// Package ir implements the typed SSA intermediate representation this
// module analyzes and synthesizes kernels from. It plays the role LLVM
// plays in the original tool: a Module containing Functions, each built
// of BasicBlocks of Instructions operating over a small union of typed
// Values (instructions that produce a result, Arguments, GlobalVariables,
// and Constants).
package ir

import "fmt"

// Type is implemented by every IR type. Types are compared by identity for
// the few cases (integer width, pointer vs not) where it matters; most
// passes only need String() for diagnostics and textual dumps.
type Type interface {
	String() string
	isType()
}

// IntType is a fixed-width integer type. Width is in bits; the i8/i64
// convention from the entry/exit calling protocol uses IntType{Bits: 8}
// and IntType{Bits: 64}.
type IntType struct {
	Bits     int
	Unsigned bool
}

func (t IntType) isType() {}

func (t IntType) String() string {
	if t.Unsigned {
		return fmt.Sprintf("u%d", t.Bits)
	}
	return fmt.Sprintf("i%d", t.Bits)
}

// VoidType is the type of instructions and functions that produce no
// value (Store, Branch, a function with no return value).
type VoidType struct{}

func (VoidType) isType() {}
func (VoidType) String() string {
	return "void"
}

// PointerType is an opaque pointer to Elem, matching the backend's i8*-
// flavored pointer convention: pointers carry an element type for
// diagnostics but are otherwise treated as opaque i64-sized handles once
// they cross the memory interface (see package memrewrite).
type PointerType struct {
	Elem Type
}

func (PointerType) isType() {}
func (t PointerType) String() string {
	return t.Elem.String() + "*"
}

// FuncType is the type of a function value: its parameter types and
// return type. Kernels always have FuncType{Params: [i8, T1..Tn], Ret: i8}
// per the entry/exit calling convention.
type FuncType struct {
	Params []Type
	Ret    Type
}

func (FuncType) isType() {}
func (t FuncType) String() string {
	s := "("
	for i, p := range t.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s + ") -> " + t.Ret.String()
}

var (
	// I8 is the entrance/exit id type used by the kernel calling
	// convention.
	I8 = IntType{Bits: 8}
	// I64 is the abstract-memory-address type: every pointer that
	// crosses the MemoryRead/MemoryWrite interface is carried as i64.
	I64  = IntType{Bits: 64}
	I1   = IntType{Bits: 1}
	Void = VoidType{}
)
