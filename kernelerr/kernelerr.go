// Package kernelerr defines the typed exception model kernel extraction
// uses in place of the original tool's C++ exceptions: every phase
// returns a *kernelerr.Error instead of throwing, so the top-level driver
// (package kernel's Build) can inspect Kind and decide whether to abort
// the whole run or just skip the offending kernel.
package kernelerr

import (
	"fmt"

	"tlog.app/go/errors"
)

// Kind enumerates the reasons a kernel build can fail, matching the
// original tool's exception taxonomy one for one.
type Kind int

const (
	DuplicateName Kind = iota
	NoEntrance
	NoExit
	RecursionUnsupported
	InvokeUnsupported
	UnsupportedCall
	AmbiguousDoubleExit
	DanglingNestedArg
	UnmappedPointer
	UnexpectedArgKind
	BranchWithNoValidSuccessors
	UnimplementedTerminator
	TypeNotSupported
	MissingReturnInTree
)

var kindNames = map[Kind]string{
	DuplicateName:               "duplicate kernel name",
	NoEntrance:                  "no entrance into block set",
	NoExit:                      "no exit from block set",
	RecursionUnsupported:        "recursion unsupported",
	InvokeUnsupported:           "invoke unsupported",
	UnsupportedCall:             "unsupported call",
	AmbiguousDoubleExit:         "ambiguous double exit",
	DanglingNestedArg:           "dangling nested kernel argument",
	UnmappedPointer:             "unmapped pointer operand",
	UnexpectedArgKind:           "unexpected argument value kind",
	BranchWithNoValidSuccessors: "branch with no valid successors",
	UnimplementedTerminator:     "unimplemented terminator",
	TypeNotSupported:            "type not supported",
	MissingReturnInTree:         "missing return in tree",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kernelerr.Kind(%d)", int(k))
}

// Error is the typed error every phase of kernel extraction returns on
// failure. It wraps an optional underlying cause via tlog.app/go/errors
// so that phase boundaries can add context without losing Kind.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind, recording cause for Unwrap.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether err is a *Error of the given kind, unwrapping
// through tlog.app/go/errors-wrapped layers the way a phase boundary's
// errors.Wrap would produce.
func Is(err error, kind Kind) bool {
	var ke *Error
	if !errors.As(err, &ke) {
		return false
	}
	return ke.Kind == kind
}
