// Package classify implements the Value Classifier: it finds every
// operand used by an instruction inside the requested block set that is
// defined outside it (an ExternalValue), in first-use order with no
// duplicates. ExternalValues become the synthesized kernel function's
// argument list.
package classify

import "github.com/tikforge/tik/ir"

// KfMap resolves a call target to the Kernel that built it, if any. A
// *buildctx.Context satisfies this directly; declared as an interface
// here (rather than importing buildctx's concrete type) purely to keep
// the dependency direction the same as everywhere else in the module,
// since neither package needs the other's full surface.
type KfMap interface {
	KernelFor(fn *ir.Function) (ExternalValuer, bool)
}

// ExternalValuer is the subset of a built Kernel's surface the second
// bullet of spec §4.4 needs: its own ExternalValues list. Exported so a
// caller (buildctx.Context) can implement KfMap without this package
// importing that caller.
type ExternalValuer interface {
	KernelExternalValues() []ir.Value
}

// ExternalValues returns every Value used by an instruction in blocks
// whose defining point lies outside the set, in first-encountered
// order, each appearing exactly once. A containing function's own
// Arguments count as external when used inside the set, the same as any
// other outside-defined operand (mirroring flowgraph/optimize.go's
// blockCaps treatment of a closure's captured parameters). kf may be nil
// when the caller has no nested kernels to resolve yet (e.g. the very
// first kernel built in a run); when non-nil, a call to an
// already-built child kernel additionally contributes that child's own
// still-unresolved ExternalValues, per spec §4.4's second bullet.
func ExternalValues(kf KfMap, blocks []*ir.BasicBlock) []ir.Value {
	set := make(map[*ir.BasicBlock]bool, len(blocks))
	for _, b := range blocks {
		set[b] = true
	}

	var out []ir.Value
	seen := make(map[ir.Value]bool)

	addIfExternal := func(v ir.Value) {
		if v == nil || seen[v] {
			return
		}
		if !isExternalCandidate(v, set) {
			return
		}
		seen[v] = true
		out = append(out, v)
	}

	for _, b := range blocks {
		for _, in := range b.Instrs {
			for _, op := range in.Operands() {
				addIfExternal(op)
			}
			call, ok := in.(*ir.Call)
			if !ok || call.Target == nil || kf == nil {
				continue
			}
			if child, ok := kf.KernelFor(call.Target); ok {
				for _, nv := range child.KernelExternalValues() {
					addIfExternal(nv)
				}
			}
		}
	}
	return out
}

// isExternalCandidate reports whether v is one of the two kinds spec
// §4.4 allows into ExternalValues: an instruction whose defining block
// lies outside set, or an Argument (which always belongs to the
// containing function, never to the block set itself). Constants and
// GlobalVariables are excluded outright — they are never kernel
// arguments, no matter where they're "defined" — and a FunctionRef
// (a Call's statically-resolved callee operand) is likewise excluded,
// since calls are baked into the synthesized kernel directly rather than
// threaded through as arguments.
func isExternalCandidate(v ir.Value, set map[*ir.BasicBlock]bool) bool {
	switch val := v.(type) {
	case ir.Constant, *ir.GlobalVariable:
		return false
	case ir.Instruction:
		return !set[val.Parent()]
	case *ir.Argument:
		return true
	default:
		return false
	}
}
