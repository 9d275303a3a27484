// Package buildctx carries the run-scoped state shared across every
// kernel built in a single invocation: the output module kernels are
// written into, the set of reserved kernel names, and the two process-
// wide maps (KernelMap, KfMap) nested-kernel handling needs. It exists
// so this state is threaded explicitly through the build, the way
// flowgraph/optimize.go threads its substitution maps through pass
// functions, rather than living in package-level globals.
package buildctx

import (
	"fmt"
	"strings"

	"github.com/tikforge/tik/classify"
	"github.com/tikforge/tik/ir"
)

// Context is passed by pointer to every phase of every kernel build in a
// run.
type Context struct {
	// TikModule is the module new kernel functions and globals are
	// written into; distinct from the source module the blocks were
	// read from.
	TikModule *ir.Module

	// reserved holds the lower-cased form of every name claimed so far,
	// mapped to the originally-cased name, per original_source's
	// case-insensitive collision check.
	reserved map[string]string

	// KernelMap maps a source block to the Kernel instance that owns
	// it, used to detect requested blocks that a previously-built kernel
	// already claimed (nested kernels).
	// Valued as interface{} (rather than *kernel.Kernel) to avoid an
	// import cycle: package kernel imports buildctx, not the reverse.
	KernelMap map[*ir.BasicBlock]interface{}

	// KfMap maps a synthesized *ir.Function back to the Kernel that
	// built it.
	KfMap map[*ir.Function]interface{}

	uid int
}

// New constructs an empty build context writing into out.
func New(out *ir.Module) *Context {
	return &Context{
		TikModule: out,
		reserved:  make(map[string]string),
		KernelMap: make(map[*ir.BasicBlock]interface{}),
		KfMap:     make(map[*ir.Function]interface{}),
	}
}

// KernelFor reports the previously-built kernel owning fn, if any,
// satisfying classify.KfMap so package classify can walk a nested
// kernel's own ExternalValues without importing this package back.
func (c *Context) KernelFor(fn *ir.Function) (classify.ExternalValuer, bool) {
	v, ok := c.KfMap[fn]
	if !ok {
		return nil, false
	}
	ev, ok := v.(classify.ExternalValuer)
	return ev, ok
}

// NextUID returns a fresh, run-scoped integer, used to name anonymous
// kernels ("Kernel_0", "Kernel_1", ...) the way the original tool's
// static KernelUID counter does.
func (c *Context) NextUID() int {
	id := c.uid
	c.uid++
	return id
}

// Reserve claims name for a kernel, applying the original tool's two
// naming rules: a name beginning with a digit is prefixed with "K", and
// collisions are checked case-insensitively while the caller's original
// casing is preserved in the returned name. Returns the final name and
// whether it collided with an already-reserved one; a collided name is
// not reserved again, and the caller wraps the collision as a
// kernelerr.DuplicateName.
func (c *Context) Reserve(name string) (final string, collided bool) {
	if name == "" {
		name = fmt.Sprintf("Kernel_%d", c.NextUID())
	} else if name[0] >= '0' && name[0] <= '9' {
		name = "K" + name
	}
	key := strings.ToLower(name)
	if _, ok := c.reserved[key]; ok {
		return name, true
	}
	c.reserved[key] = name
	return name, false
}
