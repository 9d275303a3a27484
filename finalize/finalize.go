// Package finalize implements the Finalizer (spec §4.8): the last phase
// before a kernel's synthesized function is considered complete. It
// exports external declarations the kernel still calls, strips debug
// metadata from synthetic blocks, attaches the tik metadata tags, and
// warns (rather than errors) on the handful of non-fatal conditions
// spec §9 calls out.
package finalize

import (
	"strings"

	"tlog.app/go/tlog"

	"github.com/tikforge/tik/buildctx"
	"github.com/tikforge/tik/ir"
	"github.com/tikforge/tik/kernel"
)

// Finalize runs the Finalizer's bullet-point list against k, writing any
// external declarations it still needs into ctx.TikModule.
func Finalize(ctx *buildctx.Context, k *kernel.Kernel) error {
	exportExternalDecls(ctx, k)
	copyExternalGlobals(ctx, k)
	stripDebugInfo(k)
	warnAnonymousGlobals(k)
	warnMultiExit(k)
	attachMetadata(k)
	return nil
}

// copyExternalGlobals implements spec §4.8's "copy globals" bullet: any
// GlobalVariable an instruction in the kernel function still references
// but that isn't yet one of ctx.TikModule's own globals (the promoted
// memory-interface globals memrewrite already added there are the
// common case that's already present) is cloned in, preserving its
// initializer, and every reference to the original is repointed at the
// clone.
func copyExternalGlobals(ctx *buildctx.Context, k *kernel.Kernel) {
	inTikModule := make(map[*ir.GlobalVariable]bool, len(ctx.TikModule.Globals))
	for _, g := range ctx.TikModule.Globals {
		inTikModule[g] = true
	}

	seen := map[*ir.GlobalVariable]bool{}
	for _, b := range k.Function.Blocks {
		for _, in := range b.Instrs {
			for _, op := range in.Operands() {
				g, ok := op.(*ir.GlobalVariable)
				if !ok || seen[g] || inTikModule[g] {
					continue
				}
				seen[g] = true

				elem := ir.Type(ir.I8)
				if pt, ok := g.Type().(ir.PointerType); ok {
					elem = pt.Elem
				}
				clone := ir.NewGlobal(g.Name(), elem)
				clone.Initializer = g.Initializer
				ctx.TikModule.AddGlobal(clone)
				inTikModule[clone] = true

				for _, b2 := range k.Function.Blocks {
					for _, in2 := range b2.Instrs {
						in2.ReplaceOperand(g, clone)
					}
				}
			}
		}
	}
}

// exportExternalDecls ensures that every function still called from
// inside the kernel but not itself built as a kernel exists in
// ctx.TikModule as a declaration (no body), mirroring
// backend/llvm/llvm.go's external-function declare emission.
func exportExternalDecls(ctx *buildctx.Context, k *kernel.Kernel) {
	seen := make(map[*ir.Function]bool)
	for _, b := range k.Function.Blocks {
		for _, in := range b.Instrs {
			call, ok := in.(*ir.Call)
			if !ok || call.Target == nil || seen[call.Target] {
				continue
			}
			seen[call.Target] = true
			if ctx.TikModule.FindFunc(call.Target.Name) == nil {
				decl := ir.NewFunction(call.Target.Name, cloneParams(call.Target.Params), call.Target.RetType, ctx.TikModule)
				ctx.TikModule.AddFunc(decl)
			}
		}
	}
}

func cloneParams(params []*ir.Argument) []*ir.Argument {
	out := make([]*ir.Argument, len(params))
	for i, p := range params {
		out[i] = ir.NewArgument(p.Name(), p.Type())
	}
	return out
}

// stripDebugInfo clears any leftover debug-oriented metadata keys from
// every synthetic block (one with no BlockID — Init, Exit, and anything
// the Inliner/splitter created), per spec §4.8.
func stripDebugInfo(k *kernel.Kernel) {
	const debugKey = "tik.debugLoc"
	for _, b := range k.Function.Blocks {
		if _, ok := b.Meta(ir.MetaBlockID); !ok {
			b.ClearMeta(debugKey)
		}
	}
}

// warnAnonymousGlobals logs (rather than errors on) a promoted global
// with no usable name, per original_source/tik/tik/Kernel.cpp's
// lower-priority warning path for this case.
func warnAnonymousGlobals(k *kernel.Kernel) {
	if k.Memory == nil {
		return
	}
	for _, g := range k.Memory.Order {
		gv := k.Memory.GlobalMap[g]
		if strings.TrimSpace(gv.Name()) == "" {
			tlog.Printw("warn", "finalize: skipping KernelName metadata on anonymous global", "kernel", k.Name)
		}
	}
}

// warnMultiExit logs when more than one distinct exit target maps into
// this kernel's Exit block, per spec §9's call-site corruption caveat:
// supported, but the caller must be prepared for it.
func warnMultiExit(k *kernel.Kernel) {
	targets := map[*ir.BasicBlock]bool{}
	for _, e := range k.Region.Exits {
		targets[e.Target] = true
	}
	if len(targets) > 1 {
		tlog.Printw("warn", "finalize: kernel has multiple distinct exit targets", "kernel", k.Name, "count", len(targets))
	}
}

// attachMetadata tags the synthesized function and its globals: KernelName
// on the function and on every named promoted global, TikSynthetic on
// every block with no BlockID (the blocks the Builder/Inliner created),
// TikMetadata holding the kernel's source block count after splitting,
// and KernelCall on every call to the kernel's MemoryRead/MemoryWrite
// helpers.
func attachMetadata(k *kernel.Kernel) {
	k.Function.SetMeta(ir.MetaKernelName, k.Name)
	k.Function.SetMeta(ir.MetaTikMetadata, len(k.Blocks))
	for _, g := range k.Memory.Order {
		if gv := k.Memory.GlobalMap[g]; strings.TrimSpace(gv.Name()) != "" {
			gv.SetMeta(ir.MetaKernelName, k.Name)
		}
	}
	for _, b := range k.Function.Blocks {
		if _, ok := b.Meta(ir.MetaBlockID); !ok {
			b.SetMeta(ir.MetaTikSynthetic, true)
		}
	}
	for _, b := range k.Function.Blocks {
		for _, in := range b.Instrs {
			call, ok := in.(*ir.Call)
			if !ok || call.Target == nil {
				continue
			}
			if call.Target.Name == k.Memory.MemoryRead.Name || call.Target.Name == k.Memory.MemoryWrite.Name {
				call.SetMeta(ir.MetaKernelCall, true)
			}
		}
	}
}
