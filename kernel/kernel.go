// Package kernel implements the Kernel data structure and the Builder
// that orchestrates every phase — region analysis, value classification,
// cloning, memory rewriting, inlining, finalization — into one built
// Kernel, directly generalizing flowgraph/optimize.go's copyBlocks
// (clone-then-substitute) from "inline one callee" to "extract an
// arbitrary block set into its own function."
package kernel

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/tikforge/tik/blockid"
	"github.com/tikforge/tik/buildctx"
	"github.com/tikforge/tik/classify"
	"github.com/tikforge/tik/inline"
	"github.com/tikforge/tik/ir"
	"github.com/tikforge/tik/kernelerr"
	"github.com/tikforge/tik/memrewrite"
	"github.com/tikforge/tik/region"
	"github.com/tikforge/tik/splitter"
)

// Kernel is the synthesized callable unit spec §3 names: the original
// block set, its computed region shape, its external argument list, the
// function it was built into, and the memory interface backing it.
type Kernel struct {
	Name string

	// Blocks holds the requested source block set after block splitting,
	// for diagnostics and re-building.
	Blocks []*ir.BasicBlock

	Region *region.Result

	// ExternalValues is the ordered, deduplicated argument list computed
	// by the Value Classifier.
	ExternalValues []ir.Value

	// Function is the synthesized function: signature
	// i8(i8 entrance_id, T1, ..., Tn) -> i8 exit_id.
	Function *ir.Function

	Init, Exit, Exception *ir.BasicBlock

	Memory *memrewrite.Result

	// Cloned maps each original source block to its clone (or, for a
	// nested-kernel entrance, the synthesized dispatch stub standing in
	// for it) inside Function, the seam every later phase (memrewrite,
	// inline, finalize) operates through.
	Cloned map[*ir.BasicBlock]*ir.BasicBlock

	// VMap maps every value substituted while building Function back to
	// what replaced it: original block instructions to their clones,
	// and ExternalValues to their bound parameter. buildNestedCallStub
	// resolves a nested kernel's ExternalValues through this map when it
	// builds that kernel's call-site arguments.
	VMap map[ir.Value]ir.Value

	// ArgumentMap binds each of Function's synthesized arguments (after
	// arg_0, the entrance selector) back to the ExternalValues entry it
	// was bound to, so a parent kernel nesting a call to Function can
	// translate this kernel's own arguments into its own value space.
	ArgumentMap map[*ir.Argument]ir.Value

	Valid bool
}

// KernelExternalValues satisfies classify.ExternalValuer, letting a
// parent kernel's Value Classifier walk this kernel's own unresolved
// ExternalValues per spec §4.4's second bullet.
func (k *Kernel) KernelExternalValues() []ir.Value { return k.ExternalValues }

// Build runs every phase for one requested kernel (name -> block ids)
// against mod and idx, writing the synthesized function/globals into
// ctx.TikModule. On any phase failure it logs the wrapped error, runs
// Cleanup, and returns a Kernel with Valid == false alongside the error;
// the caller (cmd/tik) is expected to continue with the next kernel
// rather than abort the whole run.
func Build(ctx *buildctx.Context, idx *blockid.Index, name string, ids []blockid.ID) (*Kernel, error) {
	k := &Kernel{Name: name}

	blocks, missing := idx.Resolve(ids)
	if len(missing) > 0 {
		err := kernelerr.New(kernelerr.NoEntrance, "kernel %s: unresolved block ids %v", name, missing)
		tlog.Printw("error", "kernel build failed", "kernel", name, "err", err)
		k.Cleanup()
		return k, err
	}
	if len(blocks) == 0 {
		err := kernelerr.New(kernelerr.NoEntrance, "kernel %s: empty block set", name)
		tlog.Printw("error", "kernel build failed", "kernel", name, "err", err)
		k.Cleanup()
		return k, err
	}

	fn := blocks[0].Parent
	for _, b := range blocks {
		if b.Parent != fn {
			err := kernelerr.New(kernelerr.RecursionUnsupported, "kernel %s: block set spans more than one function", name)
			tlog.Printw("error", "kernel build failed", "kernel", name, "err", err)
			k.Cleanup()
			return k, err
		}
	}

	finalName, collided := ctx.Reserve(name)
	if collided {
		err := kernelerr.New(kernelerr.DuplicateName, "kernel name %q already used", finalName)
		tlog.Printw("error", "kernel build failed", "kernel", name, "err", err)
		k.Cleanup()
		return k, err
	}
	k.Name = finalName

	blocks = splitter.Split(fn, blocks)
	k.Blocks = blocks

	reg, err := region.Analyze(blocks)
	if err != nil {
		wrapped := errors.Wrap(err, "kernel "+finalName+": region analysis")
		tlog.Printw("error", "kernel build failed", "kernel", finalName, "err", wrapped)
		k.Cleanup()
		return k, wrapped
	}
	k.Region = reg

	k.ExternalValues = classify.ExternalValues(ctx, blocks)

	if err := k.buildSkeleton(ctx); err != nil {
		wrapped := errors.Wrap(err, "kernel "+finalName+": builder")
		tlog.Printw("error", "kernel build failed", "kernel", finalName, "err", wrapped)
		k.Cleanup()
		return k, wrapped
	}

	mem, err := memrewrite.Rewrite(ctx, finalName, k.Function.Blocks)
	if err != nil {
		wrapped := errors.Wrap(err, "kernel "+finalName+": memory rewrite")
		tlog.Printw("error", "kernel build failed", "kernel", finalName, "err", wrapped)
		k.Cleanup()
		return k, wrapped
	}
	k.Memory = mem

	isKernel := func(target *ir.Function) bool {
		_, ok := ctx.KfMap[target]
		return ok || target == k.Function
	}
	if err := inline.Inline(k.Function, isKernel); err != nil {
		wrapped := errors.Wrap(err, "kernel "+finalName+": inline")
		tlog.Printw("error", "kernel build failed", "kernel", finalName, "err", wrapped)
		k.Cleanup()
		return k, wrapped
	}

	for _, b := range blocks {
		ctx.KernelMap[b] = k
	}
	ctx.KfMap[k.Function] = k
	ctx.TikModule.AddFunc(k.Function)
	k.Valid = true
	tlog.Printw("info", "kernel built", "kernel", finalName, "blocks", len(blocks), "args", len(k.ExternalValues))
	return k, nil
}

// Cleanup marks k invalid and drops its references to the partially-built
// function, memory interface and value maps. The synthesized function is
// added to ctx.TikModule only once Build succeeds, so a failed build never
// leaves it there; the MemoryRead/MemoryWrite helpers and promoted globals
// that memrewrite already added to ctx.TikModule are not removed.
func (k *Kernel) Cleanup() {
	k.Valid = false
	k.Function = nil
	k.Memory = nil
	k.VMap = nil
	k.ArgumentMap = nil
}

// buildSkeleton clones the region's blocks into a fresh Function with
// the i8(i8, T1..Tn)->i8 signature, wires Init's entrance switch and
// Exit's phi, and retargets cross-region edges, directly generalizing
// flowgraph/optimize.go's copyBlocks two-pass clone-then-substitute.
func (k *Kernel) buildSkeleton(ctx *buildctx.Context) error {
	params := []*ir.Argument{ir.NewArgument("entrance_id", ir.I8)}
	for i, v := range k.ExternalValues {
		params = append(params, ir.NewArgument(fmt.Sprintf("arg%d", i), v.Type()))
	}
	fn := ir.NewFunction(k.Name, params, ir.I8, ctx.TikModule)
	k.Function = fn

	k.ArgumentMap = make(map[*ir.Argument]ir.Value, len(k.ExternalValues))
	for i, ev := range k.ExternalValues {
		k.ArgumentMap[params[i+1]] = ev
	}

	// Split the requested blocks per spec §4.5: a block claimed by a
	// previously-built kernel is either that kernel's entrance (built
	// specially below, as a dispatch stub) or one of its interior
	// blocks (dropped outright — it lives inside the child's own
	// function).
	var toClone []*ir.BasicBlock
	type nestedSite struct {
		block  *ir.BasicBlock
		kernel *Kernel
	}
	var sites []nestedSite
	for _, b := range k.Blocks {
		if nk, ok := nestedKernelOf(ctx, b); ok {
			if isEntranceOf(nk, b) {
				sites = append(sites, nestedSite{b, nk})
			}
			continue
		}
		toClone = append(toClone, b)
	}

	cloned, blockMap, valueMap := ir.CloneBlocks(toClone)
	for i, ev := range k.ExternalValues {
		valueMap[ev] = params[i+1]
	}
	// By this point CloneBlocks has already rewritten every operand
	// defined inside toClone to point at its clone; whatever still
	// points at an original value is, by construction, one of
	// k.ExternalValues, so a second blanket substitution pass over the
	// same valueMap (now extended with the ExternalValues -> parameter
	// entries above) picks up exactly those.
	for _, b := range cloned {
		for _, in := range b.Instrs {
			for _, op := range in.Operands() {
				if nv, ok := valueMap[op]; ok {
					in.ReplaceOperand(op, nv)
				}
			}
		}
	}
	for _, b := range cloned {
		fn.AddBlock(b)
	}

	init := ir.NewBlock("Init", fn)
	exit := ir.NewBlock("Exit", fn)
	exception := ir.NewBlock("Exception", fn)
	k.Init, k.Exit, k.Exception = init, exit, exception

	// Exception returns the sentinel -2 (i8): any entrance_id Init's
	// switch doesn't recognize lands here, per spec §4.8.
	exception.Append(ir.NewReturn(ir.NewConstInt(-2, ir.I8)))
	fn.AddBlock(exception)

	// Build one dispatch stub per nested-kernel entrance in S: a call
	// into the child's KernelFunction, tagged KernelCall, then a switch
	// on its returned exit-id back into this kernel's own blocks, per
	// spec §4.5.
	nextExitID := 0
	for _, e := range k.Region.Exits {
		if e.ID >= nextExitID {
			nextExitID = e.ID + 1
		}
	}
	var bridgeExits []region.Exit
	for _, site := range sites {
		stub, extra, err := k.buildNestedCallStub(fn, blockMap, site.block, site.kernel, valueMap, &nextExitID)
		if err != nil {
			return err
		}
		blockMap[site.block] = stub
		fn.AddBlock(stub)
		bridgeExits = append(bridgeExits, extra...)
	}

	// Any normally-cloned block whose terminator or phi still points at
	// an original nested-entrance block (CloneBlocks left it alone,
	// since that block wasn't part of toClone) now redirects to its
	// dispatch stub.
	for _, b := range cloned {
		if term := b.Terminator(); term != nil {
			for _, succ := range term.Successors() {
				if nb, ok := blockMap[succ]; ok && nb != succ {
					term.ReplaceSuccessor(succ, nb)
				}
			}
		}
		for _, p := range b.Phis() {
			for i, e := range p.Incoming {
				if nb, ok := blockMap[e.Pred]; ok && nb != e.Pred {
					p.Incoming[i].Pred = nb
				}
			}
		}
	}
	k.Cloned = blockMap
	k.VMap = valueMap

	// Init always dispatches via a switch on entrance_id, even for a
	// single entrance, with every out-of-range id routed to Exception
	// rather than falling through to a valid entrance by accident.
	sw := ir.NewSwitch(params[0], exception)
	for i, e := range k.Region.Entrances {
		sw.AddCase(int64(i), blockMap[e])
	}
	init.Append(sw)
	fn.AddBlock(init)

	// Exit collects the exit id of every retargeted exit edge through a
	// phi (this kernel's own, plus any bridge exits contributed by a
	// nested double-exit), then returns it.
	exitPhi := ir.NewPhi(ir.I8)
	exit.Append(exitPhi)
	exit.Append(ir.NewReturn(exitPhi))
	fn.AddBlock(exit)

	allExits := append(append([]region.Exit(nil), k.Region.Exits...), bridgeExits...)
	for _, e := range allExits {
		if _, nested := nestedKernelOf(ctx, e.From); nested {
			// e.From belongs to a nested kernel and was not cloned; the
			// bridge its call stub built carries this exit instead.
			continue
		}
		from := e.From
		if mapped, ok := blockMap[e.From]; ok {
			from = mapped
		}
		if term := from.Terminator(); term != nil {
			term.ReplaceSuccessor(e.Target, exit)
		}
		exitPhi.AddIncoming(from, ir.NewConstInt(int64(e.ID), ir.I8))
	}

	// Rewire any cloned phi whose predecessor lies outside the region to
	// Init, per spec §4.5. clonedSet marks which clones correspond to a
	// requested source block; any cloned phi predecessor NOT in
	// clonedSet is either Init itself or a block CloneBlocks left
	// pointing at an original (outside-the-region) block, both of which
	// belong to Init's side of the boundary.
	clonedSet := make(map[*ir.BasicBlock]bool, len(blockMap))
	for _, cl := range blockMap {
		clonedSet[cl] = true
	}
	for _, b := range cloned {
		for _, p := range b.Phis() {
			for i, e := range p.Incoming {
				if !clonedSet[e.Pred] {
					p.Incoming[i].Pred = init
				}
			}
		}
	}

	return nil
}

// nestedKernelOf reports the previously-built kernel that claimed b as
// part of its own source region, if any.
func nestedKernelOf(ctx *buildctx.Context, b *ir.BasicBlock) (*Kernel, bool) {
	v, ok := ctx.KernelMap[b]
	if !ok {
		return nil, false
	}
	nk, ok := v.(*Kernel)
	return nk, ok
}

// isEntranceOf reports whether b is one of nk's own Entrances.
func isEntranceOf(nk *Kernel, b *ir.BasicBlock) bool {
	_, ok := nk.Region.EntranceID[b]
	return ok
}

// buildNestedCallStub builds the intermediate block spec §4.5 requires
// for a block b this kernel's set reaches that is itself an entrance of
// a previously-built kernel nk: a KernelCall-tagged call into
// nk.Function at b's entrance id, then a switch on the returned exit-id
// back to the corresponding block of this kernel. An exit target of nk
// that also lies outside this kernel's own set becomes a one-block
// bridge to this kernel's own Exit, contributed back as an extra Exit
// entry so the caller can fold it into the shared exit phi.
func (k *Kernel) buildNestedCallStub(fn *ir.Function, blockMap map[*ir.BasicBlock]*ir.BasicBlock, b *ir.BasicBlock, nk *Kernel, valueMap map[ir.Value]ir.Value, nextExitID *int) (*ir.BasicBlock, []region.Exit, error) {
	entranceID, ok := nk.Region.EntranceID[b]
	if !ok {
		return nil, nil, kernelerr.New(kernelerr.NoEntrance, "kernel %s: block %s claimed by kernel %s is not one of its entrances", k.Name, b.Name, nk.Name)
	}

	// Remap each argument the child kernel's own ExternalValues named
	// into this kernel's value space, per spec §4.8's nested-arg-remap
	// bullet, applied here at construction time rather than as a
	// separate finalize pass: valueMap already carries every clone and
	// every ExternalValues -> parameter binding this kernel has by this
	// point in buildSkeleton, so there is nothing left to defer.
	args := make([]ir.Value, 0, len(nk.ExternalValues)+1)
	args = append(args, ir.NewConstInt(int64(entranceID), ir.I8))
	for _, ev := range nk.ExternalValues {
		mapped, ok := valueMap[ev]
		if !ok {
			return nil, nil, kernelerr.New(kernelerr.DanglingNestedArg, "kernel %s: nested kernel %s external value has no matching binding in this kernel", k.Name, nk.Name)
		}
		args = append(args, mapped)
	}

	stub := ir.NewBlock(b.Name+".nested", fn)
	call := ir.NewCall(nk.Function.Ref(), args, ir.I8)
	call.Target = nk.Function
	call.SetMeta(ir.MetaKernelCall, true)
	stub.Append(call)

	if len(nk.Region.Exits) == 0 {
		return nil, nil, kernelerr.New(kernelerr.NoExit, "kernel %s: nested kernel %s has no recorded exits", k.Name, nk.Name)
	}

	var extra []region.Exit
	dest := func(e region.Exit) *ir.BasicBlock {
		if d, ok := blockMap[e.Target]; ok {
			return d
		}
		// e.Target lies outside this kernel's own set too: both
		// kernels exit at once, so bridge straight to this kernel's
		// Exit and hand the caller a fresh, non-colliding exit id for
		// it (spec's own literal id is nk-scoped and would otherwise
		// collide with this kernel's unrelated exit numbering).
		bridge := ir.NewBlock(b.Name+".bridge", fn)
		bridge.Append(ir.NewBranch(k.Exit))
		fn.AddBlock(bridge)
		extra = append(extra, region.Exit{ID: *nextExitID, From: bridge, Target: e.Target})
		*nextExitID++
		return bridge
	}

	first := nk.Region.Exits[0]
	sw := ir.NewSwitch(call, dest(first))
	sw.AddCase(int64(first.ID), sw.Default)
	for _, e := range nk.Region.Exits[1:] {
		sw.AddCase(int64(e.ID), dest(e))
	}
	stub.Append(sw)
	return stub, extra, nil
}
