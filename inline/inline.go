// Package inline implements the Inliner (spec §4.6): every call inside a
// kernel function to a non-kernel callee is inlined into the kernel
// body. All inlined call sites share one entranceBlock (a branch-phi
// plus one phi per callee parameter) and one returnBlock (a return-phi
// plus a switch-based return dispatch when more than one site inlines
// the same callee), directly generalizing flowgraph/optimize.go's
// inlineCalls from "the one self-tail-call being optimized" to "every
// remaining call in the kernel."
package inline

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/tikforge/tik/ir"
	"github.com/tikforge/tik/kernelerr"
)

// site is one call instruction slated for inlining.
type site struct {
	block *ir.BasicBlock
	call  *ir.Call
}

// IsKernelCall reports whether target is itself a synthesized kernel
// function, the predicate the Kernel Builder uses to stop the Inliner
// from flattening nested kernels into their parent.
type IsKernelCall func(target *ir.Function) bool

// Inline repeatedly inlines every call in fn's blocks whose target is
// defined, non-external, and not itself a kernel (per isKernel), until
// no more inlinable calls remain. Returns kernelerr.UnsupportedCall if a
// call has no statically-resolved Target (an indirect call tik cannot
// inline), and kernelerr.InvokeUnsupported if an Invoke is found.
func Inline(fn *ir.Function, isKernel IsKernelCall) error {
	for {
		sites, err := findSites(fn, isKernel)
		if err != nil {
			return err
		}
		if len(sites) == 0 {
			return nil
		}
		// Group by callee so multiple call sites to the same function
		// share one returnBlock, per spec §4.6.
		byCallee := map[*ir.Function][]site{}
		for _, s := range sites {
			byCallee[s.call.Target] = append(byCallee[s.call.Target], s)
		}
		for callee, group := range byCallee {
			if err := inlineCallee(fn, callee, group); err != nil {
				return errors.Wrap(err, "inline: "+callee.Name)
			}
		}
	}
}

func findSites(fn *ir.Function, isKernel IsKernelCall) ([]site, error) {
	var sites []site
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			switch v := in.(type) {
			case *ir.Invoke:
				return nil, kernelerr.New(kernelerr.InvokeUnsupported, "invoke found in block %s", b.Name)
			case *ir.Call:
				if v.Target == nil {
					return nil, kernelerr.New(kernelerr.UnsupportedCall, "call with no statically resolved target in block %s", b.Name)
				}
				if v.Target.External() || isKernel(v.Target) {
					continue
				}
				sites = append(sites, site{block: b, call: v})
			}
		}
	}
	return sites, nil
}

// inlineCallee inlines callee at every site in group, sharing one
// entranceBlock and one returnBlock across all of them.
func inlineCallee(fn *ir.Function, callee *ir.Function, group []site) error {
	if len(callee.Blocks) == 0 {
		return kernelerr.New(kernelerr.MissingReturnInTree, "callee %s has no body", callee.Name)
	}

	entrance := ir.NewBlock(fmt.Sprintf("%s.entrance.%d", callee.Name, len(fn.Blocks)), fn)
	fn.AddBlock(entrance)

	// siteIDPhi records which call site reached the entrance, so the
	// shared returnBlock knows which site's continuation to resume when
	// more than one site inlines the same callee (spec §4.6's
	// switch-based return dispatch for multi-site inlining).
	var siteIDPhi *ir.Phi
	if len(group) > 1 {
		siteIDPhi = ir.NewPhi(ir.I64)
		entrance.Append(siteIDPhi)
	}

	parmPhis := make([]*ir.Phi, len(callee.Params))
	for i, p := range callee.Params {
		ph := ir.NewPhi(p.Type())
		entrance.Append(ph)
		parmPhis[i] = ph
	}

	returnBlock := ir.NewBlock(fmt.Sprintf("%s.return.%d", callee.Name, len(fn.Blocks)), fn)
	var returnPhi *ir.Phi
	_, voidReturn := callee.RetType.(ir.VoidType)
	if !voidReturn {
		returnPhi = ir.NewPhi(callee.RetType)
		returnBlock.Append(returnPhi)
	}
	var siteIDAtReturn *ir.Phi
	if len(group) > 1 {
		siteIDAtReturn = ir.NewPhi(ir.I64)
		returnBlock.Append(siteIDAtReturn)
	}

	cloned, blockMap, valueMap := ir.CloneBlocks(callee.Blocks)
	for _, b := range cloned {
		fn.AddBlock(b)
	}
	for i, p := range callee.Params {
		valueMap[p] = parmPhis[i]
	}
	// Rewrite clones' operands a second time for the parameter
	// substitution, since CloneBlocks only knew about instruction-to-
	// instruction remaps when it ran; Arguments are not Instructions so
	// they were left pointing at the originals.
	for _, b := range cloned {
		for _, in := range b.Instrs {
			for _, op := range in.Operands() {
				if nv, ok := valueMap[op]; ok && isArgument(op) {
					in.ReplaceOperand(op, nv)
				}
			}
		}
	}

	// Redirect every cloned Return into returnBlock.
	var retSites int
	for _, b := range cloned {
		ret, ok := b.Terminator().(*ir.Return)
		if !ok {
			continue
		}
		retSites++
		if returnPhi != nil {
			returnPhi.AddIncoming(b, ret.Val)
		}
		b.RemoveInstr(ret)
		b.SetTerminator(ir.NewBranch(returnBlock))
	}
	if retSites == 0 {
		return kernelerr.New(kernelerr.MissingReturnInTree, "callee %s has no reachable return", callee.Name)
	}

	clonedEntry := blockMap[callee.Entry()]
	entrance.Append(ir.NewBranch(clonedEntry))
	fn.AddBlock(returnBlock)

	var carried map[*ir.BasicBlock]*ir.Phi
	if siteIDPhi != nil {
		carried = threadSiteID(cloned, entrance, clonedEntry, siteIDPhi)
		for _, b := range cloned {
			if ret, ok := b.Terminator().(*ir.Branch); ok && ret.Dst == returnBlock {
				siteIDAtReturn.AddIncoming(b, carried[b])
			}
		}
	}

	conts := make([]*ir.BasicBlock, len(group))
	for gi, s := range group {
		for i, a := range s.call.Args {
			parmPhis[i].AddIncoming(s.block, a)
		}
		if siteIDPhi != nil {
			siteIDPhi.AddIncoming(s.block, ir.NewConstInt(int64(gi), ir.I64))
		}
		rest := s.block.DetachFrom(indexOfInstr(s.block, s.call))
		s.block.Append(ir.NewBranch(entrance))
		cont := ir.NewBlock(fmt.Sprintf("%s.cont.%d", callee.Name, len(fn.Blocks)), s.block.Parent)
		fn.AddBlock(cont)
		if !voidReturn {
			replaceUses(s.call, returnPhi)
		}
		for _, in := range rest[1:] { // rest[0] is the call itself, dropped
			cont.Append(in)
		}
		conts[gi] = cont
	}

	if len(group) == 1 {
		returnBlock.Append(ir.NewBranch(conts[0]))
	} else {
		sw := ir.NewSwitch(siteIDAtReturn, conts[0])
		for gi := 1; gi < len(conts); gi++ {
			sw.AddCase(int64(gi), conts[gi])
		}
		returnBlock.Append(sw)
	}

	return nil
}

// threadSiteID propagates the id recorded by siteIDPhi at entrance
// through every cloned block up to (and including) whichever block ends
// up branching to returnBlock, so the shared returnBlock can recover
// which call site is completing. Every cloned block gets its own phi
// fed from its predecessors' carried values (entrance's siteIDPhi for
// the entry block, another cloned block's carried phi otherwise); this
// mirrors ordinary SSA phi placement and handles loops correctly since
// every phi is created before any AddIncoming call is made.
func threadSiteID(cloned []*ir.BasicBlock, entrance, entry *ir.BasicBlock, seed *ir.Phi) map[*ir.BasicBlock]*ir.Phi {
	carried := make(map[*ir.BasicBlock]*ir.Phi, len(cloned))
	for _, b := range cloned {
		p := ir.NewPhi(ir.I64)
		p.SetComment("threaded call-site id")
		b.PrependPhi(p)
		carried[b] = p
	}
	for _, b := range cloned {
		for _, pred := range b.In() {
			if pred == entrance {
				carried[b].AddIncoming(pred, seed)
				continue
			}
			if predPhi, ok := carried[pred]; ok {
				carried[b].AddIncoming(pred, predPhi)
			}
		}
	}
	return carried
}

func indexOfInstr(b *ir.BasicBlock, in ir.Instruction) int {
	for i, x := range b.Instrs {
		if x == in {
			return i
		}
	}
	return -1
}

func isArgument(v ir.Value) bool {
	_, ok := v.(*ir.Argument)
	return ok
}

func replaceUses(old, new ir.Value) {
	for _, u := range old.Users() {
		u.ReplaceOperand(old, new)
	}
}
