package inline

import (
	"testing"

	"github.com/tikforge/tik/ir"
)

func noKernels(*ir.Function) bool { return false }

// Single call site: the callee's body is spliced in and the call's
// result is replaced by the return phi.
func TestInline_SingleSite(t *testing.T) {
	mod := ir.NewModule("m")

	callee := ir.NewFunction("addOne", []*ir.Argument{ir.NewArgument("x", ir.I64)}, ir.I64, mod)
	calleeEntry := ir.NewBlock("entry", callee)
	callee.AddBlock(calleeEntry)
	sum := ir.NewBinOp(ir.Add, callee.Params[0], ir.NewConstInt(1, ir.I64), ir.I64)
	calleeEntry.Append(sum)
	calleeEntry.Append(ir.NewReturn(sum))
	mod.AddFunc(callee)

	fn := ir.NewFunction("f", nil, ir.I64, mod)
	b := ir.NewBlock("b", fn)
	fn.AddBlock(b)
	call := ir.NewCall(callee.Ref(), []ir.Value{ir.NewConstInt(41, ir.I64)}, ir.I64)
	call.Target = callee
	b.Append(call)
	b.Append(ir.NewReturn(call))
	mod.AddFunc(fn)

	if err := Inline(fn, noKernels); err != nil {
		t.Fatalf("Inline: %v", err)
	}

	for _, blk := range fn.Blocks {
		for _, in := range blk.Instrs {
			if c, ok := in.(*ir.Call); ok && c.Target == callee {
				t.Fatalf("call to %s still present after inlining", callee.Name)
			}
		}
	}
}

// S5: two call sites sharing the same callee both route through one
// shared returnBlock, dispatched via the call-site-id switch.
func TestInline_MultiSiteSharesReturnBlockWithSwitchDispatch(t *testing.T) {
	mod := ir.NewModule("m")

	callee := ir.NewFunction("double", []*ir.Argument{ir.NewArgument("x", ir.I64)}, ir.I64, mod)
	calleeEntry := ir.NewBlock("entry", callee)
	callee.AddBlock(calleeEntry)
	dbl := ir.NewBinOp(ir.Add, callee.Params[0], callee.Params[0], ir.I64)
	calleeEntry.Append(dbl)
	calleeEntry.Append(ir.NewReturn(dbl))
	mod.AddFunc(callee)

	fn := ir.NewFunction("f", nil, ir.I64, mod)
	first := ir.NewBlock("first", fn)
	second := ir.NewBlock("second", fn)
	after := ir.NewBlock("after", fn)
	fn.AddBlock(first)
	fn.AddBlock(second)
	fn.AddBlock(after)

	call1 := ir.NewCall(callee.Ref(), []ir.Value{ir.NewConstInt(1, ir.I64)}, ir.I64)
	call1.Target = callee
	first.Append(call1)
	first.Append(ir.NewBranch(second))

	call2 := ir.NewCall(callee.Ref(), []ir.Value{ir.NewConstInt(2, ir.I64)}, ir.I64)
	call2.Target = callee
	second.Append(call2)
	second.Append(ir.NewBranch(after))

	after.Append(ir.NewReturn(nil))
	mod.AddFunc(fn)

	if err := Inline(fn, noKernels); err != nil {
		t.Fatalf("Inline: %v", err)
	}

	var foundSwitch bool
	for _, blk := range fn.Blocks {
		if sw, ok := blk.Terminator().(*ir.Switch); ok {
			if len(sw.Cases) >= 1 {
				foundSwitch = true
			}
		}
		for _, in := range blk.Instrs {
			if c, ok := in.(*ir.Call); ok && c.Target == callee {
				t.Fatalf("call to %s still present after inlining", callee.Name)
			}
		}
	}
	if !foundSwitch {
		t.Fatal("expected a switch-based return dispatch for the shared callee's two call sites")
	}
}

func TestInline_IndirectCallIsUnsupported(t *testing.T) {
	mod := ir.NewModule("m")
	fn := ir.NewFunction("f", []*ir.Argument{ir.NewArgument("fp", ir.PointerType{Elem: ir.Void})}, ir.Void, mod)
	b := ir.NewBlock("b", fn)
	fn.AddBlock(b)
	call := ir.NewCall(fn.Params[0], nil, ir.Void)
	b.Append(call)
	b.Append(ir.NewReturn(nil))

	if err := Inline(fn, noKernels); err == nil {
		t.Fatal("Inline of an indirect call: want error, got nil")
	}
}
