package classify

import (
	"testing"

	"github.com/tikforge/tik/ir"
)

func TestExternalValues_OrderPreservingDeduplicated(t *testing.T) {
	mod := ir.NewModule("m")
	arg := ir.NewArgument("n", ir.I64)
	fn := ir.NewFunction("f", []*ir.Argument{arg}, ir.Void, mod)

	outside := ir.NewBlock("outside", fn)
	inside := ir.NewBlock("inside", fn)
	fn.AddBlock(outside)
	fn.AddBlock(inside)

	outsideVal := ir.NewBinOp(ir.Add, arg, ir.NewConstInt(1, ir.I64), ir.I64)
	outside.Append(outsideVal)
	outside.Append(ir.NewBranch(inside))

	// arg and outsideVal are each used twice inside the block set; both
	// must appear exactly once in the result, in first-use order.
	use1 := ir.NewBinOp(ir.Add, outsideVal, arg, ir.I64)
	use2 := ir.NewBinOp(ir.Add, use1, outsideVal, ir.I64)
	inside.Append(use1)
	inside.Append(use2)
	inside.Append(ir.NewReturn(nil))

	got := ExternalValues(nil, []*ir.BasicBlock{inside})
	if len(got) != 2 {
		t.Fatalf("ExternalValues = %v, want 2 entries", got)
	}
	if got[0] != ir.Value(outsideVal) || got[1] != ir.Value(arg) {
		t.Fatalf("ExternalValues order = %v, want [outsideVal, arg]", got)
	}
}

func TestExternalValues_ConstantsNeverExternal(t *testing.T) {
	mod := ir.NewModule("m")
	fn := ir.NewFunction("f", nil, ir.Void, mod)
	b := ir.NewBlock("b", fn)
	fn.AddBlock(b)
	b.Append(ir.NewBinOp(ir.Add, ir.NewConstInt(1, ir.I64), ir.NewConstInt(2, ir.I64), ir.I64))
	b.Append(ir.NewReturn(nil))

	got := ExternalValues(nil, []*ir.BasicBlock{b})
	if len(got) != 0 {
		t.Fatalf("ExternalValues = %v, want none (constants aren't external)", got)
	}
}
