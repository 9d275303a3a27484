package splitter

import (
	"testing"

	"github.com/tikforge/tik/ir"
)

func TestSplit_SplitsAfterCallToDefinedFunction(t *testing.T) {
	mod := ir.NewModule("m")
	callee := ir.NewFunction("callee", nil, ir.I64, mod)
	calleeEntry := ir.NewBlock("entry", callee)
	callee.AddBlock(calleeEntry)
	calleeEntry.Append(ir.NewReturn(ir.NewConstInt(0, ir.I64)))
	mod.AddFunc(callee)

	fn := ir.NewFunction("f", nil, ir.Void, mod)
	b := ir.NewBlock("b", fn)
	fn.AddBlock(b)

	call := ir.NewCall(callee.Ref(), nil, ir.I64)
	call.Target = callee
	b.Append(call)
	b.Append(ir.NewReturn(nil))

	out := Split(fn, []*ir.BasicBlock{b})
	if len(out) != 2 {
		t.Fatalf("Split produced %d blocks, want 2 (original + tail)", len(out))
	}
	if out[0] != b {
		t.Fatalf("Split's first piece should be the original block")
	}
	if _, ok := b.Terminator().(*ir.Branch); !ok {
		t.Fatalf("original block's terminator = %T, want *ir.Branch to the split tail", b.Terminator())
	}
	tail := out[1]
	if len(tail.Instrs) != 1 {
		t.Fatalf("tail block has %d instructions, want 1 (the trailing return)", len(tail.Instrs))
	}
	if _, ok := tail.Terminator().(*ir.Return); !ok {
		t.Fatalf("tail block's terminator = %T, want *ir.Return", tail.Terminator())
	}
}

func TestSplit_NoEligibleCallLeavesBlockUnchanged(t *testing.T) {
	mod := ir.NewModule("m")
	fn := ir.NewFunction("f", nil, ir.Void, mod)
	b := ir.NewBlock("b", fn)
	fn.AddBlock(b)
	b.Append(ir.NewBinOp(ir.Add, ir.NewConstInt(1, ir.I64), ir.NewConstInt(2, ir.I64), ir.I64))
	b.Append(ir.NewReturn(nil))

	out := Split(fn, []*ir.BasicBlock{b})
	if len(out) != 1 || out[0] != b {
		t.Fatalf("Split = %v, want unchanged [b]", out)
	}
}

func TestSplit_TailCallNeedsNoSplit(t *testing.T) {
	mod := ir.NewModule("m")
	callee := ir.NewFunction("callee", nil, ir.Void, mod)
	calleeEntry := ir.NewBlock("entry", callee)
	callee.AddBlock(calleeEntry)
	calleeEntry.Append(ir.NewReturn(nil))
	mod.AddFunc(callee)

	fn := ir.NewFunction("f", nil, ir.Void, mod)
	b := ir.NewBlock("b", fn)
	fn.AddBlock(b)
	call := ir.NewCall(callee.Ref(), nil, ir.Void)
	call.Target = callee
	b.Append(call)

	out := Split(fn, []*ir.BasicBlock{b})
	if len(out) != 1 || out[0] != b {
		t.Fatalf("Split of a tail call = %v, want unchanged [b]", out)
	}
}
