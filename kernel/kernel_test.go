package kernel

import (
	"testing"

	"github.com/tikforge/tik/blockid"
	"github.com/tikforge/tik/buildctx"
	"github.com/tikforge/tik/ir"
)

// S1/S2: a straightforward single-entrance, single-exit block set with
// one external argument builds into a kernel whose signature matches
// spec §3's i8(i8, T1..Tn)->i8 shape.
func TestBuild_BasicKernel(t *testing.T) {
	mod := ir.NewModule("m")
	arg := ir.NewArgument("n", ir.I64)
	fn := ir.NewFunction("f", []*ir.Argument{arg}, ir.Void, mod)
	mod.AddFunc(fn)

	entry := ir.NewBlock("entry", fn)
	body := ir.NewBlock("body", fn)
	after := ir.NewBlock("after", fn)
	fn.AddBlock(entry)
	fn.AddBlock(body)
	fn.AddBlock(after)

	entry.Append(ir.NewBranch(body))
	sum := ir.NewBinOp(ir.Add, arg, ir.NewConstInt(1, ir.I64), ir.I64)
	body.Append(sum)
	body.Append(ir.NewBranch(after))
	after.Append(ir.NewReturn(nil))

	blockid.Set(body, 1)
	idx := blockid.Build(mod)

	ctx := buildctx.New(ir.NewModule("out"))
	k, err := Build(ctx, idx, "adder", []blockid.ID{1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !k.Valid {
		t.Fatal("kernel not marked valid")
	}

	ft, ok := k.Function.Type().(ir.FuncType)
	if !ok {
		t.Fatalf("Function.Type() = %T, want ir.FuncType", k.Function.Type())
	}
	if len(ft.Params) == 0 || ft.Params[0] != ir.I8 {
		t.Fatalf("Params[0] = %v, want i8 entrance id", ft.Params)
	}
	if ft.Ret != ir.I8 {
		t.Fatalf("Ret = %v, want i8", ft.Ret)
	}
	if k.Init == nil || k.Exit == nil {
		t.Fatal("Init/Exit blocks not built")
	}
}

// S4: a kernel whose requested block set includes the entrance of a
// previously-built kernel gets a dispatch stub in place of that block —
// a KernelCall-tagged call into the nested kernel's function, followed
// by a switch on its returned exit id — instead of a clone.
func TestBuild_NestedKernelCallStub(t *testing.T) {
	mod := ir.NewModule("m")
	n := ir.NewArgument("n", ir.I64)
	fn := ir.NewFunction("f", []*ir.Argument{n}, ir.Void, mod)
	mod.AddFunc(fn)

	outerEntry := ir.NewBlock("outerEntry", fn)
	innerEntry := ir.NewBlock("innerEntry", fn)
	innerBody := ir.NewBlock("innerBody", fn)
	after := ir.NewBlock("after", fn)
	fn.AddBlock(outerEntry)
	fn.AddBlock(innerEntry)
	fn.AddBlock(innerBody)
	fn.AddBlock(after)

	outerEntry.Append(ir.NewBranch(innerEntry))
	innerEntry.Append(ir.NewBranch(innerBody))
	sum := ir.NewBinOp(ir.Add, n, ir.NewConstInt(1, ir.I64), ir.I64)
	innerBody.Append(sum)
	innerBody.Append(ir.NewBranch(after))
	after.Append(ir.NewReturn(nil))

	blockid.Set(outerEntry, 20)
	blockid.Set(innerEntry, 10)
	blockid.Set(innerBody, 11)
	idx := blockid.Build(mod)

	ctx := buildctx.New(ir.NewModule("out"))

	inner, err := Build(ctx, idx, "inner", []blockid.ID{10, 11})
	if err != nil {
		t.Fatalf("Build(inner): %v", err)
	}
	if !inner.Valid {
		t.Fatal("inner kernel not marked valid")
	}

	outer, err := Build(ctx, idx, "outer", []blockid.ID{20, 10})
	if err != nil {
		t.Fatalf("Build(outer): %v", err)
	}
	if !outer.Valid {
		t.Fatal("outer kernel not marked valid")
	}

	stub, ok := outer.Cloned[innerEntry]
	if !ok {
		t.Fatal("outer.Cloned has no entry for the nested entrance block")
	}
	if len(stub.Instrs) == 0 {
		t.Fatal("dispatch stub has no instructions")
	}
	call, ok := stub.Instrs[0].(*ir.Call)
	if !ok {
		t.Fatalf("stub's first instruction = %T, want *ir.Call", stub.Instrs[0])
	}
	if call.Target != inner.Function {
		t.Fatalf("stub call target = %v, want inner.Function", call.Target)
	}
	if _, ok := call.Meta(ir.MetaKernelCall); !ok {
		t.Fatal("stub call missing MetaKernelCall")
	}
	if _, ok := stub.Terminator().(*ir.Switch); !ok {
		t.Fatalf("stub terminator = %T, want *ir.Switch dispatching on the call's returned exit id", stub.Terminator())
	}
}

// S6: a block set containing an Invoke is rejected outright.
func TestBuild_RejectsInvoke(t *testing.T) {
	mod := ir.NewModule("m")
	fn := ir.NewFunction("f", nil, ir.Void, mod)
	mod.AddFunc(fn)
	callee := ir.NewFunction("callee", nil, ir.I64, mod)
	calleeEntry := ir.NewBlock("entry", callee)
	callee.AddBlock(calleeEntry)
	calleeEntry.Append(ir.NewReturn(ir.NewConstInt(0, ir.I64)))
	mod.AddFunc(callee)

	normal := ir.NewBlock("normal", fn)
	unwind := ir.NewBlock("unwind", fn)
	body := ir.NewBlock("body", fn)
	fn.AddBlock(body)
	fn.AddBlock(normal)
	fn.AddBlock(unwind)

	body.Append(ir.NewInvoke(callee.Ref(), nil, normal, unwind, ir.I64))
	normal.Append(ir.NewReturn(nil))
	unwind.Append(ir.NewReturn(nil))

	blockid.Set(body, 1)
	blockid.Set(normal, 2)
	idx := blockid.Build(mod)

	ctx := buildctx.New(ir.NewModule("out"))
	k, err := Build(ctx, idx, "bad", []blockid.ID{1, 2})
	if err == nil {
		t.Fatal("Build with Invoke: want error, got nil")
	}
	if k.Valid {
		t.Fatal("kernel marked valid despite Invoke rejection")
	}
}
