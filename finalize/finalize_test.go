package finalize

import (
	"testing"

	"github.com/tikforge/tik/blockid"
	"github.com/tikforge/tik/buildctx"
	"github.com/tikforge/tik/ir"
	"github.com/tikforge/tik/kernel"
)

func buildBasicKernel(t *testing.T) (*buildctx.Context, *kernel.Kernel) {
	t.Helper()
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
	k, err := kernel.Build(ctx, idx, "adder", []blockid.ID{1})
	if err != nil {
		t.Fatalf("kernel.Build: %v", err)
	}
	return ctx, k
}

func TestFinalize_TagsSyntheticBlocksAndKernelName(t *testing.T) {
	ctx, k := buildBasicKernel(t)
	if err := Finalize(ctx, k); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if name, ok := k.Function.Meta(ir.MetaKernelName); !ok || name != k.Name {
		t.Fatalf("Function KernelName meta = %v, %v, want %q, true", name, ok, k.Name)
	}

	synthetic, ok := k.Init.Meta(ir.MetaTikSynthetic)
	if !ok || synthetic != true {
		t.Fatal("Init block not tagged TikSynthetic")
	}
	if _, ok := k.Function.Blocks[0].Meta(ir.MetaBlockID); ok {
		// The first cloned block (the one carrying the original BlockID)
		// must NOT be tagged synthetic.
		if syn, has := k.Function.Blocks[0].Meta(ir.MetaTikSynthetic); has && syn == true {
			t.Fatal("BlockID-carrying block incorrectly tagged TikSynthetic")
		}
	}
}

func TestFinalize_ExportsExternalDecl(t *testing.T) {
	mod := ir.NewModule("m")
	// helper is a true external declaration (no body): the Inliner and
	// Block Splitter both leave calls to it alone, so it is still present
	// in the kernel when Finalize runs and needs a forward declaration.
	helper := ir.NewFunction("helper", nil, ir.I64, mod)
	mod.AddFunc(helper)

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
	call := ir.NewCall(helper.Ref(), nil, ir.I64)
	call.Target = helper
	body.Append(call)
	body.Append(ir.NewBranch(after))
	after.Append(ir.NewReturn(nil))

	blockid.Set(body, 1)
	idx := blockid.Build(mod)

	out := ir.NewModule("out")
	ctx := buildctx.New(out)
	k, err := kernel.Build(ctx, idx, "caller", []blockid.ID{1})
	if err != nil {
		t.Fatalf("kernel.Build: %v", err)
	}

	if err := Finalize(ctx, k); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if out.FindFunc("helper") == nil {
		t.Fatal("Finalize did not export a declaration for the still-called external function")
	}
}
