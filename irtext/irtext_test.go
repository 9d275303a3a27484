package irtext

import (
	"bytes"
	"testing"

	"github.com/tikforge/tik/blockid"
	"github.com/tikforge/tik/ir"
)

func TestWriteThenShell_RoundTripsSignaturesAndBlockIDs(t *testing.T) {
	mod := ir.NewModule("m")
	mod.AddGlobal(ir.NewGlobal("g", ir.I64))

	arg := ir.NewArgument("n", ir.I64)
	fn := ir.NewFunction("f", []*ir.Argument{arg}, ir.I64, mod)
	b := ir.NewBlock("entry", fn)
	fn.AddBlock(b)
	b.Append(ir.NewReturn(arg))
	blockid.Set(b, 42)
	mod.AddFunc(fn)

	var buf bytes.Buffer
	if err := Write(&buf, mod); err != nil {
		t.Fatalf("Write: %v", err)
	}

	shell, err := Shell(&buf)
	if err != nil {
		t.Fatalf("Shell: %v", err)
	}
	if shell.Name != "m" {
		t.Fatalf("shell.Name = %q, want m", shell.Name)
	}
	if shell.FindGlobal("g") == nil {
		t.Fatal("shell is missing global g")
	}
	gotFn := shell.FindFunc("f")
	if gotFn == nil {
		t.Fatal("shell is missing function f")
	}
	if len(gotFn.Params) != 1 || gotFn.Params[0].Type() != ir.I64 {
		t.Fatalf("shell function f params = %v, want one i64", gotFn.Params)
	}
	if gotFn.RetType != ir.I64 {
		t.Fatalf("shell function f ret = %v, want i64", gotFn.RetType)
	}
	if len(gotFn.Blocks) != 1 {
		t.Fatalf("shell function f has %d blocks, want 1", len(gotFn.Blocks))
	}
	id, ok := blockid.Of(gotFn.Blocks[0])
	if !ok || id != 42 {
		t.Fatalf("shell block id = %v, %v, want 42, true", id, ok)
	}
}
