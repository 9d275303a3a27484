package ir

import "testing"

// checkFuncInvariants walks every instruction of fn checking that
// predecessor/successor edges agree in both directions and that every
// operand's use-list actually lists the instruction using it, the same
// shape flowgraph/flowgraph_test.go's checkFuncInvariants checks.
func checkFuncInvariants(t *testing.T, fn *Function) {
	t.Helper()
	for _, b := range fn.Blocks {
		for _, succ := range b.Out() {
			found := false
			for _, p := range succ.In() {
				if p == b {
					found = true
				}
			}
			if !found {
				t.Errorf("block %s lists %s as successor but %s doesn't list %s as predecessor", b.Name, succ.Name, succ.Name, b.Name)
			}
		}
		for _, in := range b.Instrs {
			for _, op := range in.Operands() {
				if op == nil {
					continue
				}
				found := false
				for _, u := range op.Users() {
					if u == in {
						found = true
					}
				}
				if !found {
					// Constants and FunctionRefs don't track users;
					// only value-producing instructions and Arguments
					// must appear in their operands' use-lists.
					switch op.(type) {
					case Constant, *FunctionRef:
						continue
					}
					t.Errorf("instruction %s uses %s but is missing from its use-list", in, op.Ident())
				}
			}
		}
	}
}

func TestBlock_AppendWiresPredecessors(t *testing.T) {
	mod := NewModule("m")
	fn := NewFunction("f", nil, Void, mod)
	a := NewBlock("a", fn)
	b := NewBlock("b", fn)
	fn.AddBlock(a)
	fn.AddBlock(b)
	a.Append(NewBranch(b))
	b.Append(NewReturn(nil))

	checkFuncInvariants(t, fn)

	if len(b.In()) != 1 || b.In()[0] != a {
		t.Fatalf("b.In() = %v, want [a]", b.In())
	}
}

func TestBinOp_UseListTracksOperands(t *testing.T) {
	mod := NewModule("m")
	fn := NewFunction("f", nil, Void, mod)
	b := NewBlock("b", fn)
	fn.AddBlock(b)

	x := NewConstInt(1, I64)
	y := NewArgument("y", I64)
	sum := NewBinOp(Add, x, y, I64)
	b.Append(sum)
	b.Append(NewReturn(nil))

	found := false
	for _, u := range y.Users() {
		if u == sum {
			found = true
		}
	}
	if !found {
		t.Fatal("y.Users() does not include sum")
	}
}

func TestBasicBlock_RemoveInstrUnlinksOperands(t *testing.T) {
	mod := NewModule("m")
	fn := NewFunction("f", nil, Void, mod)
	b := NewBlock("b", fn)
	fn.AddBlock(b)

	arg := NewArgument("a", I64)
	ld := NewLoad(arg, I64)
	b.Append(ld)
	b.Append(NewReturn(nil))

	b.RemoveInstr(ld)
	if len(arg.Users()) != 0 {
		t.Fatalf("arg.Users() = %v after RemoveInstr, want empty", arg.Users())
	}
}

func TestCloneBlocks_RewiresInternalReferences(t *testing.T) {
	mod := NewModule("m")
	fn := NewFunction("f", nil, I64, mod)
	entry := NewBlock("entry", fn)
	other := NewBlock("other", fn)
	fn.AddBlock(entry)
	fn.AddBlock(other)

	v := NewBinOp(Add, NewConstInt(3, I64), NewConstInt(4, I64), I64)
	entry.Append(v)
	entry.Append(NewBranch(other))
	other.Append(NewReturn(v))

	cloned, blockMap, valueMap := CloneBlocks([]*BasicBlock{entry, other})
	if len(cloned) != 2 {
		t.Fatalf("CloneBlocks returned %d blocks, want 2", len(cloned))
	}
	clonedOther := blockMap[other]
	ret, ok := clonedOther.Terminator().(*Return)
	if !ok {
		t.Fatalf("cloned other's terminator = %T, want *Return", clonedOther.Terminator())
	}
	if ret.Val != valueMap[v] {
		t.Fatal("cloned Return does not reference the cloned instruction's mapped value")
	}
}
