// Package memrewrite implements the Memory Rewriter (spec §4.7): it
// promotes pointer operands used by a Load or Store inside the kernel to
// module-level globals, synthesizes the MemoryRead/MemoryWrite selector
// functions, and rewrites every Load/Store through the abstract i64
// address space those selectors expose.
package memrewrite

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/tikforge/tik/buildctx"
	"github.com/tikforge/tik/ir"
)

// Result holds the synthesized memory interface for one kernel.
type Result struct {
	// Order lists the promoted pointers in the id order assigned to
	// them (id == index); GlobalMap is keyed the same way for O(1)
	// per-instruction lookup during rewriting.
	Order       []ir.Value
	GlobalMap   map[ir.Value]*ir.GlobalVariable
	IDOf        map[ir.Value]int
	MemoryRead  *ir.Function
	MemoryWrite *ir.Function
}

// Rewrite promotes every pointer ExternalValue used in a Load or Store
// within blocks to a global, builds MemoryRead/MemoryWrite, and rewrites
// the Loads/Stores to call through them. kernelName seeds unique global
// and function names.
func Rewrite(ctx *buildctx.Context, kernelName string, blocks []*ir.BasicBlock) (*Result, error) {
	res := &Result{
		GlobalMap: make(map[ir.Value]*ir.GlobalVariable),
		IDOf:      make(map[ir.Value]int),
	}

	set := make(map[*ir.BasicBlock]bool, len(blocks))
	for _, b := range blocks {
		set[b] = true
	}

	for _, b := range blocks {
		for _, in := range b.Instrs {
			addr := operandAddr(in)
			if addr == nil || !isPointerOperand(addr, set) {
				continue
			}
			if _, ok := res.GlobalMap[addr]; ok {
				continue
			}
			id := len(res.Order)
			g := ir.NewGlobal(fmt.Sprintf("%s.mem%d", kernelName, id), elemType(addr))
			ctx.TikModule.AddGlobal(g)
			res.GlobalMap[addr] = g
			res.IDOf[addr] = id
			res.Order = append(res.Order, addr)
		}
	}

	res.MemoryRead = buildSelector(ctx, kernelName+"_MemoryRead", res)
	res.MemoryWrite = buildSelector(ctx, kernelName+"_MemoryWrite", res)
	ctx.TikModule.AddFunc(res.MemoryRead)
	ctx.TikModule.AddFunc(res.MemoryWrite)

	for _, b := range blocks {
		for _, in := range append([]ir.Instruction(nil), b.Instrs...) {
			if err := rewriteInstr(b, in, res); err != nil {
				return nil, errors.Wrap(err, "memrewrite: rewriting load/store")
			}
		}
	}

	return res, nil
}

func operandAddr(in ir.Instruction) ir.Value {
	switch v := in.(type) {
	case *ir.Load:
		return v.Addr
	case *ir.Store:
		return v.Addr
	default:
		return nil
	}
}

// isPointerOperand reports whether v is a pointer-typed value defined
// outside set (an ExternalValue) — the only operands the Memory
// Rewriter ever promotes. A load/store through a kernel-local pointer
// (produced by an instruction inside set, e.g. an Alloc) is untouched;
// only boundary-crossing pointers need the abstract interface.
func isPointerOperand(v ir.Value, set map[*ir.BasicBlock]bool) bool {
	if _, ok := v.Type().(ir.PointerType); !ok {
		return false
	}
	if in, ok := v.(ir.Instruction); ok && set[in.Parent()] {
		return false
	}
	return true
}

func elemType(v ir.Value) ir.Type {
	if p, ok := v.Type().(ir.PointerType); ok {
		return p.Elem
	}
	return ir.I64
}

// buildSelector synthesizes an (i64) -> i64 address-resolution helper
// as the chain of selects spec §4.7 describes: select(id == 0,
// ptrtoint(global_0), select(id == 1, ptrtoint(global_1), ...
// default)). MemoryRead and MemoryWrite are built by this exact same
// function — spec §4.7 gives them identical shape, since both merely
// resolve which promoted global an index names; the real load or store
// against the resolved address happens back at the call site, not
// inside the helper. Built block-by-block rather than as nested
// expressions only because package ir has no ternary instruction; each
// comparison gets its own CondBranch and the final value is collected
// through a Phi in the join block, which is operationally the same
// chained selection the spec calls for.
func buildSelector(ctx *buildctx.Context, name string, res *Result) *ir.Function {
	addrParm := ir.NewArgument("addr", ir.I64)
	fn := ir.NewFunction(name, []*ir.Argument{addrParm}, ir.I64, ctx.TikModule)

	if len(res.Order) == 0 {
		entry := ir.NewBlock("entry", fn)
		fn.AddBlock(entry)
		entry.Append(ir.NewReturn(ir.NewConstInt(0, ir.I64)))
		return fn
	}

	join := ir.NewBlock(name+".join", fn)
	joinPhi := ir.NewPhi(ir.I64)
	join.Append(joinPhi)

	cur := ir.NewBlock("entry", fn)
	fn.AddBlock(cur)
	for i, v := range res.Order {
		g := res.GlobalMap[v]
		cmp := ir.NewBinOp(ir.ICmpEQ, addrParm, ir.NewConstInt(int64(i), ir.I64), ir.I1)
		cur.Append(cmp)

		hit := ir.NewBlock(fmt.Sprintf("%s.hit%d", name, i), fn)
		fn.AddBlock(hit)
		gAddr := ir.NewConvert(ir.PtrToInt, g, ir.I64)
		hit.Append(gAddr)
		hit.Append(ir.NewBranch(join))
		joinPhi.AddIncoming(hit, gAddr)

		if i == len(res.Order)-1 {
			miss := ir.NewBlock(fmt.Sprintf("%s.miss", name), fn)
			fn.AddBlock(miss)
			miss.Append(ir.NewBranch(join))
			joinPhi.AddIncoming(miss, ir.NewConstInt(0, ir.I64))
			cur.Append(ir.NewCondBranch(cmp, hit, miss))
		} else {
			next := ir.NewBlock(fmt.Sprintf("%s.chk%d", name, i+1), fn)
			fn.AddBlock(next)
			cur.Append(ir.NewCondBranch(cmp, hit, next))
			cur = next
		}
	}
	fn.AddBlock(join)
	join.Append(ir.NewReturn(joinPhi))
	return fn
}

// rewriteInstr replaces a Load/Store whose Addr was promoted with the
// call-then-inttoptr/ptrtoint sequence spec §4.7 describes; instructions
// that don't touch a promoted address are left untouched.
func rewriteInstr(b *ir.BasicBlock, in ir.Instruction, res *Result) error {
	switch v := in.(type) {
	case *ir.Load:
		id, ok := res.IDOf[v.Addr]
		if !ok {
			return nil
		}
		call := ir.NewCall(res.MemoryRead.Ref(), []ir.Value{ir.NewConstInt(int64(id), ir.I64)}, ir.I64)
		call.Target = res.MemoryRead
		conv := ir.NewConvert(ir.IntToPtr, call, v.Addr.Type())
		ld := ir.NewLoad(conv, v.Type())
		b.InsertBefore(v, call)
		b.InsertBefore(v, conv)
		b.InsertBefore(v, ld)
		replaceUses(v, ld)
		b.RemoveInstr(v)
		return nil
	case *ir.Store:
		id, ok := res.IDOf[v.Addr]
		if !ok {
			return nil
		}
		call := ir.NewCall(res.MemoryWrite.Ref(), []ir.Value{ir.NewConstInt(int64(id), ir.I64)}, ir.I64)
		call.Target = res.MemoryWrite
		conv := ir.NewConvert(ir.IntToPtr, call, v.Addr.Type())
		st := ir.NewStore(conv, v.Val)
		b.InsertBefore(v, call)
		b.InsertBefore(v, conv)
		b.InsertBefore(v, st)
		b.RemoveInstr(v)
		return nil
	}
	return nil
}

func replaceUses(old, new ir.Value) {
	for _, u := range old.Users() {
		u.ReplaceOperand(old, new)
	}
}
