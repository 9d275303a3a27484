package ir

// CloneBlocks deep-copies the given blocks (which must all belong to the
// same function) into newly allocated blocks with no parent function,
// rewiring every internal cross-reference (phi predecessors, branch
// targets, operand values) to point at the clones instead of the
// originals. External references (values defined outside blocks, and
// branch targets outside blocks) are left pointing at the originals; the
// caller patches those afterward, which is exactly the seam package
// kernel uses to retarget cross-region edges to Init/Exit.
//
// This mirrors flowgraph/optimize.go's copyBlocks: a first pass
// shallow-copies every block and instruction, building old->new maps for
// blocks and values; a second pass walks the clones rewriting every
// operand and successor reference through those maps.
func CloneBlocks(blocks []*BasicBlock) (cloned []*BasicBlock, blockMap map[*BasicBlock]*BasicBlock, valueMap map[Value]Value) {
	blockMap = make(map[*BasicBlock]*BasicBlock, len(blocks))
	valueMap = make(map[Value]Value)

	for _, b := range blocks {
		nb := &BasicBlock{Name: b.Name}
		nb.meta = copyMeta(b.meta)
		blockMap[b] = nb
	}

	for _, b := range blocks {
		nb := blockMap[b]
		for _, in := range b.Instrs {
			ni := shallowCopyInstr(in)
			if v, ok := in.(Value); ok {
				valueMap[v] = ni.(Value)
			}
			nb.Instrs = append(nb.Instrs, ni)
		}
	}

	for _, b := range blocks {
		nb := blockMap[b]
		for _, ni := range nb.Instrs {
			remapOperands(ni, valueMap)
			if term, ok := ni.(Terminator); ok {
				remapSuccessors(term, blockMap)
			}
			if phi, ok := ni.(*Phi); ok {
				remapPhiPreds(phi, blockMap)
			}
			ni.setParent(nb)
		}
	}

	// Derive predecessor lists from the rewritten terminators, the same
	// way BasicBlock.Append does for freshly built blocks.
	for _, b := range blocks {
		nb := blockMap[b]
		if t := nb.Terminator(); t != nil {
			for _, succ := range t.Successors() {
				succ.addPred(nb)
			}
		}
	}

	cloned = make([]*BasicBlock, len(blocks))
	for i, b := range blocks {
		cloned[i] = blockMap[b]
	}
	return cloned, blockMap, valueMap
}

func copyMeta(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// shallowCopyInstr returns a field-wise copy of in with a fresh, empty
// use-list (if applicable). Every concrete instruction type needs its
// own case because Go has no generic struct-copy-with-type-preserved
// operation across an interface value; this mirrors the per-type
// shallowCopy methods in flowgraph/optimize.go.
func shallowCopyInstr(in Instruction) Instruction {
	switch v := in.(type) {
	case *Phi:
		n := &Phi{}
		n.typ = v.typ
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		n.Incoming = append([]PhiEdge(nil), v.Incoming...)
		return n
	case *BinOp:
		n := &BinOp{Op: v.Op, X: v.X, Y: v.Y}
		n.typ = v.typ
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		return n
	case *Convert:
		n := &Convert{Op: v.Op, X: v.X}
		n.typ = v.typ
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		return n
	case *Load:
		n := &Load{Addr: v.Addr}
		n.typ = v.typ
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		return n
	case *Store:
		n := &Store{Addr: v.Addr, Val: v.Val}
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		return n
	case *Call:
		n := &Call{Callee: v.Callee, Args: append([]Value(nil), v.Args...), Target: v.Target}
		n.typ = v.typ
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		return n
	case *Alloc:
		n := &Alloc{T: v.T, Count: v.Count}
		n.typ = v.typ
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		return n
	case *Branch:
		n := &Branch{Dst: v.Dst}
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		return n
	case *CondBranch:
		n := &CondBranch{Cond: v.Cond, True: v.True, False: v.False}
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		return n
	case *Switch:
		n := &Switch{Value: v.Value, Default: v.Default, Cases: append([]SwitchCase(nil), v.Cases...)}
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		return n
	case *Return:
		n := &Return{Val: v.Val}
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		return n
	case *Invoke:
		n := &Invoke{Callee: v.Callee, Args: append([]Value(nil), v.Args...), Normal: v.Normal, Unwind: v.Unwind}
		n.typ = v.typ
		n.comment = v.comment
		n.meta = copyMeta(v.meta)
		return n
	default:
		panic("ir: CloneBlocks: unhandled instruction type")
	}
}

// remapOperands rewrites every operand of in that has an entry in vmap,
// preserving use-list bookkeeping.
func remapOperands(in Instruction, vmap map[Value]Value) {
	for _, op := range in.Operands() {
		if op == nil {
			continue
		}
		if nv, ok := vmap[op]; ok {
			in.ReplaceOperand(op, nv)
		}
	}
}

func remapSuccessors(term Terminator, bmap map[*BasicBlock]*BasicBlock) {
	for _, succ := range term.Successors() {
		if nb, ok := bmap[succ]; ok {
			term.ReplaceSuccessor(succ, nb)
		}
	}
}

func remapPhiPreds(p *Phi, bmap map[*BasicBlock]*BasicBlock) {
	for i, e := range p.Incoming {
		if nb, ok := bmap[e.Pred]; ok {
			p.Incoming[i].Pred = nb
		}
	}
}
