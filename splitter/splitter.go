// Package splitter implements the Block Splitter: it splits a block
// immediately after any non-terminator Call to a non-empty (defined,
// non-external) function, so the Inliner always has a clean block
// boundary to inline into rather than having to split mid-block itself.
// Grounded on flowgraph/optimize.go's inlineCalls, which performs this
// exact split ad hoc at the single call site it inlines; here it runs as
// a standalone pass over every call in the requested blocks up front.
package splitter

import (
	"fmt"

	"github.com/tikforge/tik/ir"
)

// Split rewrites blocks in place, returning the (possibly larger) set of
// blocks that now covers the same code after splitting. Blocks containing
// no eligible call are returned unchanged; a block containing one or more
// eligible calls grows one extra tail block per call.
func Split(fn *ir.Function, blocks []*ir.BasicBlock) []*ir.BasicBlock {
	set := make(map[*ir.BasicBlock]bool, len(blocks))
	for _, b := range blocks {
		set[b] = true
	}

	var out []*ir.BasicBlock
	counter := 0
	for _, b := range blocks {
		if !set[b] {
			continue // already replaced by an earlier split within this loop
		}
		pieces := splitBlock(fn, b, &counter)
		out = append(out, pieces...)
	}
	return out
}

// splitBlock splits b at every eligible call, returning the sequence of
// blocks (starting with b itself, reused for the first piece) that now
// cover its original instructions.
func splitBlock(fn *ir.Function, b *ir.BasicBlock, counter *int) []*ir.BasicBlock {
	idx := -1
	for i, in := range b.Instrs {
		if isSplitPoint(in, i, b) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return []*ir.BasicBlock{b}
	}

	tailName := fmt.Sprintf("%s.split%d", b.Name, *counter)
	*counter++
	tail := ir.NewBlock(tailName, fn)

	rest := b.DetachFrom(idx + 1)
	for _, in := range rest {
		tail.Append(in)
	}

	b.Append(ir.NewBranch(tail))
	fn.AddBlock(tail)

	return append([]*ir.BasicBlock{b}, splitBlock(fn, tail, counter)...)
}

// isSplitPoint reports whether instruction i of block b is an eligible
// call: a *ir.Call whose statically-resolved Target is a defined
// (non-external) function, and which is not already the block's last
// instruction (a tail call needs no split, there is nothing after it to
// separate).
func isSplitPoint(in ir.Instruction, i int, b *ir.BasicBlock) bool {
	call, ok := in.(*ir.Call)
	if !ok {
		return false
	}
	if i == len(b.Instrs)-1 {
		return false
	}
	return call.Target != nil && !call.Target.External()
}
