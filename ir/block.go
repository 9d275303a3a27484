package ir

// BasicBlock is a straight-line sequence of Instructions ending in a
// Terminator (except for a still-under-construction block, which may
// have none yet). In/Out edges are derived, not stored twice: In is
// maintained incrementally as blocks are wired together (mirroring
// flowgraph's addIn/rmIn), Out is read directly off the last
// instruction's Terminator.Successors().
type BasicBlock struct {
	metaCarrier
	Name   string
	Parent *Function
	Instrs []Instruction
	preds  []*BasicBlock
}

// NewBlock constructs an empty block named name, owned by fn.
func NewBlock(name string, fn *Function) *BasicBlock {
	b := &BasicBlock{Name: name, Parent: fn}
	return b
}

// Append adds instr to the end of the block's instruction list and wires
// its parent pointer. If instr is a Terminator, b is also recorded as a
// predecessor of each of its successors, so a terminator's destinations
// must already exist.
func (b *BasicBlock) Append(instr Instruction) {
	instr.setParent(b)
	b.Instrs = append(b.Instrs, instr)
	if term, ok := instr.(Terminator); ok {
		for _, succ := range term.Successors() {
			succ.addPred(b)
		}
	}
}

// Terminator returns the block's terminating instruction, nil if the
// block is empty or its last instruction isn't a Terminator (a
// still-under-construction block).
func (b *BasicBlock) Terminator() Terminator {
	if len(b.Instrs) == 0 {
		return nil
	}
	t, _ := b.Instrs[len(b.Instrs)-1].(Terminator)
	return t
}

// Out returns the block's successor blocks, derived from its terminator.
func (b *BasicBlock) Out() []*BasicBlock {
	if t := b.Terminator(); t != nil {
		return t.Successors()
	}
	return nil
}

// In returns the block's predecessor blocks.
func (b *BasicBlock) In() []*BasicBlock {
	out := make([]*BasicBlock, len(b.preds))
	copy(out, b.preds)
	return out
}

func (b *BasicBlock) addPred(p *BasicBlock) {
	for _, e := range b.preds {
		if e == p {
			return
		}
	}
	b.preds = append(b.preds, p)
}

func (b *BasicBlock) rmPred(p *BasicBlock) {
	for i, e := range b.preds {
		if e == p {
			b.preds = append(b.preds[:i], b.preds[i+1:]...)
			return
		}
	}
}

// Phis returns the leading Phi instructions of the block, in order; SSA
// form requires every Phi to precede any non-Phi instruction.
func (b *BasicBlock) Phis() []*Phi {
	var out []*Phi
	for _, in := range b.Instrs {
		p, ok := in.(*Phi)
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}

// RemoveInstr deletes instr from the block, unlinking it from its
// operands' use-lists and, if it is the terminator, from the successors'
// predecessor lists.
func (b *BasicBlock) RemoveInstr(instr Instruction) {
	for i, in := range b.Instrs {
		if in != instr {
			continue
		}
		for _, op := range in.Operands() {
			unuse(op, in)
		}
		if term, ok := in.(Terminator); ok {
			for _, succ := range term.Successors() {
				succ.rmPred(b)
			}
		}
		b.Instrs = append(b.Instrs[:i], b.Instrs[i+1:]...)
		return
	}
}

// SetTerminator replaces the block's current terminator (if any) with
// term, rewiring predecessor bookkeeping on both the old and new
// successor sets. Used by package inline to redirect a cloned callee's
// returns.
func (b *BasicBlock) SetTerminator(term Instruction) {
	if old := b.Terminator(); old != nil {
		for _, succ := range old.Successors() {
			succ.rmPred(b)
		}
		b.Instrs[len(b.Instrs)-1] = term
	} else {
		b.Instrs = append(b.Instrs, term)
	}
	term.setParent(b)
	if t, ok := term.(Terminator); ok {
		for _, succ := range t.Successors() {
			succ.addPred(b)
		}
	}
}

// PrependPhi inserts p at the front of the block's instruction list,
// ahead of any existing Phis, preserving the SSA rule that every Phi
// precedes any non-Phi instruction. Used by package inline to thread a
// synthetic value through a cloned callee's blocks after the block's own
// phis have already been cloned in.
func (b *BasicBlock) PrependPhi(p *Phi) {
	p.setParent(b)
	b.Instrs = append([]Instruction{p}, b.Instrs...)
}

// DetachFrom removes every instruction at index i and beyond from b and
// returns them, unlinking the old terminator (if one of them) from its
// successors' predecessor lists. The caller is responsible for
// re-appending the returned instructions to their new home; used by
// package splitter to move the tail of a block into a freshly created
// successor block.
func (b *BasicBlock) DetachFrom(i int) []Instruction {
	rest := append([]Instruction(nil), b.Instrs[i:]...)
	if term := b.Terminator(); term != nil {
		for _, succ := range term.Successors() {
			succ.rmPred(b)
		}
	}
	b.Instrs = b.Instrs[:i]
	return rest
}

// InsertBefore inserts instr immediately before mark in the block's
// instruction list, used by package memrewrite when synthesizing the
// call+inttoptr/ptrtoint rewrite sequence in place of a Load/Store.
func (b *BasicBlock) InsertBefore(mark, instr Instruction) {
	for i, in := range b.Instrs {
		if in == mark {
			instr.setParent(b)
			b.Instrs = append(b.Instrs[:i], append([]Instruction{instr}, b.Instrs[i:]...)...)
			return
		}
	}
}
