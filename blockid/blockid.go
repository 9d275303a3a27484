// Package blockid maintains the stable integer identity ("BlockID") that
// the kernel specification input (package kernelspec) uses to name basic
// blocks, independent of their position in the module or the name the IR
// facade happens to give them. This is the second half of the IR
// Facade / Block Indexer component.
package blockid

import "github.com/tikforge/tik/ir"

// ID is a stable, module-scoped basic block identifier.
type ID int64

// Of returns the BlockID attached to b and whether one was ever set. A
// block with no BlockID was not part of the original module's
// instrumentation and can never be named by a kernel spec.
func Of(b *ir.BasicBlock) (ID, bool) {
	v, ok := b.Meta(ir.MetaBlockID)
	if !ok {
		return 0, false
	}
	return v.(ID), true
}

// Set attaches id to b. Call sites that synthesize new blocks (Init,
// Exit, Exception, nested-kernel call stubs and bridges, the inliner's
// entrance/return/continuation blocks, splitter tails) deliberately do
// not call Set: synthetic blocks have no BlockID, which is itself how
// package finalize recognizes them when stripping debug metadata. Cloned
// bodies keep their source block's BlockID, since ir.CloneBlocks copies
// metadata.
func Set(b *ir.BasicBlock, id ID) {
	b.SetMeta(ir.MetaBlockID, id)
}

// Index is a BlockID -> *ir.BasicBlock lookup built once per module and
// reused across every kernel built from it.
type Index struct {
	byID map[ID]*ir.BasicBlock
}

// Build scans every block of mod and returns an Index over the ones that
// carry a BlockID.
func Build(mod *ir.Module) *Index {
	idx := &Index{byID: make(map[ID]*ir.BasicBlock)}
	for _, b := range mod.Blocks() {
		if id, ok := Of(b); ok {
			idx.byID[id] = b
		}
	}
	return idx
}

// Lookup resolves id to its block, nil if id is unknown.
func (idx *Index) Lookup(id ID) *ir.BasicBlock {
	return idx.byID[id]
}

// Resolve maps a list of requested BlockIDs to their blocks, returning
// the subset actually found and the list of ids that resolved to
// nothing (the caller, package kernel, turns unresolved ids into a
// kernelerr.NoEntrance-flavored diagnostic).
func (idx *Index) Resolve(ids []ID) (found []*ir.BasicBlock, missing []ID) {
	for _, id := range ids {
		if b := idx.byID[id]; b != nil {
			found = append(found, b)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing
}
