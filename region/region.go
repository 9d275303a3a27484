// Package region implements the Region Analyzer: given a requested block
// set S, it computes the Entrances, Exits, Conditional blocks, and the
// Body/Termination partition the Kernel Builder needs.
package region

import (
	"tlog.app/go/tlog"

	"github.com/tikforge/tik/ir"
	"github.com/tikforge/tik/kernelerr"
)

// Exit names one distinct way control can leave S: the block inside S
// whose terminator targets it, and the first fresh exit id assigned to
// it.
type Exit struct {
	ID     int
	From   *ir.BasicBlock
	Target *ir.BasicBlock
}

// Result is the Region Analyzer's full output for one requested block
// set.
type Result struct {
	Set []*ir.BasicBlock

	// Entrances are the blocks in S reached by at least one predecessor
	// outside S, in first-seen order; each is assigned a fresh entrance
	// id starting at 0 the first time it is reached.
	Entrances []*ir.BasicBlock
	EntranceID map[*ir.BasicBlock]int

	// Exits enumerates one Exit per distinct outside successor reached
	// from inside S, in first-seen order.
	Exits []Exit

	// Conditional holds the loop-condition heads: blocks with at least
	// one pure-recursing successor (stays in S forever), at least one
	// pure-exiting successor (always leaves), and no ambiguous (both)
	// successor, as classified by BFS from each successor.
	Conditional []*ir.BasicBlock

	// Body and Termination partition S: Body is reached by BFS from the
	// set of blocks classified as recursing paths; Termination is S
	// minus Body, computed directly (the upstream termination-only BFS
	// this mirrors is permanently disabled in the original tool, and
	// this module does not attempt to revive it — see DESIGN.md).
	Body        []*ir.BasicBlock
	Termination []*ir.BasicBlock
}

func contains(set map[*ir.BasicBlock]bool, b *ir.BasicBlock) bool { return set[b] }

// Analyze computes a Result for blocks, returning a kernelerr.NoEntrance
// or kernelerr.NoExit error if the set has no way in or out.
func Analyze(blocks []*ir.BasicBlock) (*Result, error) {
	set := make(map[*ir.BasicBlock]bool, len(blocks))
	for _, b := range blocks {
		set[b] = true
	}

	r := &Result{Set: blocks, EntranceID: make(map[*ir.BasicBlock]int)}

	for _, b := range blocks {
		outside := false
		for _, p := range b.In() {
			if !contains(set, p) {
				outside = true
				break
			}
		}
		// A block with no predecessors at all (the function entry) is
		// also an entrance: control reaches it from outside the
		// function, which is "outside S" by definition.
		if len(b.In()) == 0 {
			outside = true
		}
		if outside {
			r.EntranceID[b] = len(r.Entrances)
			r.Entrances = append(r.Entrances, b)
		}
	}
	if len(r.Entrances) == 0 {
		return nil, kernelerr.New(kernelerr.NoEntrance, "block set has no block reachable from outside the set")
	}

	exitID := 0
	seenExit := make(map[*ir.BasicBlock]bool)
	for _, b := range blocks {
		for _, s := range b.Out() {
			if contains(set, s) || seenExit[s] {
				continue
			}
			seenExit[s] = true
			r.Exits = append(r.Exits, Exit{ID: exitID, From: b, Target: s})
			exitID++
		}
	}
	if len(r.Exits) == 0 {
		return nil, kernelerr.New(kernelerr.NoExit, "block set has no successor outside the set")
	}
	if len(blocks) == 1 && len(blocks[0].Out()) > 0 {
		onlySelfLoop := true
		for _, s := range blocks[0].Out() {
			if s != blocks[0] {
				onlySelfLoop = false
			}
		}
		if onlySelfLoop {
			return nil, kernelerr.New(kernelerr.NoExit, "single self-looping block has no exit")
		}
	}

	conditional, recursePaths := classifyConditional(set, blocks)
	r.Conditional = conditional
	r.Body, r.Termination = partitionBody(set, blocks, conditional, recursePaths)

	return r, nil
}

// classifyConditional finds every valid conditional head in S per spec
// §4.3: a candidate block C with more than one successor, where each
// successor branch is independently classified pure-recursing (reaches C
// again, never leaves S or hits a terminal), pure-exiting (the reverse),
// or ambiguous (both). Any ambiguous successor disqualifies C outright;
// a valid C needs at least one successor of each pure kind. recursePaths
// records, per valid C, the successors that seed the Body walk.
func classifyConditional(set map[*ir.BasicBlock]bool, blocks []*ir.BasicBlock) (conditional []*ir.BasicBlock, recursePaths map[*ir.BasicBlock][]*ir.BasicBlock) {
	recursePaths = make(map[*ir.BasicBlock][]*ir.BasicBlock)
	for _, b := range blocks {
		succs := b.Out()
		if len(succs) < 2 {
			continue
		}
		var recursing, exiting []*ir.BasicBlock
		ambiguous := false
		for _, s := range succs {
			recurses, exits := classifyBranch(set, s, b)
			switch {
			case recurses && exits:
				ambiguous = true
			case recurses:
				recursing = append(recursing, s)
			case exits:
				exiting = append(exiting, s)
			}
		}
		if ambiguous || len(recursing) == 0 || len(exiting) == 0 {
			continue
		}
		conditional = append(conditional, b)
		recursePaths[b] = recursing
	}
	return conditional, recursePaths
}

// classifyBranch runs the per-successor BFS spec §4.3 describes,
// confined to S plus one step outside: it stops expanding a path the
// moment it reaches c again (recurses) or leaves S / hits a terminal
// block with no successors (exits), since either condition closes that
// path's classification.
func classifyBranch(set map[*ir.BasicBlock]bool, start, c *ir.BasicBlock) (recurses, exits bool) {
	seen := map[*ir.BasicBlock]bool{}
	queue := []*ir.BasicBlock{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		switch {
		case cur == c:
			recurses = true
		case !set[cur]:
			exits = true
		case len(cur.Out()) == 0:
			exits = true
		default:
			queue = append(queue, cur.Out()...)
		}
	}
	return recurses, exits
}

// partitionBody computes Body as everything reachable, within S, from
// the recursePaths of every valid conditional, one confined BFS per
// conditional so that an edge into a *different* valid conditional is
// marked Body but not traversed further (that conditional's own walk,
// seeded from its own recursePaths, is responsible for its body);
// Termination is S minus Body, per spec §4.3.
func partitionBody(set map[*ir.BasicBlock]bool, blocks, conditional []*ir.BasicBlock, recursePaths map[*ir.BasicBlock][]*ir.BasicBlock) (body, term []*ir.BasicBlock) {
	condSet := make(map[*ir.BasicBlock]bool, len(conditional))
	for _, c := range conditional {
		condSet[c] = true
	}

	seen := make(map[*ir.BasicBlock]bool)
	for _, c := range conditional {
		queue := append([]*ir.BasicBlock(nil), recursePaths[c]...)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if seen[cur] {
				continue
			}
			seen[cur] = true
			for _, s := range cur.Out() {
				if !set[s] || seen[s] {
					continue
				}
				if condSet[s] && s != c {
					// Mark it Body (Conditional ⊆ Body) but leave expanding
					// past it to its own recursePaths walk.
					seen[s] = true
					continue
				}
				queue = append(queue, s)
			}
		}
	}

	for _, b := range blocks {
		if seen[b] {
			body = append(body, b)
		} else {
			term = append(term, b)
		}
	}
	if len(conditional) > 0 {
		tlog.Printw("debug", "region: conditional blocks found", "count", len(conditional))
	}
	return body, term
}
