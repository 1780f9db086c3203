package mir

// SimplifyCFG performs control flow graph simplification on a function.
// Transformations:
// 1. Redirect edges that target empty goto blocks
// 2. Remove unreachable blocks (code after return/break)
// 3. Renumber blocks deterministically
//
// The entry block is never removed, so spans of the first statements stay
// attached to bb0.
func SimplifyCFG(f *Func) {
	if f == nil || len(f.Blocks) == 0 {
		return
	}
	redirects := buildRedirectMap(f)
	applyRedirects(f, redirects)
	compactBlocks(f, computeReachability(f))
}

// buildRedirectMap maps every trivial goto block to the final target of its chain.
func buildRedirectMap(f *Func) map[BlockID]BlockID {
	redirects := make(map[BlockID]BlockID)
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if bb.ID == f.Entry || !isTrivialGotoBlock(f, bb.ID) {
			continue
		}
		target := bb.Term.Goto.Target
		visited := map[BlockID]bool{bb.ID: true}
		for !visited[target] {
			visited[target] = true
			if next, ok := redirects[target]; ok {
				target = next
				continue
			}
			if target != f.Entry && isTrivialGotoBlock(f, target) {
				target = f.Blocks[target].Term.Goto.Target
				continue
			}
			break
		}
		if target == bb.ID {
			// empty infinite loop, keep it
			continue
		}
		redirects[bb.ID] = target
	}
	return redirects
}

func isTrivialGotoBlock(f *Func, id BlockID) bool {
	bb := f.Block(id)
	return bb != nil && len(bb.Instrs) == 0 && bb.Term.Kind == TermGoto
}

func applyRedirects(f *Func, redirects map[BlockID]BlockID) {
	if len(redirects) == 0 {
		return
	}
	redirect := func(id BlockID) BlockID {
		if newID, ok := redirects[id]; ok {
			return newID
		}
		return id
	}
	for i := range f.Blocks {
		term := &f.Blocks[i].Term
		switch term.Kind {
		case TermGoto:
			term.Goto.Target = redirect(term.Goto.Target)
		case TermIf:
			term.If.Then = redirect(term.If.Then)
			term.If.Else = redirect(term.If.Else)
		}
	}
}

// computeReachability marks the blocks reachable from the entry.
func computeReachability(f *Func) []bool {
	reachable := make([]bool, len(f.Blocks))
	for _, id := range f.ReversePostOrder() {
		reachable[id] = true
	}
	return reachable
}

// compactBlocks removes unreachable blocks and renumbers the remaining ones.
func compactBlocks(f *Func, reachable []bool) {
	oldToNew := make(map[BlockID]BlockID, len(f.Blocks))
	newBlocks := make([]Block, 0, len(f.Blocks))
	for i, keep := range reachable {
		if keep {
			oldToNew[BlockID(i)] = BlockID(len(newBlocks)) //nolint:gosec // bounded by block count
			newBlocks = append(newBlocks, f.Blocks[i])
		}
	}
	remap := func(id BlockID) BlockID {
		if newID, ok := oldToNew[id]; ok {
			return newID
		}
		return id
	}
	for i := range newBlocks {
		newBlocks[i].ID = BlockID(i) //nolint:gosec // bounded by block count
		term := &newBlocks[i].Term
		switch term.Kind {
		case TermGoto:
			term.Goto.Target = remap(term.Goto.Target)
		case TermIf:
			term.If.Then = remap(term.If.Then)
			term.If.Else = remap(term.If.Else)
		}
	}
	f.Entry = remap(f.Entry)
	f.Blocks = newBlocks
}
