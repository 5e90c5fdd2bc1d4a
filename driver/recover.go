package driver

import (
	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/gss"
	"github.com/npillmayer/glrts/lexer"
	"github.com/npillmayer/glrts/subtree"
	"github.com/npillmayer/glrts/table"
)

// Recover is called for a version whose (state, lookahead) has no table
// entry: it tries missing-token insertion, then the two recovery
// strategies — snapping back to a summarized earlier state, and skipping
// the lookahead — forking versions as needed, and finally pauses or
// retires the stuck version itself.
func (p *Parser) Recover(v *gss.Version, tok *lexer.Token) {
	if tok.IsEOF && v.ErrorStatus().IsInError {
		p.wrapRemainingAsErrorAndAccept(v)
		return
	}

	tracer().Debugf("detect_error version:%d state:%d", v.ID(), v.State())

	p.tryMissingTokenInsertion(v, tok)

	strategyAOK := p.tryStrategyASnapBack(v, tok)
	skipStrategyB := strategyAOK && tok.IsExternal

	if !skipStrategyB {
		p.tryStrategyBSkipLookahead(v, tok)
	}

	prospective := v.ErrorStatus().Cost + base.ErrorCostPerSkippedTree
	if !BetterVersionExists(v, p.Root.AllVersions(), prospective, p.FinishedCost, p.HasFinishedTree) {
		v.Pause(tok)
	} else {
		v.Die()
	}
}

// tryMissingTokenInsertion looks for a symbol m such that, after pushing a
// zero-size missing leaf for m, the stack can act on the actual lookahead
// (directly or after a cascade of reductions). The first m that succeeds
// wins; the repaired branch continues as a forked version.
func (p *Parser) tryMissingTokenInsertion(v *gss.Version, tok *lexer.Token) bool {
	if tok.IsEOF || tok.IsError {
		return false
	}
	tbl := p.Lang.Table
	for m := base.TokType(1); int(m) < tbl.SymbolCount(); m++ {
		next := tbl.Goto(v.State(), m)
		if next == table.ErrorState || next == v.State() {
			continue
		}
		if !tbl.HasActions(next, tok.Symbol) {
			continue
		}
		if duplicateVersionExists(p.Root, next, v.Position()) {
			continue
		}
		nv := v.Fork()
		missing := p.Pool.NewMissingLeaf(m, base.Length{})
		nv.Push(next, m, missing, p.Pool)
		es := nv.ErrorStatus()
		es.Cost += base.ErrorCostPerSkippedTree
		nv.SetErrorStatus(es)
		if DoAllPotentialReductions(p.Root, nv, tok.Symbol, true, tbl, p.Pool) {
			tracer().Debugf("insert_missing sym:%d version:%d", m, nv.ID())
			return true
		}
		nv.Die()
	}
	return false
}

// tryStrategyASnapBack walks the version's summary of recently visited
// states; for the first entry whose state has an action for the lookahead,
// it pops that many subtrees, wraps them in an ERROR node, and pushes onto
// the stack at the summarized state — unless that would duplicate an
// existing version or the projected cost is already dominated. At most one
// snap-back succeeds.
func (p *Parser) tryStrategyASnapBack(v *gss.Version, tok *lexer.Token) bool {
	tbl := p.Lang.Table
	symbol := symbolFor(tbl, tok)
	for _, entry := range v.Summary() {
		if !tbl.HasActions(entry.State, symbol) {
			continue
		}
		slices := v.PopByDepth(entry.Depth)
		if len(slices) == 0 {
			continue
		}
		slice := slices[0]
		if duplicateVersionExists(p.Root, entry.State, v.Position()) {
			continue
		}
		delta := v.Position().Sub(entry.Position)
		cost := v.ErrorStatus().Cost +
			int64(entry.Depth)*base.ErrorCostPerSkippedTree +
			int64(delta.Bytes)*base.ErrorCostPerSkippedChar +
			int64(delta.Row)*base.ErrorCostPerSkippedLine
		if BetterVersionExists(v, p.Root.AllVersions(), cost, p.FinishedCost, p.HasFinishedTree) {
			continue
		}
		errNode := p.Pool.NewErrorNode(slice.Children)
		nv := v.Fork()
		nv.Reassign(slice.Origin, entry.Position)
		frame := nv.NewFrameAt(slice.Origin, entry.State, -1, errNode, p.Pool)
		nv.Reassign(frame, nv.Position().Add(p.Pool.Get(errNode).Footprint()))
		es := nv.ErrorStatus()
		es.Cost = cost
		es.IsInError = true
		es.NodeCountSinceError = 0
		nv.SetErrorStatus(es)
		tracer().Debugf("recover_to_previous state:%d,depth:%d", entry.State, entry.Depth)
		return true
	}
	return false
}

func duplicateVersionExists(root *gss.Root, state table.State, pos base.Length) bool {
	for _, other := range root.ActiveVersions() {
		if other.State() == state && other.Position() == pos {
			return true
		}
	}
	return false
}

// tryStrategyBSkipLookahead wraps the current lookahead in an ERROR_REPEAT
// node — folding it into the top-of-stack ERROR_REPEAT if one is already
// there — and pushes at the error state, unless that would exceed the
// version cap or is already dominated.
func (p *Parser) tryStrategyBSkipLookahead(v *gss.Version, tok *lexer.Token) {
	if tok.IsEOF {
		return
	}
	if len(p.Root.ActiveVersions()) > gss.MaxVersionCount+gss.MaxVersionCountOverflow {
		return
	}
	cost := v.ErrorStatus().Cost +
		base.ErrorCostPerSkippedTree +
		base.ErrorCostPerSkippedChar*int64(tok.Size.Bytes) +
		base.ErrorCostPerSkippedLine*int64(tok.Size.Row)
	if BetterVersionExists(v, p.Root.AllVersions(), cost, p.FinishedCost, p.HasFinishedTree) {
		return
	}
	skipped := p.shiftSubtree(tok, subtree.NullID)

	nv := v.Fork()
	if topSub, below, ok := v.PopTop(); ok && p.Pool.IsErrorRepeat(topSub) {
		// Fold into the existing chain: clone it (the paused original
		// still references the unfolded node), extend the clone, and
		// replace the top of the forked stack with it.
		p.Pool.Retain(topSub)
		folded := p.Pool.NewErrorRepeatNode(topSub, skipped)
		topFootprint := p.Pool.Get(topSub).Footprint()
		nv.Reassign(below, nv.Position().Sub(topFootprint))
		nv.Push(table.ErrorState, -1, folded, p.Pool)
	} else {
		wrapped := p.Pool.NewErrorRepeatNode(subtree.NullID, skipped)
		nv.Push(table.ErrorState, -1, wrapped, p.Pool)
	}
	es := nv.ErrorStatus()
	es.Cost = cost
	es.IsInError = true
	nv.SetErrorStatus(es)
	tracer().Debugf("skip_token sym:%d version:%d", tok.Symbol, nv.ID())
}

// wrapRemainingAsErrorAndAccept handles end of input while in error: the
// remaining stack is wrapped into an ERROR node which becomes a finished
// tree candidate.
func (p *Parser) wrapRemainingAsErrorAndAccept(v *gss.Version) {
	children := v.PopAll()
	errNode := p.Pool.NewErrorNode(children)
	cost := p.Pool.Get(errNode).ErrorCost
	if p.HasFinishedTree {
		chosen := SelectSubtree(p.Pool, p.FinishedTree, errNode, 0, 0)
		if chosen == errNode {
			p.Pool.Release(p.FinishedTree)
			p.FinishedTree, p.FinishedCost = errNode, cost
		} else {
			p.Pool.Release(errNode)
		}
	} else {
		p.FinishedTree, p.FinishedCost, p.HasFinishedTree = errNode, cost, true
	}
	v.Die()
}
