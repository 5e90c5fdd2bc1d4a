package driver

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/gss"
	"github.com/npillmayer/glrts/lexer"
	"github.com/npillmayer/glrts/subtree"
	"github.com/npillmayer/glrts/table"
)

const (
	symC base.TokType = 4
)

// Input "ac" against S -> a b c: a zero-size b leaf is synthesized once
// the state after the missing b can act on the actual lookahead c.
func TestRecoverInsertsMissingToken(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.driver")
	defer teardown()

	pool := subtree.NewPool()
	root := gss.NewRoot("G", -1)
	v := root.NewVersion(stateAfterA)

	tbl := &fakeTable{
		gotoFn: func(s table.State, sym base.TokType) table.State {
			if s == stateAfterA && sym == symB {
				return stateAfterB
			}
			return table.ErrorState
		},
		actionsFn: func(s table.State, sym base.TokType) []table.Action {
			if s == stateAfterB && sym == symC {
				return []table.Action{{Kind: table.Shift, NextState: stateAccept}}
			}
			return nil
		},
	}

	p := &Parser{Lang: &table.Language{Table: tbl}, Pool: pool, Root: root}
	tok := &lexer.Token{Symbol: symC, Size: base.Length{Bytes: 1}, Lexeme: "c"}

	before := len(root.AllVersions())
	if !p.tryMissingTokenInsertion(v, tok) {
		t.Fatalf("expected missing-token insertion to find symbol b")
	}

	if len(root.AllVersions()) != before+1 {
		t.Fatalf("expected insertion to fork exactly one new version, got %d new", len(root.AllVersions())-before)
	}
	nv := root.AllVersions()[len(root.AllVersions())-1]
	if nv.State() != stateAfterB {
		t.Fatalf("forked version should land at goto(afterA, b) = %v, got %v", stateAfterB, nv.State())
	}
	id, ok := nv.Top().SolePredecessorSubtree()
	if !ok {
		t.Fatalf("expected the forked version's top frame to carry the missing leaf")
	}
	n := pool.Get(id)
	if n.Symbol != symB {
		t.Fatalf("inserted leaf symbol = %v, want %v", n.Symbol, symB)
	}
	if !n.Flags.Has(subtree.FlagMissing) {
		t.Fatalf("inserted leaf should be flagged missing")
	}
	if n.Footprint().Bytes != 0 {
		t.Fatalf("inserted leaf must be zero-size, got %v", n.Footprint())
	}
	if nv.ErrorStatus().Cost != base.ErrorCostPerSkippedTree {
		t.Fatalf("insertion should cost one tree penalty, got %d", nv.ErrorStatus().Cost)
	}
}

// With a summary entry whose state accepts the lookahead, the version
// snaps back, wrapping the popped subtree in an ERROR node.
func TestRecoverSnapBackWrapsPoppedChildren(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.driver")
	defer teardown()

	pool := subtree.NewPool()
	root := gss.NewRoot("G", -1)
	v := root.NewVersion(stateStart)

	leaf := pool.NewLeaf(symA, base.Length{}, base.Length{Bytes: 1}, 0, "a")
	root.BeginStep()
	v.Push(stateAfterA, symA, leaf, pool)

	tbl := &fakeTable{
		// No action at all from the live top state, forcing recovery; the
		// summary entry for stateStart (recorded before the push) has an
		// action for the lookahead, so the snap-back can target it.
		actionsFn: func(s table.State, sym base.TokType) []table.Action {
			if s == stateStart && sym == symB {
				return []table.Action{{Kind: table.Shift, NextState: stateAfterB}}
			}
			return nil
		},
	}
	p := &Parser{Lang: &table.Language{Table: tbl}, Pool: pool, Root: root}
	tok := &lexer.Token{Symbol: symB, Size: base.Length{Bytes: 1}, Lexeme: "b"}

	before := len(root.AllVersions())
	ok := p.tryStrategyASnapBack(v, tok)
	if !ok {
		t.Fatalf("expected the snap-back to find the stateStart summary entry")
	}
	if len(root.AllVersions()) != before+1 {
		t.Fatalf("expected snap-back to fork exactly one new version, got %d new", len(root.AllVersions())-before)
	}
	nv := root.AllVersions()[len(root.AllVersions())-1]
	if nv.State() != stateStart {
		t.Fatalf("snapped-back version should land at the summary's recorded state %v, got %v", stateStart, nv.State())
	}
	id, ok2 := nv.Top().SolePredecessorSubtree()
	if !ok2 {
		t.Fatalf("expected the snapped-back version's top frame to carry the wrapped error node")
	}
	n := pool.Get(id)
	if !n.Flags.Has(subtree.FlagError) {
		t.Fatalf("snap-back should wrap the popped subtree in an ERROR node")
	}
	if !n.Flags.Has(subtree.FlagExtra) {
		t.Fatalf("the ERROR wrapper must be extra so later reductions pass over it")
	}
	if len(n.Children) != 1 || n.Children[0] != leaf {
		t.Fatalf("ERROR node children = %v, want [%d]", n.Children, leaf)
	}
	if !nv.ErrorStatus().IsInError {
		t.Fatalf("snapped-back version should be marked in error")
	}
}

// A first skipped lookahead is wrapped in a fresh ERROR_REPEAT node at the
// error state; a second skip folds into that chain instead of stacking a
// second wrapper.
func TestRecoverSkipLookaheadFoldsIntoErrorRepeat(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.driver")
	defer teardown()

	pool := subtree.NewPool()
	root := gss.NewRoot("G", -1)
	v := root.NewVersion(stateStart)

	existing := pool.NewLeaf(symA, base.Length{}, base.Length{Bytes: 1}, 0, "a")
	root.BeginStep()
	v.Push(stateAfterA, symA, existing, pool)

	tbl := &fakeTable{}
	p := &Parser{Lang: &table.Language{Table: tbl}, Pool: pool, Root: root}
	tokB := &lexer.Token{Symbol: symB, Size: base.Length{Bytes: 1}, Lexeme: "b"}

	before := len(root.AllVersions())
	p.tryStrategyBSkipLookahead(v, tokB)

	if len(root.AllVersions()) != before+1 {
		t.Fatalf("expected the skip to fork exactly one new version, got %d new", len(root.AllVersions())-before)
	}
	nv := root.AllVersions()[len(root.AllVersions())-1]
	if nv.State() != table.ErrorState {
		t.Fatalf("a skipped lookahead should be pushed at the error state, got %v", nv.State())
	}
	id, ok := nv.Top().SolePredecessorSubtree()
	if !ok {
		t.Fatalf("expected the forked version's top frame to carry the ERROR_REPEAT node")
	}
	if !pool.IsErrorRepeat(id) {
		t.Fatalf("the wrapper should be an ERROR_REPEAT node")
	}
	if n := pool.Get(id); len(n.Children) != 1 {
		t.Fatalf("a fresh ERROR_REPEAT should wrap only the skipped lookahead, got %v", n.Children)
	}
	if !nv.ErrorStatus().IsInError {
		t.Fatalf("the skip should mark the forked version in error")
	}

	// Second skip, now from the forked version whose top is the chain.
	tokC := &lexer.Token{Symbol: symC, Size: base.Length{Bytes: 1}, Lexeme: "c"}
	p.tryStrategyBSkipLookahead(nv, tokC)
	nv2 := root.AllVersions()[len(root.AllVersions())-1]
	id2, _ := nv2.Top().SolePredecessorSubtree()
	if !pool.IsErrorRepeat(id2) {
		t.Fatalf("the second skip should still sit in an ERROR_REPEAT node")
	}
	if n := pool.Get(id2); len(n.Children) != 2 {
		t.Fatalf("the second skip should fold into the chain, got children %v", n.Children)
	}
	if id2 == id {
		t.Fatalf("folding must clone the chain, not mutate the node the paused version still references")
	}
}

// An EOF lookahead while already in error wraps whatever remains on the
// stack into a finished ERROR tree instead of recovering further.
func TestRecoverEndOfInputWrapsRemainingStack(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.driver")
	defer teardown()

	pool := subtree.NewPool()
	root := gss.NewRoot("G", -1)
	v := root.NewVersion(stateStart)
	v.SetErrorStatus(gss.ErrorStatus{IsInError: true, Cost: 5})

	leaf := pool.NewLeaf(symA, base.Length{}, base.Length{Bytes: 1}, 0, "a")
	root.BeginStep()
	v.Push(stateAfterA, symA, leaf, pool)

	tbl := &fakeTable{}
	p := &Parser{Lang: &table.Language{Table: tbl}, Pool: pool, Root: root}
	tok := &lexer.Token{IsEOF: true}

	p.Recover(v, tok)

	if !p.HasFinishedTree {
		t.Fatalf("expected end-of-input recovery to produce a finished tree")
	}
	n := pool.Get(p.FinishedTree)
	if !n.Flags.Has(subtree.FlagError) {
		t.Fatalf("the finished tree should be an ERROR node")
	}
	if len(n.Children) != 1 || n.Children[0] != leaf {
		t.Fatalf("ERROR node children = %v, want [%d]", n.Children, leaf)
	}
	if p.FinishedCost == 0 {
		t.Fatalf("wrapping a subtree as error must carry a nonzero cost")
	}
	if !v.IsHalted() {
		t.Fatalf("the version should be halted after wrapping it as the finished tree")
	}
}

// The snap-back refuses to land on a (state, position) an active sibling
// version already occupies — the would-be duplicate is the merge that
// already happened.
func TestRecoverMergesExistingVersion(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.driver")
	defer teardown()

	pool := subtree.NewPool()
	root := gss.NewRoot("G", -1)
	v := root.NewVersion(stateStart)

	leaf := pool.NewLeaf(symA, base.Length{}, base.Length{Bytes: 1}, 0, "a")
	root.BeginStep()
	v.Push(stateAfterA, symA, leaf, pool)

	// A sibling version already sits at (stateStart, the position the
	// snap-back would rewind to).
	sibling := root.NewVersion(stateStart)
	sibling.Reassign(sibling.Top(), v.Position())

	tbl := &fakeTable{
		actionsFn: func(s table.State, sym base.TokType) []table.Action {
			if s == stateStart && sym == symB {
				return []table.Action{{Kind: table.Shift, NextState: stateAfterB}}
			}
			return nil
		},
	}
	p := &Parser{Lang: &table.Language{Table: tbl}, Pool: pool, Root: root}
	tok := &lexer.Token{Symbol: symB, Size: base.Length{Bytes: 1}, Lexeme: "b"}

	ok := p.tryStrategyASnapBack(v, tok)
	if ok {
		t.Fatalf("the snap-back must refuse a (state, position) an existing version already occupies")
	}
}

// With no repair or recovery possible and no better version around, the
// stuck version pauses (with a cost penalty) rather than dying.
func TestRecoverPausesWhenNothingApplies(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.driver")
	defer teardown()

	pool := subtree.NewPool()
	root := gss.NewRoot("G", -1)
	v := root.NewVersion(stateStart)

	tbl := &fakeTable{}
	p := &Parser{Lang: &table.Language{Table: tbl}, Pool: pool, Root: root}
	tok := &lexer.Token{Symbol: symB, Size: base.Length{Bytes: 1}, Lexeme: "b"}

	p.Recover(v, tok)

	if !v.IsPaused() {
		t.Fatalf("a version with no recovery path should pause, awaiting a condense decision")
	}
	if v.ErrorStatus().Cost == 0 {
		t.Fatalf("pausing must carry a cost penalty")
	}
}
