package driver

import (
	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/gss"
	"github.com/npillmayer/glrts/lexer"
	"github.com/npillmayer/glrts/reuse"
	"github.com/npillmayer/glrts/subtree"
	"github.com/npillmayer/glrts/table"
)

// Parser is the driver's mutable state for one parse: the GSS root, the
// subtree pool, the lexing coordinator, the token cache, and (if
// reparsing) a cursor over the previous tree.
type Parser struct {
	Lang   *table.Language
	Pool   *subtree.Pool
	Root   *gss.Root
	Coord  *lexer.Coordinator
	Cache  lexer.TokenCache
	Cursor *reuse.Cursor // nil unless reparsing with a previous tree

	OpCount int

	FinishedTree    subtree.ID
	FinishedCost    int64
	HasFinishedTree bool
}

// leafReusable decides whether a candidate leaf may stand in for a fresh
// lex in the current state: the state must offer a lookahead at all, and
// either the table has an action for the candidate's symbol (keyword
// captures additionally requiring the exact producing state), or the leaf
// has nonzero span, needs no external scanner here, and the table marks
// the entry as reusable across lex states.
func leafReusable(tbl table.Table, st table.State, n *subtree.Subtree) bool {
	mode := tbl.LexMode(st)
	if mode.LexState == table.NoLexState {
		return false
	}
	if tbl.HasActions(st, n.Symbol) {
		if n.Symbol == tbl.KeywordCaptureToken() && n.ParseState != uint32(st) {
			return false
		}
		return true
	}
	if n.Footprint().Bytes > 0 && mode.ExternalLexState == 0 && tbl.IsReusableLeaf(st, n.Symbol) {
		return true
	}
	if n.Footprint().Bytes == 0 && n.Symbol == tbl.EOF() {
		return true
	}
	return false
}

// tokenFromSubtree adapts an already-built subtree into a lexer.Token, for
// the cursor-reuse path and the token-cache path.
func tokenFromSubtree(pool *subtree.Pool, id subtree.ID) *lexer.Token {
	n := pool.Get(id)
	return &lexer.Token{
		Symbol: n.Symbol, Padding: n.Padding, Size: n.Size,
		LookaheadBytes: n.LookaheadBytes, Lexeme: n.Lexeme,
		IsExternal: n.Flags.Has(subtree.FlagHasExternalTokens), External: n.ExternalScannerState,
	}
}

// Lookahead obtains the next token for a version, cheapest source first:
// a reusable leaf from the previous tree (only while a single version is
// live), then the one-slot token cache, then a fresh lex.
func (p *Parser) Lookahead(v *gss.Version, singleVersion bool) (*lexer.Token, subtree.ID, error) {
	st := v.State()

	if singleVersion && p.Cursor != nil {
		for p.Cursor.ByteOffset() < v.Position().Bytes {
			if !p.Cursor.Advance() {
				break
			}
		}
		cand := p.Cursor.Candidate()
		if cand != subtree.NullID && p.Cursor.Reusable(cand, v.Position(), v.LastExternalToken()) {
			n := p.Pool.Get(cand)
			if n.IsLeaf() && leafReusable(p.Lang.Table, st, n) {
				return tokenFromSubtree(p.Pool, cand), cand, nil
			}
		}
	}

	if tok, ok := p.Cache.Hit(v.Position().Bytes, v.LastExternalToken()); ok {
		candN := &subtree.Subtree{Symbol: tok.Symbol, Padding: tok.Padding, Size: tok.Size, LookaheadBytes: tok.LookaheadBytes}
		if tok.IsEOF || leafReusable(p.Lang.Table, st, candN) {
			return tok, subtree.NullID, nil
		}
	}

	es := v.ErrorStatus()
	outcome, err := p.Coord.Lex(p.Lang.Table, st, v.Position(), v.LastExternalToken(), es.IsInError, es.NodeCountSinceError > 0)
	if err != nil {
		return nil, subtree.NullID, err
	}
	tok := outcome.Token
	if !tok.IsEOF {
		p.Cache.Store(tok, v.Position().Bytes, v.LastExternalToken())
	}
	return tok, subtree.NullID, nil
}

// applyKeywordFallback rewrites a keyword lookahead to the grammar's
// default word token (bytes unchanged) when the keyword has no action in
// the current state, is not reserved there, and the word token has one.
func applyKeywordFallback(tbl table.Table, st table.State, tok *lexer.Token) {
	word := tbl.WordToken()
	if word < 0 || tok.Symbol == word || tok.IsEOF || tok.IsError {
		return
	}
	if tbl.HasActions(st, tok.Symbol) {
		return
	}
	if tbl.IsReservedWord(st, tok.Symbol) {
		return
	}
	if tbl.HasActions(st, word) {
		tok.Symbol = word
	}
}

// symbolFor turns a lookahead token into the symbol the table is
// consulted with, substituting the EOF symbol for the null lookahead.
func symbolFor(tbl table.Table, tok *lexer.Token) base.TokType {
	if tok.IsEOF {
		return tbl.EOF()
	}
	return tok.Symbol
}

// Step processes one version against the current lookahead. Actions are
// handled in table order: every Reduce forks a new version, while the
// first Shift, Accept or Recover ends the step for this version. If every
// action was a Reduce, the version's work lives on in the reduction
// products and the version itself is retired.
func (p *Parser) Step(v *gss.Version, active []*gss.Version, singleVersion bool) (accepted bool, err error) {
	tok, reusedID, lerr := p.Lookahead(v, singleVersion)
	if lerr != nil {
		return false, lerr
	}
	applyKeywordFallback(p.Lang.Table, v.State(), tok)
	symbol := symbolFor(p.Lang.Table, tok)

	actions := p.Lang.Table.Actions(v.State(), symbol)
	if len(actions) == 0 {
		return p.breakdownOrRecover(v, tok, active)
	}

	allReduce := true
	multiple := len(p.Root.ActiveVersions()) > 1

loop:
	for _, a := range actions {
		switch a.Kind {
		case table.Reduce:
			params := ReduceParams{
				Symbol: a.Symbol, Count: a.ChildCount, DynamicPrecedence: a.DynamicPrecedence,
				ProductionID: a.ProductionID, IsFragile: a.IsFragile,
				EndOfNonTerminalExtra: tok.IsEOF, IsRepetition: a.Repeated,
			}
			Reduce(p.Root, v, params, p.Lang.Table, p.Pool, multiple)
		case table.Shift:
			allReduce = false
			p.shift(v, a, tok, reusedID)
			break loop
		case table.Accept:
			allReduce = false
			p.accept(v)
			accepted = true
			break loop
		case table.Recover:
			allReduce = false
			p.Recover(v, tok)
			break loop
		}
	}
	if allReduce {
		v.Die()
	}
	return accepted, nil
}

// shift pushes the lookahead's subtree and advances the version.
func (p *Parser) shift(v *gss.Version, a table.Action, tok *lexer.Token, reusedID subtree.ID) {
	st := p.shiftSubtree(tok, reusedID)
	if a.IsExtra && reusedID == subtree.NullID {
		p.Pool.MarkExtra(st)
	}
	v.Push(a.NextState, tok.Symbol, st, p.Pool)
	p.Cache.Invalidate()
	if reusedID != subtree.NullID && p.Cursor != nil {
		p.Cursor.Advance()
	}
	if tok.IsExternal {
		v.SetLastExternalToken(tok.External)
	}
	es := v.ErrorStatus()
	if es.IsInError && a.NextState != table.ErrorState && !tok.IsError {
		es.IsInError = false
		es.NodeCountSinceError = 0
		v.SetErrorStatus(es)
	}
	tracer().Debugf("shift state:%d sym:%d", a.NextState, tok.Symbol)
}

// shiftSubtree builds (or reuses) the leaf subtree to push for a shift
// action.
func (p *Parser) shiftSubtree(tok *lexer.Token, reusedID subtree.ID) subtree.ID {
	if reusedID != subtree.NullID {
		return p.Pool.Retain(reusedID)
	}
	if tok.IsError {
		return p.Pool.NewErrorLeaf(tok.Symbol, tok.Padding, tok.Size, tok.Lexeme)
	}
	if tok.IsExternal {
		return p.Pool.NewExternalLeaf(tok.Symbol, tok.Padding, tok.Size, tok.LookaheadBytes, tok.Lexeme, tok.External)
	}
	return p.Pool.NewLeaf(tok.Symbol, tok.Padding, tok.Size, tok.LookaheadBytes, tok.Lexeme)
}

// breakdownOrRecover handles a version with no action for its lookahead.
// When reparsing, the stack top may be a whole subtree taken over from the
// previous tree whose interior the current parse now needs to see: pop it
// and re-push its children with their recorded states (falling back to the
// current state for error children or children without one), then retry.
// Otherwise hand the version to error recovery.
func (p *Parser) breakdownOrRecover(v *gss.Version, tok *lexer.Token, active []*gss.Version) (bool, error) {
	if p.Cursor != nil {
		if id, below, ok := v.PopTop(); ok {
			n := p.Pool.Get(id)
			if n != nil && !n.IsLeaf() && !n.Flags.Has(subtree.FlagError) {
				v.Reassign(below, v.Position().Sub(n.Footprint()))
				for _, c := range n.Children {
					cn := p.Pool.Get(c)
					st := table.State(cn.ParseState)
					if cn.ParseState == subtree.NoParseState || cn.Flags.Has(subtree.FlagError) {
						st = v.State()
					}
					p.Pool.Retain(c)
					v.Push(st, cn.Symbol, c, p.Pool)
				}
				p.Pool.Release(id)
				return p.Step(v, active, false)
			}
		}
	}
	p.Recover(v, tok)
	return false, nil
}

// accept pops the whole stack, folds trailing extras into the root, and
// installs the result as a finished-tree candidate, keeping the preferred
// tree if one already exists. The version is retired.
func (p *Parser) accept(v *gss.Version) {
	children := v.PopAll()
	core, extras := splitTrailingExtras(p.Pool, children)
	var root subtree.ID
	switch len(core) {
	case 0:
		root = subtree.NullID
	case 1:
		// The abandoned stack's reference moves to the finished tree.
		root = core[0]
	default:
		root = p.Pool.NewNode(-1, 0, core, 0, false)
	}
	for _, e := range extras {
		if root == subtree.NullID {
			root = e
			continue
		}
		root = foldExtraIntoRoot(p.Pool, root, e)
	}
	var cost int64
	if rn := p.Pool.Get(root); rn != nil {
		cost = rn.ErrorCost
	}
	if p.HasFinishedTree {
		chosen := SelectSubtree(p.Pool, p.FinishedTree, root, 0, 0)
		if chosen == root {
			p.Pool.Release(p.FinishedTree)
			p.FinishedTree, p.FinishedCost = root, cost
		} else {
			p.Pool.Release(root)
		}
	} else {
		p.FinishedTree, p.FinishedCost, p.HasFinishedTree = root, cost, true
	}
	tracer().Debugf("done version:%d cost:%d", v.ID(), cost)
	v.Die()
}

// foldExtraIntoRoot appends a trailing extra as one more child of root.
func foldExtraIntoRoot(pool *subtree.Pool, root, extra subtree.ID) subtree.ID {
	rn := pool.Get(root)
	children := append(append([]subtree.ID(nil), rn.Children...), extra)
	return pool.NewNode(rn.Symbol, rn.ProductionID, children, 0, false)
}
