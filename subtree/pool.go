package subtree

import (
	"github.com/cnf/structhash"
	"github.com/npillmayer/glrts/base"
)

// Pool is the sole allocator and deallocator for Subtrees. It is not safe
// for concurrent use — the engine is strictly single-threaded per parser
// instance.
type Pool struct {
	nodes []Subtree // index 0 is reserved, never valid (NullID)
	free  []ID

	// dedup maps a structural signature (see signature()) to candidate
	// IDs sharing it, so that two stack versions reducing the same handle
	// converge on one retained subtree instead of building twins.
	dedup map[string][]ID
}

// NewPool creates an empty subtree pool.
func NewPool() *Pool {
	p := &Pool{
		nodes: make([]Subtree, 1, 256), // nodes[0] unused (NullID sentinel)
		dedup: make(map[string][]ID),
	}
	return p
}

// Get returns a read-only view of the subtree behind id. The returned
// pointer must not be mutated directly; use MakeMutable.
func (p *Pool) Get(id ID) *Subtree {
	if id == NullID {
		return nil
	}
	return &p.nodes[id]
}

func (p *Pool) alloc(s Subtree) ID {
	s.refcount = 1
	if len(p.free) > 0 {
		id := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		p.nodes[id] = s
		return id
	}
	p.nodes = append(p.nodes, s)
	return ID(len(p.nodes) - 1)
}

// Retain increments id's refcount and returns id, mirroring a clone that
// shares storage instead of copying it.
func (p *Pool) Retain(id ID) ID {
	if id == NullID {
		return NullID
	}
	p.nodes[id].refcount++
	return id
}

// Release decrements id's refcount, recursively releasing children and
// returning the node to the free list once the count reaches zero.
func (p *Pool) Release(id ID) {
	if id == NullID {
		return
	}
	n := &p.nodes[id]
	n.refcount--
	if n.refcount > 0 {
		return
	}
	if n.refcount < 0 {
		tracer().Errorf("subtree %d released more times than retained", id)
		return
	}
	children := n.Children
	*n = Subtree{}
	p.free = append(p.free, id)
	for _, c := range children {
		p.Release(c)
	}
}

// MakeMutable returns a handle to a node safe to mutate in place: if id's
// refcount is exactly 1 it is id itself (copy-on-write elided); otherwise a
// fresh clone is allocated, id is released, and the clone's ID is returned.
func (p *Pool) MakeMutable(id ID) ID {
	if id == NullID {
		return NullID
	}
	if p.nodes[id].refcount == 1 {
		return id
	}
	clone := p.nodes[id]
	for _, c := range clone.Children {
		p.Retain(c)
	}
	p.nodes[id].refcount--
	return p.alloc(clone)
}

// --- Constructors -----------------------------------------------------

// NewLeaf creates a leaf subtree from a lexed token.
func (p *Pool) NewLeaf(symbol base.TokType, padding, size base.Length, lookaheadBytes uint32, lexeme string) ID {
	return p.alloc(Subtree{
		Symbol:         symbol,
		Padding:        padding,
		Size:           size,
		LookaheadBytes: lookaheadBytes,
		ParseState:     NoParseState,
		Lexeme:         lexeme,
	})
}

// NewExternalLeaf creates a leaf produced by the external scanner,
// carrying its serialized state alongside it.
func (p *Pool) NewExternalLeaf(symbol base.TokType, padding, size base.Length, lookaheadBytes uint32, lexeme string, state []byte) ID {
	id := p.NewLeaf(symbol, padding, size, lookaheadBytes, lexeme)
	n := &p.nodes[id]
	n.Flags = n.Flags.Set(FlagHasExternalTokens)
	n.ExternalScannerState = state
	return id
}

// NewErrorLeaf wraps a span of unrecognized bytes as an error leaf.
func (p *Pool) NewErrorLeaf(symbol base.TokType, padding, size base.Length, lexeme string) ID {
	id := p.NewLeaf(symbol, padding, size, 0, lexeme)
	n := &p.nodes[id]
	n.Flags = n.Flags.Set(FlagError)
	n.ErrorCost = base.ErrorCostPerSkippedTree +
		base.ErrorCostPerSkippedChar*int64(size.Bytes) +
		base.ErrorCostPerSkippedLine*int64(size.Row)
	return id
}

// NewMissingLeaf creates a zero-size leaf standing in for a token the
// driver decided to insert.
func (p *Pool) NewMissingLeaf(symbol base.TokType, padding base.Length) ID {
	id := p.alloc(Subtree{
		Symbol:     symbol,
		Padding:    padding,
		ParseState: NoParseState,
		ErrorCost:  base.ErrorCostPerSkippedTree,
	})
	n := &p.nodes[id]
	n.Flags = n.Flags.Set(FlagMissing)
	return id
}

// wrapSkipCost is the penalty a subtree contributes once it ends up inside
// an error wrapper: a node that already carries error cost keeps it, an
// otherwise healthy node is charged as skipped input.
func wrapSkipCost(n *Subtree) int64 {
	if n.ErrorCost > 0 {
		return n.ErrorCost
	}
	return base.ErrorCostPerSkippedTree +
		base.ErrorCostPerSkippedChar*int64(n.Size.Bytes) +
		base.ErrorCostPerSkippedLine*int64(n.Size.Row)
}

// NewErrorNode wraps an arbitrary set of children (already-built subtrees,
// e.g. the remainder of a stack on recovery) into a single ERROR node. The
// node is marked extra so later reductions pass over it when counting
// production children.
func (p *Pool) NewErrorNode(children []ID) ID {
	id := p.newInternalNode(-1, 0, children, false)
	n := &p.nodes[id]
	n.Flags = n.Flags.Set(FlagError).Set(FlagExtra)
	var cost int64
	for _, c := range children {
		cost += wrapSkipCost(&p.nodes[c])
	}
	n.ErrorCost = cost
	return id
}

// NewErrorRepeatNode wraps a single skipped lookahead in an ERROR_REPEAT
// node, or folds it into an existing ERROR_REPEAT top-of-stack node.
func (p *Pool) NewErrorRepeatNode(existing ID, skipped ID) ID {
	if existing != NullID && p.nodes[existing].Flags.Has(FlagError) && p.nodes[existing].ProductionID == errorRepeatMarker {
		id := p.MakeMutable(existing)
		n := &p.nodes[id]
		n.Children = append(n.Children, skipped)
		n.Size = n.Size.Add(p.nodes[skipped].Footprint())
		n.ErrorCost += wrapSkipCost(&p.nodes[skipped])
		return id
	}
	id := p.newInternalNode(-1, 0, []ID{skipped}, false)
	n := &p.nodes[id]
	n.Flags = n.Flags.Set(FlagError).Set(FlagExtra)
	n.ProductionID = errorRepeatMarker
	n.ErrorCost = wrapSkipCost(&p.nodes[skipped])
	return id
}

// errorRepeatMarker distinguishes an ERROR_REPEAT node from a plain ERROR
// node; both share FlagError, but only an ERROR_REPEAT (a left-recursive
// chain of skipped lookaheads) accepts folding further skips in.
const errorRepeatMarker uint32 = ^uint32(0)

// IsErrorRepeat reports whether id is an ERROR_REPEAT node, i.e. a chain
// of skipped lookaheads that further skips may be folded into.
func (p *Pool) IsErrorRepeat(id ID) bool {
	if id == NullID {
		return false
	}
	n := &p.nodes[id]
	return n.Flags.Has(FlagError) && n.ProductionID == errorRepeatMarker
}

// NewNode constructs a parent over children for a reduction.
// dynamicPrecedence is the production's own contribution; the children's
// contributions are summed in automatically. The node takes ownership of
// one reference per child: a caller sharing a child with another parent
// must Retain it first. When an identical node already exists the new one
// is discarded (releasing the handed-over child references) and the
// existing node is retained instead.
func (p *Pool) NewNode(symbol base.TokType, productionID uint32, children []ID, dynamicPrecedence int32, fragile bool) ID {
	id := p.newInternalNode(symbol, productionID, children, fragile)
	n := &p.nodes[id]
	n.DynamicPrecedence += dynamicPrecedence
	if shared := p.findShared(id); shared != NullID {
		p.Release(id)
		return p.Retain(shared)
	}
	p.remember(id)
	return id
}

func (p *Pool) newInternalNode(symbol base.TokType, productionID uint32, children []ID, fragile bool) ID {
	var padding, size base.Length
	var dynPrec int32
	var errCost int64
	var flags Flags
	if len(children) > 0 {
		padding = p.nodes[children[0]].Padding
		size = p.nodes[children[0]].Size
		for i, c := range children {
			cn := &p.nodes[c]
			dynPrec += cn.DynamicPrecedence
			errCost += cn.ErrorCost
			if i > 0 {
				size = size.Add(cn.Padding).Add(cn.Size)
			}
		}
	}
	id := p.alloc(Subtree{
		Symbol:            symbol,
		Children:          append([]ID(nil), children...),
		Padding:           padding,
		Size:              size,
		ParseState:        NoParseState,
		ProductionID:      productionID,
		DynamicPrecedence: dynPrec,
		ErrorCost:         errCost,
	})
	if fragile {
		flags = flags.Set(FlagFragileLeft).Set(FlagFragileRight).Set(FlagFragile)
	}
	p.nodes[id].Flags = flags
	return id
}

// signature computes a structural fingerprint over a node's symbol,
// production, extent and its children's identities, giving the dedup map a
// cheap candidate-lookup key.
func (p *Pool) signature(n *Subtree) string {
	key := struct {
		Symbol  base.TokType
		Prod    uint32
		Padding base.Length
		Size    base.Length
		Kids    []ID
	}{n.Symbol, n.ProductionID, n.Padding, n.Size, n.Children}
	hash, err := structhash.Hash(key, 1)
	if err != nil {
		tracer().Errorf("structhash failed: %v", err)
		return ""
	}
	return hash
}

func (p *Pool) findShared(id ID) ID {
	n := &p.nodes[id]
	sig := p.signature(n)
	if sig == "" {
		return NullID
	}
	for _, cand := range p.dedup[sig] {
		if cand == id {
			continue
		}
		if p.structurallyEqual(cand, id) {
			return cand
		}
	}
	return NullID
}

func (p *Pool) remember(id ID) {
	n := &p.nodes[id]
	sig := p.signature(n)
	if sig == "" {
		return
	}
	p.dedup[sig] = append(p.dedup[sig], id)
}

func (p *Pool) structurallyEqual(a, b ID) bool {
	na, nb := &p.nodes[a], &p.nodes[b]
	if na.Symbol != nb.Symbol || na.ProductionID != nb.ProductionID {
		return false
	}
	if na.Padding != nb.Padding || na.Size != nb.Size {
		return false
	}
	if len(na.Children) != len(nb.Children) {
		return false
	}
	for i := range na.Children {
		if na.Children[i] != nb.Children[i] {
			return false
		}
	}
	return true
}

// MarkExtra sets FlagExtra on id in place, used by a reduction that ends a
// non-terminal-extra cycle. Callers must pass a freshly-constructed id
// (refcount 1, not yet shared) since this mutates without going through
// MakeMutable's clone path.
func (p *Pool) MarkExtra(id ID) {
	p.nodes[id].Flags = p.nodes[id].Flags.Set(FlagExtra)
}

// SetFragile marks id fragile on both sides and clears its ParseState to
// NoParseState.
func (p *Pool) SetFragile(id ID) {
	n := &p.nodes[id]
	n.Flags = n.Flags.Set(FlagFragileLeft).Set(FlagFragileRight).Set(FlagFragile)
	n.ParseState = NoParseState
}

// SetRepeatDepth records the repetition nesting depth of a node produced
// by a repeat production.
func (p *Pool) SetRepeatDepth(id ID, depth uint32) {
	p.nodes[id].RepeatDepth = depth
}

// SetParseState records the state a node's production was reduced in.
func (p *Pool) SetParseState(id ID, state uint32) {
	p.nodes[id].ParseState = state
}

// Forget drops id from the dedup index without releasing it; used when a
// caller knows a node will never be a valid sharing candidate again (e.g.
// it is about to be mutated via MakeMutable).
func (p *Pool) Forget(id ID) {
	n := &p.nodes[id]
	sig := p.signature(n)
	if sig == "" {
		return
	}
	cands := p.dedup[sig]
	for i, c := range cands {
		if c == id {
			p.dedup[sig] = append(cands[:i], cands[i+1:]...)
			return
		}
	}
}
