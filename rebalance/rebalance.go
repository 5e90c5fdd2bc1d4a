/*
Package rebalance implements the post-parse pass that flattens
right-skewed repetition chains, so a tree built incrementally (where new
items tend to get appended to the right) doesn't degrade into a linked
list with O(n) access to its own leaves.

The pass is driven by an explicit worklist rather than recursion: it must
be interruptible by cooperative cancellation and resumable on the next
parse call, so its state lives on the parser, not on the call stack.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package rebalance

import (
	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/subtree"
)

// Worklist is the resumable state of one rebalance pass.
type Worklist struct {
	pending  []subtree.ID
	Canceled bool
}

// NewWorklist seeds a fresh pass starting at root.
func NewWorklist(root subtree.ID) *Worklist {
	return &Worklist{pending: []subtree.ID{root}}
}

// Done reports whether the pass has exhausted its worklist.
func (w *Worklist) Done() bool { return len(w.pending) == 0 }

// Run drives the pass until the worklist drains or budget operations have
// been spent, whichever comes first; budget<=0 means "run to completion".
// Only nodes owned exclusively (refcount 1) are rewritten; shared nodes
// are left alone, since another tree still depends on their shape.
// It returns the (possibly-rewritten) root id.
func Run(pool *subtree.Pool, root subtree.ID, w *Worklist, budget int) subtree.ID {
	newRoot := root
	ops := 0
	for len(w.pending) > 0 {
		if budget > 0 && ops >= budget {
			w.Canceled = true
			return newRoot
		}
		id := w.pending[len(w.pending)-1]
		w.pending = w.pending[:len(w.pending)-1]
		ops++

		n := pool.Get(id)
		if n == nil || n.RefCount() != 1 || n.IsLeaf() {
			continue
		}
		if n.RepeatDepth > 0 {
			rebalanceNode(pool, id)
		}
		n = pool.Get(id)
		for _, c := range n.Children {
			if pool.Get(c).RefCount() == 1 {
				w.pending = append(w.pending, c)
			}
		}
	}
	w.Canceled = false
	return newRoot
}

// rebalanceNode compares the first and last child's repeat depths; a
// positive delta means the repetition leans right, and the children are
// regrouped by a halving sequence of structural compressions
// (i = n/2; n -= i; i /= 2; …).
func rebalanceNode(pool *subtree.Pool, id subtree.ID) {
	n := pool.Get(id)
	children := n.Children
	if len(children) < 2 {
		return
	}
	first := pool.Get(children[0]).RepeatDepth
	last := pool.Get(children[len(children)-1]).RepeatDepth
	delta := int64(last) - int64(first)
	if delta <= 0 {
		return
	}
	symbol, prodID := n.Symbol, n.ProductionID
	newChildren := balanceChain(pool, symbol, prodID, children)
	mutID := pool.MakeMutable(id)
	m := pool.Get(mutID)
	m.Children = newChildren
	if len(newChildren) > 0 {
		m.RepeatDepth = pool.Get(newChildren[len(newChildren)-1]).RepeatDepth + 1
	}
}

// balanceChain regroups a right-skewed children slice: starting from the
// full slice, repeatedly peel off the second half, wrap it into its own
// node of the same symbol/production, and continue on what remains, until
// the remaining prefix is small enough (<=2) to stay flat — producing a
// chain of roughly-halved groups instead of one long right-leaning spine.
func balanceChain(pool *subtree.Pool, symbol base.TokType, prodID uint32, children []subtree.ID) []subtree.ID {
	n := len(children)
	i := n / 2
	if i == 0 {
		return children
	}
	var out []subtree.ID
	for n > 2 {
		tail := children[n-i:]
		wrapped := pool.NewNode(symbol, prodID, tail, 0, false)
		pool.SetRepeatDepth(wrapped, depthOf(pool, tail))
		out = append([]subtree.ID{wrapped}, out...)
		children = children[:n-i]
		n -= i
		i /= 2
		if i == 0 {
			i = 1
		}
	}
	return append(append([]subtree.ID(nil), children...), out...)
}

func depthOf(pool *subtree.Pool, children []subtree.ID) uint32 {
	var max uint32
	for _, c := range children {
		if d := pool.Get(c).RepeatDepth; d > max {
			max = d
		}
	}
	return max + 1
}
