package rebalance

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/subtree"
)

// buildWideNode builds one node with n leaf children, each leaf's
// RepeatDepth increasing left to right — the shape an EBNF repeat
// production (list: item+) compiled into a single reduce with a growing
// children array produces, and the shape the halving-sequence compression
// is built to flatten.
func buildWideNode(pool *subtree.Pool, symbol base.TokType, prodID uint32, n int) subtree.ID {
	children := make([]subtree.ID, n)
	for i := 0; i < n; i++ {
		children[i] = pool.NewLeaf(base.TokType(100+i), base.Length{}, base.Length{Bytes: 1}, 0, "x")
		pool.SetRepeatDepth(children[i], uint32(i))
	}
	node := pool.NewNode(symbol, prodID, children, 0, false)
	pool.SetRepeatDepth(node, uint32(n))
	return node
}

func TestRunFlattensWideSkewedNode(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.rebalance")
	defer teardown()

	pool := subtree.NewPool()
	const symbol base.TokType = 7
	root := buildWideNode(pool, symbol, 1, 9)
	originalChildCount := len(pool.Get(root).Children)

	wl := NewWorklist(root)
	newRoot := Run(pool, root, wl, 0)

	if !wl.Done() {
		t.Fatalf("Run with no budget should drain the worklist")
	}
	n := pool.Get(newRoot)
	if len(n.Children) >= originalChildCount {
		t.Fatalf("balanceChain should replace some trailing children with wrapped groups: before=%d after=%d",
			originalChildCount, len(n.Children))
	}
}

func TestRunRespectsBudgetAndResumes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.rebalance")
	defer teardown()

	pool := subtree.NewPool()
	root := buildWideNode(pool, base.TokType(7), 1, 7)

	wl := NewWorklist(root)
	Run(pool, root, wl, 1)
	if !wl.Canceled {
		t.Fatalf("a budget smaller than the worklist should report Canceled")
	}

	for !wl.Done() {
		Run(pool, root, wl, 1)
	}
}

func TestRunSkipsSharedNodes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.rebalance")
	defer teardown()

	pool := subtree.NewPool()
	root := buildWideNode(pool, base.TokType(7), 1, 9)
	pool.Retain(root) // simulate another owner, refcount now 2

	wl := NewWorklist(root)
	newRoot := Run(pool, root, wl, 0)
	if newRoot != root {
		t.Fatalf("a shared root must not be rewritten in place")
	}
	if len(pool.Get(root).Children) != 9 {
		t.Fatalf("a shared node's children must not be rewritten")
	}
}

func TestRunLeavesSmallNodeUntouched(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.rebalance")
	defer teardown()

	pool := subtree.NewPool()
	root := buildWideNode(pool, base.TokType(7), 1, 2)
	wl := NewWorklist(root)
	newRoot := Run(pool, root, wl, 0)
	if len(pool.Get(newRoot).Children) != 2 {
		t.Fatalf("a node with only 2 children has nothing to rebalance")
	}
}
