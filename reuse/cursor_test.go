package reuse

import (
	"testing"

	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/subtree"
)

// buildTree builds: root(a, b, c) where each child is a 2-byte leaf.
func buildTree(pool *subtree.Pool) (root, a, b, c subtree.ID) {
	a = pool.NewLeaf(base.TokType(1), base.Length{}, base.Length{Bytes: 2}, 0, "aa")
	b = pool.NewLeaf(base.TokType(2), base.Length{}, base.Length{Bytes: 2}, 0, "bb")
	c = pool.NewLeaf(base.TokType(3), base.Length{}, base.Length{Bytes: 2}, 0, "cc")
	root = pool.NewNode(base.TokType(10), 1, []subtree.ID{a, b, c}, 0, false)
	return
}

func TestCandidateDescendsZeroPaddingNodes(t *testing.T) {
	pool := subtree.NewPool()
	root, a, _, _ := buildTree(pool)

	cur := NewCursor(pool, root, nil)
	if got := cur.Candidate(); got != a {
		t.Fatalf("Candidate should descend through the zero-padding root to its first leaf, got %v want %v", got, a)
	}
}

func TestAdvanceWalksSiblingsInOrder(t *testing.T) {
	pool := subtree.NewPool()
	root, a, b, c := buildTree(pool)
	cur := NewCursor(pool, root, nil)

	if got := cur.Candidate(); got != a {
		t.Fatalf("first candidate = %v, want %v", got, a)
	}
	if !cur.Advance() {
		t.Fatalf("Advance should find a next node after the first leaf")
	}
	if got := cur.Candidate(); got != b {
		t.Fatalf("second candidate = %v, want %v", got, b)
	}
	if cur.ByteOffset() != 2 {
		t.Fatalf("ByteOffset after one advance = %d, want 2", cur.ByteOffset())
	}

	if !cur.Advance() {
		t.Fatalf("Advance should find a third node")
	}
	if got := cur.Candidate(); got != c {
		t.Fatalf("third candidate = %v, want %v", got, c)
	}

	if cur.Advance() {
		t.Fatalf("Advance should report false once the tree is exhausted")
	}
}

func TestReusableRejectsPositionMismatch(t *testing.T) {
	pool := subtree.NewPool()
	root, _, _, _ := buildTree(pool)
	cur := NewCursor(pool, root, nil)
	cand := cur.Candidate()

	if !cur.Reusable(cand, base.Length{Bytes: 0}, nil) {
		t.Fatalf("candidate at offset 0 should be reusable at position 0")
	}
	if cur.Reusable(cand, base.Length{Bytes: 5}, nil) {
		t.Fatalf("candidate at offset 0 must not be reusable at a mismatched position")
	}
}

func TestReusableRejectsErrorAndMissingFlags(t *testing.T) {
	pool := subtree.NewPool()
	errLeaf := pool.NewErrorLeaf(base.TokType(-1), base.Length{}, base.Length{Bytes: 1}, "?")
	cur := NewCursor(pool, errLeaf, nil)
	cand := cur.Candidate()
	if cur.Reusable(cand, base.Length{Bytes: 0}, nil) {
		t.Fatalf("an error leaf must never be reported reusable")
	}

	missing := pool.NewMissingLeaf(base.TokType(2), base.Length{})
	cur2 := NewCursor(pool, missing, nil)
	cand2 := cur2.Candidate()
	if cur2.Reusable(cand2, base.Length{Bytes: 0}, nil) {
		t.Fatalf("a missing leaf must never be reported reusable")
	}
}

func TestResetRepositionsCursor(t *testing.T) {
	pool := subtree.NewPool()
	root, a, _, _ := buildTree(pool)
	cur := NewCursor(pool, root, nil)
	cur.Advance()
	cur.Advance()

	cur.Reset(root)
	if cur.ByteOffset() != 0 {
		t.Fatalf("Reset should zero the byte offset, got %d", cur.ByteOffset())
	}
	if got := cur.Candidate(); got != a {
		t.Fatalf("Reset should reposition at the first leaf, got %v want %v", got, a)
	}
}

func TestReusableRejectsChangedRangeOverlap(t *testing.T) {
	pool := subtree.NewPool()
	root, a, _, _ := buildTree(pool)

	cur := NewCursor(pool, root, []base.Span{{3, 5}})
	cand := cur.Candidate()
	if cand != a {
		t.Fatalf("first candidate should be the first leaf")
	}
	// The first leaf spans [0,2) and stays clear of the changed span.
	if !cur.Reusable(cand, base.Length{}, nil) {
		t.Fatalf("a leaf outside every changed span should stay reusable")
	}
	cur.Advance()
	// The second leaf spans [2,4) and crosses into the changed span.
	if cur.Reusable(cur.Candidate(), base.Length{Bytes: 2}, nil) {
		t.Fatalf("a leaf overlapping a changed included-range span must not be reusable")
	}
}
