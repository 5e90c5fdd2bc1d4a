package gss

import (
	"testing"

	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/subtree"
	"github.com/npillmayer/glrts/table"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestPushAdvancesPositionAndRecordsSummary(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.gss")
	defer teardown()

	pool := subtree.NewPool()
	root := NewRoot("G", -1)
	v := root.NewVersion(table.State(1))
	leaf := pool.NewLeaf(base.TokType(5), base.Length{}, base.Length{Bytes: 2}, 0, "ab")

	root.BeginStep()
	v.Push(table.State(2), base.TokType(5), leaf, pool)

	if v.State() != table.State(2) {
		t.Fatalf("State() = %v, want 2", v.State())
	}
	if v.Position().Bytes != 2 {
		t.Fatalf("Position().Bytes = %d, want 2", v.Position().Bytes)
	}
	if len(v.Summary()) != 1 {
		t.Fatalf("expected one summary entry after one push, got %d", len(v.Summary()))
	}
}

func TestPushMergesSameStepFrontier(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.gss")
	defer teardown()

	pool := subtree.NewPool()
	root := NewRoot("G", -1)
	v1 := root.NewVersion(table.State(1))
	v2 := v1.Fork()

	leaf := pool.NewLeaf(base.TokType(5), base.Length{}, base.Length{Bytes: 1}, 0, "a")

	root.BeginStep()
	v1.Push(table.State(9), base.TokType(5), leaf, pool)
	v2.Push(table.State(9), base.TokType(5), leaf, pool)

	if v1.Top() != v2.Top() {
		t.Fatalf("two versions shifting the same symbol into the same state during one step should share a frame")
	}
	if root.NumFrames() != 2 {
		t.Fatalf("expected exactly 2 frames (start + merged shift target), got %d", root.NumFrames())
	}
}

func TestPopByCountAndReduce(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.gss")
	defer teardown()

	pool := subtree.NewPool()
	root := NewRoot("G", -1)
	v := root.NewVersion(table.State(1))

	a := pool.NewLeaf(base.TokType(1), base.Length{}, base.Length{Bytes: 1}, 0, "a")
	b := pool.NewLeaf(base.TokType(2), base.Length{}, base.Length{Bytes: 1}, 0, "b")

	root.BeginStep()
	v.Push(table.State(2), base.TokType(1), a, pool)
	v.Push(table.State(3), base.TokType(2), b, pool)

	slices := v.PopByCount(2)
	if len(slices) != 1 {
		t.Fatalf("expected exactly one pop path for a linear stack, got %d", len(slices))
	}
	got := slices[0].Children
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("PopByCount should return children in left-to-right order, got %v", got)
	}
	if slices[0].Origin.State != table.State(1) {
		t.Fatalf("origin frame should be the state before both pushes, got %v", slices[0].Origin.State)
	}
}

func TestMergeRequiresSameStateAndPosition(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.gss")
	defer teardown()

	pool := subtree.NewPool()
	root := NewRoot("G", -1)
	v1 := root.NewVersion(table.State(1))
	v2 := v1.Fork()

	leaf := pool.NewLeaf(base.TokType(1), base.Length{}, base.Length{Bytes: 1}, 0, "a")
	root.BeginStep()
	v1.Push(table.State(2), base.TokType(1), leaf, pool)
	v2.Push(table.State(2), base.TokType(1), leaf, pool)

	if !v1.Merge(v2) {
		t.Fatalf("versions at the same (state, position) should merge")
	}
	if !v2.IsHalted() {
		t.Fatalf("the merged-away version should be halted")
	}
}

func TestPauseResumeRecordsCost(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.gss")
	defer teardown()

	root := NewRoot("G", -1)
	v := root.NewVersion(table.State(1))
	before := v.ErrorStatus().Cost

	v.Pause("lookahead")
	if !v.IsPaused() {
		t.Fatalf("Pause should mark the version paused")
	}
	if v.ErrorStatus().Cost <= before {
		t.Fatalf("Pause should add to the error cost")
	}

	got := v.Resume()
	if got != "lookahead" {
		t.Fatalf("Resume should hand back the paused lookahead, got %v", got)
	}
	if v.IsPaused() {
		t.Fatalf("Resume should clear paused")
	}
}
