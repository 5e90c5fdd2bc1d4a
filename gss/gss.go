/*
Package gss implements the graph-structured stack (GSS): the data
structure that lets a GLR-style driver keep several parse branches
("versions") alive at once, sharing common prefixes and merging back
together when two branches reach the same parser state.

The graph is a DAG of frames, each holding an LR state and edges pointing
backwards towards the bottom of the stack. Frames are shared only by Push:
when, while consuming the same token, two versions push the same subtree
under the same symbol from the same frame into the same state, they end up
on one frame. Frames created by NewFrameAt (reductions, recovery) are never
shared. On top of the raw graph this package carries the
per-version bookkeeping error recovery needs: an ErrorStatus, a
depth-capped summary of recently visited states, and pause/resume.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package gss

import (
	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/subtree"
	"github.com/npillmayer/glrts/table"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'glrts.gss'.
func tracer() tracing.Trace {
	return tracing.Select("glrts.gss")
}

// Frame is a single node of the graph-structured stack: an LR state plus
// its out-edges to predecessor frames. Push and NewFrameAt give every new
// frame exactly one out-edge; the pop routines still follow every edge a
// frame holds.
type Frame struct {
	id             int
	State          table.State
	preds          []*edge
	successorCount int // how many frames point to this one as a predecessor
}

// edge is labelled with the symbol/subtree that was shifted or reduced to
// reach the predecessor frame — i.e. an edge of the GSS points *backwards*
// (towards the bottom of the stack), carrying the tree fragment that sits
// between the two states. Extra subtrees (trivia, error wrappers) do not
// count towards a reduction's child count when popped.
type edge struct {
	to      *Frame
	symbol  base.TokType
	subtree subtree.ID
	isExtra bool
}

// pathcnt is the number of distinct predecessor edges reaching this frame
// (an "inverse join" when > 1).
func (f *Frame) pathcnt() int { return len(f.preds) }

// IsInverseJoin reports whether this frame merges more than one
// predecessor path.
func (f *Frame) IsInverseJoin() bool { return len(f.preds) > 1 }

// PredecessorCount returns the number of predecessor edges.
func (f *Frame) PredecessorCount() int { return len(f.preds) }

// IsInverseFork reports whether this frame's sole predecessor edge is
// itself shared by more than one successor frame, i.e. the stack forked
// below this point.
func (f *Frame) IsInverseFork() bool {
	if len(f.preds) != 1 {
		return false
	}
	return f.preds[0].to.successorCount > 1
}

// Root owns the GSS arena for one parse. Create with NewRoot; drop (and
// create a fresh one) for each new top-level parse.
type Root struct {
	name     string
	nullVal  int
	frames   []*Frame                 // arena, ID == index
	frontier map[table.State][]*Frame // same-step merge cache, see BeginStep
	versions []*Version
	nextVID  int
}

// NewRoot creates an empty GSS arena.
func NewRoot(name string, nullValue int) *Root {
	return &Root{
		name:     name,
		nullVal:  nullValue,
		frontier: make(map[table.State][]*Frame),
	}
}

func (r *Root) newFrame(state table.State) *Frame {
	f := &Frame{id: len(r.frames), State: state}
	r.frames = append(r.frames, f)
	return f
}

// NewVersion starts a fresh parse branch at the grammar's start state.
func (r *Root) NewVersion(start table.State) *Version {
	f := r.newFrame(start)
	v := &Version{id: r.nextVID, root: r, top: f}
	r.nextVID++
	r.versions = append(r.versions, v)
	return v
}

// ActiveVersions returns every version that is neither halted nor paused —
// the set the driver iterates each step.
func (r *Root) ActiveVersions() []*Version {
	out := make([]*Version, 0, len(r.versions))
	for _, v := range r.versions {
		if !v.halted && !v.paused {
			out = append(out, v)
		}
	}
	return out
}

// PausedVersions returns every paused version.
func (r *Root) PausedVersions() []*Version {
	out := make([]*Version, 0)
	for _, v := range r.versions {
		if v.paused {
			out = append(out, v)
		}
	}
	return out
}

// AllVersions returns every still-registered version (including halted) —
// used by condense to rebuild the live set.
func (r *Root) AllVersions() []*Version {
	return r.versions
}

// SetVersions replaces the root's live version list, used by condense
// after pruning/merging.
func (r *Root) SetVersions(vs []*Version) {
	r.versions = vs
}

// BeginStep clears the same-step merge cache. The driver calls this once
// per lookahead/token, before processing any version, so that two stacks
// shifting or reducing into the same state only merge frames created while
// consuming the *same* token.
func (r *Root) BeginStep() {
	r.frontier = make(map[table.State][]*Frame)
}

// Fork duplicates a version's top-of-stack handle so the caller can send
// it down two different action paths (shift vs. reduce on a shift/reduce
// conflict).
func (v *Version) Fork() *Version {
	nv := &Version{
		id:                v.root.nextVID,
		root:              v.root,
		top:               v.top,
		position:          v.position,
		errorStatus:       v.errorStatus,
		lastExternalToken: v.lastExternalToken,
	}
	nv.summary = append([]SummaryEntry(nil), v.summary...)
	v.root.nextVID++
	v.root.versions = append(v.root.versions, nv)
	return nv
}

// Die marks a version halted: ActiveVersions skips it and the next
// condense drops it. The driver uses it for stuck versions, for versions
// retired after their reductions or an accept, and for pruned versions.
func (v *Version) Die() {
	v.halted = true
}

// NumFrames reports the arena size, for tests and DOT dumps.
func (r *Root) NumFrames() int { return len(r.frames) }

// SolePredecessorSubtree returns the subtree carried by f's single
// predecessor edge — the "current top of stack" subtree. The second return
// value is false at a join (more than one predecessor, or none at the GSS
// root), where there is no single top subtree.
func (f *Frame) SolePredecessorSubtree() (subtree.ID, bool) {
	if len(f.preds) != 1 {
		return subtree.NullID, false
	}
	return f.preds[0].subtree, true
}

// ReplaceSolePredecessorSubtree swaps the subtree carried by f's single
// predecessor edge, used when a merge decides the incoming version's tree
// arrangement is preferable to the one already on the stack.
func (f *Frame) ReplaceSolePredecessorSubtree(st subtree.ID) bool {
	if len(f.preds) != 1 {
		return false
	}
	f.preds[0].subtree = st
	return true
}
