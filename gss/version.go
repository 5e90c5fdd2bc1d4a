package gss

import (
	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/subtree"
	"github.com/npillmayer/glrts/table"
)

// MaxSummaryDepth caps how many (state, depth, position) triples a version
// remembers for snap-back recovery.
const MaxSummaryDepth = 16

// Limits on concurrent parse branches. A transient overflow of
// MaxVersionCountOverflow is tolerated inside a reduce; condense trims back
// to MaxVersionCount.
const (
	MaxVersionCount         = 6
	MaxVersionCountOverflow = 4
	OpCountPerTimeoutCheck  = 100
)

// SummaryEntry is one (state, depth, position) triple recorded while a
// version advances, used for snap-back recovery: popping Depth subtrees
// from the top lands back on a frame with State at Position.
type SummaryEntry struct {
	State    table.State
	Depth    uint32 // how many subtrees sit between this entry and the top
	Position base.Length
}

// ErrorStatus is the per-version error bookkeeping used solely for version
// comparison.
type ErrorStatus struct {
	Cost                int64
	NodeCountSinceError uint32
	DynamicPrecedence   int32
	IsInError           bool
}

// Version is a handle into the GSS identifying one parse branch. It
// carries a current state, a position, an error cost, a dynamic-precedence
// sum and a depth-capped summary of recently visited states.
type Version struct {
	id   int
	root *Root
	top  *Frame

	position base.Length

	errorStatus ErrorStatus
	summary     []SummaryEntry

	// lastExternalToken is the serialized external-scanner state attached
	// to the most recently consumed token, or nil.
	lastExternalToken []byte

	halted bool
	paused bool

	// pausedLookahead is the lookahead this version held when it was
	// paused; Resume hands it back to the driver.
	pausedLookahead interface{}
}

// ID returns the version's identity, stable across Fork/merge until it is
// removed by condense.
func (v *Version) ID() int { return v.id }

// State returns the version's current top-of-stack state.
func (v *Version) State() table.State { return v.top.State }

// Position returns the version's current byte/row/column position.
func (v *Version) Position() base.Length { return v.position }

// ErrorStatus returns a copy of the version's error bookkeeping.
func (v *Version) ErrorStatus() ErrorStatus { return v.errorStatus }

// SetErrorStatus overwrites the version's error bookkeeping (used by the
// driver when folding recovery cost into a version).
func (v *Version) SetErrorStatus(es ErrorStatus) { v.errorStatus = es }

// LastExternalToken returns the serialized external-scanner state carried
// by the version's most recent token.
func (v *Version) LastExternalToken() []byte { return v.lastExternalToken }

// SetLastExternalToken records the external-scanner state of the token
// just consumed.
func (v *Version) SetLastExternalToken(state []byte) { v.lastExternalToken = state }

// IsHalted reports whether the version has died or been folded into a
// merge.
func (v *Version) IsHalted() bool { return v.halted }

// IsPaused reports whether the version is waiting for error recovery.
func (v *Version) IsPaused() bool { return v.paused }

// Pause suspends the version, storing the lookahead it could not consume.
// Every paused version carries a flat cost penalty, so a branch cannot
// dodge comparison by stalling.
func (v *Version) Pause(lookahead interface{}) {
	v.paused = true
	v.pausedLookahead = lookahead
	v.errorStatus.Cost += base.ErrorCostPerSkippedTree
}

// Resume reactivates a paused version, returning the lookahead it was
// holding when paused.
func (v *Version) Resume() interface{} {
	v.paused = false
	lookahead := v.pausedLookahead
	v.pausedLookahead = nil
	return lookahead
}

// recordSummary ages every existing entry one step further from the top
// and appends a fresh one for the state/position the version just left,
// discarding the oldest entry once MaxSummaryDepth is reached.
// state/pos describe the frame the version was AT before this push, since
// that is the frame a snap-back would return to.
func (v *Version) recordSummary(state table.State, pos base.Length) {
	for i := range v.summary {
		v.summary[i].Depth++
	}
	e := SummaryEntry{State: state, Depth: 1, Position: pos}
	if len(v.summary) >= MaxSummaryDepth {
		copy(v.summary, v.summary[1:])
		v.summary[len(v.summary)-1] = e
		return
	}
	v.summary = append(v.summary, e)
}

// Summary returns the version's depth-capped recovery summary, most recent
// last.
func (v *Version) Summary() []SummaryEntry { return append([]SummaryEntry(nil), v.summary...) }

// --- Push / Pop / Reduce ------------------------------------------------

// Push shifts a subtree onto the version's stack, landing in nextState,
// and advances the version's position by the subtree's footprint.
// Same-step sharing is resolved against the root's frontier: a version
// reuses a frame created during the *same* token only when that frame's
// edge has the same predecessor frame, symbol and subtree.
func (v *Version) Push(nextState table.State, symbol base.TokType, st subtree.ID, pool *subtree.Pool) {
	prevState, prevPos := v.top.State, v.position
	isExtra := false
	if pool != nil {
		if sub := pool.Get(st); sub != nil {
			v.position = v.position.Add(sub.Footprint())
			isExtra = sub.Flags.Has(subtree.FlagExtra)
		}
	}
	candidates := v.root.frontier[nextState]
	for _, f := range candidates {
		for _, e := range f.preds {
			if e.to == v.top && e.symbol == symbol && e.subtree == st {
				v.top = f
				v.recordSummary(prevState, prevPos)
				return
			}
		}
	}
	f := v.root.newFrame(nextState)
	f.preds = append(f.preds, &edge{to: v.top, symbol: symbol, subtree: st, isExtra: isExtra})
	v.top.successorCount++
	v.root.frontier[nextState] = append(candidates, f)
	v.top = f
	v.recordSummary(prevState, prevPos)
}

// Slice is one pop-path result: the sequence of subtrees popped (in
// left-to-right order, i.e. Children[0] is the deepest popped node) plus
// the frame the pop landed on (the origin for a subsequent reduce).
type Slice struct {
	Children []subtree.ID
	Origin   *Frame
}

// PopByCount walks back from v.top until count non-extra subtrees have
// been collected, following every distinct predecessor path — a pop can
// yield several slices when earlier merges created joins. Extra subtrees
// (trivia, error wrappers) are popped along the way and included in the
// slice but do not consume the count.
func (v *Version) PopByCount(count uint32) []Slice {
	if count == 0 {
		return []Slice{{Origin: v.top}}
	}
	return popPaths(v.top, int(count), nil)
}

func popPaths(f *Frame, remaining int, acc []subtree.ID) []Slice {
	if remaining <= 0 {
		return []Slice{{Children: append([]subtree.ID(nil), acc...), Origin: f}}
	}
	var out []Slice
	for _, e := range f.preds {
		next := append([]subtree.ID{e.subtree}, acc...)
		nr := remaining
		if !e.isExtra {
			nr--
		}
		out = append(out, popPaths(e.to, nr, next)...)
	}
	return out
}

// PopByDepth walks exactly depth edges back from v.top, following every
// distinct predecessor path. Unlike PopByCount, extra subtrees consume
// depth too: the depth recorded in a recovery summary counts pushes, not
// production children.
func (v *Version) PopByDepth(depth uint32) []Slice {
	if depth == 0 {
		return []Slice{{Origin: v.top}}
	}
	return popDepthPaths(v.top, int(depth), nil)
}

func popDepthPaths(f *Frame, remaining int, acc []subtree.ID) []Slice {
	if remaining == 0 {
		return []Slice{{Children: append([]subtree.ID(nil), acc...), Origin: f}}
	}
	var out []Slice
	for _, e := range f.preds {
		next := append([]subtree.ID{e.subtree}, acc...)
		out = append(out, popDepthPaths(e.to, remaining-1, next)...)
	}
	return out
}

// PopTop returns the subtree carried by the version's topmost edge and the
// frame below it, without touching the version. It fails at a join, where
// there is no unique top. Callers use it to inspect (and, via Reassign,
// remove) the top of the stack one node at a time.
func (v *Version) PopTop() (subtree.ID, *Frame, bool) {
	if len(v.top.preds) != 1 {
		return subtree.NullID, nil, false
	}
	e := v.top.preds[0]
	return e.subtree, e.to, true
}

// PopAll pops every subtree down to the root frame, used on accept and on
// end-of-input error wrapping.
func (v *Version) PopAll() []subtree.ID {
	var acc []subtree.ID
	f := v.top
	for len(f.preds) > 0 {
		e := f.preds[0]
		acc = append([]subtree.ID{e.subtree}, acc...)
		f = e.to
	}
	return acc
}

// Reassign moves the version's top-of-stack to an existing frame, used
// after a reduction slice is chosen or the version is folded into another
// at condense time.
func (v *Version) Reassign(f *Frame, pos base.Length) {
	v.top = f
	v.position = pos
}

// Top exposes the version's current frame, used by the driver to construct
// a new frame at the goto state once a slice has been chosen.
func (v *Version) Top() *Frame { return v.top }

// NewFrameAt allocates a fresh frame rooted at f with the given state: the
// frame a reduce's parent subtree (or a recovery's error wrapper) is
// pushed at before re-pushing trailing extras.
func (v *Version) NewFrameAt(f *Frame, state table.State, symbol base.TokType, st subtree.ID, pool *subtree.Pool) *Frame {
	isExtra := false
	if pool != nil {
		if sub := pool.Get(st); sub != nil {
			isExtra = sub.Flags.Has(subtree.FlagExtra)
		}
	}
	nf := v.root.newFrame(state)
	nf.preds = append(nf.preds, &edge{to: f, symbol: symbol, subtree: st, isExtra: isExtra})
	f.successorCount++
	return nf
}

// Merge attempts to fold other into v: both must sit on the same state at
// the same position. The caller is responsible for choosing between the
// two versions' top subtrees first (see ReplaceSolePredecessorSubtree);
// Merge itself only retires the losing branch.
func (v *Version) Merge(other *Version) bool {
	if v.top.State != other.top.State {
		return false
	}
	if v.position != other.position {
		return false
	}
	other.halted = true
	return true
}
