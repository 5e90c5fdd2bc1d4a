package driver

import (
	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/gss"
	"github.com/npillmayer/glrts/subtree"
	"github.com/npillmayer/glrts/table"
)

// ReduceParams bundles one Reduce action's parameters.
type ReduceParams struct {
	Symbol                base.TokType
	Count                 uint32
	DynamicPrecedence     int32
	ProductionID          uint32
	IsFragile             bool
	EndOfNonTerminalExtra bool
	IsRepetition          bool
}

// Reduce pops p.Count subtrees from version, possibly yielding several
// slices (multiple pop paths exist where earlier merges created joins),
// builds a parent node per surviving slice and pushes it at the goto
// state on a freshly forked version. multipleVersions reports whether
// more than one version was active at entry — one of the conditions that
// make the parent fragile. It returns the newly-created versions (already
// merged into pre-existing ones where possible), or nil if every slice
// was discarded or merged away.
func Reduce(
	root *gss.Root,
	version *gss.Version,
	p ReduceParams,
	tbl table.Table,
	pool *subtree.Pool,
	multipleVersions bool,
) []*gss.Version {
	slices := version.PopByCount(p.Count)
	if len(slices) == 0 {
		slices = []gss.Slice{{Origin: version.Top()}}
	}

	// Group slices sharing the same origin frame; only one arrangement
	// per origin survives selection.
	byOrigin := map[*gss.Frame][]gss.Slice{}
	order := []*gss.Frame{}
	for _, s := range slices {
		if _, seen := byOrigin[s.Origin]; !seen {
			order = append(order, s.Origin)
		}
		byOrigin[s.Origin] = append(byOrigin[s.Origin], s)
	}

	var produced []*gss.Version
	for _, origin := range order {
		// Halted versions still occupy slots in the registry until the
		// next condense, so the cap tolerates them on top of the live
		// budget rather than letting them crowd out real slices.
		halted := 0
		for _, o := range root.AllVersions() {
			if o.IsHalted() {
				halted++
			}
		}
		if len(root.AllVersions()) > gss.MaxVersionCount+gss.MaxVersionCountOverflow+halted {
			tracer().Infof("reduce: version-count cap reached, discarding slices")
			continue
		}
		group := byOrigin[origin]
		best := selectBestSlice(pool, group)
		fragile := p.IsFragile || len(group) > 1 || multipleVersions

		children, trailing := splitTrailingExtras(pool, best.Children)
		parent := pool.NewNode(p.Symbol, p.ProductionID, children, p.DynamicPrecedence, fragile)

		nextState := tbl.Goto(origin.State, p.Symbol)
		if p.EndOfNonTerminalExtra && nextState == origin.State {
			pool.MarkExtra(parent)
		}
		if fragile {
			pool.SetFragile(parent)
		} else {
			pool.SetParseState(parent, uint32(origin.State))
		}
		if p.IsRepetition {
			pool.SetRepeatDepth(parent, repeatDepth(pool, p.Symbol, children))
		}

		tracer().Debugf("reduce sym:%d count:%d state:%d", p.Symbol, p.Count, nextState)

		originPos := version.Position().Sub(poppedFootprint(pool, best.Children))
		nv := version.Fork()
		nv.Reassign(origin, originPos)
		frame := nv.NewFrameAt(origin, nextState, p.Symbol, parent, pool)
		nv.Reassign(frame, nv.Position().Add(pool.Get(parent).Footprint()))

		es := nv.ErrorStatus()
		es.DynamicPrecedence += p.DynamicPrecedence
		if es.IsInError {
			es.NodeCountSinceError++
		}
		nv.SetErrorStatus(es)

		for _, extra := range trailing {
			extraSym := pool.Get(extra).Symbol
			extraNext := tbl.Goto(nv.State(), extraSym)
			if extraNext == table.ErrorState {
				extraNext = nv.State()
			}
			nv.Push(extraNext, extraSym, extra, pool)
		}

		if merged := tryMergeIntoExisting(pool, root, version, nv); merged {
			continue
		}
		produced = append(produced, nv)
	}
	return produced
}

// poppedFootprint sums the footprint of every subtree a pop removed, so
// the origin frame's position can be recovered by subtraction (reduces
// never consume new input; they only rearrange what is already on the
// stack).
func poppedFootprint(pool *subtree.Pool, children []subtree.ID) base.Length {
	var total base.Length
	for _, c := range children {
		total = total.Add(pool.Get(c).Footprint())
	}
	return total
}

// repeatDepth computes a repetition node's nesting depth as one more than
// the deepest same-symbol child, so a right-skewed chain of repeat
// productions accumulates a depth the rebalance pass can detect.
func repeatDepth(pool *subtree.Pool, symbol base.TokType, children []subtree.ID) uint32 {
	var max uint32
	for _, c := range children {
		n := pool.Get(c)
		if n.Symbol != symbol {
			continue
		}
		if n.RepeatDepth > max {
			max = n.RepeatDepth
		}
	}
	return max + 1
}

// splitTrailingExtras peels extra-flagged subtrees off the end of
// children, returning the remaining production children and the peeled
// extras in their original left-to-right order; a reduce re-pushes the
// extras on top of the new parent.
func splitTrailingExtras(pool *subtree.Pool, children []subtree.ID) (remaining, trailing []subtree.ID) {
	end := len(children)
	for end > 0 {
		n := pool.Get(children[end-1])
		if n == nil || !n.Flags.Has(subtree.FlagExtra) {
			break
		}
		end--
	}
	return children[:end], append([]subtree.ID(nil), children[end:]...)
}

// selectBestSlice picks the preferred child arrangement among every slice
// sharing one origin, by wrapping each candidate child array in a
// throwaway parent and comparing those.
func selectBestSlice(pool *subtree.Pool, group []gss.Slice) gss.Slice {
	best := group[0]
	if len(group) == 1 {
		return best
	}
	bestWrap := pool.WrapChildArray(-1, best.Children)
	for _, cand := range group[1:] {
		wrap := pool.WrapChildArray(-1, cand.Children)
		chosen := SelectSubtree(pool, bestWrap, wrap, 0, 0)
		if chosen == wrap {
			best = cand
			bestWrap = wrap
		}
	}
	return best
}

// tryMergeIntoExisting folds nv into any other active version that now
// sits on the same (state, position), other than the version being reduced
// (which the driver may retire after this step). Before retiring nv, the two
// versions' top subtrees are compared and the preferred arrangement is
// installed on the surviving stack — this is where an ambiguous input's
// competing derivations get resolved.
func tryMergeIntoExisting(pool *subtree.Pool, root *gss.Root, reducing, nv *gss.Version) bool {
	for _, other := range root.ActiveVersions() {
		if other == nv || other == reducing {
			continue
		}
		if other.State() != nv.State() || other.Position() != nv.Position() {
			continue
		}
		otherTop, ok1 := other.Top().SolePredecessorSubtree()
		nvTop, ok2 := nv.Top().SolePredecessorSubtree()
		if ok1 && ok2 && otherTop != nvTop {
			chosen := SelectSubtree(pool, otherTop, nvTop, 0, 0)
			if chosen == nvTop {
				other.Top().ReplaceSolePredecessorSubtree(nvTop)
				es := other.ErrorStatus()
				es.DynamicPrecedence = nv.ErrorStatus().DynamicPrecedence
				other.SetErrorStatus(es)
			}
		}
		if other.Merge(nv) {
			return true
		}
	}
	return false
}

// MaxReductionRounds bounds the exhaustive reduction search per version.
const MaxReductionRounds = gss.MaxVersionCount

// DoAllPotentialReductions repeatedly explores the reductions available in
// a version's state, optionally restricted to reductions whose next state
// has an action for target. It returns whether some state became able to
// act on the target symbol. The version handle is threaded through the
// forked reduction products; exhausted intermediates are retired.
func DoAllPotentialReductions(
	root *gss.Root,
	version *gss.Version,
	target base.TokType,
	hasTarget bool,
	tbl table.Table,
	pool *subtree.Pool,
) bool {
	cur := version
	for round := 0; round < MaxReductionRounds; round++ {
		if hasTarget && tbl.HasActions(cur.State(), target) {
			return true
		}
		reduced := false
		for sym := base.TokType(0); int(sym) < tbl.SymbolCount(); sym++ {
			acts := tbl.Actions(cur.State(), sym)
			for _, a := range acts {
				if a.Kind != table.Reduce {
					continue
				}
				next := tbl.Goto(cur.State(), a.Symbol)
				if hasTarget && !tbl.HasActions(next, target) {
					continue
				}
				params := ReduceParams{
					Symbol: a.Symbol, Count: a.ChildCount,
					DynamicPrecedence: a.DynamicPrecedence, ProductionID: a.ProductionID,
					IsFragile: a.IsFragile,
				}
				produced := Reduce(root, cur, params, tbl, pool, false)
				if len(produced) > 0 {
					if cur != version {
						cur.Die()
					}
					cur = produced[0]
					reduced = true
				}
			}
		}
		if !reduced {
			break
		}
	}
	if hasTarget {
		return tbl.HasActions(cur.State(), target)
	}
	return false
}
