package driver

import (
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
	"github.com/npillmayer/glrts/gss"
)

// byCost orders versions cheapest-first, breaking ties by ID so the
// treeset below has a total order (two versions with equal cost are not
// "equal" as stack branches). Used to keep the cheapest survivors when
// Condense trims to MaxVersionCount, instead of an arbitrary slice
// prefix.
func byCost(a, b interface{}) int {
	va, vb := a.(*gss.Version), b.(*gss.Version)
	ca, cb := va.ErrorStatus().Cost, vb.ErrorStatus().Cost
	if ca != cb {
		return utils.Int64Comparator(ca, cb)
	}
	return utils.IntComparator(va.ID(), vb.ID())
}

// Condense runs after each full sweep across versions: drop halted
// versions, pairwise-compare the survivors and prune/merge dominated ones,
// hard-cap at MaxVersionCount, and resume the best paused version if it
// outperforms every live one (all other paused versions are dropped).
// Returns the minimum error cost among active non-error versions.
func Condense(root *gss.Root) int64 {
	tracer().Debugf("condense: %d versions registered", len(root.AllVersions()))
	live := make([]*gss.Version, 0, len(root.AllVersions()))
	for _, v := range root.AllVersions() {
		if !v.IsHalted() && !v.IsPaused() {
			live = append(live, v)
		}
	}

	for i := 0; i < len(live); i++ {
		for j := 0; j < i; j++ {
			vi, vj := live[i], live[j]
			if vi.IsHalted() || vj.IsHalted() {
				continue
			}
			switch CompareErrorStatus(vj.ErrorStatus(), vi.ErrorStatus()) {
			case ComparisonTakeLeft:
				vi.Die()
			case ComparisonPreferLeft, ComparisonNone:
				vj.Merge(vi)
			case ComparisonPreferRight:
				if !vj.Merge(vi) {
					live[i], live[j] = live[j], live[i]
				}
			case ComparisonTakeRight:
				vj.Die()
			}
		}
	}

	kept := make([]*gss.Version, 0, len(live))
	for _, v := range live {
		if !v.IsHalted() {
			kept = append(kept, v)
		}
	}

	if len(kept) > gss.MaxVersionCount {
		ordered := treeset.NewWith(byCost)
		for _, v := range kept {
			ordered.Add(v)
		}
		kept = kept[:0]
		for _, v := range ordered.Values() {
			if len(kept) >= gss.MaxVersionCount {
				v.(*gss.Version).Die()
				continue
			}
			kept = append(kept, v.(*gss.Version))
		}
	}

	minCost := int64(-1)
	var best *gss.Version
	for _, v := range kept {
		es := v.ErrorStatus()
		if best == nil || es.Cost < best.ErrorStatus().Cost {
			best = v
		}
		if !es.IsInError && (minCost < 0 || es.Cost < minCost) {
			minCost = es.Cost
		}
	}

	// A paused version is never part of `kept` above, so it cannot already
	// be present when we decide whether to resume one here.
	paused := root.PausedVersions()
	if len(paused) > 0 {
		bestPaused := paused[0]
		for _, pv := range paused[1:] {
			cmp := CompareErrorStatus(pv.ErrorStatus(), bestPaused.ErrorStatus())
			if cmp == ComparisonTakeLeft || cmp == ComparisonPreferLeft {
				bestPaused = pv
			}
		}
		resume := best == nil
		if !resume {
			cmp := CompareErrorStatus(bestPaused.ErrorStatus(), best.ErrorStatus())
			resume = cmp == ComparisonTakeLeft || cmp == ComparisonPreferLeft || cmp == ComparisonNone
		}
		for _, pv := range paused {
			if resume && pv == bestPaused {
				pv.Resume()
				kept = append(kept, pv)
				continue
			}
			pv.Die()
		}
	}

	root.SetVersions(kept)

	if minCost < 0 {
		return 0
	}
	return minCost
}
