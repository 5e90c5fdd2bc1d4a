/*
Package driver implements the parser driver: the advance loop,
reduce/shift/accept/recover dispatch, stack condensation, the
incremental-reuse gate, two-strategy error recovery, and the exhaustive
reduction search used by missing-token insertion.

The driver owns no data structure of its own — it coordinates the parse
table, the subtree pool, the graph-structured stack and the lexing
coordinator, advancing every live stack version by one lookahead per
sweep and pruning dominated versions in between.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package driver

import (
	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/gss"
	"github.com/npillmayer/glrts/subtree"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'glrts.driver'.
func tracer() tracing.Trace {
	return tracing.Select("glrts.driver")
}

// Comparison is the result of comparing two ErrorStatus values.
type Comparison int

const (
	ComparisonNone Comparison = iota
	ComparisonPreferLeft
	ComparisonTakeLeft
	ComparisonPreferRight
	ComparisonTakeRight
)

// CompareErrorStatus ranks two versions' error bookkeeping: error-free
// beats in-error; among the same error class, a sufficiently large cost
// gap (weighted by how much the pricier version has built since its error)
// takes outright, a smaller one merely prefers; ties break on dynamic
// precedence.
func CompareErrorStatus(a, b gss.ErrorStatus) Comparison {
	if a.IsInError != b.IsInError {
		if !a.IsInError {
			if a.Cost < b.Cost {
				return ComparisonTakeLeft
			}
			return ComparisonPreferLeft
		}
		if b.Cost < a.Cost {
			return ComparisonTakeRight
		}
		return ComparisonPreferRight
	}
	if a.Cost != b.Cost {
		var lower, higher gss.ErrorStatus
		var lowerIsA bool
		if a.Cost < b.Cost {
			lower, higher, lowerIsA = a, b, true
		} else {
			lower, higher, lowerIsA = b, a, false
		}
		gap := higher.Cost - lower.Cost
		weight := gap * (1 + int64(higher.NodeCountSinceError))
		take := weight > base.MaxCostDifference
		if lowerIsA {
			if take {
				return ComparisonTakeLeft
			}
			return ComparisonPreferLeft
		}
		if take {
			return ComparisonTakeRight
		}
		return ComparisonPreferRight
	}
	if a.DynamicPrecedence != b.DynamicPrecedence {
		if a.DynamicPrecedence > b.DynamicPrecedence {
			return ComparisonPreferLeft
		}
		return ComparisonPreferRight
	}
	return ComparisonNone
}

// SelectSubtree chooses between two candidate subtrees covering the same
// input: smaller error cost wins, then higher dynamic precedence; if both
// are error-free the existing (left) one is kept; otherwise a
// deterministic structural compare decides. Returns the chosen ID.
// leftCost/rightCost are added on top of the nodes' own error costs, for
// callers that carry version-level cost the nodes cannot know about.
func SelectSubtree(pool *subtree.Pool, left, right subtree.ID, leftCost, rightCost int64) subtree.ID {
	ln, rn := pool.Get(left), pool.Get(right)
	if ln != nil {
		leftCost += ln.ErrorCost
	}
	if rn != nil {
		rightCost += rn.ErrorCost
	}
	if leftCost != rightCost {
		if leftCost < rightCost {
			return left
		}
		return right
	}
	if ln == nil || rn == nil {
		return left
	}
	if ln.DynamicPrecedence != rn.DynamicPrecedence {
		if ln.DynamicPrecedence > rn.DynamicPrecedence {
			return left
		}
		return right
	}
	leftErrorFree := !ln.Flags.Has(subtree.FlagError) && !ln.IsFragile()
	rightErrorFree := !rn.Flags.Has(subtree.FlagError) && !rn.IsFragile()
	if leftErrorFree && rightErrorFree {
		return left
	}
	switch pool.Compare(left, right) {
	case -1:
		return left
	case 1:
		return right
	default:
		return left
	}
}

// BetterVersionExists checks, before committing a costly choice (entering
// recovery, pausing), whether some OTHER active version at or beyond our
// byte position already dominates us, or a finished tree exists that is at
// least as good. A strictly better version dominates outright; a merely
// preferred one only counts when it could actually absorb self's work,
// i.e. when the two are mergeable (same state, same position).
func BetterVersionExists(self *gss.Version, others []*gss.Version, prospectiveCost int64, finishedCost int64, hasFinished bool) bool {
	if hasFinished && finishedCost <= prospectiveCost {
		return true
	}
	selfStatus := self.ErrorStatus()
	selfStatus.Cost = prospectiveCost
	for _, v := range others {
		if v == self || v.IsHalted() || v.IsPaused() {
			continue
		}
		if v.Position().Bytes < self.Position().Bytes {
			continue
		}
		switch CompareErrorStatus(selfStatus, v.ErrorStatus()) {
		case ComparisonTakeRight:
			return true
		case ComparisonPreferRight:
			if v.State() == self.State() && v.Position() == self.Position() {
				return true
			}
		}
	}
	return false
}
