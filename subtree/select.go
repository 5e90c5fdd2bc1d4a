package subtree

import "github.com/npillmayer/glrts/base"

// Compare performs a deterministic structural comparison of two subtrees:
// walk children pairwise and return -1/0/+1 based on symbol order and
// recursive comparison. Error cost and dynamic-precedence tie-breaking live
// in the driver, which is the component that tracks per-version cost.
func (p *Pool) Compare(a, b ID) int {
	if a == b {
		return 0
	}
	na, nb := p.Get(a), p.Get(b)
	if na == nil || nb == nil {
		if na == nil && nb == nil {
			return 0
		}
		if na == nil {
			return -1
		}
		return 1
	}
	if na.Symbol != nb.Symbol {
		if na.Symbol < nb.Symbol {
			return -1
		}
		return 1
	}
	na_, nb_ := len(na.Children), len(nb.Children)
	if na_ == 0 && nb_ == 0 {
		return 0
	}
	n := na_
	if nb_ < n {
		n = nb_
	}
	for i := 0; i < n; i++ {
		if c := p.Compare(na.Children[i], nb.Children[i]); c != 0 {
			return c
		}
	}
	if na_ != nb_ {
		if na_ < nb_ {
			return -1
		}
		return 1
	}
	return 0
}

// WrapChildArray builds a throwaway parent over a candidate child array of
// a reduction, so two arrangements can be compared as if they were
// finished subtrees.
func (p *Pool) WrapChildArray(symbol base.TokType, children []ID) ID {
	return p.newInternalNode(symbol, 0, children, false)
}
