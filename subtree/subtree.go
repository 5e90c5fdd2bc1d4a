/*
Package subtree implements the concrete syntax tree's node type: an
immutable, reference-counted Subtree and the Pool that is its sole
allocator and deallocator.

Nodes are shared aggressively: a reduced node is a candidate for sharing
across stack versions, and across parses a subtree from a previous tree is
retained, not rebuilt. That sharing is what makes incremental reparsing
cheap.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package subtree

import (
	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'glrts.subtree'.
func tracer() tracing.Trace {
	return tracing.Select("glrts.subtree")
}

// ID is a handle into a Pool. The zero ID is never valid; NullID is
// the ID reserved for "no subtree".
type ID uint32

// NullID denotes the absence of a subtree.
const NullID ID = 0

// NoParseState marks a node whose parse state cannot be relied on: the node
// is fragile or was produced while several stack versions were live.
const NoParseState uint32 = ^uint32(0)

// Flags is a bitset of per-node properties.
type Flags uint16

const (
	FlagExtra Flags = 1 << iota
	FlagError
	FlagMissing
	FlagFragileLeft
	FlagFragileRight
	FlagHasChanges
	FlagHasExternalTokens
	FlagHasExternalScannerStateChange
	FlagKeyword
	FlagInline
	FlagFragile
)

func (f Flags) Has(bit Flags) bool  { return f&bit != 0 }
func (f Flags) Set(bit Flags) Flags { return f | bit }
func (f Flags) Clear(bit Flags) Flags { return f &^ bit }

// Subtree is an immutable syntax node. Leaves have no Children; a node's
// DynamicPrecedence is the sum of its production's own precedence and its
// children's contributions.
type Subtree struct {
	Symbol            base.TokType
	Children          []ID // empty for a leaf
	Padding           base.Length
	Size              base.Length
	LookaheadBytes    uint32
	ParseState        uint32
	Flags             Flags
	ProductionID      uint32
	DynamicPrecedence int32

	// ErrorCost accumulates the penalty for skipped input and repaired
	// structure contained in this subtree; an error-free node has cost 0.
	ErrorCost int64

	// RepeatDepth is nonzero for a node produced by a repetition
	// production; the rebalance pass uses it to detect and flatten
	// right-skewed repetition chains.
	RepeatDepth uint32

	// ExternalScannerState is the serialized state an external scanner
	// produced alongside this leaf, or nil for internally-lexed or
	// non-leaf subtrees.
	ExternalScannerState []byte

	// Lexeme is only meaningful for leaves and error-skip nodes; it is
	// not retained for ordinary internal nodes (recomputed from Padding
	// and Size against the source on demand by callers).
	Lexeme string

	refcount int32
}

// ChildCount returns the number of children (zero for a leaf).
func (s *Subtree) ChildCount() int { return len(s.Children) }

// IsLeaf reports whether s has no children.
func (s *Subtree) IsLeaf() bool { return len(s.Children) == 0 }

// Footprint returns Padding+Size, the total extent this node occupies in
// the input including any leading trivia.
func (s *Subtree) Footprint() base.Length {
	return s.Padding.Add(s.Size)
}

// IsFragile reports whether the node cannot be safely reused incrementally.
func (s *Subtree) IsFragile() bool {
	return s.Flags.Has(FlagFragileLeft) || s.Flags.Has(FlagFragileRight) || s.Flags.Has(FlagFragile)
}

// RefCount returns the current reference count (exported for tests and
// debugging).
func (s *Subtree) RefCount() int32 { return s.refcount }
