/*
Package reuse implements the cursor over a previous parse tree: a walk in
source order exposing the current candidate subtree, so the driver can
take over unchanged leaves from the prior parse instead of relexing them.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package reuse

import (
	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/subtree"
)

// frame is one entry of the cursor's path from the tree root down to the
// current candidate: the node itself and the child index the walk has
// reached inside it.
type frame struct {
	node       subtree.ID
	childIndex int
}

// Cursor is a position inside a previous parse tree: a path plus a byte
// offset plus the last external-scanner token state seen descending to
// this point.
type Cursor struct {
	pool *subtree.Pool
	root subtree.ID

	path       []frame
	byteOffset uint32

	// lastExternalToken is the serialized external-scanner state attached
	// to the most recent external leaf visited on the path to the current
	// position; a candidate is only reusable when this matches the
	// version's own external state.
	lastExternalToken []byte

	// changed holds the byte spans whose included-range status differs
	// between the parse that built the previous tree and the current one
	// (see lexer.DiffRanges); candidates overlapping one were lexed under
	// different inclusion rules and must be relexed.
	changed []base.Span
}

// NewCursor creates a cursor positioned at the start of root. changed is
// the included-range difference against the parse that produced root (nil
// when the ranges are unchanged).
func NewCursor(pool *subtree.Pool, root subtree.ID, changed []base.Span) *Cursor {
	c := &Cursor{pool: pool, changed: changed}
	c.Reset(root)
	return c
}

// Reset repositions the cursor at the start of a (possibly new) tree.
func (c *Cursor) Reset(root subtree.ID) {
	c.root = root
	c.byteOffset = 0
	c.lastExternalToken = nil
	c.path = c.path[:0]
	if root != subtree.NullID {
		c.path = append(c.path, frame{node: root})
	}
}

// ByteOffset returns the absolute byte offset the cursor is positioned at.
func (c *Cursor) ByteOffset() uint32 { return c.byteOffset }

// LastExternalToken returns the external-scanner state the cursor last
// observed while descending.
func (c *Cursor) LastExternalToken() []byte { return c.lastExternalToken }

// current returns the node the path currently points at (the innermost
// frame's node, or NullID if the cursor has walked off the tree).
func (c *Cursor) current() subtree.ID {
	if len(c.path) == 0 {
		return subtree.NullID
	}
	return c.path[len(c.path)-1].node
}

// Candidate returns the subtree ID the cursor is currently positioned at,
// descending as far as possible into children whose Padding is zero so
// the returned candidate's own byte span starts exactly at ByteOffset.
func (c *Cursor) Candidate() subtree.ID {
	id := c.current()
	for id != subtree.NullID {
		n := c.pool.Get(id)
		if n == nil || n.IsLeaf() || n.Padding.Bytes > 0 {
			break
		}
		descended := c.descendFirstChild()
		if !descended {
			break
		}
		id = c.current()
	}
	return id
}

// descendFirstChild pushes a new frame for the current node's first child,
// returning false if the current node is a leaf.
func (c *Cursor) descendFirstChild() bool {
	id := c.current()
	n := c.pool.Get(id)
	if n == nil || n.IsLeaf() {
		return false
	}
	c.updateExternalToken(id)
	c.path = append(c.path, frame{node: n.Children[0]})
	return true
}

// Descend pushes the cursor one level deeper into the current candidate's
// first child, for callers who need finer-grained candidates than
// Candidate()'s "skip zero-padding ancestors" default provides.
func (c *Cursor) Descend() bool {
	return c.descendFirstChild()
}

func (c *Cursor) updateExternalToken(id subtree.ID) {
	n := c.pool.Get(id)
	if n != nil && n.Flags.Has(subtree.FlagHasExternalTokens) {
		c.lastExternalToken = n.ExternalScannerState
	}
}

// Advance moves the cursor past the current candidate to the next node in
// source order, returning false once the tree is exhausted. It adds the
// candidate's footprint to ByteOffset.
func (c *Cursor) Advance() bool {
	id := c.Candidate()
	if id == subtree.NullID {
		return false
	}
	n := c.pool.Get(id)
	c.byteOffset += n.Footprint().Bytes
	c.updateExternalToken(id)

	for len(c.path) > 0 {
		top := len(c.path) - 1
		parentIdx := top - 1
		if parentIdx < 0 {
			c.path = c.path[:0]
			return false
		}
		parent := c.pool.Get(c.path[parentIdx].node)
		nextChild := c.path[parentIdx].childIndex + 1
		if nextChild < len(parent.Children) {
			c.path[parentIdx].childIndex = nextChild
			c.path[top] = frame{node: parent.Children[nextChild]}
			return true
		}
		c.path = c.path[:top]
	}
	return false
}

// Reusable reports the cursor's half of the candidate gate: byte offset
// alignment, external-scanner state match, none of has-changes / error /
// missing / fragile set, and no overlap with an included-range difference.
// The table-dependent leaf test remains the driver's job.
func (c *Cursor) Reusable(candidate subtree.ID, position base.Length, externalState []byte) bool {
	n := c.pool.Get(candidate)
	if n == nil {
		return false
	}
	if c.ByteOffset() != position.Bytes {
		return false
	}
	if !bytesEq(c.LastExternalToken(), externalState) {
		return false
	}
	if n.Flags.Has(subtree.FlagHasChanges) || n.Flags.Has(subtree.FlagError) ||
		n.Flags.Has(subtree.FlagMissing) || n.IsFragile() {
		return false
	}
	span := base.Span{c.byteOffset, c.byteOffset + n.Footprint().Bytes}
	for _, d := range c.changed {
		if span.Overlaps(d) {
			return false
		}
	}
	return true
}

func bytesEq(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
