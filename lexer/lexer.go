/*
Package lexer implements the positional byte reader the driver reads
lookahead from, the internal DFA-backed lexing path, keyword
disambiguation, and the one-slot TokenCache memo.

The positional reader is re-seekable to an arbitrary byte offset and
honors included ranges: incremental reparsing must be able to resume
lexing from any point inside a previous tree rather than only scanning
forward once.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package lexer

import (
	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'glrts.lexer'.
func tracer() tracing.Trace {
	return tracing.Select("glrts.lexer")
}

// Input is the caller-supplied read callback: given a byte offset and the
// (row, column) point it corresponds to, return a chunk of source bytes
// starting there (zero length signals end of input).
type Input func(byteOffset uint32, point base.Point) (chunk []byte, length uint32)

// Range is one disjoint included byte range of the input; the lexer snaps
// past the gaps between ranges.
type Range struct {
	StartByte, EndByte   uint32
	StartPoint, EndPoint base.Point
}

// Lexer is the positional byte reader every lex mode is run against. It
// exposes the five primitives an external scanner drives it with: Reset,
// Start, Advance, MarkEnd, Finish.
type Lexer struct {
	input  Input
	ranges []Range // empty means "parse everything"

	chunk   []byte
	chunkAt uint32 // absolute byte offset chunk[0] corresponds to

	position   uint32 // absolute byte offset of the lexer's read head
	point      base.Point
	rangeIndex int

	tokenStart      uint32
	tokenStartPoint base.Point
	lookaheadEnd    uint32 // furthest byte position read while lexing the current token
}

// NewLexer creates a Lexer over input, optionally restricted to ranges
// (nil/empty means the whole input is one range).
func NewLexer(input Input, ranges []Range) *Lexer {
	l := &Lexer{input: input, ranges: ranges}
	l.Reset(0, base.Point{})
	return l
}

// Reset repositions the lexer at an absolute byte offset / point, dropping
// any buffered chunk.
func (l *Lexer) Reset(byteOffset uint32, point base.Point) {
	l.position = byteOffset
	l.point = point
	l.chunk = nil
	l.chunkAt = 0
	l.rangeIndex = 0
	l.snapToIncludedRange()
}

// snapToIncludedRange advances l.position past any gap between included
// ranges, so a lex started just after range i's end jumps straight to
// range i+1's start.
func (l *Lexer) snapToIncludedRange() {
	if len(l.ranges) == 0 {
		return
	}
	for l.rangeIndex < len(l.ranges) && l.position >= l.ranges[l.rangeIndex].EndByte {
		l.rangeIndex++
	}
	if l.rangeIndex < len(l.ranges) && l.position < l.ranges[l.rangeIndex].StartByte {
		r := l.ranges[l.rangeIndex]
		l.position = r.StartByte
		l.point = r.StartPoint
		l.chunk = nil
	}
}

// Start marks the beginning of a new token at the lexer's current
// position.
func (l *Lexer) Start() {
	l.tokenStart = l.position
	l.tokenStartPoint = l.point
	l.lookaheadEnd = l.position
}

// Position returns the lexer's current absolute byte offset.
func (l *Lexer) Position() uint32 { return l.position }

// Point returns the lexer's current (row, column).
func (l *Lexer) Point() base.Point { return l.point }

// TokenStartPosition returns the byte offset Start() was called at.
func (l *Lexer) TokenStartPosition() uint32 { return l.tokenStart }

// Lookahead returns the byte at the read head without consuming it, or
// (0, false) at end of input.
func (l *Lexer) Lookahead() (byte, bool) {
	if !l.ensureChunk() {
		return 0, false
	}
	return l.chunk[l.position-l.chunkAt], true
}

// Advance consumes one byte, updating the (row, column) point and
// snapping past included-range gaps.
func (l *Lexer) Advance() bool {
	b, ok := l.Lookahead()
	if !ok {
		return false
	}
	l.position++
	if b == '\n' {
		l.point = base.Point{Row: l.point.Row + 1, Column: 0}
	} else {
		l.point = base.Point{Row: l.point.Row, Column: l.point.Column + 1}
	}
	if l.position-l.lookaheadEnd > 0 {
		l.lookaheadEnd = l.position
	}
	l.snapToIncludedRange()
	return true
}

// MarkEnd records the current position as the end of the lexer's peek
// window without consuming further, used to compute LookaheadBytes once a
// token's true end has been found.
func (l *Lexer) MarkEnd() {
	if l.position > l.lookaheadEnd {
		l.lookaheadEnd = l.position
	}
}

// Finish completes a token started at Start(), returning its padding (the
// gap since version position versionPos), its size, and how many bytes
// past the token's own end the lexer had to peek.
func (l *Lexer) Finish(tokenEnd uint32, versionPos base.Length) (padding, size base.Length, lookaheadBytes uint32) {
	padding = base.Length{Bytes: l.tokenStart - versionPos.Bytes}
	size = base.Length{Bytes: tokenEnd - l.tokenStart}
	if l.lookaheadEnd > tokenEnd {
		lookaheadBytes = l.lookaheadEnd - tokenEnd
	}
	return
}

func (l *Lexer) ensureChunk() bool {
	if l.chunk != nil && l.position >= l.chunkAt && l.position < l.chunkAt+uint32(len(l.chunk)) {
		return true
	}
	chunk, n := l.input(l.position, l.point)
	if n == 0 {
		l.chunk = nil
		return false
	}
	l.chunk = chunk
	l.chunkAt = l.position
	return true
}

// AtEOF reports whether the lexer has no more bytes to offer.
func (l *Lexer) AtEOF() bool {
	_, ok := l.Lookahead()
	return !ok
}

// Slice returns the raw bytes of [from, to) by repeatedly invoking the
// input callback; used to materialize a lexeme or an error-skip span.
func (l *Lexer) Slice(from, to uint32) string {
	if to <= from {
		return ""
	}
	out := make([]byte, 0, to-from)
	pos := from
	for pos < to {
		chunk, n := l.input(pos, base.Point{})
		if n == 0 {
			break
		}
		take := chunk
		if uint32(len(take)) > to-pos {
			take = take[:to-pos]
		}
		out = append(out, take...)
		pos += uint32(len(take))
	}
	return string(out)
}
