/*
Package base contains data types which are used throughout all the other
packages of this module: token categories, byte spans, three-axis lengths
and the error-cost constants shared by the stack and the driver.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package base

import "fmt"

// --- A general purpose interface for tokens --------------------------------

// TokType is a category type for a symbol (terminal or non-terminal). Values
// are defined by the compiled grammar a parser is configured with.
type TokType int32

// TokTypeStringer is provided by a language to print out symbol categories
// for logging and debugging.
type TokTypeStringer func(TokType) string

// Token is produced by the lexer and consumed by the driver.
type Token interface {
	TokType() TokType
	Lexeme() string
	Span() Span
}

// --- Spans ------------------------------------------------------------

// Span captures a byte interval [From, To) within the input.
type Span [2]uint32

// From returns the start offset of a span.
func (s Span) From() uint32 { return s[0] }

// To returns the end offset of a span (exclusive).
func (s Span) To() uint32 { return s[1] }

// Len returns the length in bytes of (From…To).
func (s Span) Len() uint32 { return s[1] - s[0] }

// IsNull reports whether the span is the zero span.
func (s Span) IsNull() bool { return s == Span{} }

// Extend grows s to also cover other.
func (s Span) Extend(other Span) Span {
	if other[0] < s[0] {
		s[0] = other[0]
	}
	if other[1] > s[1] {
		s[1] = other[1]
	}
	return s
}

// Overlaps reports whether the two spans share at least one byte.
func (s Span) Overlaps(other Span) bool {
	return s[0] < other[1] && other[0] < s[1]
}

func (s Span) String() string {
	return fmt.Sprintf("(%d…%d)", s[0], s[1])
}

// --- Length -------------------------------------------------------------

// Length is a three-axis extent: a byte count plus the (row, column) it
// spans. Lengths are added/subtracted as one would concatenate input spans:
// padding+size computations for a subtree rely on this being associative and
// on the zero Length being the identity.
//
// The row/column component follows ordinary "cursor advance" semantics: when
// the length being added spans at least one full row, the running column is
// replaced by the addend's trailing column; otherwise the addend's column is
// just appended to the running one.
type Length struct {
	Bytes  uint32
	Row    uint32
	Column uint32
}

// ZeroLength is the identity element for Add/Sub.
var ZeroLength = Length{}

// Add concatenates two lengths as if b's span started where a's ends.
func (a Length) Add(b Length) Length {
	if b.Row > 0 {
		return Length{Bytes: a.Bytes + b.Bytes, Row: a.Row + b.Row, Column: b.Column}
	}
	return Length{Bytes: a.Bytes + b.Bytes, Row: a.Row, Column: a.Column + b.Column}
}

// Sub returns the extent from position b to position a (b <= a), both
// measured from the same origin. When a and b lie on different rows the
// result keeps a's column; it is therefore not a general inverse of Add.
func (a Length) Sub(b Length) Length {
	if a.Row > b.Row {
		return Length{Bytes: a.Bytes - b.Bytes, Row: a.Row - b.Row, Column: a.Column}
	}
	col := a.Column - b.Column
	return Length{Bytes: a.Bytes - b.Bytes, Row: 0, Column: col}
}

// IsZero reports whether l is the identity Length.
func (l Length) IsZero() bool { return l == ZeroLength }

func (l Length) String() string {
	return fmt.Sprintf("%db@%d:%d", l.Bytes, l.Row, l.Column)
}

// LengthOfBytes measures a chunk of source text: its byte count, the rows it
// spans and its trailing column.
func LengthOfBytes(b []byte) Length {
	var l Length
	l.Bytes = uint32(len(b))
	for _, c := range b {
		if c == '\n' {
			l.Row++
			l.Column = 0
		} else {
			l.Column++
		}
	}
	return l
}

// Point is an absolute (row, column) position, used by callers of the input
// callback (see Options.Input).
type Point struct {
	Row    uint32
	Column uint32
}

// --- Error costs ----------------------------------------------------------

// Error-cost constants. Skipped input and repaired structure accumulate
// cost on subtrees and stack versions; smaller is better, and version
// comparison prunes branches whose cost is dominated.
const (
	ErrorCostPerSkippedTree int64 = 100
	ErrorCostPerSkippedChar int64 = 1
	ErrorCostPerSkippedLine int64 = 30

	// MaxCostDifference is the gap above which a cost advantage is decisive
	// rather than a mere preference.
	MaxCostDifference = 18 * ErrorCostPerSkippedTree
)
