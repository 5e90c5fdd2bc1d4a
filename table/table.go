/*
Package table defines the read-only parse-table contract the driver
consults. A table is produced by an external grammar compiler; this package
never builds one from a grammar. The SparseTable type is a reference
implementation intended for hand-assembled tables, primarily in tests and
small embeddings.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package table

import (
	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'glrts.table'.
func tracer() tracing.Trace {
	return tracing.Select("glrts.table")
}

// State is an index into a compiled parser's characteristic finite-state
// machine. State numbering is offset by one: state 0 is reserved for the
// implicit error state, state 1 is always the start state.
type State uint32

// ErrorState is the implicit error state. Recovery pushes skipped
// lookaheads here.
const ErrorState State = 0

// NoLexState marks a state that produces no lookahead at all (the end of a
// non-terminal extra): the lexer returns a null token and the table is then
// consulted at the EOF symbol.
const NoLexState uint16 = 0xFFFF

// LexMode describes how a state should be lexed.
type LexMode struct {
	LexState         uint16 // which internal lex-DFA to start in, or NoLexState
	ExternalLexState uint16 // nonzero iff the external scanner should run first
}

// ActionKind enumerates the four action kinds a table entry can hold.
type ActionKind uint8

const (
	Shift ActionKind = iota
	Reduce
	Accept
	Recover
)

// Action is one table entry. Several Actions may apply to the same
// (state, symbol) pair — that is a shift/reduce or reduce/reduce conflict,
// and the driver forks a stack version per conflicting action.
type Action struct {
	Kind ActionKind

	// Shift
	NextState State
	IsExtra   bool // token is "extra" (whitespace/comment-like)
	Repeated  bool // read on Reduce actions: the production is a repetition (rebalance pass)

	// Reduce
	Symbol            base.TokType
	ChildCount        uint32
	DynamicPrecedence int32
	ProductionID      uint32
	IsFragile         bool
}

// Table is the read-only parse-table contract.
type Table interface {
	// LexMode returns the lex mode for a state.
	LexMode(s State) LexMode

	// Actions returns every action that applies to (state, symbol), in
	// table order. An empty slice means "no entry".
	Actions(s State, symbol base.TokType) []Action

	// HasActions reports whether any action exists for (state, symbol),
	// without constructing the action slice — used by the keyword
	// fallback and the leaf-reusability test.
	HasActions(s State, symbol base.TokType) bool

	// Goto returns the successor state after shifting/reducing symbol
	// from state s.
	Goto(s State, symbol base.TokType) State

	// IsReservedWord reports whether symbol is a reserved word in state
	// s, i.e. the keyword fallback must not rewrite it to the default
	// word token.
	IsReservedWord(s State, symbol base.TokType) bool

	// IsReusableLeaf reports whether a leaf for symbol lexed under a
	// different state may be taken over verbatim in state s.
	IsReusableLeaf(s State, symbol base.TokType) bool

	// WordToken is the grammar's default "word" token used by the
	// keyword-fallback rule, or -1 if the grammar defines no keywords.
	WordToken() base.TokType

	// KeywordCaptureToken is the symbol the internal lexer produces
	// before keyword disambiguation reclassifies it.
	KeywordCaptureToken() base.TokType

	// SymbolCount is the number of distinct symbols (terminals and
	// non-terminals) the grammar defines; symbol values are < SymbolCount.
	SymbolCount() int

	// StartState is the state a fresh stack version begins in.
	StartState() State

	// EOF is the symbol value representing end of input.
	EOF() base.TokType

	// ExtraNonTerminal is the symbol reduced at the end of a
	// non-terminal extra cycle.
	ExtraNonTerminal() base.TokType
}

// Language bundles a Table with the rest of the per-grammar, read-only
// configuration a Parser needs: an ABI version range and a symbol stringer
// for logging.
type Language struct {
	Name            string
	Table           Table
	ABIVersion      int
	MinSupportedABI int
	MaxSupportedABI int
	Stringer        base.TokTypeStringer
}

// Supported reports whether this Language's ABI falls within the range this
// engine build understands.
func (l *Language) Supported() bool {
	return l.ABIVersion >= l.MinSupportedABI && l.ABIVersion <= l.MaxSupportedABI
}
