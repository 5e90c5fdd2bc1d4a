package table

import "github.com/npillmayer/glrts/base"

// SparseTable is a reference Table implementation using a COO
// (coordinate-list / triplet) sparse matrix with a variable-length action
// list per cell: action dispatch processes an arbitrary number of
// conflicting actions in table order, so a cell cannot be a single value.
//
// Action cells are kept sorted by (state, symbol) on insertion; goto cells
// are kept in insertion order. Lookups scan the cell list linearly.
type SparseTable struct {
	cells     []actionCell
	gotoCells []gotoCell
	lexModes  map[State]LexMode
	reserved  map[cellKey]bool
	reusable  map[cellKey]bool

	start            State
	symbolCount      int
	eof              base.TokType
	wordToken        base.TokType
	keywordCapture   base.TokType
	extraNonTerminal base.TokType
}

type cellKey struct {
	state  State
	symbol base.TokType
}

type actionCell struct {
	cellKey
	actions []Action
}

type gotoCell struct {
	cellKey
	next State
}

// NewSparseTable creates an empty table. wordToken/keywordCapture may be -1
// if the grammar has no keyword-fallback machinery.
func NewSparseTable(start State, symbolCount int, eof, wordToken, keywordCapture, extraNonTerminal base.TokType) *SparseTable {
	return &SparseTable{
		lexModes:         make(map[State]LexMode),
		reserved:         make(map[cellKey]bool),
		reusable:         make(map[cellKey]bool),
		start:            start,
		symbolCount:      symbolCount,
		eof:              eof,
		wordToken:        wordToken,
		keywordCapture:   keywordCapture,
		extraNonTerminal: extraNonTerminal,
	}
}

// SetLexMode records the lex mode for a state.
func (t *SparseTable) SetLexMode(s State, mode LexMode) {
	t.lexModes[s] = mode
}

// AddAction appends an action to the (state, symbol) entry, preserving
// table order (conflicts are resolved by the driver, not by this table).
func (t *SparseTable) AddAction(s State, symbol base.TokType, a Action) {
	key := cellKey{s, symbol}
	for i := range t.cells {
		if t.cells[i].cellKey == key {
			t.cells[i].actions = append(t.cells[i].actions, a)
			return
		}
	}
	at := t.insertionPoint(key)
	t.cells = append(t.cells, actionCell{})
	copy(t.cells[at+1:], t.cells[at:])
	t.cells[at] = actionCell{cellKey: key, actions: []Action{a}}
}

func (t *SparseTable) insertionPoint(key cellKey) int {
	for i, c := range t.cells {
		if !cellLeftOf(c.cellKey, key) {
			return i
		}
	}
	return len(t.cells)
}

func cellLeftOf(a, b cellKey) bool {
	return a.state < b.state || (a.state == b.state && a.symbol < b.symbol)
}

// SetGoto records goto(s, symbol) = next.
func (t *SparseTable) SetGoto(s State, symbol base.TokType, next State) {
	key := cellKey{s, symbol}
	for i := range t.gotoCells {
		if t.gotoCells[i].cellKey == key {
			t.gotoCells[i].next = next
			return
		}
	}
	t.gotoCells = append(t.gotoCells, gotoCell{cellKey: key, next: next})
}

// SetReservedWord marks symbol as reserved (not eligible for keyword
// fallback) in state s.
func (t *SparseTable) SetReservedWord(s State, symbol base.TokType) {
	t.reserved[cellKey{s, symbol}] = true
}

// SetReusableLeaf marks the (state, symbol) entry as eligible for verbatim
// leaf takeover from a different lex state.
func (t *SparseTable) SetReusableLeaf(s State, symbol base.TokType) {
	t.reusable[cellKey{s, symbol}] = true
}

var _ Table = (*SparseTable)(nil)

func (t *SparseTable) LexMode(s State) LexMode {
	if m, ok := t.lexModes[s]; ok {
		return m
	}
	return LexMode{LexState: NoLexState}
}

func (t *SparseTable) Actions(s State, symbol base.TokType) []Action {
	key := cellKey{s, symbol}
	for _, c := range t.cells {
		if c.cellKey == key {
			return c.actions
		}
	}
	return nil
}

func (t *SparseTable) HasActions(s State, symbol base.TokType) bool {
	return len(t.Actions(s, symbol)) > 0
}

// Goto returns ErrorState for unset cells, so a reduction over a symbol the
// grammar never allows in s lands in the error state instead of silently
// jumping somewhere plausible.
func (t *SparseTable) Goto(s State, symbol base.TokType) State {
	key := cellKey{s, symbol}
	for _, c := range t.gotoCells {
		if c.cellKey == key {
			return c.next
		}
	}
	return ErrorState
}

func (t *SparseTable) IsReservedWord(s State, symbol base.TokType) bool {
	return t.reserved[cellKey{s, symbol}]
}

func (t *SparseTable) IsReusableLeaf(s State, symbol base.TokType) bool {
	return t.reusable[cellKey{s, symbol}]
}

func (t *SparseTable) WordToken() base.TokType            { return t.wordToken }
func (t *SparseTable) KeywordCaptureToken() base.TokType  { return t.keywordCapture }
func (t *SparseTable) SymbolCount() int                   { return t.symbolCount }
func (t *SparseTable) StartState() State                  { return t.start }
func (t *SparseTable) EOF() base.TokType                  { return t.eof }
func (t *SparseTable) ExtraNonTerminal() base.TokType     { return t.extraNonTerminal }
