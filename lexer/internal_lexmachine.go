package lexer

import (
	"github.com/npillmayer/glrts/base"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// InternalLexers compiles and holds one lexmachine DFA per lex state: each
// parser state names the DFA its lookahead should be scanned with, so a
// grammar may carry several token vocabularies side by side.
type InternalLexers struct {
	byState map[uint16]*lexmachine.Lexer
	errMode *lexmachine.Lexer // fallback DFA used while in the error state
}

// NewInternalLexers creates an empty table; callers add one compiled DFA
// per lex state via AddMode/AddErrorMode.
func NewInternalLexers() *InternalLexers {
	return &InternalLexers{byState: make(map[uint16]*lexmachine.Lexer)}
}

// AddMode registers the compiled DFA for a given lex state.
func (il *InternalLexers) AddMode(lexState uint16, lx *lexmachine.Lexer) {
	il.byState[lexState] = lx
}

// AddErrorMode registers the DFA run while recovering, which typically
// accepts a broader token vocabulary than any single state's DFA.
func (il *InternalLexers) AddErrorMode(lx *lexmachine.Lexer) {
	il.errMode = lx
}

// scanResult is what one DFA run over a byte slice produced. startTC/endTC
// are offsets into the scanned slice; startTC is nonzero when the DFA's
// skip actions consumed leading trivia.
type scanResult struct {
	ok      bool
	eof     bool // the DFA ran out of input without an unrecognized byte
	symbol  base.TokType
	lexeme  string
	startTC int
	endTC   int
}

// runDFA runs lx over src, returning the first recognized token. A token
// must be recognized where the DFA stands: unconsumed input is a lex
// failure here, not something to silently skip — the driver decides how
// unrecognized bytes are absorbed.
func runDFA(lx *lexmachine.Lexer, src []byte) scanResult {
	if lx == nil {
		return scanResult{}
	}
	if len(src) == 0 {
		return scanResult{eof: true}
	}
	scan, err := lx.Scanner(src)
	if err != nil {
		return scanResult{}
	}
	tok, err, eof := scan.Next()
	if err != nil {
		// Unconsumed input or any other scan failure: no token here.
		return scanResult{}
	}
	if eof || tok == nil {
		return scanResult{eof: true}
	}
	t := tok.(*lexmachine.Token)
	return scanResult{
		ok:      true,
		symbol:  base.TokType(t.Type),
		lexeme:  string(t.Lexeme),
		startTC: t.TC,
		endTC:   t.TC + len(t.Lexeme),
	}
}

// MakeToken is the pre-defined lexmachine action a grammar's DFA rules use
// to emit a token with the given symbol id.
func MakeToken(id int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(id, string(m.Bytes), m), nil
	}
}

// Skip is the pre-defined "ignore this match" action.
func Skip(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	return nil, nil
}
