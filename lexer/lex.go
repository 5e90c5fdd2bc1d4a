package lexer

import (
	"errors"

	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/lexer/extscan"
	"github.com/npillmayer/glrts/table"
)

// ErrScannerFailed is returned from Lex when the external scanner reports a
// fatal failure, distinct from "external scanner found nothing here", which
// just falls through to internal lexing.
var ErrScannerFailed = errors.New("lexer: external scanner reported a fatal error")

// Coordinator ties together the positional Lexer, the per-state internal
// DFAs, the keyword-capture DFA and an optional external-scanner adapter.
// One Coordinator is created per parse and holds no per-version state
// (that lives on the stack version).
type Coordinator struct {
	Positional *Lexer
	Internal *InternalLexers
	Keyword  *InternalLexers // nil if the grammar declares no keywords
	External *extscan.Adapter
}

// Outcome is everything the driver needs out of one Lex call: the token
// itself, the external-scanner state to carry forward (if external), and
// whether the external path produced it.
type Outcome struct {
	Token         *Token
	ExternalState []byte
	UsedExternal  bool
}

// validSymbolsAlways lets every symbol through; a grammar binding may
// narrow this from the table's action row at the current state.
func validSymbolsAlways(base.TokType) bool { return true }

// Lex produces the next lookahead for a version sitting at versionPos in
// state st. The external scanner runs first if the state requires it; its
// result is rejected when it produced an empty token without changing its
// own state while the parse is not advancing (otherwise the parse could
// loop on a zero-width token forever). Rejection and absence both fall
// through to the internal DFA path.
func (c *Coordinator) Lex(
	tbl table.Table,
	st table.State,
	versionPos base.Length,
	lastExternalState []byte,
	inErrorState bool,
	advancedSinceError bool,
) (*Outcome, error) {
	mode := tbl.LexMode(st)
	if mode.LexState == table.NoLexState {
		return &Outcome{Token: &Token{IsEOF: true}}, nil
	}

	startByte := versionPos.Bytes
	c.Positional.Reset(startByte, base.Point{Row: versionPos.Row, Column: versionPos.Column})

	if mode.ExternalLexState != 0 && c.External != nil {
		c.Positional.Start()
		c.External.Deserialize(lastExternalState)
		result, newState := c.External.Scan(c.Positional, validSymbolsAlways)
		if result.Fatal {
			return nil, ErrScannerFailed
		}
		if result.Recognized {
			empty := result.EndByte == c.Positional.TokenStartPosition()
			unchanged := bytesEqual(newState, lastExternalState)
			isExtra := result.Symbol == tbl.ExtraNonTerminal()
			reject := empty && unchanged && (inErrorState || !advancedSinceError || isExtra)
			if !reject {
				padding, size, lookahead := c.Positional.Finish(result.EndByte, versionPos)
				lexeme := c.Positional.Slice(c.Positional.TokenStartPosition(), result.EndByte)
				tok := &Token{
					Symbol:         result.Symbol,
					Padding:        padding,
					Size:           size,
					LookaheadBytes: lookahead,
					Lexeme:         lexeme,
					IsExternal:     true,
					External:       newState,
				}
				return &Outcome{Token: tok, ExternalState: newState, UsedExternal: true}, nil
			}
			// rejected: fall through to internal lexing at the saved position.
			c.Positional.Reset(startByte, base.Point{Row: versionPos.Row, Column: versionPos.Column})
		}
	}

	return c.lexInternal(tbl, st, mode, inErrorState)
}

func (c *Coordinator) lexInternal(tbl table.Table, st table.State, mode table.LexMode, inErrorState bool) (*Outcome, error) {
	c.Positional.Start()
	startByte := c.Positional.Position()

	dfa := c.Internal.byState[mode.LexState]
	src := c.remaining(startByte)
	res := runDFA(dfa, src)

	if !res.ok && !res.eof && !inErrorState {
		res = runDFA(c.Internal.errMode, src)
	}

	if res.eof {
		return &Outcome{Token: &Token{IsEOF: true}}, nil
	}
	if !res.ok {
		return c.skipToRecognizable(mode, src), nil
	}

	symbol := res.symbol
	if c.Keyword != nil && symbol == tbl.KeywordCaptureToken() {
		kwRes := runDFA(c.Keyword.byState[mode.LexState], src[res.startTC:])
		if kwRes.ok && kwRes.startTC == 0 && res.startTC+kwRes.endTC == res.endTC {
			kwSym := kwRes.symbol
			if tbl.HasActions(st, kwSym) || tbl.IsReservedWord(st, kwSym) {
				symbol = kwSym
			}
		}
	}

	padding := base.LengthOfBytes(src[:res.startTC])
	size := base.LengthOfBytes(src[res.startTC:res.endTC])
	tok := &Token{Symbol: symbol, Padding: padding, Size: size, Lexeme: res.lexeme}
	return &Outcome{Token: tok}, nil
}

// skipToRecognizable advances one byte at a time past input the DFA cannot
// recognize, until a recognizable token (or end of input) begins, and emits
// an error leaf spanning the skipped bytes.
func (c *Coordinator) skipToRecognizable(mode table.LexMode, src []byte) *Outcome {
	dfa := c.Internal.byState[mode.LexState]
	skipped := 0
	for skipped < len(src) {
		skipped++
		rest := src[skipped:]
		res := runDFA(dfa, rest)
		if res.ok || res.eof {
			break
		}
		if res = runDFA(c.Internal.errMode, rest); res.ok {
			break
		}
	}
	size := base.LengthOfBytes(src[:skipped])
	tok := &Token{Symbol: -1, Size: size, Lexeme: string(src[:skipped]), IsError: true}
	return &Outcome{Token: tok}
}

// remaining slices the input from byte offset `from` onward, pulling
// chunks through the Input callback until the callback stops delivering
// (the DFA needs the whole remaining slice up front). The common case of a
// single-chunk input costs no copy.
func (c *Coordinator) remaining(from uint32) []byte {
	first, n := c.Positional.input(from, base.Point{})
	if n == 0 {
		return nil
	}
	out := first
	pos := from + uint32(len(first))
	for {
		chunk, n := c.Positional.input(pos, base.Point{})
		if n == 0 {
			return out
		}
		if &out[0] == &first[0] {
			out = append(append([]byte(nil), first...), chunk...)
		} else {
			out = append(out, chunk...)
		}
		pos += uint32(len(chunk))
	}
}
