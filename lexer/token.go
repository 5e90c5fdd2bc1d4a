package lexer

import "github.com/npillmayer/glrts/base"

// Token is the lexer's output: a freshly-scanned leaf candidate, not yet a
// pooled subtree.
type Token struct {
	Symbol         base.TokType
	Padding        base.Length
	Size           base.Length
	LookaheadBytes uint32
	Lexeme         string

	// IsExternal marks a token produced by the external scanner; External
	// then carries its freshly-serialized state.
	IsExternal bool
	External   []byte

	// IsError marks an error leaf spanning skipped, unrecognized bytes.
	IsError bool

	// IsEOF marks the null lookahead: end of input, or a state that lexes
	// nothing at all.
	IsEOF bool
}

// ByteStart returns the absolute byte offset the token starts at, given
// the version position it was lexed from.
func (t *Token) ByteStart(versionPos base.Length) uint32 {
	return versionPos.Bytes + t.Padding.Bytes
}

// ByteEnd returns the absolute byte offset just past the token.
func (t *Token) ByteEnd(versionPos base.Length) uint32 {
	return t.ByteStart(versionPos) + t.Size.Bytes
}

// TokenCache is a one-slot memo of the last lexed token. A cache hit is
// valid only if ByteIndex matches the version's current byte offset and
// ExternalState equals the version's last external token's state.
type TokenCache struct {
	Token         *Token
	ByteIndex     uint32
	ExternalState []byte
	valid         bool
}

// Hit returns (token, true) iff the cache holds a token for byteIndex
// lexed with the given external-scanner state.
func (c *TokenCache) Hit(byteIndex uint32, externalState []byte) (*Token, bool) {
	if !c.valid || c.ByteIndex != byteIndex {
		return nil, false
	}
	if !bytesEqual(c.ExternalState, externalState) {
		return nil, false
	}
	return c.Token, true
}

// Store records tok as the last token lexed at byteIndex with the given
// external-scanner state (the state *before* tok was lexed — that is the
// cache key).
func (c *TokenCache) Store(tok *Token, byteIndex uint32, externalState []byte) {
	c.Token = tok
	c.ByteIndex = byteIndex
	c.ExternalState = externalState
	c.valid = true
}

// Invalidate drops the cached token (used whenever the version's position
// or external state changes in a way the cache key cannot represent).
func (c *TokenCache) Invalidate() { c.valid = false }

func bytesEqual(a, b []byte) bool {
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
