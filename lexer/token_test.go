package lexer

import (
	"testing"

	"github.com/npillmayer/glrts/base"
)

func TestTokenCacheHitRequiresMatchingByteIndexAndExternalState(t *testing.T) {
	var c TokenCache
	tok := &Token{Symbol: 5, Lexeme: "x"}
	c.Store(tok, 10, []byte{1, 2, 3})

	if _, ok := c.Hit(10, []byte{1, 2, 3}); !ok {
		t.Fatalf("expected a hit at the exact (byteIndex, externalState) the token was stored with")
	}
	if _, ok := c.Hit(11, []byte{1, 2, 3}); ok {
		t.Fatalf("did not expect a hit at a different byteIndex")
	}
	if _, ok := c.Hit(10, []byte{9, 9, 9}); ok {
		t.Fatalf("did not expect a hit with a different externalState")
	}
}

func TestTokenCacheInvalidate(t *testing.T) {
	var c TokenCache
	c.Store(&Token{Symbol: 1}, 0, nil)
	c.Invalidate()
	if _, ok := c.Hit(0, nil); ok {
		t.Fatalf("expected Invalidate to clear the cache")
	}
}

func TestTokenByteStartEnd(t *testing.T) {
	tok := &Token{Padding: base.Length{Bytes: 2}, Size: base.Length{Bytes: 3}}
	versionPos := base.Length{Bytes: 10}
	if got := tok.ByteStart(versionPos); got != 12 {
		t.Fatalf("ByteStart = %d, want 12", got)
	}
	if got := tok.ByteEnd(versionPos); got != 15 {
		t.Fatalf("ByteEnd = %d, want 15", got)
	}
}
