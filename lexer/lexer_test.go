package lexer

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/glrts/base"
)

func sourceInput(src string) Input {
	return func(byteOffset uint32, _ base.Point) ([]byte, uint32) {
		if byteOffset >= uint32(len(src)) {
			return nil, 0
		}
		chunk := []byte(src[byteOffset:])
		return chunk, uint32(len(chunk))
	}
}

func TestLexerAdvanceTracksRowAndColumn(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.lexer")
	defer teardown()

	l := NewLexer(sourceInput("ab\ncd"), nil)

	for i := 0; i < 3; i++ {
		if !l.Advance() {
			t.Fatalf("Advance() returned false before end of input, at byte %d", i)
		}
	}
	if l.Point() != (base.Point{Row: 1, Column: 0}) {
		t.Fatalf("Point() after consuming \"ab\\n\" = %+v, want {1 0}", l.Point())
	}
	if l.Position() != 3 {
		t.Fatalf("Position() = %d, want 3", l.Position())
	}
}

func TestLexerAtEOF(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.lexer")
	defer teardown()

	l := NewLexer(sourceInput("a"), nil)
	if l.AtEOF() {
		t.Fatalf("AtEOF() should be false before consuming the only byte")
	}
	l.Advance()
	if !l.AtEOF() {
		t.Fatalf("AtEOF() should be true once the only byte is consumed")
	}
}

func TestLexerStartFinishComputesPaddingSizeAndLookahead(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.lexer")
	defer teardown()

	l := NewLexer(sourceInput("  ab!"), nil)
	l.Advance() // skip two bytes of padding
	l.Advance()
	l.Start()
	l.Advance() // 'a'
	l.Advance() // 'b'
	tokenEnd := l.Position()
	l.Advance() // peek one byte past the token's own end ('!')
	l.MarkEnd()

	padding, size, lookahead := l.Finish(tokenEnd, base.Length{Bytes: 0})
	if padding.Bytes != 2 {
		t.Fatalf("padding.Bytes = %d, want 2", padding.Bytes)
	}
	if size.Bytes != 2 {
		t.Fatalf("size.Bytes = %d, want 2", size.Bytes)
	}
	if lookahead != 1 {
		t.Fatalf("lookaheadBytes = %d, want 1", lookahead)
	}
}

func TestLexerSnapsToIncludedRange(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.lexer")
	defer teardown()

	ranges := []Range{
		{StartByte: 0, EndByte: 2, StartPoint: base.Point{}, EndPoint: base.Point{Column: 2}},
		{StartByte: 5, EndByte: 8, StartPoint: base.Point{Row: 1}, EndPoint: base.Point{Row: 1, Column: 3}},
	}
	l := NewLexer(sourceInput("ab***cde"), ranges)
	l.Advance()
	l.Advance() // consume the first range entirely

	if l.Position() != 5 {
		t.Fatalf("Position() should snap past the excluded gap to the next range's start, got %d", l.Position())
	}
	if l.Point() != (base.Point{Row: 1}) {
		t.Fatalf("Point() should snap to the next range's start point, got %+v", l.Point())
	}
	b, ok := l.Lookahead()
	if !ok || b != 'c' {
		t.Fatalf("expected the lookahead to resume at 'c' in the next range, got %q, %v", b, ok)
	}
}

func TestLexerSlice(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glrts.lexer")
	defer teardown()

	l := NewLexer(sourceInput("hello world"), nil)
	if got := l.Slice(6, 11); got != "world" {
		t.Fatalf("Slice(6, 11) = %q, want \"world\"", got)
	}
	if got := l.Slice(3, 3); got != "" {
		t.Fatalf("Slice on an empty range should return \"\", got %q", got)
	}
}
