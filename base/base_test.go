package base

import "testing"

func TestSpanAccessorsAndOverlap(t *testing.T) {
	s := Span{3, 7}
	if s.From() != 3 || s.To() != 7 || s.Len() != 4 {
		t.Fatalf("Span{3,7} accessors = (%d,%d,%d), want (3,7,4)", s.From(), s.To(), s.Len())
	}
	if (Span{}).IsNull() != true {
		t.Fatalf("the zero Span should report IsNull")
	}
	if s.IsNull() {
		t.Fatalf("a non-zero Span should not report IsNull")
	}
	if !s.Overlaps(Span{5, 9}) {
		t.Fatalf("[3,7) and [5,9) should overlap")
	}
	if s.Overlaps(Span{7, 9}) {
		t.Fatalf("[3,7) and [7,9) are adjacent, not overlapping")
	}
}

func TestSpanExtend(t *testing.T) {
	s := Span{3, 7}.Extend(Span{1, 5})
	if s != (Span{1, 7}) {
		t.Fatalf("Extend should grow to cover both spans, got %v, want {1 7}", s)
	}
	s = Span{3, 7}.Extend(Span{4, 9})
	if s != (Span{3, 9}) {
		t.Fatalf("Extend should grow the upper bound, got %v, want {3 9}", s)
	}
}

func TestLengthAddWithinSameRow(t *testing.T) {
	a := Length{Bytes: 5, Row: 1, Column: 3}
	b := Length{Bytes: 2, Row: 0, Column: 4}
	got := a.Add(b)
	want := Length{Bytes: 7, Row: 1, Column: 7}
	if got != want {
		t.Fatalf("Add within the same row = %+v, want %+v", got, want)
	}
}

func TestLengthAddAcrossRows(t *testing.T) {
	a := Length{Bytes: 5, Row: 1, Column: 3}
	b := Length{Bytes: 4, Row: 2, Column: 1}
	got := a.Add(b)
	want := Length{Bytes: 9, Row: 3, Column: 1}
	if got != want {
		t.Fatalf("Add across rows should replace the running column with b's trailing column, got %+v, want %+v", got, want)
	}
}

// Sub is meant for the delta-between-two-absolute-positions use, not as a
// general Add inverse: it only subtracts columns when both operands sit on
// the same row, otherwise it keeps a's own column as the delta's column.
func TestLengthSubSameRow(t *testing.T) {
	a := Length{Bytes: 10, Row: 2, Column: 8}
	b := Length{Bytes: 5, Row: 2, Column: 3}
	got := a.Sub(b)
	want := Length{Bytes: 5, Row: 0, Column: 5}
	if got != want {
		t.Fatalf("Sub on the same row should subtract bytes and columns, got %+v, want %+v", got, want)
	}
}

func TestLengthSubDifferentRows(t *testing.T) {
	a := Length{Bytes: 20, Row: 3, Column: 4}
	b := Length{Bytes: 8, Row: 1, Column: 9}
	got := a.Sub(b)
	want := Length{Bytes: 12, Row: 2, Column: a.Column}
	if got != want {
		t.Fatalf("Sub across rows should keep a's own column, got %+v, want %+v", got, want)
	}
}

func TestLengthIsZero(t *testing.T) {
	if !ZeroLength.IsZero() {
		t.Fatalf("ZeroLength should report IsZero")
	}
	if (Length{Bytes: 1}).IsZero() {
		t.Fatalf("a non-zero Length should not report IsZero")
	}
}

func TestLengthOfBytesCountsRowsAndTrailingColumn(t *testing.T) {
	got := LengthOfBytes([]byte("ab\ncde"))
	want := Length{Bytes: 6, Row: 1, Column: 3}
	if got != want {
		t.Fatalf("LengthOfBytes(\"ab\\ncde\") = %+v, want %+v", got, want)
	}
	if !LengthOfBytes(nil).IsZero() {
		t.Fatalf("LengthOfBytes(nil) should be the zero Length")
	}
}
