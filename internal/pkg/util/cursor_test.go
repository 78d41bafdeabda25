package util

import "testing"

func TestCursorRoundTrip(t *testing.T) {
	for _, seq := range []uint64{1, 20, 999999, 18446744073709551615} {
		cursor := EncodeCursor(seq)
		if cursor == "" {
			t.Fatalf("cursor for seq %d should not be empty", seq)
		}
		got, err := DecodeCursor(cursor)
		if err != nil {
			t.Fatalf("decode cursor failed: %v", err)
		}
		if got != seq {
			t.Fatalf("expected %d, got %d", seq, got)
		}
	}
}

func TestCursorEmpty(t *testing.T) {
	if EncodeCursor(0) != "" {
		t.Fatalf("seq 0 should encode to empty cursor")
	}
	got, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("empty cursor should decode without error: %v", err)
	}
	if got != 0 {
		t.Fatalf("empty cursor should decode to 0, got %d", got)
	}
}

func TestCursorInvalid(t *testing.T) {
	if _, err := DecodeCursor("not-base64!!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
	if _, err := DecodeCursor("bm90LWpzb24="); err == nil {
		t.Fatalf("expected error for non-json cursor")
	}
}
