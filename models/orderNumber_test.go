package models

import (
	"fmt"
	"testing"
)

func TestFormatOrderNumber_Sequence(t *testing.T) {
	cases := map[int]string{
		1:    "ORD-001",
		2:    "ORD-002",
		99:   "ORD-099",
		100:  "ORD-100",
		999:  "ORD-999",
		1000: "ORD-1000",
	}
	for seq, want := range cases {
		if got := formatOrderNumber(seq); got != want {
			t.Errorf("formatOrderNumber(%d) = %q, want %q", seq, got, want)
		}
	}
}

func TestParseOrderNumberSeq(t *testing.T) {
	cases := map[string]int{
		"ORD-001":  1,
		"ORD-042":  42,
		"ORD-999":  999,
		"ORD-1000": 1000,
	}
	for number, want := range cases {
		if got := parseOrderNumberSeq(number); got != want {
			t.Errorf("parseOrderNumberSeq(%q) = %d, want %d", number, got, want)
		}
	}
}

func TestParseOrderNumberSeq_MalformedFallsBackToZero(t *testing.T) {
	for _, number := range []string{"", "ORD-", "ORD-abc", "SO-001", "ORD", "001"} {
		if got := parseOrderNumberSeq(number); got != 0 {
			t.Errorf("parseOrderNumberSeq(%q) = %d, want 0", number, got)
		}
	}
}

func TestOrderNumberRoundTrip(t *testing.T) {
	for seq := 1; seq <= 1200; seq++ {
		number := formatOrderNumber(seq)
		if got := parseOrderNumberSeq(number); got != seq {
			t.Fatalf("round trip failed at %d: %s parsed as %d", seq, number, got)
		}
	}
	// the successor of a malformed latest number restarts the sequence
	if got := formatOrderNumber(parseOrderNumberSeq("garbage") + 1); got != "ORD-001" {
		t.Errorf("successor of malformed number = %q, want ORD-001", got)
	}
}

func TestFormatOrderNumber_PaddingNeverTruncates(t *testing.T) {
	for _, seq := range []int{5, 55, 555, 5555} {
		number := formatOrderNumber(seq)
		want := fmt.Sprintf("ORD-%03d", seq)
		if number != want {
			t.Errorf("formatOrderNumber(%d) = %q, want %q", seq, number, want)
		}
	}
}
