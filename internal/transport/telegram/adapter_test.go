package telegram

import (
	"strings"
	"testing"
)

func TestSplitTextShort(t *testing.T) {
	t.Parallel()
	got := splitText("hello", 100)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("unexpected chunks: %#v", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()
	s := strings.Repeat("a", 60) + "\n" + strings.Repeat("b", 60)
	got := splitText(s, 100)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got[0] != strings.Repeat("a", 60) {
		t.Fatalf("chunk 0 not cut at newline: %q", got[0])
	}
	if got[1] != strings.Repeat("b", 60) {
		t.Fatalf("chunk 1 unexpected: %q", got[1])
	}
}

func TestSplitTextHardCut(t *testing.T) {
	t.Parallel()
	s := strings.Repeat("x", 250)
	got := splitText(s, 100)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	total := 0
	for _, c := range got {
		if len(c) > 100 {
			t.Fatalf("chunk exceeds limit: %d", len(c))
		}
		total += len(c)
	}
	if total != 250 {
		t.Fatalf("lost content: total %d", total)
	}
}
