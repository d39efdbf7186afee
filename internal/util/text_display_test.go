package util

import (
	"strings"
	"testing"
)

func TestDisplaySnippet(t *testing.T) {
	in := "Hello\x00   world \n\t again"
	out := DisplaySnippet(in, 100)
	if out != "Hello world again" {
		t.Fatalf("unexpected snippet: %q", out)
	}
}

func TestDisplaySnippetTruncates(t *testing.T) {
	in := strings.Repeat("rule text ", 100)
	out := DisplaySnippet(in, 20)
	if !strings.HasSuffix(out, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", out)
	}
	if len([]rune(out)) > 24 {
		t.Fatalf("snippet too long: %d runes", len([]rune(out)))
	}
}
