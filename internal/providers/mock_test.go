package providers

import (
	"context"
	"strings"
	"testing"

	"specbook/internal/rules"
)

func TestMockProviderOutputParses(t *testing.T) {
	p := NewMockProvider()
	prompt := rules.BuildRulesPrompt("", []string{"plumber", "roofer"})
	resp, info, err := p.Generate(context.Background(), GenerateRequest{
		Operation: "rules_extract",
		Prompt:    prompt,
		Pages:     []string{"Page 1:\nSection 22 plumbing"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if info.Name != "mock" {
		t.Fatalf("unexpected provider info: %+v", info)
	}

	payload, err := rules.DecodeRulesJSON(resp.Text)
	if err != nil {
		t.Fatalf("mock output must decode: %v", err)
	}
	out, err := rules.RulesFromPayload(payload, "spec_chunk_1")
	if err != nil {
		t.Fatalf("mock output must validate: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(out))
	}
	if out[0].Trade != "plumber" {
		t.Fatalf("expected first allowed trade, got %q", out[0].Trade)
	}
	if !strings.HasPrefix(out[0].RuleID, "MOCK-") {
		t.Fatalf("unexpected rule id %q", out[0].RuleID)
	}
	if out[0].SourceChunk != "spec_chunk_1" {
		t.Fatalf("expected chunk fallback, got %q", out[0].SourceChunk)
	}
}

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockProvider()
	req := GenerateRequest{Prompt: "Allowed trades: tiler", Pages: []string{"same pages"}}
	a, _, _ := p.Generate(context.Background(), req)
	b, _, _ := p.Generate(context.Background(), req)
	if a.Text != b.Text {
		t.Fatal("mock output must be deterministic for identical input")
	}
}
