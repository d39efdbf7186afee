package rules

import (
	"errors"
	"testing"

	"specbook/internal/util"
)

func TestDecodeRulesJSONToleratesSurroundingProse(t *testing.T) {
	raw := "Sure! Here are the extracted rules:\n" +
		`{"rules":[{"trade":"plumber","rule_id":"P-001","description":"Copper supply lines only","requirements":["type L copper"],"source_pages":[12,13]}]}` +
		"\nLet me know if you need more."
	p, err := DecodeRulesJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := RulesFromPayload(p, "spec_chunk_3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(out))
	}
	r := out[0]
	if r.Trade != "plumber" || r.RuleID != "P-001" {
		t.Fatalf("unexpected rule: %+v", r)
	}
	if len(r.SourcePages) != 2 || r.SourcePages[0] != 12 {
		t.Fatalf("unexpected source pages: %v", r.SourcePages)
	}
	if r.SourceChunk != "spec_chunk_3" {
		t.Fatalf("expected chunk fallback, got %q", r.SourceChunk)
	}
}

func TestDecodeRulesJSONNoObject(t *testing.T) {
	for _, raw := range []string{"", "no json here", "} inverted {"} {
		if _, err := DecodeRulesJSON(raw); !errors.Is(err, util.ErrMalformedResponse) {
			t.Fatalf("%q: expected ErrMalformedResponse, got %v", raw, err)
		}
	}
}

func TestDecodeRulesJSONAbsentRulesKey(t *testing.T) {
	p, err := DecodeRulesJSON(`{"notes":"nothing to extract"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := RulesFromPayload(p, "spec_chunk_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected 0 rules, got %d", len(out))
	}
}

func TestRulesFromPayloadMissingRequiredFieldFailsChunk(t *testing.T) {
	p, err := DecodeRulesJSON(`{"rules":[
		{"trade":"roofer","rule_id":"R-001","description":"Ice barrier at eaves"},
		{"trade":"roofer","description":"missing rule_id"}
	]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := RulesFromPayload(p, "spec_chunk_1"); !errors.Is(err, util.ErrMalformedResponse) {
		t.Fatalf("expected whole chunk to fail, got %v", err)
	}
}

func TestRulesFromPayloadCoercions(t *testing.T) {
	p, err := DecodeRulesJSON(`{"rules":[{
		"trade":"  electrician ",
		"rule_id":42,
		"description":"Panel schedule per E-sheets",
		"requirements":["AFCI in bedrooms",7],
		"source_pages":["3",4.9],
		"source_chunk":"spec_chunk_9"
	}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := RulesFromPayload(p, "fallback")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := out[0]
	if r.Trade != "electrician" {
		t.Fatalf("expected trimmed trade, got %q", r.Trade)
	}
	if r.RuleID != "42" {
		t.Fatalf("expected numeric rule_id coerced to string, got %q", r.RuleID)
	}
	if r.Requirements[1] != "7" {
		t.Fatalf("expected numeric requirement coerced, got %q", r.Requirements[1])
	}
	if r.SourcePages[0] != 3 || r.SourcePages[1] != 4 {
		t.Fatalf("unexpected coerced pages: %v", r.SourcePages)
	}
	if r.SourceChunk != "spec_chunk_9" {
		t.Fatalf("expected explicit source_chunk kept, got %q", r.SourceChunk)
	}
}

func TestRulesFromPayloadNonNumericPageFailsChunk(t *testing.T) {
	p, err := DecodeRulesJSON(`{"rules":[{"rule_id":"X-1","description":"d","source_pages":["twelve"]}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := RulesFromPayload(p, "c"); !errors.Is(err, util.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
