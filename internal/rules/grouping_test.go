package rules

import (
	"encoding/json"
	"strings"
	"testing"

	"specbook/internal/models"
)

func rule(trade, id string) models.Rule {
	return models.Rule{Trade: trade, RuleID: id, Description: "d"}
}

func TestGroupByTradeFirstSeenOrder(t *testing.T) {
	perChunk := [][]models.Rule{
		{rule("plumber", "P-1"), rule("roofer", "R-1")},
		{rule("plumber", "P-2"), rule("", "U-1")},
		{rule("roofer", "R-2")},
	}
	g := GroupByTrade(perChunk)

	trades := g.Trades()
	want := []string{"plumber", "roofer", UnspecifiedTrade}
	if len(trades) != len(want) {
		t.Fatalf("expected %d trades, got %d", len(want), len(trades))
	}
	for i := range want {
		if trades[i] != want[i] {
			t.Fatalf("trade %d: got %s want %s", i, trades[i], want[i])
		}
	}
	if g.RuleCount() != 5 {
		t.Fatalf("expected 5 rules, got %d", g.RuleCount())
	}
	plumber := g.Rules("plumber")
	if len(plumber) != 2 || plumber[0].RuleID != "P-1" || plumber[1].RuleID != "P-2" {
		t.Fatalf("unexpected plumber rules: %+v", plumber)
	}
}

func TestGroupByTradeNoDeduplication(t *testing.T) {
	g := GroupByTrade([][]models.Rule{{rule("tiler", "T-1"), rule("tiler", "T-1")}})
	if len(g.Rules("tiler")) != 2 {
		t.Fatalf("duplicates must be kept, got %d", len(g.Rules("tiler")))
	}
}

func TestGroupedRulesMarshalKeyOrder(t *testing.T) {
	g := GroupByTrade([][]models.Rule{{rule("zeta", "Z-1"), rule("alpha", "A-1")}})
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	zeta := strings.Index(s, `"zeta"`)
	alpha := strings.Index(s, `"alpha"`)
	if zeta == -1 || alpha == -1 || zeta > alpha {
		t.Fatalf("expected zeta before alpha in %s", s)
	}

	// Round-trip through a generic map to confirm the JSON stays valid.
	var decoded map[string][]models.RuleDetail
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded["zeta"]) != 1 || decoded["zeta"][0].RuleID != "Z-1" {
		t.Fatalf("unexpected decoded groups: %+v", decoded)
	}
}

func TestGroupByTradeEmpty(t *testing.T) {
	g := GroupByTrade(nil)
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "{}" {
		t.Fatalf("expected empty object, got %s", b)
	}
}
