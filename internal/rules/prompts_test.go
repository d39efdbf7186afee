package rules

import (
	"strings"
	"testing"
)

func TestBuildRulesPromptDefaultTemplate(t *testing.T) {
	prompt := BuildRulesPrompt("", []string{"plumber", "roofer"})
	if strings.Contains(prompt, TradeListPlaceholder) {
		t.Fatal("placeholder was not substituted")
	}
	if !strings.Contains(prompt, "Allowed trades: plumber, roofer") {
		t.Fatalf("trade list missing from prompt:\n%s", prompt)
	}
}

func TestBuildRulesPromptCustomTemplate(t *testing.T) {
	prompt := BuildRulesPrompt("Trades here: {{TRADE_LIST}} and again {{TRADE_LIST}}", []string{"hvac"})
	if prompt != "Trades here: hvac and again hvac" {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
}
