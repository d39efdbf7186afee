package rules

import "strings"

// TradeListPlaceholder is the literal token replaced with the comma-joined
// trade allow-list when a prompt is built.
const TradeListPlaceholder = "{{TRADE_LIST}}"

const DefaultPromptTemplate = `You are given a contiguous window of pages from a construction specbook.
Extract explicit, actionable rules for each trade listed.
Allowed trades: {{TRADE_LIST}}

Return ONLY valid JSON with this schema:
{
  "rules": [
    {
      "trade": "plumber",
      "rule_id": "P-001",
      "description": "Short, precise requirement",
      "requirements": ["bullet-like requirement 1", "requirement 2"],
      "source_pages": [1, 2],
      "source_chunk": "specbook_chunk_1"
    }
  ]
}

Rules must be specific (not generic), derived directly from the pages provided.
If no rules apply to a trade, omit that trade entirely.
Do not include any text outside the JSON.`

// BuildRulesPrompt substitutes the trade allow-list into template. An empty
// template selects the default. The template is always an explicit argument
// so callers carry their own configuration instead of process-wide state.
func BuildRulesPrompt(template string, trades []string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}
	return strings.ReplaceAll(template, TradeListPlaceholder, strings.Join(trades, ", "))
}
