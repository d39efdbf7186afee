package rules

import (
	"bytes"
	"encoding/json"

	"specbook/internal/models"
)

// UnspecifiedTrade groups rules whose trade is empty or blank.
const UnspecifiedTrade = "unspecified"

// GroupedRules maps trade name to the rules extracted for it, keeping
// trades in first-seen order. It marshals to a JSON object whose keys
// appear in that order.
type GroupedRules struct {
	order  []string
	groups map[string][]models.RuleDetail
}

// GroupByTrade flattens per-chunk rule lists (chunk order, then within-chunk
// order) and groups them by trade. No sorting, no deduplication: the first
// appearance of a trade fixes its position and rules append in flattened
// order.
func GroupByTrade(perChunk [][]models.Rule) GroupedRules {
	g := GroupedRules{groups: map[string][]models.RuleDetail{}}
	for _, chunkRules := range perChunk {
		for _, r := range chunkRules {
			trade := r.Trade
			if trade == "" {
				trade = UnspecifiedTrade
			}
			if _, seen := g.groups[trade]; !seen {
				g.order = append(g.order, trade)
			}
			g.groups[trade] = append(g.groups[trade], r.Detail())
		}
	}
	return g
}

// Trades returns the trade names in first-seen order.
func (g GroupedRules) Trades() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Rules returns the rules recorded for trade, in extraction order.
func (g GroupedRules) Rules(trade string) []models.RuleDetail {
	return g.groups[trade]
}

// RuleCount returns the total number of grouped rules.
func (g GroupedRules) RuleCount() int {
	n := 0
	for _, v := range g.groups {
		n += len(v)
	}
	return n
}

func (g GroupedRules) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, trade := range g.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(trade)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(g.groups[trade])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
