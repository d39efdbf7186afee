package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"specbook/internal/models"
	"specbook/internal/util"
)

// Payload is the decoded top-level object of a model response. Items stay
// raw until RulesFromPayload validates them.
type Payload struct {
	Rules []json.RawMessage `json:"rules"`
}

// DecodeRulesJSON extracts the JSON object embedded in raw model output.
// Providers are not guaranteed to return pure JSON, so the substring
// between the first '{' and the last '}' is decoded; anything around it is
// ignored.
func DecodeRulesJSON(raw string) (Payload, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return Payload{}, fmt.Errorf("%w: response did not contain a JSON object", util.ErrMalformedResponse)
	}
	var p Payload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", util.ErrMalformedResponse, err)
	}
	return p, nil
}

type rawRule struct {
	Trade        any   `json:"trade"`
	RuleID       any   `json:"rule_id"`
	Description  any   `json:"description"`
	Requirements []any `json:"requirements"`
	SourcePages  []any `json:"source_pages"`
	SourceChunk  any   `json:"source_chunk"`
}

// RulesFromPayload converts a decoded payload into typed rules. rule_id and
// description are required on every item; a single bad item fails the whole
// chunk so a partially valid response is never half-accepted. source_chunk
// falls back to sourceChunk when the model omits it.
func RulesFromPayload(p Payload, sourceChunk string) ([]models.Rule, error) {
	out := make([]models.Rule, 0, len(p.Rules))
	for i, rawItem := range p.Rules {
		dec := json.NewDecoder(strings.NewReader(string(rawItem)))
		dec.UseNumber()
		var item rawRule
		if err := dec.Decode(&item); err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", util.ErrMalformedResponse, i, err)
		}

		ruleID, ok := coerceString(item.RuleID)
		if !ok {
			return nil, fmt.Errorf("%w: rule %d missing rule_id", util.ErrMalformedResponse, i)
		}
		description, ok := coerceString(item.Description)
		if !ok {
			return nil, fmt.Errorf("%w: rule %d missing description", util.ErrMalformedResponse, i)
		}

		trade := ""
		if v, ok := coerceString(item.Trade); ok {
			trade = strings.TrimSpace(v)
		}

		requirements := make([]string, 0, len(item.Requirements))
		for _, req := range item.Requirements {
			v, ok := coerceString(req)
			if !ok {
				return nil, fmt.Errorf("%w: rule %d has a non-text requirement", util.ErrMalformedResponse, i)
			}
			requirements = append(requirements, v)
		}

		sourcePages := make([]int, 0, len(item.SourcePages))
		for _, pv := range item.SourcePages {
			n, ok := coerceInt(pv)
			if !ok {
				return nil, fmt.Errorf("%w: rule %d has a non-numeric source page", util.ErrMalformedResponse, i)
			}
			sourcePages = append(sourcePages, n)
		}

		chunkName := sourceChunk
		if v, ok := coerceString(item.SourceChunk); ok && v != "" {
			chunkName = v
		}

		out = append(out, models.Rule{
			Trade:        trade,
			RuleID:       ruleID,
			Description:  description,
			Requirements: requirements,
			SourcePages:  sourcePages,
			SourceChunk:  chunkName,
		})
	}
	return out, nil
}

func coerceString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

func coerceInt(v any) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
		if f, err := x.Float64(); err == nil {
			return int(f), true
		}
		return 0, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
