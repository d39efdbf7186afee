package models

// Rule is one extracted requirement, scoped to the trade it applies to and
// the chunk it came from. SourcePages are the page numbers the model
// reported; they are carried through as-is, not checked against the chunk's
// actual page range.
type Rule struct {
	Trade        string   `json:"trade"`
	RuleID       string   `json:"rule_id"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	SourcePages  []int    `json:"source_pages"`
	SourceChunk  string   `json:"source_chunk"`
}

// RuleDetail is the per-trade output record. Same fields as Rule minus the
// trade, which becomes the grouping key in the output artifact.
type RuleDetail struct {
	RuleID       string   `json:"rule_id"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	SourcePages  []int    `json:"source_pages"`
	SourceChunk  string   `json:"source_chunk"`
}

func (r Rule) Detail() RuleDetail {
	return RuleDetail{
		RuleID:       r.RuleID,
		Description:  r.Description,
		Requirements: r.Requirements,
		SourcePages:  r.SourcePages,
		SourceChunk:  r.SourceChunk,
	}
}
