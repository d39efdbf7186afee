package providers

import (
	"context"
	"fmt"
	"strings"

	"specbook/internal/util"
)

// MockProvider returns a deterministic, well-formed rules payload so the
// pipeline runs end to end without network access. The payload is wrapped
// in prose on purpose: downstream parsing must tolerate non-pure JSON.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}
	trade := firstAllowedTrade(req.Prompt)
	seed := strings.Join(req.Pages, "\n")
	if seed == "" {
		seed = req.Prompt
	}
	id := util.SHA256Hex([]byte(seed))[:8]
	text := fmt.Sprintf(
		"Here is the extraction you asked for:\n"+
			`{"rules":[{"trade":%q,"rule_id":"MOCK-%s","description":"Deterministic mock rule derived from the provided pages.","requirements":["replace the mock provider for real extractions"],"source_pages":[1],"source_chunk":""}]}`+
			"\nLet me know if you need anything else.",
		trade, id,
	)
	return GenerateResponse{Text: text}, info, nil
}

// firstAllowedTrade pulls the first trade off the "Allowed trades:" line of
// the prompt so mock output groups under a real trade when one exists.
func firstAllowedTrade(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Allowed trades:"); ok {
			parts := strings.Split(rest, ",")
			if len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
	}
	return ""
}
