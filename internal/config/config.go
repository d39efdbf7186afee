package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	APIAddr           string
	TemporalAddress   string
	TemporalTaskQueue string
	DataInRoot        string
	DataOutRoot       string
	ChunkSize         int
	ChunkOverlap      int
	MaxRetries        int
	MaxConcurrency    int
	BackoffSeconds    int
	Trades            []string
	PromptTemplate    string
	LLMProviders      string
}

// DefaultTrades is the trade allow-list used when a run does not supply one.
var DefaultTrades = []string{
	"carpenter",
	"drywall",
	"electrician",
	"hvac",
	"insulator",
	"painter",
	"plumber",
	"roofer",
	"steel",
	"tiler",
}

func Load() Config {
	return Config{
		APIAddr:           getenv("SPECBOOK_API_ADDR", ":8080"),
		TemporalAddress:   getenv("SPECBOOK_TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTaskQueue: getenv("SPECBOOK_TEMPORAL_TASK_QUEUE", "specbook"),
		DataInRoot:        getenv("SPECBOOK_DATA_IN", "./data/in"),
		DataOutRoot:       getenv("SPECBOOK_DATA_OUT", "./data/out"),
		ChunkSize:         getenvInt("SPECBOOK_CHUNK_SIZE", 5),
		ChunkOverlap:      getenvInt("SPECBOOK_CHUNK_OVERLAP", 1),
		MaxRetries:        getenvInt("SPECBOOK_MAX_RETRIES", 5),
		MaxConcurrency:    getenvInt("SPECBOOK_MAX_CONCURRENCY", 4),
		BackoffSeconds:    getenvInt("SPECBOOK_BACKOFF_SECONDS", 1),
		Trades:            getenvList("SPECBOOK_TRADES", DefaultTrades),
		PromptTemplate:    getenv("SPECBOOK_PROMPT_TEMPLATE", ""),
		LLMProviders:      getenv("SPECBOOK_LLM_PROVIDERS", "mock"),
	}
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvList(k string, fallback []string) []string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
