package core

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// ModelBreakdown is one model's contribution within a bucket or aggregation.
type ModelBreakdown struct {
	Model               string  `json:"model"`
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens"`
	CostUSD             float64 `json:"cost_usd"`
}

func (b ModelBreakdown) TotalTokens() int64 {
	return b.InputTokens + b.OutputTokens + b.CacheCreationTokens + b.CacheReadTokens
}

func (b ModelBreakdown) add(o ModelBreakdown) ModelBreakdown {
	b.InputTokens += o.InputTokens
	b.OutputTokens += o.OutputTokens
	b.CacheCreationTokens += o.CacheCreationTokens
	b.CacheReadTokens += o.CacheReadTokens
	b.CostUSD += o.CostUSD
	return b
}

// TokenCounts holds bucket-level token totals.
type TokenCounts struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
}

type BucketKind string

const (
	BucketDay     BucketKind = "day"
	BucketSession BucketKind = "session"
)

// Bucket is one reported window: a calendar day or a session block.
type Bucket struct {
	Kind       BucketKind
	ID         string
	Date       string // YYYY-MM-DD for day buckets
	Start      time.Time
	End        time.Time
	Active     bool
	Gap        bool
	CostUSD    float64
	Tokens     TokenCounts
	Models     []string
	Breakdowns []ModelBreakdown
}

// AggregatedUsage maps a model identifier to its cumulative breakdown.
// A non-nil empty map means "no usage recorded".
type AggregatedUsage map[string]ModelBreakdown

func (u AggregatedUsage) TotalCost() float64 {
	var total float64
	for _, b := range u {
		total += b.CostUSD
	}
	return total
}

// Sorted returns the entries ordered by cost descending, then model id.
func (u AggregatedUsage) Sorted() []ModelBreakdown {
	out := lo.Values(u)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CostUSD != out[j].CostUSD {
			return out[i].CostUSD > out[j].CostUSD
		}
		return out[i].Model < out[j].Model
	})
	return out
}

func (u AggregatedUsage) Clone() AggregatedUsage {
	if u == nil {
		return nil
	}
	out := make(AggregatedUsage, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}
