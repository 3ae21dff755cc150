package core

import (
	"strings"

	"github.com/samber/lo"
)

// Merge folds breakdowns into one aggregation keyed by model id. Entries with
// an empty model id are dropped.
func Merge(breakdowns ...ModelBreakdown) AggregatedUsage {
	out := make(AggregatedUsage, len(breakdowns))
	for _, b := range breakdowns {
		id := strings.TrimSpace(b.Model)
		if id == "" {
			continue
		}
		acc, ok := out[id]
		if !ok {
			acc = ModelBreakdown{Model: id}
		}
		out[id] = acc.add(b)
	}
	return out
}

// Aggregate sums every bucket's breakdowns per model.
func Aggregate(buckets []Bucket) AggregatedUsage {
	var all []ModelBreakdown
	for _, bucket := range buckets {
		all = append(all, bucket.Breakdowns...)
	}
	return Merge(all...)
}

// EstimateBreakdowns splits a bucket's totals evenly across its distinct
// models. Token remainders from the integer division are dropped.
func EstimateBreakdowns(bucket Bucket) []ModelBreakdown {
	models := distinctModels(bucket.Models)
	if len(models) == 0 {
		return nil
	}
	n := int64(len(models))
	out := make([]ModelBreakdown, 0, len(models))
	for _, model := range models {
		out = append(out, ModelBreakdown{
			Model:               model,
			InputTokens:         bucket.Tokens.InputTokens / n,
			OutputTokens:        bucket.Tokens.OutputTokens / n,
			CacheCreationTokens: bucket.Tokens.CacheCreationTokens / n,
			CacheReadTokens:     bucket.Tokens.CacheReadTokens / n,
			CostUSD:             bucket.CostUSD / float64(n),
		})
	}
	return out
}

func distinctModels(models []string) []string {
	trimmed := lo.Map(models, func(m string, _ int) string {
		return strings.TrimSpace(m)
	})
	return lo.Uniq(lo.Compact(trimmed))
}
