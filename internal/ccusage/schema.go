package ccusage

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/janekbaraniewski/usagetray/internal/core"
)

// Schema names the response shape a payload was recognized as.
type Schema string

const (
	SchemaDaily      Schema = "daily"
	SchemaBlocks     Schema = "blocks"
	SchemaSessions   Schema = "sessions"
	SchemaBlock      Schema = "block"
	SchemaBlockArray Schema = "block_array"
)

// Response is a normalized ccusage reply. Buckets keep the tool's order,
// which is most recent first for daily and recent block queries.
type Response struct {
	Schema  Schema
	Buckets []core.Bucket
}

type rawBreakdown struct {
	ModelName           string  `json:"modelName"`
	InputTokens         int64   `json:"inputTokens"`
	OutputTokens        int64   `json:"outputTokens"`
	CacheCreationTokens int64   `json:"cacheCreationTokens"`
	CacheReadTokens     int64   `json:"cacheReadTokens"`
	Cost                float64 `json:"cost"`
}

type rawDay struct {
	Date                string         `json:"date"`
	InputTokens         int64          `json:"inputTokens"`
	OutputTokens        int64          `json:"outputTokens"`
	CacheCreationTokens int64          `json:"cacheCreationTokens"`
	CacheReadTokens     int64          `json:"cacheReadTokens"`
	TotalCost           float64        `json:"totalCost"`
	ModelsUsed          []string       `json:"modelsUsed"`
	ModelBreakdowns     []rawBreakdown `json:"modelBreakdowns"`
}

type rawBlockTokens struct {
	InputTokens              int64 `json:"inputTokens"`
	OutputTokens             int64 `json:"outputTokens"`
	CacheCreationInputTokens int64 `json:"cacheCreationInputTokens"`
	CacheReadInputTokens     int64 `json:"cacheReadInputTokens"`
}

type rawBlock struct {
	ID              *string        `json:"id"`
	StartTime       *string        `json:"startTime"`
	EndTime         string         `json:"endTime"`
	IsActive        bool           `json:"isActive"`
	IsGap           bool           `json:"isGap"`
	TokenCounts     rawBlockTokens `json:"tokenCounts"`
	CostUSD         *float64       `json:"costUSD"`
	Models          []string       `json:"models"`
	ModelBreakdowns []rawBreakdown `json:"modelBreakdowns"`
}

type rawSession struct {
	SessionID           string         `json:"sessionId"`
	InputTokens         int64          `json:"inputTokens"`
	OutputTokens        int64          `json:"outputTokens"`
	CacheCreationTokens int64          `json:"cacheCreationTokens"`
	CacheReadTokens     int64          `json:"cacheReadTokens"`
	TotalCost           float64        `json:"totalCost"`
	LastActivity        string         `json:"lastActivity"`
	ModelsUsed          []string       `json:"modelsUsed"`
	ModelBreakdowns     []rawBreakdown `json:"modelBreakdowns"`
}

type schemaAttempt struct {
	schema Schema
	parse  func(data []byte) ([]core.Bucket, bool)
}

// attempts are tried in order; the first shape that decodes wins.
var attempts = []schemaAttempt{
	{SchemaDaily, parseDaily},
	{SchemaBlocks, parseBlocks},
	{SchemaSessions, parseSessions},
	{SchemaBlock, parseSingleBlock},
	{SchemaBlockArray, parseBlockArray},
}

// Parse recognizes a ccusage JSON payload. Only exhausting every known shape
// is an error.
func Parse(data []byte) (Response, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 {
		for _, attempt := range attempts {
			if buckets, ok := attempt.parse(trimmed); ok {
				return Response{Schema: attempt.schema, Buckets: buckets}, nil
			}
		}
	}
	return Response{}, &ParseError{Payload: string(data)}
}

func parseDaily(data []byte) ([]core.Bucket, bool) {
	var doc struct {
		Daily *[]rawDay `json:"daily"`
	}
	if json.Unmarshal(data, &doc) != nil || doc.Daily == nil {
		return nil, false
	}
	out := make([]core.Bucket, 0, len(*doc.Daily))
	for _, day := range *doc.Daily {
		out = append(out, core.Bucket{
			Kind:    core.BucketDay,
			ID:      day.Date,
			Date:    day.Date,
			CostUSD: nonNegativeFloat(day.TotalCost),
			Tokens: tokenCounts(
				day.InputTokens, day.OutputTokens,
				day.CacheCreationTokens, day.CacheReadTokens,
			),
			Models:     day.ModelsUsed,
			Breakdowns: convertBreakdowns(day.ModelBreakdowns),
		})
	}
	return out, true
}

func parseBlocks(data []byte) ([]core.Bucket, bool) {
	var doc struct {
		Blocks *[]rawBlock `json:"blocks"`
	}
	if json.Unmarshal(data, &doc) != nil || doc.Blocks == nil {
		return nil, false
	}
	return convertBlocks(*doc.Blocks), true
}

func parseSessions(data []byte) ([]core.Bucket, bool) {
	var doc struct {
		Sessions *[]rawSession `json:"sessions"`
	}
	if json.Unmarshal(data, &doc) != nil || doc.Sessions == nil {
		return nil, false
	}
	out := make([]core.Bucket, 0, len(*doc.Sessions))
	for _, s := range *doc.Sessions {
		last := parseTime(s.LastActivity)
		out = append(out, core.Bucket{
			Kind:    core.BucketSession,
			ID:      s.SessionID,
			End:     last,
			CostUSD: nonNegativeFloat(s.TotalCost),
			Tokens: tokenCounts(
				s.InputTokens, s.OutputTokens,
				s.CacheCreationTokens, s.CacheReadTokens,
			),
			Models:     s.ModelsUsed,
			Breakdowns: convertBreakdowns(s.ModelBreakdowns),
		})
	}
	return out, true
}

func parseSingleBlock(data []byte) ([]core.Bucket, bool) {
	var block rawBlock
	if json.Unmarshal(data, &block) != nil {
		return nil, false
	}
	if block.ID == nil && block.StartTime == nil && block.CostUSD == nil {
		return nil, false
	}
	return convertBlocks([]rawBlock{block}), true
}

func parseBlockArray(data []byte) ([]core.Bucket, bool) {
	var blocks []rawBlock
	if json.Unmarshal(data, &blocks) != nil || blocks == nil {
		return nil, false
	}
	return convertBlocks(blocks), true
}

func convertBlocks(blocks []rawBlock) []core.Bucket {
	out := make([]core.Bucket, 0, len(blocks))
	for _, b := range blocks {
		bucket := core.Bucket{
			Kind:   core.BucketSession,
			ID:     deref(b.ID),
			Start:  parseTime(deref(b.StartTime)),
			End:    parseTime(b.EndTime),
			Active: b.IsActive,
			Gap:    b.IsGap,
			Tokens: tokenCounts(
				b.TokenCounts.InputTokens, b.TokenCounts.OutputTokens,
				b.TokenCounts.CacheCreationInputTokens, b.TokenCounts.CacheReadInputTokens,
			),
			Models:     b.Models,
			Breakdowns: convertBreakdowns(b.ModelBreakdowns),
		}
		if b.CostUSD != nil {
			bucket.CostUSD = nonNegativeFloat(*b.CostUSD)
		}
		out = append(out, bucket)
	}
	return out
}

func convertBreakdowns(raw []rawBreakdown) []core.ModelBreakdown {
	if len(raw) == 0 {
		return nil
	}
	out := make([]core.ModelBreakdown, 0, len(raw))
	for _, r := range raw {
		if r.ModelName == "" {
			continue
		}
		out = append(out, core.ModelBreakdown{
			Model:               r.ModelName,
			InputTokens:         nonNegative(r.InputTokens),
			OutputTokens:        nonNegative(r.OutputTokens),
			CacheCreationTokens: nonNegative(r.CacheCreationTokens),
			CacheReadTokens:     nonNegative(r.CacheReadTokens),
			CostUSD:             nonNegativeFloat(r.Cost),
		})
	}
	return out
}

func tokenCounts(input, output, cacheCreate, cacheRead int64) core.TokenCounts {
	return core.TokenCounts{
		InputTokens:         nonNegative(input),
		OutputTokens:        nonNegative(output),
		CacheCreationTokens: nonNegative(cacheCreate),
		CacheReadTokens:     nonNegative(cacheRead),
	}
}

func parseTime(val string) time.Time {
	if val == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func nonNegativeFloat(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
