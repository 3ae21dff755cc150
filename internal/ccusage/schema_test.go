package ccusage

import (
	"errors"
	"testing"
	"time"

	"github.com/janekbaraniewski/usagetray/internal/core"
)

const dailyTwoModels = `{
  "daily": [
    {
      "date": "2026-10-14",
      "inputTokens": 120,
      "outputTokens": 60,
      "cacheCreationTokens": 0,
      "cacheReadTokens": 0,
      "totalTokens": 180,
      "totalCost": 1.70,
      "modelsUsed": ["gpt-5", "claude-3-haiku-20240307"],
      "modelBreakdowns": [
        {"modelName": "gpt-5", "inputTokens": 100, "outputTokens": 50, "cacheCreationTokens": 0, "cacheReadTokens": 0, "cost": 1.50},
        {"modelName": "claude-3-haiku-20240307", "inputTokens": 20, "outputTokens": 10, "cacheCreationTokens": 0, "cacheReadTokens": 0, "cost": 0.20}
      ]
    }
  ],
  "totals": {"totalCost": 1.70}
}`

const blocksResponse = `{
  "blocks": [
    {
      "id": "2026-10-14T05:00:00.000Z",
      "startTime": "2026-10-14T05:00:00.000Z",
      "endTime": "2026-10-14T10:00:00.000Z",
      "actualEndTime": "2026-10-14T07:12:44.000Z",
      "isActive": true,
      "isGap": false,
      "entries": 42,
      "tokenCounts": {"inputTokens": 300, "outputTokens": 90, "cacheCreationInputTokens": 12, "cacheReadInputTokens": 3000},
      "totalTokens": 3402,
      "costUSD": 9.00,
      "models": ["claude-opus-4-20250514", "claude-sonnet-4-20250514", "claude-3-haiku-20240307"]
    }
  ]
}`

func TestParse_Daily(t *testing.T) {
	resp, err := Parse([]byte(dailyTwoModels))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if resp.Schema != SchemaDaily {
		t.Errorf("schema = %q, want %q", resp.Schema, SchemaDaily)
	}
	if len(resp.Buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(resp.Buckets))
	}
	day := resp.Buckets[0]
	if day.Kind != core.BucketDay || day.Date != "2026-10-14" {
		t.Errorf("bucket = %+v", day)
	}
	if len(day.Breakdowns) != 2 {
		t.Fatalf("breakdowns = %d, want 2", len(day.Breakdowns))
	}
	if day.Breakdowns[0].Model != "gpt-5" || day.Breakdowns[0].InputTokens != 100 || day.Breakdowns[0].CostUSD != 1.50 {
		t.Errorf("breakdowns[0] = %+v", day.Breakdowns[0])
	}
}

func TestParse_Blocks(t *testing.T) {
	resp, err := Parse([]byte(blocksResponse))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if resp.Schema != SchemaBlocks {
		t.Errorf("schema = %q, want %q", resp.Schema, SchemaBlocks)
	}
	block := resp.Buckets[0]
	if !block.Active || block.CostUSD != 9.00 || len(block.Models) != 3 {
		t.Errorf("block = %+v", block)
	}
	wantStart := time.Date(2026, 10, 14, 5, 0, 0, 0, time.UTC)
	if !block.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", block.Start, wantStart)
	}
	if block.Tokens.CacheReadTokens != 3000 || block.Tokens.CacheCreationTokens != 12 {
		t.Errorf("tokens = %+v", block.Tokens)
	}
	if len(block.Breakdowns) != 0 {
		t.Errorf("breakdowns = %d, want 0", len(block.Breakdowns))
	}
}

func TestParse_Variants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		schema  Schema
		buckets int
	}{
		{
			name:    "sessions",
			payload: `{"sessions":[{"sessionId":"abc","totalCost":2.5,"lastActivity":"2026-10-14","modelsUsed":["gpt-5"],"modelBreakdowns":[{"modelName":"gpt-5","inputTokens":5,"outputTokens":1,"cost":2.5}]}]}`,
			schema:  SchemaSessions,
			buckets: 1,
		},
		{
			name:    "single block",
			payload: `{"id":"b1","startTime":"2026-10-14T05:00:00Z","costUSD":1.2,"models":["gpt-5"]}`,
			schema:  SchemaBlock,
			buckets: 1,
		},
		{
			name:    "block array",
			payload: `[{"id":"b1","costUSD":1.2,"models":["gpt-5"]},{"id":"b2","costUSD":0.3,"models":["gpt-5"]}]`,
			schema:  SchemaBlockArray,
			buckets: 2,
		},
		{
			name:    "empty daily",
			payload: `{"daily":[],"totals":{}}`,
			schema:  SchemaDaily,
			buckets: 0,
		},
		{
			name:    "empty array",
			payload: "  []\n",
			schema:  SchemaBlockArray,
			buckets: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Parse([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if resp.Schema != tt.schema {
				t.Errorf("schema = %q, want %q", resp.Schema, tt.schema)
			}
			if len(resp.Buckets) != tt.buckets {
				t.Errorf("buckets = %d, want %d", len(resp.Buckets), tt.buckets)
			}
		})
	}
}

func TestParse_Unrecognized(t *testing.T) {
	payloads := []string{
		"",
		"   \n",
		"null",
		"{}",
		`{"totals":{"totalCost":1}}`,
		`{"daily":"yesterday"}`,
		"not json at all",
		`{"daily":[{"date":"2026-10-14"`,
	}
	for _, payload := range payloads {
		_, err := Parse([]byte(payload))
		if err == nil {
			t.Errorf("Parse(%q) error = nil, want parse error", payload)
			continue
		}
		if !errors.Is(err, ErrResponseParse) {
			t.Errorf("Parse(%q) error = %v, want ErrResponseParse", payload, err)
		}
		var perr *ParseError
		if !errors.As(err, &perr) || perr.Payload != payload {
			t.Errorf("Parse(%q) payload not preserved: %v", payload, err)
		}
	}
}

func TestParse_ClampsNegativeValues(t *testing.T) {
	payload := `{"daily":[{"date":"2026-10-14","totalCost":-1,"modelBreakdowns":[{"modelName":"gpt-5","inputTokens":-5,"cost":-0.5}]}]}`
	resp, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	b := resp.Buckets[0].Breakdowns[0]
	if b.InputTokens != 0 || b.CostUSD != 0 || resp.Buckets[0].CostUSD != 0 {
		t.Errorf("negative values not clamped: %+v", resp.Buckets[0])
	}
}
