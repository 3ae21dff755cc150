package core

import "strings"

var knownModelNames = map[string]string{
	"claude-opus-4-20250514":     "Opus 4",
	"claude-opus-4-1-20250805":   "Opus 4.1",
	"claude-sonnet-4-20250514":   "Sonnet 4",
	"claude-sonnet-4-5-20250929": "Sonnet 4.5",
	"claude-3-7-sonnet-20250219": "Sonnet 3.7",
	"claude-3-5-sonnet-20241022": "Sonnet 3.5",
	"claude-3-5-haiku-20241022":  "Haiku 3.5",
	"claude-3-haiku-20240307":    "Haiku",
	"gpt-5":                      "GPT-5",
	"gpt-5-codex":                "GPT-5 Codex",
}

// DisplayName maps a raw model id to a short menu label. Unknown ids fall back
// to family keywords, then to the id itself.
func DisplayName(model string) string {
	raw := strings.TrimSpace(model)
	if name, ok := knownModelNames[raw]; ok {
		return name
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "opus"):
		return "Opus"
	case strings.Contains(lower, "sonnet"):
		return "Sonnet"
	case strings.Contains(lower, "haiku"):
		return "Haiku"
	case strings.Contains(lower, "codex"):
		return "Codex"
	case strings.HasPrefix(lower, "gpt-"):
		return "GPT-" + raw[len("gpt-"):]
	}
	return raw
}
