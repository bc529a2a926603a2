package commands

import (
	"encoding/json"
	"io"

	"go.uber.org/zap"

	"github.com/petal-labs/oai/core"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) logUsage(usage *core.TokenUsage) {
	if usage == nil {
		return
	}
	a.log.Debug("token usage",
		zap.Int("prompt_tokens", usage.PromptTokens),
		zap.Int("completion_tokens", usage.CompletionTokens),
		zap.Int("total_tokens", usage.TotalTokens),
	)
}
