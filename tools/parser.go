package tools

import (
	"encoding/json"
	"fmt"

	"github.com/petal-labs/oai/providers/openai"
)

// ParseArgs decodes the arguments of a tool call into T.
//
//	type WeatherArgs struct {
//	    City string `json:"city"`
//	}
//
//	args, err := tools.ParseArgs[WeatherArgs](call)
func ParseArgs[T any](call openai.ToolCall) (*T, error) {
	var result T
	raw := call.Function.Arguments
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("tool %s: parse arguments: %w", call.Function.Name, err)
	}
	return &result, nil
}
