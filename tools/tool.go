// Package tools runs the functions a chat model asks to call.
//
// Register Tool implementations in a Registry, send Registry.Definitions as
// ChatCompletionRequest.Tools, and feed the assistant's tool calls to
// Registry.Dispatch to get the tool-role messages for the next request.
package tools

import (
	"context"
	"encoding/json"
)

// Tool is a function a model can call.
type Tool interface {
	// Name returns the unique identifier the model uses to call the tool.
	Name() string

	// Description tells the model what the tool does and when to use it.
	Description() string

	// Schema returns the JSON Schema of the tool's arguments object.
	Schema() json.RawMessage

	// Call runs the tool with the raw JSON arguments from the model. The
	// result is JSON-encoded into the tool message content.
	Call(ctx context.Context, args json.RawMessage) (any, error)
}

// ToolCallFunc is the function signature for tool execution.
type ToolCallFunc func(ctx context.Context, args json.RawMessage) (any, error)

type funcTool struct {
	name, description string
	schema            json.RawMessage
	fn                ToolCallFunc
}

// NewFunc builds a Tool from a function.
//
//	weather := tools.NewFunc("get_weather", "Current weather for a city",
//	    json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`),
//	    func(ctx context.Context, args json.RawMessage) (any, error) { ... })
func NewFunc(name, description string, schema json.RawMessage, fn ToolCallFunc) Tool {
	return &funcTool{name: name, description: description, schema: schema, fn: fn}
}

func (t *funcTool) Name() string            { return t.name }
func (t *funcTool) Description() string     { return t.description }
func (t *funcTool) Schema() json.RawMessage { return t.schema }

func (t *funcTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	return t.fn(ctx, args)
}
