package openai

import (
	"context"

	"github.com/petal-labs/oai/core"
)

// chatCompletionsPath is the API endpoint for chat completions.
const chatCompletionsPath = "/chat/completions"

// CreateChatCompletion sends the client's context entries followed by
// req.Messages and returns the completion.
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletion, error) {
	body, err := c.buildChatRequest(req, false)
	if err != nil {
		return nil, err
	}

	var resp ChatCompletion
	op := operation{name: "chat.completions", model: req.Model}
	if err := c.postJSON(ctx, op, chatCompletionsPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamChatCompletion is like CreateChatCompletion but streams the response.
// The caller must drain or Close the returned stream.
func (c *Client) StreamChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*core.Stream[ChatCompletionChunk], error) {
	body, err := c.buildChatRequest(req, true)
	if err != nil {
		return nil, err
	}
	op := operation{name: "chat.completions", model: req.Model}
	return openStream[ChatCompletionChunk](ctx, c, op, chatCompletionsPath, body)
}

// buildChatRequest validates req and returns a copy with the context
// prepended. req itself is not modified.
func (c *Client) buildChatRequest(req *ChatCompletionRequest, stream bool) (*ChatCompletionRequest, error) {
	if req == nil {
		return nil, core.NewValidationError("request is required")
	}
	if req.Model == "" {
		return nil, core.NewValidationError("model is required")
	}

	entries := c.context.Snapshot()
	messages := make([]ChatMessage, 0, len(entries)+len(req.Messages))
	for _, e := range entries {
		messages = append(messages, ChatMessage{Role: string(e.Role), Content: e.Content})
	}
	messages = append(messages, req.Messages...)
	if len(messages) == 0 {
		return nil, core.NewValidationError("at least one message is required")
	}

	out := *req
	out.Messages = messages
	out.Stream = stream
	if !stream {
		out.StreamOptions = nil
	}
	return &out, nil
}
