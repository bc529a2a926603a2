package openai

import (
	"context"

	"github.com/petal-labs/oai/core"
)

const completionsPath = "/completions"

// CreateCompletion requests a legacy text completion.
func (c *Client) CreateCompletion(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	body, err := buildCompletionRequest(req, false)
	if err != nil {
		return nil, err
	}

	var resp Completion
	if err := c.postJSON(ctx, operation{name: "completions", model: req.Model}, completionsPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamCompletion is like CreateCompletion but streams the response.
func (c *Client) StreamCompletion(ctx context.Context, req *CompletionRequest) (*core.Stream[CompletionChunk], error) {
	body, err := buildCompletionRequest(req, true)
	if err != nil {
		return nil, err
	}
	return openStream[CompletionChunk](ctx, c, operation{name: "completions", model: req.Model}, completionsPath, body)
}

func buildCompletionRequest(req *CompletionRequest, stream bool) (*CompletionRequest, error) {
	if req == nil {
		return nil, core.NewValidationError("request is required")
	}
	if req.Model == "" {
		return nil, core.NewValidationError("model is required")
	}
	out := *req
	out.Stream = stream
	if !stream {
		out.StreamOptions = nil
	}
	return &out, nil
}
