package openai

import (
	"context"
	"net/http"
	"net/url"

	"github.com/petal-labs/oai/core"
	"github.com/petal-labs/oai/internal/transport"
)

const modelsPath = "/models"

// ListModels lists the models available to the API key.
func (c *Client) ListModels(ctx context.Context) (*ModelList, error) {
	var list ModelList
	err := c.doJSON(ctx, operation{name: "models.list"}, &transport.Request{
		Method: http.MethodGet,
		Path:   modelsPath,
	}, &list)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// RetrieveModel returns a single model.
func (c *Client) RetrieveModel(ctx context.Context, modelID string) (*Model, error) {
	if modelID == "" {
		return nil, core.NewValidationError("model id is required")
	}

	var m Model
	err := c.doJSON(ctx, operation{name: "models.retrieve", model: modelID}, &transport.Request{
		Method: http.MethodGet,
		Path:   modelsPath + "/" + url.PathEscape(modelID),
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
