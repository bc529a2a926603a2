package openai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/petal-labs/oai/core"
)

const embeddingsPath = "/embeddings"

// CreateEmbeddings generates embeddings for the given input texts. With an
// embedding cache configured, identical requests are answered from the cache
// and cache failures only degrade to a live request.
func (c *Client) CreateEmbeddings(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	if req == nil {
		return nil, core.NewValidationError("request is required")
	}
	if req.Model == "" {
		return nil, core.NewValidationError("model is required")
	}
	if len(req.Input) == 0 {
		return nil, core.NewValidationError("input is required")
	}

	var key string
	if c.config.EmbeddingCache != nil {
		key = embeddingCacheKey(req)
		if resp, ok := c.cachedEmbeddings(ctx, key); ok {
			return resp, nil
		}
	}

	var resp EmbeddingResponse
	if err := c.postJSON(ctx, operation{name: "embeddings", model: req.Model}, embeddingsPath, req, &resp); err != nil {
		return nil, err
	}

	if key != "" {
		if data, err := json.Marshal(&resp); err == nil {
			if err := c.config.EmbeddingCache.Set(ctx, key, data); err != nil {
				c.log.Warn("embedding cache write failed", zap.Error(err))
			}
		}
	}
	return &resp, nil
}

func (c *Client) cachedEmbeddings(ctx context.Context, key string) (*EmbeddingResponse, bool) {
	data, ok, err := c.config.EmbeddingCache.Get(ctx, key)
	if err != nil {
		c.log.Warn("embedding cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var resp EmbeddingResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.log.Warn("discarding corrupt embedding cache entry", zap.Error(err))
		return nil, false
	}
	c.log.Debug("embedding cache hit", zap.String("model", resp.Model))
	return &resp, true
}

// embeddingCacheKey hashes every field that affects the returned vectors.
func embeddingCacheKey(req *EmbeddingRequest) string {
	data, _ := json.Marshal(struct {
		Model      string   `json:"m"`
		Input      []string `json:"i"`
		Dimensions *int     `json:"d,omitempty"`
	}{req.Model, req.Input, req.Dimensions})
	sum := sha256.Sum256(data)
	return "embeddings:" + hex.EncodeToString(sum[:])
}
