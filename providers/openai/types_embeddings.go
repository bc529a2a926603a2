package openai

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/petal-labs/oai/core"
)

// Embedding encoding formats.
const (
	EncodingFormatFloat  = "float"
	EncodingFormatBase64 = "base64"
)

// EmbeddingRequest is the request body for POST /embeddings.
type EmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	Dimensions     *int     `json:"dimensions,omitempty"`
	User           string   `json:"user,omitempty"`
}

// EmbeddingResponse is the response from POST /embeddings.
type EmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []Embedding     `json:"data"`
	Model  string          `json:"model"`
	Usage  core.TokenUsage `json:"usage"`
}

func (r EmbeddingResponse) tokenUsage() core.TokenUsage {
	return r.Usage
}

// Embedding is the vector for one input. Vectors sent base64-encoded are
// decoded to floats as well.
type Embedding struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// UnmarshalJSON accepts the embedding as a float array or as a base64
// string of little-endian float32 values.
func (e *Embedding) UnmarshalJSON(data []byte) error {
	var raw struct {
		Object    string          `json:"object"`
		Index     int             `json:"index"`
		Embedding json.RawMessage `json:"embedding"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Object = raw.Object
	e.Index = raw.Index
	e.Embedding = nil

	if len(raw.Embedding) == 0 || string(raw.Embedding) == "null" {
		return nil
	}
	if raw.Embedding[0] != '"' {
		return json.Unmarshal(raw.Embedding, &e.Embedding)
	}

	var encoded string
	if err := json.Unmarshal(raw.Embedding, &encoded); err != nil {
		return err
	}
	vec, err := decodeBase64Vector(encoded)
	if err != nil {
		return err
	}
	e.Embedding = vec
	return nil
}

func decodeBase64Vector(s string) ([]float32, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding: %d bytes is not a whole number of float32 values", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
