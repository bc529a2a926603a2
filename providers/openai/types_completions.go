package openai

import (
	"encoding/json"

	"github.com/petal-labs/oai/core"
)

// CompletionRequest is the body of POST /completions. Prompt is a string or
// a list of strings.
type CompletionRequest struct {
	Model            string         `json:"model"`
	Prompt           any            `json:"prompt,omitempty"`
	Suffix           string         `json:"suffix,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	N                *int           `json:"n,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	Echo             bool           `json:"echo,omitempty"`
	Logprobs         *int           `json:"logprobs,omitempty"`
	BestOf           *int           `json:"best_of,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	LogitBias        map[string]int `json:"logit_bias,omitempty"`
	Seed             *int           `json:"seed,omitempty"`
	User             string         `json:"user,omitempty"`
	StreamOptions    *StreamOptions `json:"stream_options,omitempty"`

	// Stream is set by the client.
	Stream bool `json:"stream,omitempty"`
}

// Completion is a legacy text completion, streamed or not.
type Completion struct {
	ID                string             `json:"id"`
	Object            string             `json:"object"`
	Created           int64              `json:"created"`
	Model             string             `json:"model"`
	SystemFingerprint string             `json:"system_fingerprint,omitempty"`
	Choices           []CompletionChoice `json:"choices"`
	Usage             *core.TokenUsage   `json:"usage,omitempty"`
}

// CompletionChunk is one event of a streamed completion; it has the same
// shape as a full completion carrying a text fragment per choice.
type CompletionChunk = Completion

// CompletionChoice is one generated alternative.
type CompletionChoice struct {
	Index        int             `json:"index"`
	Text         string          `json:"text"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Logprobs     json.RawMessage `json:"logprobs,omitempty"`
}

// Text returns the text of the first choice, or "".
func (c *Completion) Text() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Text
}

func (c Completion) tokenUsage() core.TokenUsage {
	if c.Usage == nil {
		return core.TokenUsage{}
	}
	return *c.Usage
}
