package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/petal-labs/oai/core"
)

func TestCreateCompletion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "Say hi" {
			t.Errorf("prompt = %v", body["prompt"])
		}
		if _, ok := body["stream"]; ok {
			t.Error("stream should be omitted for non-streaming calls")
		}
		w.Write([]byte(`{"id":"cmpl-1","object":"text_completion","model":"gpt-3.5-turbo-instruct",
			"choices":[{"index":0,"text":"hi","finish_reason":"stop"}],
			"usage":{"prompt_tokens":2,"completion_tokens":1,"total_tokens":3}}`))
	})

	resp, err := c.CreateCompletion(context.Background(), &CompletionRequest{
		Model:  "gpt-3.5-turbo-instruct",
		Prompt: "Say hi",
	})
	if err != nil {
		t.Fatalf("CreateCompletion() error = %v", err)
	}
	if resp.Text() != "hi" || resp.Usage.TotalTokens != 3 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCreateCompletionRequiresModel(t *testing.T) {
	c := New("test-key")
	if _, err := c.CreateCompletion(context.Background(), &CompletionRequest{Prompt: "x"}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if _, err := c.StreamCompletion(context.Background(), nil); !errors.Is(err, core.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}
