//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/petal-labs/oai/cache"
	"github.com/petal-labs/oai/core"
	"github.com/petal-labs/oai/providers/openai"
	"github.com/petal-labs/oai/tools"
)

func TestChatCompletion(t *testing.T) {
	client := newClient(t)
	maxTokens := 20

	resp, err := client.CreateChatCompletion(testContext(t), &openai.ChatCompletionRequest{
		Model:     chatModel,
		Messages:  []openai.ChatMessage{{Role: "user", Content: "Say 'hello' and nothing else."}},
		MaxTokens: &maxTokens,
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion() error = %v", err)
	}
	if resp.ID == "" || resp.Content() == "" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens == 0 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestChatCompletionUsesContext(t *testing.T) {
	client := newClient(t)
	if err := client.AddContexts([]core.ContextEntry{
		{Role: core.RoleUser, Content: "My favourite colour is teal."},
		{Role: core.RoleAssistant, Content: "Noted."},
	}); err != nil {
		t.Fatal(err)
	}

	resp, err := client.CreateChatCompletion(testContext(t), &openai.ChatCompletionRequest{
		Model:    chatModel,
		Messages: []openai.ChatMessage{{Role: "user", Content: "What is my favourite colour? One word."}},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion() error = %v", err)
	}
	if !strings.Contains(strings.ToLower(resp.Content()), "teal") {
		t.Errorf("reply %q does not use the context", resp.Content())
	}
}

func TestStreamChatCompletion(t *testing.T) {
	client := newClient(t)

	stream, err := client.StreamChatCompletion(testContext(t), &openai.ChatCompletionRequest{
		Model:         chatModel,
		Messages:      []openai.ChatMessage{{Role: "user", Content: "Count from 1 to 5."}},
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	})
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}
	defer stream.Close()

	var acc openai.ChatCompletionAccumulator
	chunks := 0
	for chunk, err := range stream.All() {
		if err != nil {
			t.Fatalf("stream error = %v", err)
		}
		acc.Add(chunk)
		chunks++
	}
	if chunks < 2 {
		t.Errorf("received %d chunks", chunks)
	}

	completion, err := acc.Completion()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(completion.Content(), "3") {
		t.Errorf("content = %q", completion.Content())
	}
	if completion.Usage == nil {
		t.Error("usage chunk missing")
	}
}

func TestChatCompletionToolCalls(t *testing.T) {
	client := newClient(t)
	registry := tools.NewRegistry(tools.WithArgumentValidation())
	_ = registry.Register(tools.NewFunc("get_weather", "Get the current weather in a given location",
		json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}},"required":["location"]}`),
		func(_ context.Context, _ json.RawMessage) (any, error) {
			return map[string]any{"temperature": 21, "conditions": "sunny"}, nil
		}))

	ctx := testContext(t)
	messages := []openai.ChatMessage{{Role: "user", Content: "What's the weather in Lisbon?"}}
	resp, err := client.CreateChatCompletion(ctx, &openai.ChatCompletionRequest{
		Model:      chatModel,
		Messages:   messages,
		Tools:      registry.Definitions(),
		ToolChoice: "required",
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion() error = %v", err)
	}
	reply := resp.Choices[0].Message
	if len(reply.ToolCalls) == 0 {
		t.Fatalf("no tool calls in %+v", reply)
	}

	results, err := registry.Dispatch(ctx, reply.ToolCalls)
	if err != nil {
		t.Fatal(err)
	}
	messages = append(messages, reply)
	messages = append(messages, results...)

	final, err := client.CreateChatCompletion(ctx, &openai.ChatCompletionRequest{Model: chatModel, Messages: messages})
	if err != nil {
		t.Fatalf("follow-up error = %v", err)
	}
	if final.Content() == "" {
		t.Error("empty final answer")
	}
}

func TestCreateEmbeddingsCached(t *testing.T) {
	client := newClient(t, openai.WithEmbeddingCache(cache.NewMemory(16, time.Hour)))
	dims := 64
	req := &openai.EmbeddingRequest{Model: embeddingModel, Input: []string{"alpha", "beta"}, Dimensions: &dims}

	first, err := client.CreateEmbeddings(testContext(t), req)
	if err != nil {
		t.Fatalf("CreateEmbeddings() error = %v", err)
	}
	if len(first.Data) != 2 || len(first.Data[0].Embedding) != dims {
		t.Fatalf("data = %d entries", len(first.Data))
	}

	second, err := client.CreateEmbeddings(testContext(t), req)
	if err != nil {
		t.Fatal(err)
	}
	if second.Data[1].Embedding[0] != first.Data[1].Embedding[0] {
		t.Error("cached embedding differs from original")
	}
}

func TestListAndRetrieveModels(t *testing.T) {
	client := newClient(t)
	list, err := client.ListModels(testContext(t))
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(list.Data) == 0 {
		t.Fatal("no models listed")
	}

	m, err := client.RetrieveModel(testContext(t), chatModel)
	if err != nil || m.ID != chatModel {
		t.Errorf("RetrieveModel() = %+v, %v", m, err)
	}
}

func TestInvalidKeyIsAuthenticationError(t *testing.T) {
	requireAPIKey(t)
	client := openai.New("sk-invalid-key-for-testing", openai.WithRetryPolicy(core.NoRetry()))

	_, err := client.ListModels(testContext(t))
	if !errors.Is(err, core.ErrAuthentication) {
		t.Fatalf("error = %v, want authentication error", err)
	}
	var apiErr *core.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode != 401 {
		t.Errorf("status = %d, want 401", apiErr.StatusCode)
	}
}
