package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/petal-labs/oai/providers/openai"
)

// ErrDuplicateTool is returned when attempting to register a tool with a name
// that is already registered.
var ErrDuplicateTool = errors.New("tool already registered")

// ErrToolNotFound is returned when a call names a tool that is not registered.
var ErrToolNotFound = errors.New("tool not found")

// Registry manages a collection of tools indexed by name.
// Registry is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]Tool
	middleware []Middleware
}

// NewRegistry creates a new empty tool registry. Middleware is applied to
// every tool registered afterwards.
func NewRegistry(middleware ...Middleware) *Registry {
	return &Registry{
		tools:      make(map[string]Tool),
		middleware: middleware,
	}
}

// Register adds a tool to the registry.
// Returns ErrDuplicateTool if a tool with the same name is already registered.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return errors.New("tool cannot be nil")
	}
	name := t.Name()
	if name == "" {
		return errors.New("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = ApplyMiddleware(t, r.middleware...)
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Definitions returns the function declarations to send with a chat request.
func (r *Registry) Definitions() []openai.Tool {
	list := r.List()
	defs := make([]openai.Tool, 0, len(list))
	for _, t := range list {
		defs = append(defs, openai.Tool{
			Type: "function",
			Function: openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Schema(),
			},
		})
	}
	return defs
}

// Execute finds a tool by name and calls it with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool.Call(ctx, args)
}

// Dispatch runs every call in order and returns one tool-role message per
// call, ready to append to the conversation. A failing tool produces a
// message carrying {"error": "..."} so the model can react; only a cancelled
// ctx stops the dispatch early.
func (r *Registry) Dispatch(ctx context.Context, calls []openai.ToolCall) ([]openai.ChatMessage, error) {
	messages := make([]openai.ChatMessage, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return messages, err
		}

		args := json.RawMessage(call.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		cctx := ContextWithToolContext(ctx, &ToolContext{
			ToolName: call.Function.Name,
			CallID:   call.ID,
			Metadata: make(map[string]any),
		})

		result, err := r.Execute(cctx, call.Function.Name, args)
		content, encErr := encodeResult(result, err)
		if encErr != nil {
			return messages, fmt.Errorf("tool %s: encode result: %w", call.Function.Name, encErr)
		}
		messages = append(messages, openai.ChatMessage{
			Role:       "tool",
			Content:    content,
			ToolCallID: call.ID,
		})
	}
	return messages, nil
}

func encodeResult(result any, err error) (string, error) {
	if err != nil {
		data, mErr := json.Marshal(map[string]string{"error": err.Error()})
		return string(data), mErr
	}
	if s, ok := result.(string); ok {
		return s, nil
	}
	data, mErr := json.Marshal(result)
	return string(data), mErr
}
