package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Middleware wraps a ToolCallFunc to add behavior before and/or after execution.
type Middleware func(next ToolCallFunc) ToolCallFunc

// ToolContext describes the call being executed. Registry.Dispatch stores it
// in the context passed to the tool and its middleware.
type ToolContext struct {
	// ToolName is the name of the tool being called.
	ToolName string

	// CallID is the id the model assigned to this call.
	CallID string

	// Metadata allows middleware to share data with each other.
	Metadata map[string]any
}

type toolContextKey struct{}

// ContextWithToolContext adds ToolContext to a context.
func ContextWithToolContext(ctx context.Context, tc *ToolContext) context.Context {
	return context.WithValue(ctx, toolContextKey{}, tc)
}

// ToolContextFromContext retrieves ToolContext from a context.
// Returns nil if not present.
func ToolContextFromContext(ctx context.Context) *ToolContext {
	tc, _ := ctx.Value(toolContextKey{}).(*ToolContext)
	return tc
}

// Chain combines multiple middleware into a single middleware.
// The first middleware is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// ApplyMiddleware wraps a tool with middleware.
func ApplyMiddleware(tool Tool, middlewares ...Middleware) Tool {
	if len(middlewares) == 0 {
		return tool
	}
	return &wrappedTool{Tool: tool, wrapped: Chain(middlewares...)(tool.Call)}
}

type wrappedTool struct {
	Tool
	wrapped ToolCallFunc
}

func (w *wrappedTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	tc := ToolContextFromContext(ctx)
	if tc == nil {
		ctx = ContextWithToolContext(ctx, &ToolContext{ToolName: w.Name(), Metadata: make(map[string]any)})
	} else if tc.ToolName == "" {
		tc.ToolName = w.Name()
	}
	return w.wrapped(ctx, args)
}

func toolName(ctx context.Context) string {
	if tc := ToolContextFromContext(ctx); tc != nil && tc.ToolName != "" {
		return tc.ToolName
	}
	return "unknown"
}

// WithLogging logs each call at debug level and failures at warn. Arguments
// and results are never logged.
func WithLogging(log *zap.Logger) Middleware {
	log = log.Named("tools")
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			fields := []zap.Field{zap.String("tool", toolName(ctx))}
			if tc := ToolContextFromContext(ctx); tc != nil && tc.CallID != "" {
				fields = append(fields, zap.String("call_id", tc.CallID))
			}

			start := time.Now()
			result, err := next(ctx, args)
			fields = append(fields, zap.Duration("duration", time.Since(start)))

			if err != nil {
				log.Warn("tool call failed", append(fields, zap.Error(err))...)
			} else {
				log.Debug("tool call succeeded", fields...)
			}
			return result, err
		}
	}
}

// WithTimeout bounds each call. The tool receives a context with the deadline;
// a tool that ignores it is abandoned when the deadline passes.
func WithTimeout(d time.Duration) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type result struct {
				value any
				err   error
			}
			ch := make(chan result, 1)
			go func() {
				v, err := next(ctx, args)
				ch <- result{v, err}
			}()

			select {
			case r := <-ch:
				return r.value, r.err
			case <-ctx.Done():
				return nil, fmt.Errorf("tool execution timeout after %v: %w", d, ctx.Err())
			}
		}
	}
}

// WithArgumentValidation rejects arguments that are not a JSON object.
func WithArgumentValidation() Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(args, &obj); err != nil || obj == nil {
				return nil, errors.New("invalid arguments: expected a JSON object")
			}
			return next(ctx, args)
		}
	}
}

// WithRecover converts a panic in the tool into an error.
func WithRecover() Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (result any, err error) {
			defer func() {
				if p := recover(); p != nil {
					result, err = nil, fmt.Errorf("tool %s panicked: %v", toolName(ctx), p)
				}
			}()
			return next(ctx, args)
		}
	}
}
