package core

import "time"

// TelemetryHook receives notifications about request lifecycle events.
// Implementations can use this for logging, metrics, tracing, etc.
//
// # Security Considerations
//
// Events carry operational metadata only: operation, model, timing, status,
// token counts and the error kind. API keys, prompts, context entries and
// model outputs are never included, so events can be logged or exported to
// monitoring systems as they are.
type TelemetryHook interface {
	// OnRequestStart is called before the first attempt of an operation.
	OnRequestStart(e RequestStartEvent)

	// OnRequestEnd is called once the operation completed. For streaming
	// operations this is when the stream stops, not when headers arrive.
	OnRequestEnd(e RequestEndEvent)
}

// RequestStartEvent contains metadata about a starting request.
type RequestStartEvent struct {
	Operation string    // Operation name (e.g., "chat.completions")
	Model     string    // Model being called, empty for model-less endpoints
	Stream    bool      // Whether the response is streamed
	Start     time.Time // When the request started
}

// RequestEndEvent contains metadata about a completed request.
type RequestEndEvent struct {
	Operation string
	Model     string
	Stream    bool
	Start     time.Time
	End       time.Time
	Status    int        // HTTP status, 0 if no response was received
	Usage     TokenUsage // Token consumption, zero when not reported
	Err       error      // Error if request failed, nil on success
}

// Duration returns the elapsed time for the request.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Outcome returns "success" or the error kind name, for use as a label.
func (e RequestEndEvent) Outcome() string {
	if e.Err == nil {
		return "success"
	}
	return KindOf(e.Err).String()
}

// TokenUsage tracks token consumption as reported by the API.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NoopTelemetryHook is a no-op implementation of TelemetryHook.
// Use this as a default when no telemetry is configured.
type NoopTelemetryHook struct{}

// OnRequestStart does nothing.
func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}

// OnRequestEnd does nothing.
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent) {}

// MultiTelemetryHook fans events out to several hooks in order.
type MultiTelemetryHook []TelemetryHook

// OnRequestStart forwards e to every hook.
func (m MultiTelemetryHook) OnRequestStart(e RequestStartEvent) {
	for _, h := range m {
		h.OnRequestStart(e)
	}
}

// OnRequestEnd forwards e to every hook.
func (m MultiTelemetryHook) OnRequestEnd(e RequestEndEvent) {
	for _, h := range m {
		h.OnRequestEnd(e)
	}
}

// Compile-time checks.
var (
	_ TelemetryHook = NoopTelemetryHook{}
	_ TelemetryHook = MultiTelemetryHook(nil)
)
