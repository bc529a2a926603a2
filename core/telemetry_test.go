package core

import (
	"errors"
	"testing"
	"time"
)

// testTelemetryHook is a test implementation that records events.
type testTelemetryHook struct {
	startEvents []RequestStartEvent
	endEvents   []RequestEndEvent
}

func (h *testTelemetryHook) OnRequestStart(e RequestStartEvent) {
	h.startEvents = append(h.startEvents, e)
}

func (h *testTelemetryHook) OnRequestEnd(e RequestEndEvent) {
	h.endEvents = append(h.endEvents, e)
}

func TestRequestEndEventDuration(t *testing.T) {
	start := time.Now()
	event := RequestEndEvent{Start: start, End: start.Add(1500 * time.Millisecond)}
	if got := event.Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", got)
	}
}

func TestRequestEndEventOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{&Error{Kind: KindRateLimit}, "rate_limit"},
		{&Error{Kind: KindNetwork}, "network"},
		{errors.New("plain"), "generic"},
	}
	for _, tt := range tests {
		if got := (RequestEndEvent{Err: tt.err}).Outcome(); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestMultiTelemetryHook(t *testing.T) {
	a, b := &testTelemetryHook{}, &testTelemetryHook{}
	hook := MultiTelemetryHook{a, b}

	hook.OnRequestStart(RequestStartEvent{Operation: "chat.completions", Model: "gpt-4o"})
	hook.OnRequestEnd(RequestEndEvent{Operation: "chat.completions", Status: 200})

	for i, h := range []*testTelemetryHook{a, b} {
		if len(h.startEvents) != 1 || len(h.endEvents) != 1 {
			t.Errorf("hook %d got %d start / %d end events, want 1/1", i, len(h.startEvents), len(h.endEvents))
		}
	}
	if a.startEvents[0].Model != "gpt-4o" {
		t.Errorf("Model = %q", a.startEvents[0].Model)
	}
}

func TestNoopTelemetryHook(t *testing.T) {
	var hook TelemetryHook = NoopTelemetryHook{}
	hook.OnRequestStart(RequestStartEvent{})
	hook.OnRequestEnd(RequestEndEvent{})
}
