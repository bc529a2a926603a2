// Package core holds the vendor-independent pieces of the oai client: the
// conversation context buffer, the streaming event decoder, the error
// taxonomy, retry policies, API key handling and telemetry hooks.
//
// # Context buffer
//
// A [ContextBuffer] is an ordered list of role-tagged turns that a client
// prepends to every chat request:
//
//	buf := core.NewContextBuffer()
//	_ = buf.Append(core.ContextEntry{Role: core.RoleSystem, Content: "Answer briefly."})
//	entries := buf.Snapshot()
//
// Append rejects roles other than system, user and assistant without
// changing the buffer. AppendBatch stops at the first invalid entry and keeps
// the ones it already appended.
//
// # Streaming
//
// [Stream] turns a `data: <json>` event body into typed values. It reads
// only as much of the body as it needs to complete the next line and stops
// at `data: [DONE]`:
//
//	for chunk, err := range stream.All() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk.Choices[0].Delta.Content)
//	}
//
// # Errors
//
// Every failure is an [*Error] whose Kind is one of validation,
// authentication, rate limit, api, network or generic. Match kinds with
// errors.Is against the sentinels:
//
//	if errors.Is(err, core.ErrRateLimit) {
//	    // back off
//	}
//
// # Retries
//
// A [RetryPolicy] decides whether an HTTP attempt is repeated. Retries
// happen in the transport before a final status is known; an error that
// reached the caller is never retried again.
package core
