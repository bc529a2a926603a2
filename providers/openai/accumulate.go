package openai

import (
	"slices"
	"strings"

	"github.com/petal-labs/oai/core"
	"github.com/petal-labs/oai/internal/toolcalls"
)

type choiceState struct {
	role         string
	content      strings.Builder
	finishReason string
	tools        *toolcalls.Assembler
}

// ChatCompletionAccumulator folds streamed chunks into the completion a
// non-streamed call would have returned.
//
//	var acc openai.ChatCompletionAccumulator
//	for stream.Next() {
//	    acc.Add(stream.Current())
//	}
//	completion, err := acc.Completion()
type ChatCompletionAccumulator struct {
	id, model, fingerprint string
	created                int64
	usage                  *core.TokenUsage
	choices                map[int]*choiceState
}

// Add merges one chunk.
func (a *ChatCompletionAccumulator) Add(chunk ChatCompletionChunk) {
	if a.choices == nil {
		a.choices = make(map[int]*choiceState)
	}
	if chunk.ID != "" {
		a.id = chunk.ID
	}
	if chunk.Model != "" {
		a.model = chunk.Model
	}
	if chunk.Created != 0 {
		a.created = chunk.Created
	}
	if chunk.SystemFingerprint != "" {
		a.fingerprint = chunk.SystemFingerprint
	}
	if chunk.Usage != nil {
		u := *chunk.Usage
		a.usage = &u
	}

	for _, ch := range chunk.Choices {
		st, ok := a.choices[ch.Index]
		if !ok {
			st = &choiceState{tools: toolcalls.NewAssembler(toolcalls.Config{EmptyArgumentsJSON: "{}", ValidateJSON: true})}
			a.choices[ch.Index] = st
		}
		if ch.Delta.Role != "" {
			st.role = ch.Delta.Role
		}
		st.content.WriteString(ch.Delta.Content)
		if ch.FinishReason != "" {
			st.finishReason = ch.FinishReason
		}
		for i, tc := range ch.Delta.ToolCalls {
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			st.tools.Add(toolcalls.Fragment{
				Index:     idx,
				ID:        tc.ID,
				Type:      tc.Type,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}
}

// Completion returns the accumulated completion. Choices are ordered by index.
// Tool call arguments that do not form valid JSON fail with a generic error.
func (a *ChatCompletionAccumulator) Completion() (*ChatCompletion, error) {
	out := &ChatCompletion{
		ID:                a.id,
		Object:            "chat.completion",
		Created:           a.created,
		Model:             a.model,
		SystemFingerprint: a.fingerprint,
		Usage:             a.usage,
	}

	indexes := make([]int, 0, len(a.choices))
	for idx := range a.choices {
		indexes = append(indexes, idx)
	}
	slices.Sort(indexes)

	for _, idx := range indexes {
		st := a.choices[idx]
		role := st.role
		if role == "" {
			role = string(core.RoleAssistant)
		}
		msg := ChatMessage{Role: role, Content: st.content.String()}

		calls, err := st.tools.Finalize()
		if err != nil {
			return nil, core.NewGenericError(err)
		}
		for _, call := range calls {
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:   call.ID,
				Type: call.Type,
				Function: FunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}

		out.Choices = append(out.Choices, ChatCompletionChoice{
			Index:        idx,
			Message:      msg,
			FinishReason: st.finishReason,
		})
	}
	return out, nil
}
