// Package toolcalls reassembles tool calls that arrive split across
// streamed chat completion chunks.
package toolcalls

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidJSON is returned when assembled tool arguments are not valid JSON.
var ErrInvalidJSON = errors.New("tool call arguments are not valid json")

// Config controls assembler behavior.
type Config struct {
	// EmptyArgumentsJSON, when set, replaces the arguments of a call that
	// received no argument fragments.
	EmptyArgumentsJSON string

	// ValidateJSON makes Finalize reject calls whose arguments do not parse.
	ValidateJSON bool
}

// Fragment is one tool call delta. Index identifies the call within its
// choice; ID, Type and Name usually arrive only on the first fragment.
type Fragment struct {
	Index     int
	ID        string
	Type      string
	Name      string
	Arguments string
}

// Call is a fully assembled tool call.
type Call struct {
	Index     int
	ID        string
	Type      string
	Name      string
	Arguments string
}

type partial struct {
	id, typ, name string
	args          strings.Builder
}

// Assembler accumulates fragments by index.
type Assembler struct {
	cfg   Config
	calls map[int]*partial
}

// NewAssembler creates a tool call assembler.
func NewAssembler(cfg Config) *Assembler {
	return &Assembler{cfg: cfg, calls: make(map[int]*partial)}
}

// Add applies a fragment, creating the call on first sight of its index.
func (a *Assembler) Add(f Fragment) {
	call, ok := a.calls[f.Index]
	if !ok {
		call = &partial{}
		a.calls[f.Index] = call
	}
	if f.ID != "" {
		call.id = f.ID
	}
	if f.Type != "" {
		call.typ = f.Type
	}
	if f.Name != "" {
		call.name = f.Name
	}
	call.args.WriteString(f.Arguments)
}

// Finalize returns the assembled calls ordered by index.
func (a *Assembler) Finalize() ([]Call, error) {
	if len(a.calls) == 0 {
		return nil, nil
	}

	indexes := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		indexes = append(indexes, idx)
	}
	slices.Sort(indexes)

	result := make([]Call, 0, len(indexes))
	for _, idx := range indexes {
		p := a.calls[idx]
		args := p.args.String()
		if args == "" && a.cfg.EmptyArgumentsJSON != "" {
			args = a.cfg.EmptyArgumentsJSON
		}
		if a.cfg.ValidateJSON && !json.Valid([]byte(args)) {
			return nil, fmt.Errorf("tool call %d (%s): %w", idx, p.name, ErrInvalidJSON)
		}
		typ := p.typ
		if typ == "" {
			typ = "function"
		}
		result = append(result, Call{
			Index:     idx,
			ID:        p.id,
			Type:      typ,
			Name:      p.name,
			Arguments: args,
		})
	}
	return result, nil
}
