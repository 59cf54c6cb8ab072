// Package agent defines the boundary to the model/tool runtime and provides
// the genkit-backed implementation of it.
//
// The rest of the system never talks to a provider SDK directly: a Factory
// builds a fresh runtime handle per turn, the handle emits Callbacks in
// provider shape, and the normalizer translates those into wire envelopes.
package agent

import (
	"context"

	"github.com/quill-ai/quill/internal/session"
)

// CallbackKind discriminates runtime callbacks.
type CallbackKind string

// Runtime callback kinds.
const (
	// CallbackModelChunk carries incremental model output. Payload is
	// provider-shaped: a plain string for scalar providers, or []Block for
	// providers that emit typed content blocks.
	CallbackModelChunk CallbackKind = "model_chunk"

	// CallbackToolStart and CallbackToolEnd mark tool lifecycle, keyed by
	// Tool. An end is emitted for failing tools too — failure detail goes
	// to the model as a tool result, not to the stream.
	CallbackToolStart CallbackKind = "tool_start"
	CallbackToolEnd   CallbackKind = "tool_end"
)

// Block is one typed content block from a block-shaped provider. Only
// text-bearing blocks are forwardable; everything else (tool plumbing,
// reasoning traces) is carried for completeness and dropped downstream.
type Block struct {
	Type string
	Text string
}

// Callback is one unit of runtime output, in provider shape. Exactly one
// kind per callback.
type Callback struct {
	Kind    CallbackKind
	Payload any    // model_chunk only: string or []Block
	Tool    string // tool_start / tool_end only
}

// Handler receives callbacks in emission order. Returning an error aborts
// the run.
type Handler func(ctx context.Context, cb Callback) error

// Runtime executes one conversation turn. A handle is built per turn and
// discarded afterwards; it retains no mutable state between turns.
type Runtime interface {
	// Run generates the assistant turn for the given history, emitting
	// callbacks as output becomes available. The last history entry is the
	// pending user turn. Run returns after the final callback.
	Run(ctx context.Context, history []session.Turn, handler Handler) error
}

// Factory builds a runtime handle for one turn: model id plus the
// per-turn web-search switch. Pure — no retained globals.
type Factory func(ctx context.Context, modelID string, webSearch bool) (Runtime, error)
