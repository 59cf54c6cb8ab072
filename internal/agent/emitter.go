package agent

import (
	"context"

	"github.com/firebase/genkit/go/ai"
)

// emitterKey uses an empty struct for a zero-allocation context key.
type emitterKey struct{}

// ToolEventEmitter receives tool lifecycle events. Minimal on purpose: tool
// name only, no payloads, no UI concerns.
type ToolEventEmitter interface {
	// OnToolStart signals that the named tool began executing.
	OnToolStart(name string)

	// OnToolEnd signals that the named tool finished, successfully or not.
	OnToolEnd(name string)
}

// ContextWithEmitter stores the emitter in ctx for per-turn binding.
func ContextWithEmitter(ctx context.Context, emitter ToolEventEmitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, emitter)
}

// EmitterFromContext retrieves the emitter, or nil when the caller is not
// streaming. Nil degrades gracefully: tools run, no events are emitted.
func EmitterFromContext(ctx context.Context) ToolEventEmitter {
	emitter, _ := ctx.Value(emitterKey{}).(ToolEventEmitter)
	return emitter
}

// WithEvents wraps a typed tool handler to emit lifecycle events around the
// call. The end event fires on the error path too, so a failing tool never
// leaves a dangling start on the stream.
func WithEvents[In, Out any](name string, fn func(*ai.ToolContext, In) (Out, error)) func(*ai.ToolContext, In) (Out, error) {
	return func(ctx *ai.ToolContext, input In) (Out, error) {
		emitter := EmitterFromContext(ctx.Context)

		if emitter != nil {
			emitter.OnToolStart(name)
		}

		result, err := fn(ctx, input)

		if emitter != nil {
			emitter.OnToolEnd(name)
		}

		return result, err
	}
}
