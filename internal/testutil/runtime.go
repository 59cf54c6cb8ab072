package testutil

import (
	"context"

	"github.com/quill-ai/quill/internal/agent"
	"github.com/quill-ai/quill/internal/session"
)

// ScriptedRuntime replays a fixed callback sequence through the handler,
// then returns Err. It stands in for a model-backed runtime in server and
// client tests.
type ScriptedRuntime struct {
	Callbacks []agent.Callback
	Err       error

	// History records the turns passed to the last Run call.
	History []session.Turn
}

var _ agent.Runtime = (*ScriptedRuntime)(nil)

// Run implements agent.Runtime.
func (s *ScriptedRuntime) Run(ctx context.Context, history []session.Turn, handler agent.Handler) error {
	s.History = append([]session.Turn(nil), history...)
	for _, cb := range s.Callbacks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := handler(ctx, cb); err != nil {
			return err
		}
	}
	return s.Err
}

// ScriptedFactory returns a Factory handing out the given runtime regardless
// of model id. It records the arguments of the last call.
type ScriptedFactory struct {
	Runtime   agent.Runtime
	Err       error
	ModelID   string
	WebSearch bool
	CallCount int
}

// Factory returns the agent.Factory adapter.
func (f *ScriptedFactory) Factory() agent.Factory {
	return func(_ context.Context, modelID string, webSearch bool) (agent.Runtime, error) {
		f.CallCount++
		f.ModelID = modelID
		f.WebSearch = webSearch
		if f.Err != nil {
			return nil, f.Err
		}
		return f.Runtime, nil
	}
}

// TextCallbacks builds a model-chunk callback per string, the shortest way to
// script a plain streamed reply.
func TextCallbacks(chunks ...string) []agent.Callback {
	cbs := make([]agent.Callback, 0, len(chunks))
	for _, c := range chunks {
		cbs = append(cbs, agent.Callback{Kind: agent.CallbackModelChunk, Payload: c})
	}
	return cbs
}
