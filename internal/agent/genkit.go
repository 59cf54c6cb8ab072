package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/quill-ai/quill/internal/log"
	"github.com/quill-ai/quill/internal/session"
)

// systemPrompt frames the agent's tool use. Adapted per-turn state (history,
// web-search availability) travels in messages and the tool set, not here.
const systemPrompt = `You are a helpful AI assistant with access to tools.

You can:
1. Search the web for current information using the web_search tool
2. Save artifacts (markdown files, code, notes) to disk using save_artifact
3. List and read previously saved artifacts

When the user asks you to create or save something, use the save_artifact tool.
When searching for information, use the web_search tool.

Be helpful, accurate, and thorough in your responses.`

// defaultMaxTurns bounds the agentic tool loop per turn.
const defaultMaxTurns = 5

// Config holds the dependencies for the genkit-backed runtime factory.
type Config struct {
	Genkit   *genkit.Genkit
	Toolkit  *Toolkit
	MaxTurns int // agentic loop bound, default 5
	Logger   log.Logger
}

// NewFactory registers the toolkit once and returns a Factory that builds a
// fresh runtime handle per turn. The handle captures only immutable state
// (model name, tool refs) and is discarded after Run.
func NewFactory(cfg Config) (Factory, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.Toolkit == nil {
		return nil, errors.New("toolkit is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}

	tools := cfg.Toolkit.Register(cfg.Genkit)

	return func(_ context.Context, modelID string, webSearch bool) (Runtime, error) {
		if modelID == "" {
			return nil, errors.New("model id is required")
		}

		refs := make([]ai.ToolRef, 0, len(tools))
		for _, t := range tools {
			if t.Name() == ToolWebSearch && !webSearch {
				continue
			}
			refs = append(refs, t)
		}

		return &genkitRuntime{
			g:         cfg.Genkit,
			modelName: modelID,
			toolRefs:  refs,
			maxTurns:  maxTurns,
			logger:    cfg.Logger,
		}, nil
	}, nil
}

// genkitRuntime is a single-turn handle over a genkit Generate call.
type genkitRuntime struct {
	g         *genkit.Genkit
	modelName string
	toolRefs  []ai.ToolRef
	maxTurns  int
	logger    log.Logger
}

var _ Runtime = (*genkitRuntime)(nil)

// handlerEmitter forwards tool lifecycle events to the run's Handler.
// Handler errors are dropped here: a failed stream write must not abort a
// tool mid-execution, and the generate loop surfaces disconnects itself.
type handlerEmitter struct {
	ctx     context.Context
	handler Handler
}

func (e *handlerEmitter) OnToolStart(name string) {
	_ = e.handler(e.ctx, Callback{Kind: CallbackToolStart, Tool: name})
}

func (e *handlerEmitter) OnToolEnd(name string) {
	_ = e.handler(e.ctx, Callback{Kind: CallbackToolEnd, Tool: name})
}

// Run implements Runtime.
func (r *genkitRuntime) Run(ctx context.Context, history []session.Turn, handler Handler) error {
	messages := historyMessages(history)

	ctx = ContextWithEmitter(ctx, &handlerEmitter{ctx: ctx, handler: handler})

	var streamed bool
	resp, err := genkit.Generate(ctx, r.g,
		ai.WithModelName(r.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
		ai.WithTools(r.toolRefs...),
		ai.WithMaxTurns(r.maxTurns),
		ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			blocks := chunkBlocks(chunk)
			if len(blocks) == 0 {
				return nil
			}
			streamed = true
			return handler(ctx, Callback{Kind: CallbackModelChunk, Payload: blocks})
		}),
	)
	if err != nil {
		return fmt.Errorf("generate (%s): %w", r.modelName, err)
	}

	// Some models deliver the whole response without streaming a single
	// chunk. Forward the final text once, scalar-shaped, so the turn still
	// yields content.
	if !streamed {
		if text := resp.Text(); text != "" {
			return handler(ctx, Callback{Kind: CallbackModelChunk, Payload: text})
		}
		r.logger.Warn("model produced no text", "model", r.modelName)
	}
	return nil
}

// historyMessages converts plain-text turns into model messages. History is
// provider-agnostic, so this is a straight mapping.
func historyMessages(history []session.Turn) []*ai.Message {
	messages := make([]*ai.Message, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case session.RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(turn.Text)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(turn.Text)))
		}
	}
	return messages
}

// chunkBlocks maps a genkit chunk to provider blocks, keeping the block
// structure intact — filtering text-bearing blocks is the normalizer's job.
func chunkBlocks(chunk *ai.ModelResponseChunk) []Block {
	if chunk == nil {
		return nil
	}
	blocks := make([]Block, 0, len(chunk.Content))
	for _, part := range chunk.Content {
		b := Block{Type: string(part.Kind)}
		if part.IsText() {
			b.Type = "text"
			b.Text = part.Text
		}
		blocks = append(blocks, b)
	}
	return blocks
}
