// Package app wires the application together: model runtime, conversation
// store, artifact store, and the agent factory handed to the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/quill-ai/quill/internal/agent"
	"github.com/quill-ai/quill/internal/artifact"
	"github.com/quill-ai/quill/internal/config"
	"github.com/quill-ai/quill/internal/session"
)

// App is the application container. Build one with Setup and release its
// resources with Close.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit    *genkit.Genkit
	Store     session.Store
	Artifacts *artifact.Store
	Factory   agent.Factory
}

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.Genkit = provideGenkit(ctx)

	store, err := provideStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store

	artifacts, err := artifact.NewStore(cfg.ArtifactsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}
	a.Artifacts = artifacts

	factory, err := provideFactory(a)
	if err != nil {
		return nil, err
	}
	a.Factory = factory

	return a, nil
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("close conversation store: %w", err)
		}
		a.Logger.Info("conversation store closed")
	}
	return nil
}

// provideGenkit initializes the Genkit runtime with the Google AI plugin.
// The plugin reads GEMINI_API_KEY from the environment.
func provideGenkit(ctx context.Context) *genkit.Genkit {
	return genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
}

// provideStore selects the conversation backend from configuration.
func provideStore(cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		store, err := session.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("using sqlite conversation store", "path", cfg.SQLitePath)
		return store, nil
	case config.StoreMemory:
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidStoreBackend, cfg.StoreBackend)
	}
}

// provideFactory builds the per-turn runtime factory with the tool set.
func provideFactory(a *App) (agent.Factory, error) {
	search := &agent.SearchClient{APIKey: a.Config.TavilyAPIKey}
	if !search.Available() {
		a.Logger.Warn("TAVILY_API_KEY not set, web search tool disabled")
	}

	toolkit, err := agent.NewToolkit(a.Artifacts, search, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("build toolkit: %w", err)
	}

	return agent.NewFactory(agent.Config{
		Genkit:   a.Genkit,
		Toolkit:  toolkit,
		MaxTurns: a.Config.MaxTurns,
		Logger:   a.Logger,
	})
}
