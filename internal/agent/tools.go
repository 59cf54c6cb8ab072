package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/quill-ai/quill/internal/artifact"
	"github.com/quill-ai/quill/internal/log"
)

// Tool names, stable across the wire: clients correlate tool_start/tool_end
// badges by these strings.
const (
	ToolWebSearch     = "web_search"
	ToolSaveArtifact  = "save_artifact"
	ToolListArtifacts = "list_artifacts"
	ToolReadArtifact  = "read_artifact"
)

// searchUnavailableMessage is what the model sees when no search key is
// configured. Informing the model beats failing the turn.
const searchUnavailableMessage = "Web search is not available: no search API key is configured."

// WebSearchInput is the input schema for the web_search tool.
type WebSearchInput struct {
	Query      string `json:"query" jsonschema_description:"The search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema_description:"Maximum number of results (default 5)"`
	Topic      string `json:"topic,omitempty" jsonschema_description:"Search topic: general, news, or finance"`
}

// SaveArtifactInput is the input schema for the save_artifact tool.
type SaveArtifactInput struct {
	Filename string `json:"filename" jsonschema_description:"Artifact filename, e.g. report.md"`
	Content  string `json:"content" jsonschema_description:"Full file content to save"`
}

// ReadArtifactInput is the input schema for the read_artifact tool.
type ReadArtifactInput struct {
	Filename string `json:"filename" jsonschema_description:"Artifact filename to read"`
}

// ListArtifactsInput is the (empty) input schema for list_artifacts.
type ListArtifactsInput struct{}

// Toolkit bundles the fixed tool set the agent runs with: web search plus
// artifact save/list/read. Tool failures are returned to the model as result
// text, never as turn errors.
type Toolkit struct {
	artifacts *artifact.Store
	search    *SearchClient
	logger    log.Logger
}

// NewToolkit creates a toolkit. search may be unconfigured (no API key);
// the web_search tool then reports unavailability.
func NewToolkit(artifacts *artifact.Store, search *SearchClient, logger log.Logger) (*Toolkit, error) {
	if artifacts == nil {
		return nil, errors.New("artifact store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if search == nil {
		search = &SearchClient{}
	}
	return &Toolkit{artifacts: artifacts, search: search, logger: logger}, nil
}

// Register defines every tool with genkit and returns them for ai.WithTools.
// Each handler is wrapped with lifecycle events so streaming turns surface
// tool activity.
func (tk *Toolkit) Register(g *genkit.Genkit) []ai.Tool {
	return []ai.Tool{
		genkit.DefineTool(g, ToolWebSearch,
			"Search the web for current information. Returns JSON search results.",
			WithEvents(ToolWebSearch, tk.webSearch)),

		genkit.DefineTool(g, ToolSaveArtifact,
			"Save an artifact file (markdown, code, notes) to disk. Overwrites any existing file with the same name.",
			WithEvents(ToolSaveArtifact, tk.saveArtifact)),

		genkit.DefineTool(g, ToolListArtifacts,
			"List all saved artifact filenames.",
			WithEvents(ToolListArtifacts, tk.listArtifacts)),

		genkit.DefineTool(g, ToolReadArtifact,
			"Read a previously saved artifact file.",
			WithEvents(ToolReadArtifact, tk.readArtifact)),
	}
}

func (tk *Toolkit) webSearch(ctx *ai.ToolContext, input WebSearchInput) (string, error) {
	tk.logger.Info("web_search called", "query", input.Query)

	if !tk.search.Available() {
		return searchUnavailableMessage, nil
	}

	results, err := tk.search.Search(ctx.Context, input.Query, input.MaxResults, input.Topic)
	if err != nil {
		tk.logger.Warn("web search failed", "query", input.Query, "error", err)
		return fmt.Sprintf("Search error: %v", err), nil
	}
	return results, nil
}

func (tk *Toolkit) saveArtifact(_ *ai.ToolContext, input SaveArtifactInput) (string, error) {
	tk.logger.Info("save_artifact called", "filename", input.Filename)

	if err := tk.artifacts.Save(input.Filename, input.Content); err != nil {
		if errors.Is(err, artifact.ErrInvalidName) {
			return fmt.Sprintf("Cannot save %q: invalid filename.", input.Filename), nil
		}
		return "", fmt.Errorf("save artifact: %w", err)
	}
	return fmt.Sprintf("Artifact saved as %s.", input.Filename), nil
}

func (tk *Toolkit) listArtifacts(_ *ai.ToolContext, _ ListArtifactsInput) (string, error) {
	infos, err := tk.artifacts.List()
	if err != nil {
		return "", fmt.Errorf("list artifacts: %w", err)
	}
	if len(infos) == 0 {
		return "No artifacts found.", nil
	}

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return strings.Join(names, "\n"), nil
}

func (tk *Toolkit) readArtifact(_ *ai.ToolContext, input ReadArtifactInput) (string, error) {
	content, err := tk.artifacts.Read(input.Filename)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) || errors.Is(err, artifact.ErrInvalidName) {
			return fmt.Sprintf("Artifact %q not found.", input.Filename), nil
		}
		return "", fmt.Errorf("read artifact: %w", err)
	}
	return content, nil
}
