package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/quill-ai/quill/internal/client"
	"github.com/quill-ai/quill/internal/tui"
)

var (
	chatServerURL string
	chatModelID   string
)

// runChat starts the interactive chat TUI against a running quill server.
func runChat(cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := client.New(chatServerURL)

	modelID := chatModelID
	if modelID == "" {
		catalog, err := api.Models(ctx)
		if err != nil {
			return fmt.Errorf("reaching server at %s: %w (is \"quill serve\" running?)", chatServerURL, err)
		}
		modelID = catalog.Default
	}

	model, err := tui.New(ctx, api, modelID)
	if err != nil {
		return fmt.Errorf("creating TUI: %w", err)
	}

	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err = program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}
