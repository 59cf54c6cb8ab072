// Package cmd implements the quill command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Chat with a tool-using AI assistant",
	Long: `Quill is a chat front end to a tool-using AI assistant.

Running quill with no subcommand opens the interactive chat TUI.
Run "quill serve" to start the streaming API server it talks to.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.Flags().StringVar(&chatServerURL, "server", "http://localhost:8080", "base URL of the quill server")
	rootCmd.Flags().StringVar(&chatModelID, "model", "", "model id for this session (default: server default)")
}
