package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

const accentColor = "#7C5CFF"

var quillArt = []string{
	" ██████╗ ██╗   ██╗██╗██╗     ██╗     ",
	"██╔═══██╗██║   ██║██║██║     ██║     ",
	"██║   ██║██║   ██║██║██║     ██║     ",
	"██║▄▄ ██║██║   ██║██║██║     ██║     ",
	"╚██████╔╝╚██████╔╝██║███████╗███████╗",
	" ╚══▀▀═╝  ╚═════╝ ╚═╝╚══════╝╚══════╝",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner      lipgloss.Style
	User        lipgloss.Style
	Assistant   lipgloss.Style
	System      lipgloss.Style
	Tips        lipgloss.Style
	Error       lipgloss.Style
	Prompt      lipgloss.Style
	Separator   lipgloss.Style
	StatusBar   lipgloss.Style
	BadgeActive lipgloss.Style
	BadgeDone   lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentColor)),
		User:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:      lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:        lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		BadgeActive: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214")),
		BadgeDone:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
	}
}

// RenderBanner returns the ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range quillArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

var welcomeTips = []string{
	"Tips for getting started:",
	"  • Ask questions naturally, toggle web search with /search",
	"  • Attach a document to your next message with /attach <path>",
	"  • Use /help to see available commands",
	"  • Press Ctrl+C to cancel, Ctrl+D to exit",
	"  • Up/Down arrows navigate input history",
}

// RenderWelcomeTips returns the styled welcome tips.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
