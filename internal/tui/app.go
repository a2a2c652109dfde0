package tui

import (
	"eva-chat/internal/app"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the chat UI and blocks until the user quits.
func Run(application *app.Application) error {
	p := tea.NewProgram(NewModel(application), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
