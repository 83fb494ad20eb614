// Package tui is an interactive browser over a batch of peeked
// Service Bus messages.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yazzzuk/azure-service-bus-reader/internal/render"
)

// Run opens the browser over an already-peeked batch. It blocks until
// the user quits.
func Run(msgs []render.Message, title string) error {
	m := initialModel(title, fromRendered(msgs))

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
