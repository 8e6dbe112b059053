package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/amiresolve/metrics"
	"github.com/justapithecus/amiresolve/types"
)

// Run shows result until the user quits.
func Run(result *types.ResolutionResult, snap *metrics.Snapshot) error {
	if result == nil {
		return errors.New("tui: nothing to show")
	}
	p := tea.NewProgram(NewResultModel(result, snap), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
