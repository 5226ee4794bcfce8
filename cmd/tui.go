package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/senseilabs/harmonyctl/internal/shared"
	"github.com/senseilabs/harmonyctl/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive pairing interface.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/harmonyctl-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	machine, err := r.ensureMachine()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, machine, r.suffix())
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
