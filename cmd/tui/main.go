package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/docflow/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/docflow/internal/app"
	"github.com/MrJamesThe3rd/docflow/internal/config"
)

type model struct {
	app *app.App

	currentView View

	selectionView view.SelectionModel
	failedView    view.FailedModel
}

type View int

const (
	ViewMenu      View = 0
	ViewSelection View = 1
	ViewFailed    View = 2
)

func initialModel(a *app.App) model {
	return model{
		app:           a,
		currentView:   ViewMenu,
		selectionView: view.NewSelectionModel(a.Documents, a.Resolver, a.Coordinator, a.Engine),
		failedView:    view.NewFailedModel(a.Documents, a.Engine),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewSelection
				m.selectionView = view.NewSelectionModel(m.app.Documents, m.app.Resolver, m.app.Coordinator, m.app.Engine)

				return m, m.selectionView.Init()
			case "2":
				m.currentView = ViewFailed
				m.failedView = view.NewFailedModel(m.app.Documents, m.app.Engine)

				return m, m.failedView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewSelection:
		var newModel tea.Model
		newModel, cmd = m.selectionView.Update(msg)
		m.selectionView = newModel.(view.SelectionModel)
	case ViewFailed:
		var newModel tea.Model
		newModel, cmd = m.failedView.Update(msg)
		m.failedView = newModel.(view.FailedModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Docflow Console\n\n" +
				"1. Pending Client Selections\n" +
				"2. Failed Documents\n\n" +
				"q. Quit",
		)
	case ViewSelection:
		return m.selectionView.View()
	case ViewFailed:
		return m.failedView.View()
	}

	return "Unknown View"
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run logs would draw over the terminal UI.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if path := os.Getenv("DOCFLOW_TUI_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			slog.Error("failed to open log file", "error", err)
			os.Exit(1)
		}
		defer f.Close()

		logger = slog.New(slog.NewTextHandler(f, nil))
	}

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	p := tea.NewProgram(initialModel(a))
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
