package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/workflow"
)

// FailedModel lists failed documents with their last error and retries them.
type FailedModel struct {
	CommonModel
	documents *document.Service
	engine    *workflow.Engine

	table table.Model
	docs  []*document.Document

	loading bool
	running bool
	err     error
	status  string
}

func NewFailedModel(docs *document.Service, engine *workflow.Engine) FailedModel {
	t := newTable([]table.Column{
		{Title: "Updated", Width: 17},
		{Title: "Filename", Width: 30},
		{Title: "Error", Width: 60},
	})

	return FailedModel{
		documents: docs,
		engine:    engine,
		table:     t,
		loading:   true,
	}
}

func (m FailedModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m FailedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case failedLoadMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.docs = msg.docs
		m.refreshTable()

		return m, nil

	case retryMsg:
		m.running = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Retry failed: %v", msg.err)
		} else {
			m.status = "Processed " + FormatResult(msg.res)
		}

		m.loading = true

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		if m.running {
			return m, nil
		}

		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			if idx := m.table.Cursor(); idx >= 0 && idx < len(m.docs) {
				m.running = true
				m.status = "Retrying..."

				return m, m.retryCmd(m.docs[idx])
			}

			return m, nil
		case "f5":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m FailedModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading documents...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v\n\n(Esc to back)", m.err))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(fmt.Sprintf("Failed documents: %s", activeStyle(fmt.Sprint(len(m.docs))))),
		boxed(m.table),
		lipgloss.NewStyle().Faint(true).Render("r: retry | F5: refresh | Esc: back"),
	)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *FailedModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.docs))
	for _, doc := range m.docs {
		rows = append(rows, table.Row{
			FormatDate(doc.UpdatedAt),
			doc.Metadata.Filename,
			lastError(doc),
		})
	}

	m.table.SetRows(rows)
}

type failedLoadMsg struct {
	docs []*document.Document
	err  error
}

func (m FailedModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		docs, err := m.documents.ListByState(ctx, document.StateFailed)

		return failedLoadMsg{docs: docs, err: err}
	}
}

type retryMsg struct {
	res *workflow.Result
	err error
}

func (m FailedModel) retryCmd(doc *document.Document) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := RunCtx()
		defer cancel()

		res, err := m.engine.Run(ctx, doc.ID)

		return retryMsg{res: res, err: err}
	}
}
