package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/client"
	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/persistence"
	"github.com/MrJamesThe3rd/docflow/internal/workflow"
)

type selectionState int

const (
	selectionStateBrowse selectionState = iota
	selectionStateChoose
)

// SelectionModel lists documents waiting for a client choice and lets the operator
// record the choice on the sender's behalf.
type SelectionModel struct {
	CommonModel
	documents   *document.Service
	resolver    *client.Resolver
	coordinator *persistence.Coordinator
	engine      *workflow.Engine

	state selectionState
	table table.Model
	docs  []*document.Document
	form  *huh.Form

	candidates []client.Candidate
	formClient *string

	loading bool
	err     error
	status  string
}

func NewSelectionModel(docs *document.Service, resolver *client.Resolver, coord *persistence.Coordinator, engine *workflow.Engine) SelectionModel {
	t := newTable([]table.Column{
		{Title: "Received", Width: 17},
		{Title: "Category", Width: 18},
		{Title: "Filename", Width: 36},
		{Title: "Channel", Width: 12},
	})

	return SelectionModel{
		documents:   docs,
		resolver:    resolver,
		coordinator: coord,
		engine:      engine,
		table:       t,
		loading:     true,
	}
}

func (m SelectionModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m SelectionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case selectionLoadMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.docs = msg.docs
		m.refreshTable()

		return m, nil

	case candidatesMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error loading candidates: %v", msg.err)
			return m, nil
		}

		if len(msg.candidates) == 0 {
			m.status = "Sender has no candidate clients."
			return m, nil
		}

		return m.enterChooseMode(msg.candidates)

	case assignMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = "Processed " + FormatResult(msg.res)
		}

		m.state = selectionStateBrowse
		m.form = nil
		m.loading = true
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case selectionStateBrowse:
		return m.updateBrowse(msg)
	case selectionStateChoose:
		return m.updateChoose(msg)
	}

	return m, nil
}

func (m SelectionModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "enter":
			if doc := m.selected(); doc != nil {
				m.status = ""
				return m, m.candidatesCmd(doc)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m SelectionModel) enterChooseMode(candidates []client.Candidate) (tea.Model, tea.Cmd) {
	m.candidates = candidates
	first := candidates[0].ClientID.String()
	m.formClient = &first

	options := make([]huh.Option[string], 0, len(candidates))
	for _, c := range candidates {
		label := fmt.Sprintf("%s (via %s)", c.ClientName, c.ContactName)
		options = append(options, huh.NewOption(label, c.ClientID.String()))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("client").
				Title("Client").
				Options(options...).
				Value(m.formClient),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = selectionStateChoose
	m.table.Blur()

	return m, m.form.Init()
}

func (m SelectionModel) updateChoose(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = selectionStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.status = "Processing..."

	return m, m.assignCmd()
}

func (m SelectionModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading documents...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v\n\n(Esc to back)", m.err))
	}

	if len(m.docs) == 0 {
		return lipgloss.NewStyle().Padding(2).Render("No documents awaiting a client.\n\n(Esc to back, r to refresh)")
	}

	header := fmt.Sprintf("Awaiting client selection: %s", activeStyle(fmt.Sprint(len(m.docs))))
	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table),
		lipgloss.NewStyle().Faint(true).Render("Enter: choose client | r: refresh | Esc: back"),
	)

	if m.state == selectionStateChoose && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Select Client\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m SelectionModel) selected() *document.Document {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.docs) {
		return nil
	}

	return m.docs[idx]
}

func (m *SelectionModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.docs))
	for _, doc := range m.docs {
		rows = append(rows, table.Row{
			FormatDate(doc.CreatedAt),
			FormatCategory(doc.Category),
			doc.Metadata.Filename,
			doc.Metadata.SourceChannel,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type selectionLoadMsg struct {
	docs []*document.Document
	err  error
}

func (m SelectionModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		docs, err := m.documents.ListByState(ctx, document.StateAwaitingClientSelection)

		return selectionLoadMsg{docs: docs, err: err}
	}
}

type candidatesMsg struct {
	candidates []client.Candidate
	err        error
}

func (m SelectionModel) candidatesCmd(doc *document.Document) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		candidates, err := m.resolver.Candidates(ctx, doc.SenderIndividualID)

		return candidatesMsg{candidates: candidates, err: err}
	}
}

type assignMsg struct {
	res *workflow.Result
	err error
}

func (m SelectionModel) assignCmd() tea.Cmd {
	doc := m.selected()
	if doc == nil {
		return nil
	}

	raw := *m.formClient

	return func() tea.Msg {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			return assignMsg{err: err}
		}

		ctx, cancel := RunCtx()
		defer cancel()

		if _, err := m.resolver.Select(ctx, doc.SenderIndividualID, clientID); err != nil {
			return assignMsg{err: err}
		}

		if _, err := m.coordinator.AssignClient(ctx, doc.ID, clientID, "operator"); err != nil {
			return assignMsg{err: err}
		}

		res, err := m.engine.Run(ctx, doc.ID)

		return assignMsg{res: res, err: err}
	}
}
