package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
)

const auditPageSize = 25

// AuditModel pages through the audit log, newest first, optionally narrowed
// to one event type.
type AuditModel struct {
	CommonModel
	auditService *audit.Service

	table    table.Model
	page     *audit.PageResult
	offset   int
	eventIdx int // 0 means all events, otherwise audit.EventTypes[eventIdx-1]

	loading bool
	err     error
}

func NewAuditModel(svc *audit.Service) AuditModel {
	return AuditModel{
		auditService: svc,
		table: newTable([]table.Column{
			{Title: "When", Width: 20},
			{Title: "Event", Width: 24},
			{Title: "Transaction", Width: 26},
			{Title: "User", Width: 12},
			{Title: "Description", Width: 60},
		}),
		loading: true,
	}
}

func (m AuditModel) Title() string { return "Audit Log" }

func (m AuditModel) ShortHelp() string {
	return "Esc: back | n/p: next/prev page | e: event filter | r: refresh"
}

func (m AuditModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m AuditModel) eventFilter() *audit.EventType {
	if m.eventIdx == 0 {
		return nil
	}

	return &audit.EventTypes[m.eventIdx-1]
}

func (m AuditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadAuditMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.page = msg.page
			m.table.SetRows(m.rows())
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "n":
			if m.page != nil && int64(m.offset+auditPageSize) < m.page.Total {
				m.offset += auditPageSize
				return m, m.loadCmd()
			}

			return m, nil
		case "p":
			if m.offset > 0 {
				m.offset = max(0, m.offset-auditPageSize)
				return m, m.loadCmd()
			}

			return m, nil
		case "e":
			m.eventIdx = (m.eventIdx + 1) % (len(audit.EventTypes) + 1)
			m.offset = 0

			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m AuditModel) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.page.Records))
	for _, rec := range m.page.Records {
		rows = append(rows, table.Row{
			FormatTime(rec.CreatedAt),
			string(rec.EventType),
			rec.TransactionNumber,
			rec.Username,
			rec.Description,
		})
	}

	return rows
}

func (m AuditModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading audit log...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	event := "All"
	if e := m.eventFilter(); e != nil {
		event = string(*e)
	}

	header := fmt.Sprintf("Filter: [e] Event: %s", activeStyle(event))

	if m.page != nil && m.page.Total > 0 {
		last := min(int64(m.offset+len(m.page.Records)), m.page.Total)
		header += fmt.Sprintf(" | %d-%d of %d", m.offset+1, last, m.page.Total)
	}

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		framed(m.table.View()),
	))
}

type loadAuditMsg struct {
	page *audit.PageResult
	err  error
}

func (m AuditModel) loadCmd() tea.Cmd {
	page := audit.Page{Offset: m.offset, Limit: auditPageSize}
	filter := audit.Filter{EventType: m.eventFilter()}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		res, err := m.auditService.ListPaged(ctx, filter, page)

		return loadAuditMsg{page: res, err: err}
	}
}
