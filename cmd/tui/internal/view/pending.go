package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/transaction"
)

type pendingState int

const (
	pendingStateBrowse pendingState = iota
	pendingStateTrail
)

// PendingModel lists PENDING transactions, processes them and shows their
// audit trail.
type PendingModel struct {
	CommonModel
	txService    *transaction.Service
	auditService *audit.Service

	state   pendingState
	table   table.Model
	trail   table.Model
	txs     []*transaction.Transaction
	current *transaction.Transaction

	loading bool
	err     error
	status  string
}

func NewPendingModel(txSvc *transaction.Service, auditSvc *audit.Service) PendingModel {
	return PendingModel{
		txService:    txSvc,
		auditService: auditSvc,
		table: newTable([]table.Column{
			{Title: "Created", Width: 20},
			{Title: "Number", Width: 26},
			{Title: "Type", Width: 11},
			{Title: "Total", Width: 12},
			{Title: "Account", Width: 24},
			{Title: "User", Width: 12},
		}),
		trail:   newTable(trailColumns()),
		loading: true,
	}
}

func (m PendingModel) Title() string { return "Pending Transactions" }

func (m PendingModel) ShortHelp() string {
	if m.state == pendingStateTrail {
		return "Esc: back to list"
	}

	return "Esc: back | p: process | Enter: audit trail | r: refresh"
}

func (m PendingModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m PendingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadPendingMsg:
		m.loading = false
		m.err = msg.err
		m.txs = msg.txs
		m.refreshTable()

		return m, nil

	case processedMsg:
		switch {
		case msg.err != nil:
			m.status = errorStyle(fmt.Sprintf("%s: %v", msg.number, msg.err))
		case msg.tx.Status == transaction.StatusFailed:
			m.status = errorStyle(fmt.Sprintf("%s failed: %s", msg.tx.Number, msg.tx.Notes))
		default:
			m.status = fmt.Sprintf("%s %s", msg.tx.Number, msg.tx.Status)
		}

		return m, m.loadCmd()

	case loadTrailMsg:
		if msg.err != nil {
			m.status = errorStyle(fmt.Sprintf("Error loading trail: %v", msg.err))
			return m, nil
		}

		m.trail.SetRows(trailRows(msg.records))
		m.state = pendingStateTrail
		m.table.Blur()
		m.trail.Focus()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		m.trail.SetHeight(msg.Height - 10)

		return m, nil
	}

	if m.state == pendingStateTrail {
		return m.updateTrail(msg)
	}

	return m.updateBrowse(msg)
}

func (m PendingModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "p":
			if tx := m.selected(); tx != nil {
				m.status = "Processing " + tx.Number + "..."
				return m, m.processCmd(tx)
			}

			return m, nil
		case "enter":
			if tx := m.selected(); tx != nil {
				m.current = tx
				return m, m.loadTrailCmd(tx)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m PendingModel) updateTrail(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = pendingStateBrowse
		m.current = nil
		m.trail.Blur()
		m.table.Focus()

		return m, nil
	}

	var cmd tea.Cmd
	m.trail, cmd = m.trail.Update(msg)

	return m, cmd
}

func (m PendingModel) selected() *transaction.Transaction {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return nil
	}

	return m.txs[idx]
}

func (m PendingModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading pending transactions...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	var content string

	if m.state == pendingStateTrail && m.current != nil {
		header := fmt.Sprintf("Audit trail for %s (%s %s)",
			activeStyle(m.current.Number), m.current.Type, FormatAmount(m.current.TotalAmount))
		content = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().PaddingBottom(1).Render(header),
			framed(m.trail.View()),
		)
	} else {
		header := fmt.Sprintf("%d pending", len(m.txs))
		content = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().PaddingBottom(1).Render(header),
			framed(m.table.View()),
		)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *PendingModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))
	for _, tx := range m.txs {
		rows = append(rows, table.Row{
			FormatTime(tx.CreatedAt),
			tx.Number,
			string(tx.Type),
			FormatAmount(tx.TotalAmount),
			tx.AccountNumber,
			tx.Username,
		})
	}

	m.table.SetRows(rows)
}

func trailColumns() []table.Column {
	return []table.Column{
		{Title: "When", Width: 20},
		{Title: "Event", Width: 24},
		{Title: "From", Width: 11},
		{Title: "To", Width: 11},
		{Title: "Description", Width: 60},
	}
}

func trailRows(recs []*audit.Record) []table.Row {
	rows := make([]table.Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, table.Row{
			FormatTime(rec.CreatedAt),
			string(rec.EventType),
			rec.PreviousStatus,
			rec.NewStatus,
			rec.Description,
		})
	}

	return rows
}

// Messages

type loadPendingMsg struct {
	txs []*transaction.Transaction
	err error
}

func (m PendingModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.txService.ListPending(ctx)

		return loadPendingMsg{txs: txs, err: err}
	}
}

type processedMsg struct {
	number string
	tx     *transaction.Transaction
	err    error
}

func (m PendingModel) processCmd(tx *transaction.Transaction) tea.Cmd {
	id, number := tx.ID, tx.Number

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		done, err := m.txService.Process(ctx, id)

		return processedMsg{number: number, tx: done, err: err}
	}
}

type loadTrailMsg struct {
	records []*audit.Record
	err     error
}

func (m PendingModel) loadTrailCmd(tx *transaction.Transaction) tea.Cmd {
	id := tx.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		recs, err := m.auditService.ByTransaction(ctx, id)

		return loadTrailMsg{records: recs, err: err}
	}
}
