package view

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/transaction"
)

type suspiciousState int

const (
	suspiciousStateTimeframe suspiciousState = iota
	suspiciousStateReport
)

// SuspiciousModel reports transactions that failed repeatedly within a
// window and can flag them as fraud.
type SuspiciousModel struct {
	CommonModel
	auditService *audit.Service
	txService    *transaction.Service

	state           suspiciousState
	timeframePicker TimeframePicker
	start, end      time.Time
	minFailures     int

	table  table.Model
	hits   []audit.SuspiciousTransaction
	stats  map[audit.EventType]int64
	status string
	err    error
}

func NewSuspiciousModel(auditSvc *audit.Service, txSvc *transaction.Service) SuspiciousModel {
	return SuspiciousModel{
		auditService:    auditSvc,
		txService:       txSvc,
		timeframePicker: NewTimeframePicker(TimeframeLastDay),
		minFailures:     3,
		table: newTable([]table.Column{
			{Title: "Transaction", Width: 38},
			{Title: "Failures", Width: 10},
		}),
	}
}

func (m SuspiciousModel) Title() string { return "Suspicious Activity" }

func (m SuspiciousModel) ShortHelp() string {
	if m.state == suspiciousStateTimeframe {
		return "Esc: back | Enter: select"
	}

	return "Esc: timeframe | +/-: threshold | f: flag as fraud | r: refresh"
}

func (m SuspiciousModel) Init() tea.Cmd {
	return nil
}

func (m SuspiciousModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.start, m.end = msg.Start, msg.End
		m.state = suspiciousStateReport

		return m, m.loadCmd()

	case suspiciousReportMsg:
		m.err = msg.err
		m.hits = msg.hits
		m.stats = msg.stats
		m.refreshTable()

		return m, nil

	case flaggedMsg:
		if msg.err != nil {
			m.status = errorStyle(fmt.Sprintf("Flagging failed: %v", msg.err))
		} else {
			m.status = fmt.Sprintf("Flagged %d transaction(s) as fraud", msg.count)
		}

		return m, m.loadCmd()
	}

	if m.state == suspiciousStateTimeframe {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
			return m, Back
		}

		var cmd tea.Cmd
		m.timeframePicker, cmd = m.timeframePicker.Update(msg)

		return m, cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.state = suspiciousStateTimeframe
			m.timeframePicker.Reset()
			m.status = ""

			return m, nil
		case "+":
			m.minFailures++
			return m, m.loadCmd()
		case "-":
			if m.minFailures > 1 {
				m.minFailures--
				return m, m.loadCmd()
			}

			return m, nil
		case "r":
			return m, m.loadCmd()
		case "f":
			return m, m.flagCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *SuspiciousModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.hits))
	for _, h := range m.hits {
		rows = append(rows, table.Row{h.TransactionID.String(), fmt.Sprint(h.FailureCount)})
	}

	m.table.SetRows(rows)
}

func (m SuspiciousModel) View() string {
	if m.state == suspiciousStateTimeframe {
		return lipgloss.NewStyle().Padding(1).Render(m.timeframePicker.View())
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(1).Render(errorStyle(fmt.Sprintf("Error: %v", m.err)))
	}

	header := fmt.Sprintf("%s to %s | [+/-] Min failures: %s",
		FormatTime(m.start), FormatTime(m.end), activeStyle(fmt.Sprint(m.minFailures)))

	stats := fmt.Sprintf("Completed: %d  Failed: %d  Validation failures: %d  Fraud flags: %d",
		m.stats[audit.EventTransactionCompleted],
		m.stats[audit.EventTransactionFailed],
		m.stats[audit.EventValidationFailed],
		m.stats[audit.EventFraudDetected],
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Faint(true).PaddingBottom(1).Render(stats),
		framed(m.table.View()),
	)

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

type suspiciousReportMsg struct {
	hits  []audit.SuspiciousTransaction
	stats map[audit.EventType]int64
	err   error
}

func (m SuspiciousModel) loadCmd() tea.Cmd {
	start, end, minFailures := m.start, m.end, m.minFailures

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		hits, err := m.auditService.SuspiciousTransactions(ctx, start, end, minFailures)
		if err != nil {
			return suspiciousReportMsg{err: err}
		}

		stats, err := m.auditService.EventStatistics(ctx, start, end)

		return suspiciousReportMsg{hits: hits, stats: stats, err: err}
	}
}

type flaggedMsg struct {
	count int
	err   error
}

const flagTimeout = 30 * time.Second

func (m SuspiciousModel) flagCmd() tea.Cmd {
	start, end, minFailures := m.start, m.end, m.minFailures

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
		defer cancel()

		hits, err := m.txService.FlagSuspicious(ctx, start, end, minFailures)

		return flaggedMsg{count: len(hits), err: err}
	}
}
