package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledger/internal/account"
)

type accountsState int

const (
	accountsStateBrowse accountsState = iota
	accountsStateNew
)

// AccountsModel lists the operator's accounts and opens new ones.
type AccountsModel struct {
	CommonModel
	accountService *account.Service
	operator       uuid.UUID

	state    accountsState
	table    table.Model
	form     *huh.Form
	formType string

	loading bool
	err     error
	status  string
}

func NewAccountsModel(svc *account.Service, operator uuid.UUID) AccountsModel {
	return AccountsModel{
		accountService: svc,
		operator:       operator,
		table: newTable([]table.Column{
			{Title: "Number", Width: 24},
			{Title: "Type", Width: 10},
			{Title: "Status", Width: 10},
			{Title: "Balance", Width: 14},
			{Title: "Opened", Width: 20},
		}),
		loading: true,
	}
}

func (m AccountsModel) Title() string { return "Accounts" }

func (m AccountsModel) ShortHelp() string {
	if m.state == accountsStateNew {
		return "Esc: cancel | Enter: confirm"
	}

	return "Esc: back | n: new account | r: refresh"
}

func (m AccountsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m AccountsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadAccountsMsg:
		m.loading = false
		m.err = msg.err
		m.table.SetRows(accountRows(msg.accounts))

		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.status = errorStyle(fmt.Sprintf("Error: %v", msg.err))
		} else {
			m.status = fmt.Sprintf("Opened %s account %s", msg.acc.Type, msg.acc.Number)
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == accountsStateNew {
		return m.updateForm(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "n":
			m.formType = string(account.TypeChecking)
			m.form = m.buildForm()
			m.state = accountsStateNew
			m.status = ""

			return m, m.form.Init()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m AccountsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = accountsStateBrowse
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = accountsStateBrowse

	return m, m.openCmd(account.Type(m.form.GetString("type")))
}

func (m *AccountsModel) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("type").
				Title("Account Type").
				Options(
					huh.NewOption(string(account.TypeChecking), string(account.TypeChecking)),
					huh.NewOption(string(account.TypeSavings), string(account.TypeSavings)),
				).
				Value(&m.formType),
		),
	).WithWidth(40).WithShowHelp(false)
}

func accountRows(accs []*account.Account) []table.Row {
	rows := make([]table.Row, 0, len(accs))
	for _, a := range accs {
		rows = append(rows, table.Row{
			a.Number,
			string(a.Type),
			string(a.Status),
			FormatAmount(a.Balance),
			FormatTime(a.CreatedAt),
		})
	}

	return rows
}

func (m AccountsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading accounts...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	if m.state == accountsStateNew {
		return lipgloss.NewStyle().Padding(1).Render(m.form.View())
	}

	content := framed(m.table.View())
	if m.status != "" {
		content = m.status + "\n\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

type loadAccountsMsg struct {
	accounts []*account.Account
	err      error
}

func (m AccountsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		accs, err := m.accountService.ListByUser(ctx, m.operator)

		return loadAccountsMsg{accounts: accs, err: err}
	}
}

type openedMsg struct {
	acc *account.Account
	err error
}

func (m AccountsModel) openCmd(typ account.Type) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		acc, err := m.accountService.Create(ctx, m.operator, typ)

		return openedMsg{acc: acc, err: err}
	}
}
