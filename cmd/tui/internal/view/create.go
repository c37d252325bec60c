package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/account"
	"github.com/MrJamesThe3rd/ledger/internal/transaction"
)

type createState int

const (
	createStateForm createState = iota
	createStateSaving
	createStateResult
)

// CreateModel records a new transaction on behalf of the operator.
type CreateModel struct {
	CommonModel
	txService      *transaction.Service
	accountService *account.Service
	operator       uuid.UUID

	state createState
	form  *huh.Form

	formType    string
	formAccount string
	formAmount  string
	formFee     string
	formTax     string
	formDesc    string

	result *transaction.Transaction
	err    error
}

func NewCreateModel(txSvc *transaction.Service, accSvc *account.Service, operator uuid.UUID) CreateModel {
	m := CreateModel{
		txService:      txSvc,
		accountService: accSvc,
		operator:       operator,
		formType:       string(transaction.TypeDeposit),
		formFee:        "0",
		formTax:        "0",
	}
	m.form = m.buildForm()

	return m
}

func (m CreateModel) Title() string { return "New Transaction" }

func (m CreateModel) ShortHelp() string {
	if m.state == createStateResult {
		return "Esc: back | n: another"
	}

	return "Esc: back | Enter/Tab: navigate form"
}

func (m CreateModel) Init() tea.Cmd {
	return m.form.Init()
}

func validDecimal(allowZero bool) func(string) error {
	return func(s string) error {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("not a number")
		}

		if d.IsNegative() || (!allowZero && d.IsZero()) {
			return fmt.Errorf("must be greater than zero")
		}

		return nil
	}
}

func (m *CreateModel) buildForm() *huh.Form {
	options := make([]huh.Option[string], 0, 3)
	for _, t := range []transaction.Type{transaction.TypeDeposit, transaction.TypeWithdrawal, transaction.TypePayment} {
		options = append(options, huh.NewOption(string(t), string(t)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("type").
				Title("Type").
				Options(options...).
				Value(&m.formType),

			huh.NewInput().
				Key("account").
				Title("Account Number").
				Value(&m.formAccount).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("account number cannot be empty")
					}

					return nil
				}),

			huh.NewInput().Key("amount").Title("Amount").Value(&m.formAmount).Validate(validDecimal(false)),
			huh.NewInput().Key("fee").Title("Fee").Value(&m.formFee).Validate(validDecimal(true)),
			huh.NewInput().Key("tax").Title("Tax").Value(&m.formTax).Validate(validDecimal(true)),
			huh.NewText().Key("description").Title("Description").CharLimit(transaction.MaxDescriptionLength).Value(&m.formDesc),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m CreateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if result, ok := msg.(createdMsg); ok {
		m.state = createStateResult
		m.result = result.tx
		m.err = result.err

		return m, nil
	}

	keyMsg, isKey := msg.(tea.KeyMsg)
	if isKey && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	switch m.state {
	case createStateForm:
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}

		if m.form.State != huh.StateCompleted {
			return m, cmd
		}

		m.state = createStateSaving

		return m, m.createCmd()

	case createStateResult:
		if isKey && keyMsg.String() == "n" {
			fresh := NewCreateModel(m.txService, m.accountService, m.operator)
			return fresh, fresh.Init()
		}
	}

	return m, nil
}

func (m CreateModel) View() string {
	switch m.state {
	case createStateSaving:
		return lipgloss.NewStyle().Padding(1).Render("Saving...")

	case createStateResult:
		if m.err != nil {
			body := errorStyle(fmt.Sprintf("Error: %v", m.err))

			if m.result == nil {
				return lipgloss.NewStyle().Padding(1).Render(body)
			}

			return lipgloss.NewStyle().Padding(1).Render(body + "\n\n" + describe(m.result))
		}

		header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")).Render("Transaction recorded")

		return lipgloss.NewStyle().Padding(1).Render(header + "\n\n" + describe(m.result))
	}

	return lipgloss.NewStyle().Padding(1).Render(m.form.View())
}

func describe(tx *transaction.Transaction) string {
	return fmt.Sprintf("Number:  %s\nType:    %s\nStatus:  %s\nTotal:   %s\nAccount: %s",
		tx.Number, tx.Type, tx.Status, FormatAmount(tx.TotalAmount), tx.AccountNumber)
}

type createdMsg struct {
	tx  *transaction.Transaction
	err error
}

func (m CreateModel) createCmd() tea.Cmd {
	// Bound fields belong to the model copy the form was built on, so read
	// the submitted values back through the form.
	field := func(key string) string { return strings.TrimSpace(m.form.GetString(key)) }

	var (
		typ    = transaction.Type(field("type"))
		number = field("account")
		amount = decimal.RequireFromString(field("amount"))
		fee    = decimal.RequireFromString(field("fee"))
		tax    = decimal.RequireFromString(field("tax"))
		desc   = field("description")
	)

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		acc, err := m.accountService.GetByNumber(ctx, number)
		if err != nil {
			return createdMsg{err: err}
		}

		tx, err := m.txService.Create(ctx, transaction.CreateRequest{
			Type:        typ,
			Amount:      amount,
			Fee:         fee,
			Tax:         tax,
			Description: desc,
			AccountID:   &acc.ID,
		}, m.operator)

		return createdMsg{tx: tx, err: err}
	}
}
