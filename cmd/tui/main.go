package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledger/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/ledger/internal/account"
	accountStore "github.com/MrJamesThe3rd/ledger/internal/account/store"
	"github.com/MrJamesThe3rd/ledger/internal/audit"
	auditStore "github.com/MrJamesThe3rd/ledger/internal/audit/store"
	"github.com/MrJamesThe3rd/ledger/internal/config"
	"github.com/MrJamesThe3rd/ledger/internal/database"
	"github.com/MrJamesThe3rd/ledger/internal/export"
	"github.com/MrJamesThe3rd/ledger/internal/transaction"
	txStore "github.com/MrJamesThe3rd/ledger/internal/transaction/store"
	"github.com/MrJamesThe3rd/ledger/internal/user"
	userStore "github.com/MrJamesThe3rd/ledger/internal/user/store"
)

type model struct {
	txService      *transaction.Service
	accountService *account.Service
	auditService   *audit.Service
	exportService  *export.Service
	operator       *user.User

	currentView View
	views       map[View]view.View
}

type View int

const (
	ViewMenu       View = 0
	ViewPending    View = 1
	ViewCreate     View = 2
	ViewAccounts   View = 3
	ViewAudit      View = 4
	ViewSuspicious View = 5
	ViewExport     View = 6
)

func initialModel() model {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DB.Driver, cfg.ConnectionString(), cfg.Pool())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := view.DbCtx()
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var (
		userSvc    = user.NewService(userStore.New(db))
		accountSvc = account.NewService(accountStore.New(db), userSvc, db)
		auditSvc   = audit.NewService(auditStore.New(db))
		txSvc      = transaction.NewService(
			txStore.New(db), accountSvc, userSvc, auditSvc, auditSvc, db,
			transaction.Options{
				Currency:            cfg.Ledger.Currency,
				ComplianceThreshold: cfg.Ledger.ComplianceThreshold,
				MaxRetries:          cfg.Ledger.MaxRetries,
			},
		)
	)

	operator, err := ensureOperator(ctx, userSvc, cfg.App.Operator)
	if err != nil {
		slog.Error("failed to load operator", "username", cfg.App.Operator, "error", err)
		os.Exit(1)
	}

	return model{
		txService:      txSvc,
		accountService: accountSvc,
		auditService:   auditSvc,
		exportService:  export.NewService(accountSvc, txSvc, auditSvc),
		operator:       operator,
		currentView:    ViewMenu,
		views:          map[View]view.View{},
	}
}

func ensureOperator(ctx context.Context, users *user.Service, username string) (*user.User, error) {
	seeded, err := users.SeedDemo(ctx, []string{username})
	if err != nil {
		return nil, err
	}

	return seeded[0], nil
}

func (m model) newView(v View) view.View {
	op := m.operator.ID

	switch v {
	case ViewPending:
		return view.NewPendingModel(m.txService, m.auditService)
	case ViewCreate:
		return view.NewCreateModel(m.txService, m.accountService, op)
	case ViewAccounts:
		return view.NewAccountsModel(m.accountService, op)
	case ViewAudit:
		return view.NewAuditModel(m.auditService)
	case ViewSuspicious:
		return view.NewSuspiciousModel(m.auditService, m.txService)
	case ViewExport:
		return view.NewExportModel(m.exportService, m.accountService)
	}

	return nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1", "2", "3", "4", "5", "6":
				next := View(msg.String()[0] - '0')
				v := m.newView(next)
				m.views[next] = v
				m.currentView = next

				return m, v.Init()
			}

			return m, nil
		}

		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	current, ok := m.views[m.currentView]
	if !ok {
		return m, nil
	}

	next, cmd := current.Update(msg)
	if v, ok := next.(view.View); ok {
		m.views[m.currentView] = v
	}

	return m, cmd
}

func (m model) View() string {
	if m.currentView == ViewMenu {
		return lipgloss.NewStyle().Padding(2).Render(
			"Ledger TUI (operator: " + m.operator.Username + ")\n\n" +
				"1. Pending Transactions\n" +
				"2. New Transaction\n" +
				"3. Accounts\n" +
				"4. Audit Log\n" +
				"5. Suspicious Activity\n" +
				"6. Export Statement\n\n" +
				"q. Quit",
		)
	}

	current, ok := m.views[m.currentView]
	if !ok {
		return "Unknown View"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Padding(1, 1, 0).Render(current.Title()),
		current.View(),
		lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(current.ShortHelp()),
	)
}

func main() {
	m := initialModel()

	// The screen belongs to the TUI from here on; service logs go to a file.
	logFile, err := tea.LogToFile("ledger-tui.log", "ledger")
	if err != nil {
		slog.Error("failed to open log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
