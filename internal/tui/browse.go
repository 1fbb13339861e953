// Package tui implements the interactive expense browser: a table over the
// store's expense list with infinite scroll. Moving past the end of the
// loaded rows advances the page cursor and triggers the matching fetch.
package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/spendwise/spendwise/internal/cli"
	"github.com/spendwise/spendwise/internal/model"
	"github.com/spendwise/spendwise/internal/store"
)

// fetchedMsg reports a completed page fetch.
type fetchedMsg struct {
	err error
}

// Model is the bubbletea model for the browse view.
type Model struct {
	store    *store.Store
	err      error
	table    table.Model
	spinner  spinner.Model
	width    int
	height   int
	fetching bool
	quitting bool
}

// New creates the browse model; the first page loads on Init.
func New(st *store.Store) Model {
	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Date", Width: 12},
		{Title: "Name", Width: 28},
		{Title: "Category", Width: 18},
		{Title: "Amount", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("#333"))
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#000")).
		Background(cli.PrimaryColor)
	t.SetStyles(styles)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(cli.PrimaryColor)

	return Model{
		store:    st,
		table:    t,
		spinner:  sp,
		fetching: true,
	}
}

// Run starts the browse TUI, blocking until the user quits.
func Run(st *store.Store) error {
	if _, err := tea.NewProgram(New(st), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("browse view failed: %w", err)
	}
	return nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchCmd(m.store))
}

// fetchCmd loads the page at the store's current cursor for its current date
// range.
func fetchCmd(st *store.Store) tea.Cmd {
	return func() tea.Msg {
		state := st.State()
		return fetchedMsg{err: st.FetchPage(context.Background(), state.FromDate, state.ToDate)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(5, msg.Height-6))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if row := m.table.SelectedRow(); row != nil {
				if id, err := strconv.Atoi(row[0]); err == nil {
					m.store.EditExpense(id)
				}
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		if next := m.loadMoreCmd(); next != nil {
			return m, tea.Batch(cmd, next)
		}
		return m, cmd

	case fetchedMsg:
		m.fetching = false
		m.err = msg.err
		m.table.SetRows(rowsFor(m.store.Expenses()))
		return m, nil

	case spinner.TickMsg:
		if !m.fetching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// loadMoreCmd is the reactive binding between the cursor and the fetch:
// resting on the last loaded row advances the page and requests the next one.
func (m *Model) loadMoreCmd() tea.Cmd {
	state := m.store.State()
	if m.fetching || !state.HasMore || len(state.Expenses) == 0 {
		return nil
	}
	if m.table.Cursor() < len(state.Expenses)-1 {
		return nil
	}
	m.store.SetPage(state.Page + 1)
	m.fetching = true
	return tea.Batch(m.spinner.Tick, fetchCmd(m.store))
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := cli.FormatTitle("Expenses")
	state := m.store.State()

	footer := cli.SubtleStyle.Render(fmt.Sprintf(
		"%d loaded · %s — %s · ↑/↓ scroll · enter select · q quit",
		len(state.Expenses), state.FromDate, state.ToDate,
	))
	if m.fetching {
		footer = m.spinner.View() + " loading… " + footer
	} else if !state.HasMore {
		footer = cli.SubtleStyle.Render("all expenses loaded · ") + footer
	}
	if m.err != nil {
		footer = cli.ErrorStyle.Render(m.err.Error()) + "\n" + footer
	}
	if state.Current != nil {
		footer = cli.SuccessStyle.Render("selected: "+state.Current.Name) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.table.View(), footer)
}

// rowsFor converts the expense snapshot into table rows.
func rowsFor(expenses []model.Expense) []table.Row {
	rows := make([]table.Row, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, table.Row{
			strconv.Itoa(e.ID),
			e.Date,
			e.Name,
			string(e.Category),
			cli.FormatAmount(e.Amount, e.Currency),
		})
	}
	return rows
}
