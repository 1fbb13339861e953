package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise/spendwise/internal/api"
	"github.com/spendwise/spendwise/internal/model"
	"github.com/spendwise/spendwise/internal/store"
)

type pagedGateway struct {
	pages map[int][]model.Expense
}

func (g *pagedGateway) ListExpenses(_ context.Context, q api.ExpenseQuery) ([]model.Expense, error) {
	return g.pages[q.Offset], nil
}

func (g *pagedGateway) CreateExpense(context.Context, model.Expense) (int, error) { return 0, nil }
func (g *pagedGateway) UpdateExpense(context.Context, int, model.Expense) error   { return nil }
func (g *pagedGateway) DeleteExpense(context.Context, int) error                  { return nil }

func testStore(t *testing.T, pages map[int][]model.Expense) *store.Store {
	t.Helper()
	st := store.New(&pagedGateway{pages: pages})
	state := st.State()
	require.NoError(t, st.FetchPage(context.Background(), state.FromDate, state.ToDate))
	return st
}

func tenExpenses(startID int) []model.Expense {
	out := make([]model.Expense, 0, 10)
	for i := 0; i < 10; i++ {
		out = append(out, model.Expense{
			ID:       startID + i,
			Name:     "expense",
			Amount:   5,
			Category: model.CategoryHobby,
			Currency: model.CurrencyUSD,
			Date:     "2024-03-01",
		})
	}
	return out
}

func TestRowsFor(t *testing.T) {
	rows := rowsFor([]model.Expense{{
		ID:       3,
		Name:     "Lunch",
		Amount:   12.5,
		Category: model.CategoryRestaurants,
		Currency: model.CurrencyEUR,
		Date:     "2024-03-01",
	}})

	require.Len(t, rows, 1)
	assert.Equal(t, "3", rows[0][0])
	assert.Equal(t, "2024-03-01", rows[0][1])
	assert.Equal(t, "Lunch", rows[0][2])
	assert.Equal(t, "restaurants", rows[0][3])
	assert.Equal(t, "€12.50", rows[0][4])
}

func TestBrowse_ScrollingPastEndAdvancesPage(t *testing.T) {
	st := testStore(t, map[int][]model.Expense{
		0:  tenExpenses(1),
		10: tenExpenses(11),
	})

	m := New(st)
	m.fetching = false
	m.table.SetRows(rowsFor(st.Expenses()))

	// Walk the cursor to the last loaded row.
	var updated tea.Model = m
	var cmd tea.Cmd
	for i := 0; i < 9; i++ {
		updated, cmd = updated.Update(tea.KeyMsg{Type: tea.KeyDown})
	}

	require.NotNil(t, cmd, "reaching the end must trigger the next fetch")
	assert.Equal(t, 1, st.State().Page)

	// Running the command loads page two into the store.
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if result := c(); result != nil {
				updated, _ = updated.Update(result)
			}
		}
	} else {
		updated, _ = updated.Update(msg)
	}
	assert.Len(t, st.Expenses(), 20)
	_ = updated
}

func TestBrowse_QuitKeys(t *testing.T) {
	st := testStore(t, map[int][]model.Expense{0: tenExpenses(1)})
	m := New(st)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestBrowse_EnterSelectsEditTarget(t *testing.T) {
	st := testStore(t, map[int][]model.Expense{0: tenExpenses(1)})
	m := New(st)
	m.fetching = false
	m.table.SetRows(rowsFor(st.Expenses()))

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	current := st.Current()
	require.NotNil(t, current)
	assert.Equal(t, 1, current.ID)
}
