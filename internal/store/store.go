// Package store holds the authoritative in-memory expense list and the
// actions that mutate it: paginated fetching, optimistic create/update/
// delete with rollback, date-range filtering and edit-target selection.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spendwise/spendwise/internal/api"
	"github.com/spendwise/spendwise/internal/model"
)

// PageLimit is the fixed page size; fetch offsets are page * PageLimit.
const PageLimit = 10

// defaultRangeDays is how far back the initial date filter reaches.
const defaultRangeDays = 10

// Gateway is the slice of the API client the store depends on.
type Gateway interface {
	ListExpenses(ctx context.Context, q api.ExpenseQuery) ([]model.Expense, error)
	CreateExpense(ctx context.Context, e model.Expense) (int, error)
	UpdateExpense(ctx context.Context, id int, e model.Expense) error
	DeleteExpense(ctx context.Context, id int) error
}

// State is a consistent snapshot of the store. The expense slice is replaced
// wholesale on every mutation, so a snapshot never observes a half-applied
// change.
type State struct {
	Expenses      []model.Expense
	Current       *model.Expense
	FromDate      string
	ToDate        string
	Page          int
	HasMore       bool
	Loading       bool
	Authenticated bool
}

// Store is the central state container. One instance is constructed at
// startup and passed explicitly to every consumer.
type Store struct {
	gw  Gateway
	now func() time.Time

	mu            sync.Mutex
	expenses      []model.Expense
	current       *model.Expense
	fromDate      string
	toDate        string
	page          int
	hasMore       bool
	loading       bool
	authenticated bool
}

// New creates a store with the default date range: the last ten days through
// today.
func New(gw Gateway) *Store {
	return NewWithClock(gw, time.Now)
}

// NewWithClock creates a store with an injectable clock, used by tests to pin
// "today".
func NewWithClock(gw Gateway, now func() time.Time) *Store {
	today := now()
	return &Store{
		gw:       gw,
		now:      now,
		fromDate: today.AddDate(0, 0, -defaultRangeDays).Format(model.DateLayout),
		toDate:   today.Format(model.DateLayout),
		hasMore:  true,
	}
}

// State returns a snapshot of the current store state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Expenses:      s.expenses,
		Current:       s.current,
		FromDate:      s.fromDate,
		ToDate:        s.toDate,
		Page:          s.page,
		HasMore:       s.hasMore,
		Loading:       s.loading,
		Authenticated: s.authenticated,
	}
}

// Expenses returns the current expense list snapshot.
func (s *Store) Expenses() []model.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses
}

// HasMore reports whether another page may still be available.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// FetchPage loads the page at the current cursor for the given date range and
// merges it into the list. A fetch returning zero new items latches hasMore
// to false. The loading flag clears on every completion path; fetch errors
// propagate to the caller.
func (s *Store) FetchPage(ctx context.Context, fromDate, toDate string) error {
	s.mu.Lock()
	if !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.fetch(ctx, fromDate, toDate)
}

// fetch is FetchPage without the hasMore guard; rollback uses it directly so
// an exhausted cursor still recovers.
func (s *Store) fetch(ctx context.Context, fromDate, toDate string) error {
	s.mu.Lock()
	s.loading = true
	offset := s.page * PageLimit
	s.mu.Unlock()

	expenses, err := s.gw.ListExpenses(ctx, api.ExpenseQuery{
		FromDate: fromDate,
		ToDate:   toDate,
		Limit:    PageLimit,
		Offset:   offset,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return err
	}

	if len(expenses) == 0 {
		s.hasMore = false
		return nil
	}
	s.expenses = mergeUnique(s.expenses, expenses)
	return nil
}

// Create submits the expense and appends the stored record once the server
// has assigned its ID. Creation is deliberately not optimistic: the ID only
// exists after the server acknowledges.
func (s *Store) Create(ctx context.Context, e model.Expense) (int, error) {
	id, err := s.gw.CreateExpense(ctx, e)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = id
	s.expenses = mergeUnique(s.expenses, []model.Expense{e})
	return id, nil
}

// Update optimistically replaces the matching entry with the merged fields,
// then issues the network update. On failure the optimistic state is
// discarded and the current page range is re-fetched; the mutation error
// itself is not surfaced, only a rollback fetch failure is.
func (s *Store) Update(ctx context.Context, id int, e model.Expense) error {
	s.mu.Lock()
	updated := make([]model.Expense, len(s.expenses))
	for i, existing := range s.expenses {
		if existing.ID == id {
			merged := e
			merged.ID = id
			updated[i] = merged
		} else {
			updated[i] = existing
		}
	}
	s.expenses = updated
	s.mu.Unlock()

	if err := s.gw.UpdateExpense(ctx, id, e); err != nil {
		slog.Warn("expense update rejected, rolling back", "id", id, "error", err)
		return s.rollback(ctx)
	}
	return nil
}

// Delete optimistically removes the expense, then issues the network delete.
// Failure rolls back the same way Update does.
func (s *Store) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	remaining := make([]model.Expense, 0, len(s.expenses))
	for _, existing := range s.expenses {
		if existing.ID != id {
			remaining = append(remaining, existing)
		}
	}
	s.expenses = remaining
	s.mu.Unlock()

	if err := s.gw.DeleteExpense(ctx, id); err != nil {
		slog.Warn("expense delete rejected, rolling back", "id", id, "error", err)
		return s.rollback(ctx)
	}
	return nil
}

// rollback discards the optimistic list and re-fetches the current page
// range. History beyond the current page is lost; that trade-off is part of
// the recovery contract.
func (s *Store) rollback(ctx context.Context) error {
	s.mu.Lock()
	s.expenses = nil
	s.hasMore = true
	fromDate, toDate := s.fromDate, s.toDate
	s.mu.Unlock()

	return s.fetch(ctx, fromDate, toDate)
}

// SetFromDate updates the filter's lower bound and invalidates the loaded
// list and cursor.
func (s *Store) SetFromDate(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fromDate = date
	s.resetLocked()
}

// SetToDate updates the filter's upper bound and invalidates the loaded list
// and cursor.
func (s *Store) SetToDate(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toDate = date
	s.resetLocked()
}

// resetLocked performs the full invalidation that follows any filter change.
// Callers must hold s.mu.
func (s *Store) resetLocked() {
	s.expenses = nil
	s.page = 0
	s.hasMore = true
}

// SetPage moves the pagination cursor. Triggering the matching fetch is the
// caller's reactive binding, not a store side effect.
func (s *Store) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
}

// EditExpense selects the expense with the given ID as the edit target,
// normalized for the edit form. An unknown ID clears the target: there is
// nothing to edit, which is not an error.
func (s *Store) EditExpense(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expenses {
		if e.ID == id {
			normalized := e.Normalized(s.now())
			s.current = &normalized
			return
		}
	}
	s.current = nil
}

// EditDraft sets a normalized draft as the edit target, carrying the unsaved
// sentinel ID.
func (s *Store) EditDraft(d model.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	normalized := d.Normalize(s.now())
	s.current = &normalized
}

// ClearEdit drops the edit target.
func (s *Store) ClearEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Current returns the expense being edited, or nil.
func (s *Store) Current() *model.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetAuthenticated records the outcome of the auth bootstrap or a login.
func (s *Store) SetAuthenticated(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = v
}

// IsAuthenticated reports the authentication flag.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// mergeUnique appends next onto prev, dropping entries whose ID is already
// present. First occurrence wins; order is preserved. The result is always a
// fresh slice so previously returned snapshots stay intact.
func mergeUnique(prev, next []model.Expense) []model.Expense {
	seen := make(map[int]struct{}, len(prev)+len(next))
	merged := make([]model.Expense, 0, len(prev)+len(next))
	for _, list := range [][]model.Expense{prev, next} {
		for _, e := range list {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			merged = append(merged, e)
		}
	}
	return merged
}
