package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spendwise/spendwise/internal/model"
)

// ExpenseQuery selects a page of expenses within a date range.
type ExpenseQuery struct {
	FromDate string
	ToDate   string
	Limit    int
	Offset   int
}

// expensePayload is the wire shape for create and update: an expense without
// its server-assigned ID.
type expensePayload struct {
	Name        string         `json:"name"`
	Amount      float64        `json:"amount"`
	Category    model.Category `json:"category"`
	Currency    model.Currency `json:"currency"`
	Date        string         `json:"date"`
	Description string         `json:"description"`
}

func payloadFor(e model.Expense) expensePayload {
	return expensePayload{
		Name:        e.Name,
		Amount:      e.Amount,
		Category:    e.Category,
		Currency:    e.Currency,
		Date:        e.Date,
		Description: e.Description,
	}
}

// ListExpenses returns the requested page, ordered as the server returns it.
func (c *Client) ListExpenses(ctx context.Context, q ExpenseQuery) ([]model.Expense, error) {
	query := url.Values{}
	query.Set("fromDate", q.FromDate)
	query.Set("toDate", q.ToDate)
	query.Set("limit", strconv.Itoa(q.Limit))
	query.Set("offset", strconv.Itoa(q.Offset))

	var expenses []model.Expense
	if err := c.get(ctx, "/expenses", query, &expenses); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

// CreateExpense submits a new expense and returns the server-assigned ID.
func (c *Client) CreateExpense(ctx context.Context, e model.Expense) (int, error) {
	var id int
	if err := c.postJSON(ctx, "/expenses", payloadFor(e), &id); err != nil {
		return 0, fmt.Errorf("failed to create expense: %w", err)
	}
	return id, nil
}

// GetExpense fetches a single expense by ID.
func (c *Client) GetExpense(ctx context.Context, id int) (model.Expense, error) {
	var e model.Expense
	if err := c.get(ctx, "/expenses/"+strconv.Itoa(id), nil, &e); err != nil {
		return model.Expense{}, fmt.Errorf("failed to fetch expense %d: %w", id, err)
	}
	return e, nil
}

// UpdateExpense applies a partial update to the expense with the given ID.
func (c *Client) UpdateExpense(ctx context.Context, id int, e model.Expense) error {
	if err := c.patchJSON(ctx, "/expenses/"+strconv.Itoa(id), payloadFor(e), nil); err != nil {
		return fmt.Errorf("failed to update expense %d: %w", id, err)
	}
	return nil
}

// DeleteExpense removes the expense with the given ID.
func (c *Client) DeleteExpense(ctx context.Context, id int) error {
	if err := c.del(ctx, "/expenses/"+strconv.Itoa(id)); err != nil {
		return fmt.Errorf("failed to delete expense %d: %w", id, err)
	}
	return nil
}

// AnalyzeInvoice uploads an invoice image and returns the extraction
// service's field guesses.
func (c *Client) AnalyzeInvoice(ctx context.Context, filename string, file io.Reader) (model.Draft, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return model.Draft{}, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return model.Draft{}, fmt.Errorf("failed to read invoice file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return model.Draft{}, fmt.Errorf("failed to finalize upload: %w", err)
	}

	var draft model.Draft
	if err := c.do(ctx, http.MethodPost, "/expenses/analyze-invoice", nil, buf.Bytes(), writer.FormDataContentType(), &draft); err != nil {
		return model.Draft{}, fmt.Errorf("failed to analyze invoice: %w", err)
	}
	return draft, nil
}
