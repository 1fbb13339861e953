// Package model defines the core domain types shared across the application.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category is one of the fixed expense categories the API understands.
type Category string

// Expense categories.
const (
	CategoryOtherPayments  Category = "other_payments"
	CategoryHobby          Category = "hobby"
	CategorySubscriptions  Category = "subscriptions"
	CategoryTransport      Category = "transport"
	CategoryRestaurants    Category = "restaurants"
	CategoryUtility        Category = "utility"
	CategoryOnlineShopping Category = "online_shopping"
	CategoryDebts          Category = "debts"
)

// Categories lists every known category in display order.
func Categories() []Category {
	return []Category{
		CategoryOtherPayments,
		CategoryHobby,
		CategorySubscriptions,
		CategoryTransport,
		CategoryRestaurants,
		CategoryUtility,
		CategoryOnlineShopping,
		CategoryDebts,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Currency is one of the fixed currencies the API understands.
type Currency string

// Supported currencies.
const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyPLN Currency = "PLN"
	CurrencyBTC Currency = "BTC"
)

// Currencies lists every known currency.
func Currencies() []Currency {
	return []Currency{CurrencyUSD, CurrencyEUR, CurrencyPLN, CurrencyBTC}
}

// Valid reports whether c is one of the known currencies.
func (c Currency) Valid() bool {
	for _, known := range Currencies() {
		if c == known {
			return true
		}
	}
	return false
}

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	switch c {
	case CurrencyUSD:
		return "$"
	case CurrencyEUR:
		return "€"
	case CurrencyPLN:
		return "zł"
	case CurrencyBTC:
		return "₿"
	default:
		return string(c)
	}
}

// DateLayout is the wire format for expense dates.
const DateLayout = "2006-01-02"

// DraftID marks an expense that has not been persisted yet, e.g. one
// pre-filled from invoice analysis.
const DraftID = -1

// Expense is a single expense record. ID is server-assigned and absent
// (zero) before creation.
type Expense struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Amount      float64  `json:"amount"`
	Category    Category `json:"category"`
	Currency    Currency `json:"currency"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
}

// Validate checks the fields required before submitting an expense.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("expense name is required")
	}
	if e.Amount <= 0 {
		return fmt.Errorf("expense amount must be positive")
	}
	if !e.Category.Valid() {
		return fmt.Errorf("unknown category %q", e.Category)
	}
	if !e.Currency.Valid() {
		return fmt.Errorf("unknown currency %q", e.Currency)
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return fmt.Errorf("invalid date %q: %w", e.Date, err)
	}
	return nil
}

// Normalized returns a copy of e with missing or malformed fields replaced by
// safe defaults: empty category falls back to other_payments, empty currency
// to USD, and an unparseable date to today. Used when preparing an expense as
// an edit target.
func (e Expense) Normalized(now time.Time) Expense {
	if !e.Category.Valid() {
		e.Category = CategoryOtherPayments
	}
	if !e.Currency.Valid() {
		e.Currency = CurrencyUSD
	}
	e.Date = NormalizeDate(e.Date, now)
	return e
}

// NormalizeDate coerces s into the wire date format, truncating to the start
// of the day. A malformed or empty value falls back to now.
func NormalizeDate(s string, now time.Time) string {
	if s != "" {
		for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(DateLayout)
			}
		}
	}
	return now.Format(DateLayout)
}

// FlexAmount is an amount that may arrive as either a JSON number or a quoted
// string, depending on what the invoice extraction service guessed.
type FlexAmount string

// UnmarshalJSON accepts both `12.5` and `"12.50"`.
func (a *FlexAmount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*a = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	*a = FlexAmount(s)
	return nil
}

// Float parses the amount, returning 0 for empty or malformed values.
func (a FlexAmount) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(a)), 64)
	if err != nil {
		return 0
	}
	return f
}

// Draft is a partial expense, typically the field guesses extracted from an
// uploaded invoice. All fields are optional.
type Draft struct {
	Name        string     `json:"name"`
	Amount      FlexAmount `json:"amount"`
	Category    Category   `json:"category"`
	Currency    Currency   `json:"currency"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
}

// Normalize turns the draft into a full expense carrying the DraftID
// sentinel: the amount is coerced to a number and missing category, currency
// and date receive defaults.
func (d Draft) Normalize(now time.Time) Expense {
	e := Expense{
		ID:          DraftID,
		Name:        d.Name,
		Amount:      d.Amount.Float(),
		Category:    d.Category,
		Currency:    d.Currency,
		Date:        d.Date,
		Description: d.Description,
	}
	return e.Normalized(now)
}
