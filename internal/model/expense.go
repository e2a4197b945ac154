// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the closed set of expense categories.
type Category string

const (
	CategoryTravel  Category = "Travel"
	CategoryLodging Category = "Lodging"
	CategoryFood    Category = "Food"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryTravel, CategoryLodging, CategoryFood}

// IsValid reports whether c is one of the known categories.
// Matching is case-sensitive.
func (c Category) IsValid() bool {
	switch c {
	case CategoryTravel, CategoryLodging, CategoryFood:
		return true
	default:
		return false
	}
}

// DateLayout is the wire and storage format of an expense date.
const DateLayout = "2006-01-02"

// Expense represents a single spending record owned by one user.
type Expense struct {
	ID          int64
	OwnerID     int64
	Category    Category
	Amount      decimal.Decimal
	Description *string
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AmountScale is the number of fractional digits stored for an amount.
const AmountScale = 2

// FormatAmount renders an amount at AmountScale, so "100.5" and "100.50"
// both render as "100.50" whether they came from a request or from storage.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
