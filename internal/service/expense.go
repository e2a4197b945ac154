package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/repository"
)

// Expense errors.
var (
	ErrInvalidCategory    = errors.New("category must be one of Travel, Lodging, Food")
	ErrInvalidAmount      = errors.New("amount must be a positive number")
	ErrInvalidDate        = errors.New("date must be ISO format YYYY-MM-DD")
	ErrInvalidDescription = errors.New("description must be a string")
	ErrExpenseNotFound    = errors.New("expense not found")
)

// Paging bounds for List.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// amountPattern accepts plain decimals with at most two fractional digits,
// including a bare leading or trailing point (".5", "5.").
// Signs, exponents and special values are rejected before parsing.
var amountPattern = regexp.MustCompile(`^([0-9]+(\.[0-9]{0,2})?|\.[0-9]{1,2})$`)

// maxAmount is the first value that does not fit NUMERIC(12,2).
var maxAmount = decimal.New(1, 10)

// ExpenseService handles expense business logic. Every method takes the
// acting user's ID and only sees rows that user owns.
type ExpenseService struct {
	store   repository.Store
	metrics metrics.Recorder
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(store repository.Store, recorder metrics.Recorder) *ExpenseService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ExpenseService{store: store, metrics: recorder}
}

// CreateExpenseInput defines input for creating an expense.
// Amount holds the literal decimal text from the request.
// DescriptionNotText marks a description that arrived as a non-string value.
type CreateExpenseInput struct {
	Category           string
	Amount             string
	Description        *string
	DescriptionNotText bool
	Date               string
}

// Create validates input and stores a new expense for ownerID.
// Checks run in order: category, amount, date, description.
func (s *ExpenseService) Create(ctx context.Context, ownerID int64, input CreateExpenseInput) (*model.Expense, error) {
	category, err := parseCategory(input.Category)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(input.Date)
	if err != nil {
		return nil, err
	}
	if input.DescriptionNotText {
		return nil, ErrInvalidDescription
	}

	expense := &model.Expense{
		OwnerID:     ownerID,
		Category:    category,
		Amount:      amount,
		Description: normalizeDescription(input.Description),
		Date:        date,
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		return tx.CreateExpense(ctx, expense)
	})
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.metrics.IncExpenseCreated()
	return expense, nil
}

// ListExpensesInput defines input for listing expenses.
// Page is floored at 1 and PerPage clamped to [1, MaxPerPage]; callers
// without a requested size pass DefaultPerPage.
type ListExpensesInput struct {
	OwnerID    int64
	Page       int
	PerPage    int
	Categories []string
}

// ExpensePage is one page of a listing.
type ExpensePage struct {
	Items   []*model.Expense
	Page    int
	PerPage int
	Total   int64
	Pages   int
}

// List returns one page of the owner's expenses ordered by date then ID, newest first.
func (s *ExpenseService) List(ctx context.Context, input ListExpensesInput) (*ExpensePage, error) {
	page, perPage := normalizePaging(input.Page, input.PerPage)

	categories := make([]model.Category, 0, len(input.Categories))
	for _, raw := range input.Categories {
		c, err := parseCategory(raw)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	filter := repository.ExpenseFilter{
		OwnerID:    input.OwnerID,
		Categories: categories,
		Limit:      perPage,
	}

	out := &ExpensePage{Page: page, PerPage: perPage}
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		total, err := tx.CountExpenses(ctx, filter)
		if err != nil {
			return err
		}
		out.Total = total

		// The offset is only computed for pages that exist; any page past
		// the last one would overflow it.
		if page > pageCount(total, perPage) {
			out.Items = []*model.Expense{}
			return nil
		}
		filter.Offset = (page - 1) * perPage
		out.Items, err = tx.ListExpenses(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	out.Pages = pageCount(out.Total, perPage)
	return out, nil
}

// Get returns one owned expense.
func (s *ExpenseService) Get(ctx context.Context, ownerID, id int64) (*model.Expense, error) {
	expense, err := s.store.GetExpense(ctx, ownerID, id)
	if err != nil {
		return nil, mapExpenseError("get expense", err)
	}
	return expense, nil
}

// UpdateExpenseInput defines a partial update. A nil field is left unchanged.
// An empty Description clears it.
type UpdateExpenseInput struct {
	Category           *string
	Amount             *string
	Description        *string
	DescriptionNotText bool
	Date               *string
}

// Update applies a partial update atomically: the row is locked, every
// supplied field is validated, and nothing is written if any field fails.
func (s *ExpenseService) Update(ctx context.Context, ownerID, id int64, input UpdateExpenseInput) (*model.Expense, error) {
	var updated *model.Expense
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		expense, err := tx.GetExpenseForUpdate(ctx, ownerID, id)
		if err != nil {
			return err
		}

		changed, err := applyUpdate(expense, input)
		if err != nil {
			return err
		}
		if changed {
			if err := tx.UpdateExpense(ctx, expense); err != nil {
				return err
			}
		}

		updated = expense
		return nil
	})
	if err != nil {
		return nil, mapExpenseError("update expense", err)
	}

	s.metrics.IncExpenseUpdated()
	return updated, nil
}

// Delete removes one owned expense.
func (s *ExpenseService) Delete(ctx context.Context, ownerID, id int64) error {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		return tx.DeleteExpense(ctx, ownerID, id)
	})
	if err != nil {
		return mapExpenseError("delete expense", err)
	}

	s.metrics.IncExpenseDeleted()
	return nil
}

// applyUpdate validates every supplied field before touching expense.
func applyUpdate(expense *model.Expense, input UpdateExpenseInput) (bool, error) {
	next := *expense
	changed := false

	if input.Category != nil {
		c, err := parseCategory(*input.Category)
		if err != nil {
			return false, err
		}
		next.Category = c
		changed = true
	}
	if input.Amount != nil {
		a, err := parseAmount(*input.Amount)
		if err != nil {
			return false, err
		}
		next.Amount = a
		changed = true
	}
	if input.DescriptionNotText {
		return false, ErrInvalidDescription
	}
	if input.Description != nil {
		next.Description = normalizeDescription(input.Description)
		changed = true
	}
	if input.Date != nil {
		d, err := parseDate(*input.Date)
		if err != nil {
			return false, err
		}
		next.Date = d
		changed = true
	}

	*expense = next
	return changed, nil
}

func mapExpenseError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrExpenseNotFound):
		return ErrExpenseNotFound
	case errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidDescription):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func parseCategory(raw string) (model.Category, error) {
	c := model.Category(raw)
	if !c.IsValid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if !amountPattern.MatchString(raw) {
		return decimal.Decimal{}, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if !d.IsPositive() || d.GreaterThanOrEqual(maxAmount) {
		return decimal.Decimal{}, ErrInvalidAmount
	}

	return d, nil
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// normalizeDescription trims whitespace and maps empty to absent.
func normalizeDescription(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizePaging(page, perPage int) (int, int) {
	return max(page, 1), min(max(perPage, 1), MaxPerPage)
}

func pageCount(total int64, perPage int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
